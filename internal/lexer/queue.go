package lexer

// Queue is a consumable, peekable sequence of tokens.
type Queue interface {
	// Len returns the number of tokens not yet dequeued.
	Len() int
	// Peek returns the next token without consuming it.
	Peek() (Token, bool)
	// Dequeue consumes and returns the next token.
	Dequeue() (Token, bool)
}

// SliceQueue is a Queue over a slice. It also supports appending, which
// parsers use to build sub-queues of captured token runs.
type SliceQueue struct {
	tokens []Token
	pos    int
}

// NewQueue creates a queue over tokens. The slice is not copied.
func NewQueue(tokens ...Token) *SliceQueue {
	return &SliceQueue{tokens: tokens}
}

func (q *SliceQueue) Len() int { return len(q.tokens) - q.pos }

func (q *SliceQueue) Peek() (Token, bool) {
	if q.pos >= len(q.tokens) {
		return Token{}, false
	}
	return q.tokens[q.pos], true
}

func (q *SliceQueue) Dequeue() (Token, bool) {
	tok, ok := q.Peek()
	if ok {
		q.pos++
	}
	return tok, ok
}

// Enqueue appends a token to the end of the queue.
func (q *SliceQueue) Enqueue(tok Token) {
	q.tokens = append(q.tokens, tok)
}

// Remaining returns the unconsumed tokens.
func (q *SliceQueue) Remaining() []Token {
	return q.tokens[q.pos:]
}
