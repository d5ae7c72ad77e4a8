package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Error reports a character sequence the tokenizer cannot classify.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d column %d: %s", e.Line, e.Column, e.Message)
}

// Tokenize splits SPARQL text into tokens.
//
// Signed numbers: a + or - immediately followed by a digit is folded into a
// single PLAINLITERAL when it follows whitespace or an opening bracket or
// comma (e.g. "?x -1" yields VARIABLE PLAINLITERAL("-1")). Otherwise the sign
// is an operator token ("?x-1", "1 - 1").
func Tokenize(input string) ([]Token, error) {
	t := &tokenizer{input: input, line: 1, col: 1}
	if err := t.run(); err != nil {
		return nil, err
	}
	return t.tokens, nil
}

// TokenizeQueue tokenizes input into a SliceQueue.
func TokenizeQueue(input string) (*SliceQueue, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	return NewQueue(tokens...), nil
}

var punctuation = map[byte]Kind{
	'(': LeftBracket, ')': RightBracket, '{': LeftCurlyBracket, '}': RightCurlyBracket,
	'[': LeftSquareBracket, ']': RightSquareBracket, ',': Comma, ';': Semicolon, '.': Dot,
	'=': Equals, '+': Plus, '-': Minus, '*': Multiply, '/': Divide, '!': Negation,
	'^': Hat, '|': Pipe,
}

type tokenizer struct {
	input  string
	pos    int
	line   int
	col    int
	tokens []Token

	startPos, startLine, startCol int
}

func (t *tokenizer) run() error {
	for {
		t.skipSpaceAndComments()
		if t.pos >= len(t.input) {
			return nil
		}
		t.startPos, t.startLine, t.startCol = t.pos, t.line, t.col
		if err := t.next(); err != nil {
			return err
		}
	}
}

func (t *tokenizer) next() error {
	c := t.input[t.pos]
	switch {
	case c == '<':
		if t.peekAt(1) == '=' {
			t.advanceN(2)
			return t.emit(LessThanOrEqual, "<=")
		}
		if end, ok := t.scanIRIRef(); ok {
			value := t.input[t.pos+1 : end]
			t.advanceTo(end + 1)
			if t.lastKind() == HatHat {
				return t.emit(Datatype, "<"+value+">")
			}
			return t.emit(URI, value)
		}
		t.advance()
		return t.emit(LessThan, "<")
	case c == '>':
		if t.peekAt(1) == '=' {
			t.advanceN(2)
			return t.emit(GreaterThanOrEqual, ">=")
		}
		t.advance()
		return t.emit(GreaterThan, ">")
	case c == '?' || c == '$':
		if isNameStart(t.runeAt(1)) || isDigit(t.peekAt(1)) {
			t.advance()
			return t.emit(Variable, t.readWhile(isVarChar))
		}
		t.advance()
		return t.emit(QuestionMark, "?")
	case c == '_' && t.peekAt(1) == ':':
		t.advanceN(2)
		label := t.readWhile(isNameChar)
		if label == "" {
			return t.errorf("blank node label expected after _:")
		}
		return t.emit(BlankNodeWithID, label)
	case c == '"' || c == '\'':
		return t.scanString(c)
	case c == '@':
		t.advance()
		lang := t.readWhile(func(r rune) bool { return r == '-' || isAlnum(r) })
		if lang == "" {
			return t.errorf("language tag expected after @")
		}
		return t.emit(LangSpec, lang)
	case isDigit(c) || (c == '.' && isDigit(t.peekAt(1))):
		return t.scanNumber()
	case (c == '+' || c == '-') && isDigit(t.peekAt(1)) && t.signFolds():
		t.advance()
		return t.scanNumber()
	case c == ':' && t.peekAt(1) == '=':
		t.advanceN(2)
		return t.emit(Assignment, ":=")
	case c == ':' || isNameStart(t.runeAt(0)):
		return t.scanWord()
	}
	return t.scanPunctuation(c)
}

func (t *tokenizer) scanPunctuation(c byte) error {
	two := ""
	if t.pos+1 < len(t.input) {
		two = t.input[t.pos : t.pos+2]
	}
	switch two {
	case "||":
		t.advanceN(2)
		return t.emit(Or, two)
	case "&&":
		t.advanceN(2)
		return t.emit(And, two)
	case "!=":
		t.advanceN(2)
		return t.emit(NotEquals, two)
	case "^^":
		t.advanceN(2)
		if err := t.emit(HatHat, two); err != nil {
			return err
		}
		return t.scanDatatype()
	}

	kind, ok := punctuation[c]
	if !ok {
		return t.errorf("unexpected character %q", rune(c))
	}
	t.advance()
	return t.emit(kind, string(c))
}

// scanDatatype reads the IRI or prefixed name following ^^ as a DATATYPE token.
func (t *tokenizer) scanDatatype() error {
	t.startPos, t.startLine, t.startCol = t.pos, t.line, t.col
	if t.pos < len(t.input) && t.input[t.pos] == '<' {
		end, ok := t.scanIRIRef()
		if !ok {
			return t.errorf("unterminated datatype IRI")
		}
		value := t.input[t.pos : end+1]
		t.advanceTo(end + 1)
		return t.emit(Datatype, value)
	}
	prefix := t.readWhile(isNameChar)
	if t.pos >= len(t.input) || t.input[t.pos] != ':' {
		return t.errorf("datatype IRI or prefixed name expected after ^^")
	}
	t.advance()
	local := t.readLocalName()
	return t.emit(Datatype, prefix+":"+local)
}

func (t *tokenizer) scanWord() error {
	word := t.readWhile(isNameChar)
	if t.pos < len(t.input) && t.input[t.pos] == ':' && !(t.peekAt(1) == '=') {
		t.advance()
		local := t.readLocalName()
		if t.lastKind() == HatHat {
			return t.emit(Datatype, word+":"+local)
		}
		return t.emit(QName, word+":"+local)
	}
	switch word {
	case "a":
		return t.emit(KeywordA, word)
	case "true", "false":
		return t.emit(PlainLiteral, word)
	}

	upper := strings.ToUpper(word)
	if upper == "NOT" {
		return t.scanNot()
	}
	if kind, ok := keywords[upper]; ok {
		return t.emit(kind, word)
	}
	return t.errorf("unexpected word %q", word)
}

// scanNot folds NOT EXISTS and NOT IN into single tokens.
func (t *tokenizer) scanNot() error {
	save := *t
	t.skipSpaceAndComments()
	follow := strings.ToUpper(t.readWhile(isNameChar))
	switch follow {
	case "EXISTS":
		return t.emit(NotExists, "NOT EXISTS")
	case "IN":
		return t.emit(NotIn, "NOT IN")
	}
	*t = save
	return t.errorf("NOT must be followed by EXISTS or IN")
}

func (t *tokenizer) scanNumber() error {
	isDig := func(r rune) bool { return r >= '0' && r <= '9' }
	t.readWhile(isDig)
	if t.pos < len(t.input) && t.input[t.pos] == '.' && isDigit(t.peekAt(1)) {
		t.advance()
		t.readWhile(isDig)
	}
	if t.pos < len(t.input) && (t.input[t.pos] == 'e' || t.input[t.pos] == 'E') {
		next := t.peekAt(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(t.peekAt(2))) {
			t.advanceN(2)
			t.readWhile(isDig)
		}
	}
	return t.emit(PlainLiteral, t.input[t.startPos:t.pos])
}

func (t *tokenizer) scanString(quote byte) error {
	long := strings.Repeat(string(quote), 3)
	if strings.HasPrefix(t.input[t.pos:], long) {
		end := strings.Index(t.input[t.pos+3:], long)
		if end < 0 {
			return t.errorf("unterminated long literal")
		}
		raw := t.input[t.pos+3 : t.pos+3+end]
		t.advanceTo(t.pos + 3 + end + 3)
		value, err := unescape(raw)
		if err != nil {
			return t.errorf("%v", err)
		}
		return t.emit(LongLiteral, value)
	}

	i := t.pos + 1
	for ; i < len(t.input); i++ {
		switch t.input[i] {
		case '\\':
			i++
			continue
		case '\n':
			return t.errorf("newline in short literal")
		}
		if t.input[i] == quote {
			break
		}
	}
	if i >= len(t.input) {
		return t.errorf("unterminated literal")
	}
	raw := t.input[t.pos+1 : i]
	t.advanceTo(i + 1)
	value, err := unescape(raw)
	if err != nil {
		return t.errorf("%v", err)
	}
	return t.emit(Literal, value)
}

// scanIRIRef returns the index of the closing > when the text at pos is an IRI reference.
func (t *tokenizer) scanIRIRef() (int, bool) {
	for i := t.pos + 1; i < len(t.input); i++ {
		switch t.input[i] {
		case '>':
			return i, true
		case ' ', '\t', '\n', '\r', '<', '"', '{', '}', '|', '^', '`', '\\':
			return 0, false
		}
	}
	return 0, false
}

// signFolds reports whether a sign at pos starts a signed number.
func (t *tokenizer) signFolds() bool {
	if len(t.tokens) == 0 || t.pos == 0 {
		return true
	}
	prev := t.input[t.pos-1]
	return prev == ' ' || prev == '\t' || prev == '\n' || prev == '\r' || prev == '(' || prev == ','
}

func (t *tokenizer) readLocalName() string {
	start := t.pos
	for t.pos < len(t.input) {
		r, size := utf8.DecodeRuneInString(t.input[t.pos:])
		if isNameChar(r) || r == '%' || (r == '.' && t.pos+size < len(t.input) && isNameCharByte(t.input[t.pos+size])) {
			t.advanceBytes(size, r)
			continue
		}
		break
	}
	return t.input[start:t.pos]
}

func (t *tokenizer) readWhile(pred func(rune) bool) string {
	start := t.pos
	for t.pos < len(t.input) {
		r, size := utf8.DecodeRuneInString(t.input[t.pos:])
		if !pred(r) {
			break
		}
		t.advanceBytes(size, r)
	}
	return t.input[start:t.pos]
}

func (t *tokenizer) skipSpaceAndComments() {
	for t.pos < len(t.input) {
		c := t.input[t.pos]
		switch {
		case c == '#':
			for t.pos < len(t.input) && t.input[t.pos] != '\n' {
				t.advance()
			}
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			t.advance()
		default:
			return
		}
	}
}

func (t *tokenizer) emit(kind Kind, value string) error {
	endLine, endCol := t.line, t.col-1
	if endCol < 1 {
		endCol = 1
	}
	t.tokens = append(t.tokens, Token{
		Kind:        kind,
		Value:       value,
		StartLine:   t.startLine,
		StartColumn: t.startCol,
		EndLine:     endLine,
		EndColumn:   endCol,
	})
	return nil
}

func (t *tokenizer) errorf(format string, args ...any) error {
	return &Error{Line: t.startLine, Column: t.startCol, Message: fmt.Sprintf(format, args...)}
}

func (t *tokenizer) lastKind() Kind {
	if len(t.tokens) == 0 {
		return Unknown
	}
	return t.tokens[len(t.tokens)-1].Kind
}

func (t *tokenizer) advance() {
	r, size := utf8.DecodeRuneInString(t.input[t.pos:])
	t.advanceBytes(size, r)
}

func (t *tokenizer) advanceN(n int) {
	for i := 0; i < n && t.pos < len(t.input); i++ {
		t.advance()
	}
}

func (t *tokenizer) advanceTo(pos int) {
	for t.pos < pos && t.pos < len(t.input) {
		t.advance()
	}
}

func (t *tokenizer) advanceBytes(size int, r rune) {
	t.pos += size
	if r == '\n' {
		t.line++
		t.col = 1
		return
	}
	t.col++
}

func (t *tokenizer) peekAt(offset int) byte {
	if t.pos+offset >= len(t.input) {
		return 0
	}
	return t.input[t.pos+offset]
}

func (t *tokenizer) runeAt(offset int) rune {
	if t.pos+offset >= len(t.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(t.input[t.pos+offset:])
	return r
}

func unescape(raw string) (string, error) {
	if !strings.Contains(raw, `\`) {
		return raw, nil
	}
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' {
			b.WriteByte(raw[i])
			continue
		}
		i++
		if i >= len(raw) {
			return "", fmt.Errorf("dangling escape")
		}
		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '"', '\'', '\\':
			b.WriteByte(raw[i])
		default:
			return "", fmt.Errorf("unknown escape \\%c", raw[i])
		}
	}
	return b.String(), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlnum(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

func isNameStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }

func isVarChar(r rune) bool { return r == '_' || isAlnum(r) }

func isNameChar(r rune) bool { return r == '_' || r == '-' || isAlnum(r) }

func isNameCharByte(c byte) bool { return c == '_' || c == '-' || c >= 0x80 || isAlnum(rune(c)) }
