package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(tokens []Token) []Kind {
	out := make([]Kind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestTokenize_Kinds(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Kind
	}{
		{"arithmetic", "1+2*3", []Kind{PlainLiteral, Plus, PlainLiteral, Multiply, PlainLiteral}},
		{"logical", "1||0&&1", []Kind{PlainLiteral, Or, PlainLiteral, And, PlainLiteral}},
		{"relational", "?a <= ?b != 3", []Kind{Variable, LessThanOrEqual, Variable, NotEquals, PlainLiteral}},
		{"iri and qname", "<http://ex/a> ex:b :c", []Kind{URI, QName, QName}},
		{"less than is not an iri", "?x < 5", []Kind{Variable, LessThan, PlainLiteral}},
		{"lang literal", `"chat"@fr`, []Kind{Literal, LangSpec}},
		{"typed literal qname", `"1"^^xsd:integer`, []Kind{Literal, HatHat, Datatype}},
		{"typed literal iri", `"1"^^<http://www.w3.org/2001/XMLSchema#integer>`, []Kind{Literal, HatHat, Datatype}},
		{"long literal", `"""multi
line"""`, []Kind{LongLiteral}},
		{"not exists", "NOT EXISTS { ?s ?p ?o }", []Kind{NotExists, LeftCurlyBracket, Variable, Variable, Variable, RightCurlyBracket}},
		{"not in", "?x NOT IN (1, 2)", []Kind{Variable, NotIn, LeftBracket, PlainLiteral, Comma, PlainLiteral, RightBracket}},
		{"aggregate", "COUNT(DISTINCT *)", []Kind{Count, LeftBracket, Distinct, Multiply, RightBracket}},
		{"group concat", "GROUP_CONCAT(?x ; SEPARATOR = \",\")", []Kind{GroupConcat, LeftBracket, Variable, Semicolon, Separator, Equals, Literal, RightBracket}},
		{"signed number after space", "?x -1", []Kind{Variable, PlainLiteral}},
		{"minus operator without space", "?x-1", []Kind{Variable, Minus, PlainLiteral}},
		{"minus operator with spaces", "1 - 1", []Kind{PlainLiteral, Minus, PlainLiteral}},
		{"booleans", "true false", []Kind{PlainLiteral, PlainLiteral}},
		{"keyword a", "?s a ex:T", []Kind{Variable, KeywordA, QName}},
		{"blank node", "_:b1", []Kind{BlankNodeWithID}},
		{"assignment", "LET(?x := 1)", []Kind{Let, LeftBracket, Variable, Assignment, PlainLiteral, RightBracket}},
		{"path operators", "ex:p/^ex:q|ex:r*", []Kind{QName, Divide, Hat, QName, Pipe, QName, Multiply}},
		{"comment skipped", "?x # trailing\n?y", []Kind{Variable, Variable}},
		{"case insensitive keywords", "select Distinct", []Kind{Select, Distinct}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kinds(tokens))
		})
	}
}

func TestTokenize_Values(t *testing.T) {
	tokens, err := Tokenize(`?name "a\"b" <http://ex/x> 4.5e-3 @en-GB`)
	require.NoError(t, err)
	require.Len(t, tokens, 5)
	assert.Equal(t, "name", tokens[0].Value)
	assert.Equal(t, `a"b`, tokens[1].Value)
	assert.Equal(t, "http://ex/x", tokens[2].Value)
	assert.Equal(t, "4.5e-3", tokens[3].Value)
	assert.Equal(t, "en-GB", tokens[4].Value)
}

func TestTokenize_Positions(t *testing.T) {
	tokens, err := Tokenize("SELECT ?x\n  WHERE")
	require.NoError(t, err)
	require.Len(t, tokens, 3)

	assert.Equal(t, 1, tokens[0].StartLine)
	assert.Equal(t, 1, tokens[0].StartColumn)
	assert.Equal(t, 6, tokens[0].EndColumn)

	assert.Equal(t, 8, tokens[1].StartColumn)
	assert.Equal(t, 9, tokens[1].EndColumn)

	assert.Equal(t, 2, tokens[2].StartLine)
	assert.Equal(t, 3, tokens[2].StartColumn)
	assert.Equal(t, 7, tokens[2].EndColumn)
}

func TestTokenize_Errors(t *testing.T) {
	for _, input := range []string{`"open`, "NOT FOO", "~", "@", "_:", "bogus"} {
		t.Run(input, func(t *testing.T) {
			_, err := Tokenize(input)
			require.Error(t, err)
			var lexErr *Error
			assert.ErrorAs(t, err, &lexErr)
		})
	}
}

func TestSliceQueue(t *testing.T) {
	q := NewQueue(Token{Kind: Variable, Value: "a"})
	assert.Equal(t, 1, q.Len())

	tok, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, "a", tok.Value)
	assert.Equal(t, 1, q.Len(), "peek must not consume")

	q.Enqueue(Token{Kind: Variable, Value: "b"})
	tok, _ = q.Dequeue()
	assert.Equal(t, "a", tok.Value)
	tok, _ = q.Dequeue()
	assert.Equal(t, "b", tok.Value)

	_, ok = q.Dequeue()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}
