package rdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTerm(t *testing.T) {
	ns := NewNamespaceMap()
	ns.Set("ex", ex)

	tests := []struct {
		in   string
		want Node
	}{
		{"<http://example.org/a>", iri("a")},
		{"ex:a", iri("a")},
		{"_:b1", Blank("b1")},
		{"?s", Variable("s")},
		{`"plain"`, NewLiteral("plain")},
		{`"chat"@FR`, NewLangLiteral("chat", "fr")},
		{`"1"^^xsd:integer`, NewTypedLiteral("1", XSDInteger)},
		{`"x"^^<http://www.w3.org/2001/XMLSchema#string>`, NewLiteral("x")},
		{`"say \"hi\"\n"`, NewLiteral("say \"hi\"\n")},
		{"42", NewTypedLiteral("42", XSDInteger)},
		{"4.2", NewTypedLiteral("4.2", XSDDecimal)},
		{"4e2", NewTypedLiteral("4e2", XSDDouble)},
		{"true", NewTypedLiteral("true", XSDBoolean)},
		{"a", RDFType},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTerm(tt.in, ns)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "want %s got %s", tt.want, got)
		})
	}
}

func TestParseTerm_Errors(t *testing.T) {
	for _, in := range []string{"", "_:", "?", `"open`, `"x"junk`, "nope:a", "plain"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseTerm(in, NewNamespaceMap())
			assert.Error(t, err)
		})
	}
}

func TestFormatTerm_RoundTrip(t *testing.T) {
	nodes := []Node{
		iri("a"),
		Blank("x"),
		NewLiteral("tab\there"),
		NewLangLiteral("hello", "en"),
		NewTypedLiteral("3.5", XSDDecimal),
	}
	for _, n := range nodes {
		got, err := ParseTerm(FormatTerm(n), nil)
		require.NoError(t, err)
		assert.True(t, Equal(n, got), "round trip of %s gave %s", n, got)
	}
}

func TestLexicalShapes(t *testing.T) {
	assert.True(t, IsIntegerLexical("-12"))
	assert.False(t, IsIntegerLexical("1.0"))
	assert.True(t, IsDecimalLexical("1.0"))
	assert.True(t, IsDecimalLexical(".5"))
	assert.False(t, IsDecimalLexical("1e5"))
	assert.True(t, IsDoubleLexical("1e5"))
	assert.True(t, IsDoubleLexical("1.5E-3"))
	assert.True(t, IsDoubleLexical("NaN"))
	assert.False(t, IsDoubleLexical("1.5"))
	assert.True(t, IsFloatLexical("1.5"))
}

func TestCompare_KindOrder(t *testing.T) {
	ordered := []Node{Variable("v"), Blank("b"), iri("a"), NewLiteral("l"), GraphLiteral{}}
	for i := 0; i < len(ordered)-1; i++ {
		assert.Negative(t, Compare(ordered[i], ordered[i+1]), "%s < %s", ordered[i], ordered[i+1])
		assert.Positive(t, Compare(ordered[i+1], ordered[i]))
	}
	assert.Negative(t, Compare(nil, Variable("v")))
}

func TestBlankNode_ScopedEquality(t *testing.T) {
	a := BlankNode{ID: "x", Scope: "g1"}
	b := BlankNode{ID: "x", Scope: "g2"}
	assert.False(t, Equal(a, b))
	assert.True(t, Equal(a, BlankNode{ID: "x", Scope: "g1"}))
	assert.NotEqual(t, Key(a), Key(b))
}

func TestResolveIRI(t *testing.T) {
	tests := []struct {
		ref  string
		base IRI
		want IRI
	}{
		{"c", "http://example.org/a/b", "http://example.org/a/c"},
		{"http://other.org/x", "http://example.org/", "http://other.org/x"},
		{"#", "http://x.org/dir/doc", "http://x.org/dir/doc#"},
		{"ns#", "http://x.org/dir/doc", "http://x.org/dir/ns#"},
		{"#frag", "http://x.org/dir/doc", "http://x.org/dir/doc#frag"},
		{"other#", "http://x.org/dir/doc#old", "http://x.org/dir/other#"},
		{"rel", "", "rel"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := ResolveIRI(tt.ref, tt.base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewTypedLiteral_FoldsXSDString(t *testing.T) {
	assert.True(t, Equal(NewLiteral("x"), NewTypedLiteral("x", XSDString)))
	assert.True(t, NewTypedLiteral("x", XSDString).IsPlain())
}
