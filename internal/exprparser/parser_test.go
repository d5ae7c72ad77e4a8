package exprparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quarry/internal/expr"
	"github.com/roach88/quarry/internal/lexer"
	"github.com/roach88/quarry/internal/rdf"
)

func newParser() *Parser {
	ns := rdf.NewNamespaceMap()
	ns.Set("ex", "http://example.org/")
	ns.Set("xsd", rdf.XSDNamespace)
	return &Parser{
		BaseIRI:    "http://example.org/base/",
		Namespaces: ns,
		Functions:  expr.DefaultRegistry(),
	}
}

func TestParse_Shapes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1+2*3", "(1 + (2 * 3))"},
		{"(1+2)*3", "((1 + 2) * 3)"},
		{"?a || ?b && ?c", "(?a || (?b && ?c))"},
		{"?a || ?b || ?c", "(?a || (?b || ?c))"},
		{"?a && ?b && ?c", "(?a && (?b && ?c))"},
		{"?x = 1 && ?y != 2", "((?x = 1) && (?y != 2))"},
		{"?x <= ?y", "(?x <= ?y)"},
		{"!?x", "!?x"},
		{"-?x", "-?x"},
		{"+?x", "?x"},
		{"?x -1", "(?x + -1)"},
		{"?x - 1", "(?x - 1)"},
		{"BOUND(?x)", "BOUND(?x)"},
		{"COALESCE(?x, ?y, 1)", "COALESCE(?x, ?y, 1)"},
		{"IF(?c, 1, 2)", "IF(?c, 1, 2)"},
		{"REGEX(?s, \"^a\")", `REGEX(?s, "^a")`},
		{"REGEX(?s, \"^a\", \"i\")", `REGEX(?s, "^a", "i")`},
		{"STR(ex:a)", "STR(<http://example.org/a>)"},
		{"ex:f(?x, (1 + 2))", "<http://example.org/f>(?x, (1 + 2))"},
		{"ex:f()", "<http://example.org/f>()"},
		{"<http://example.org/a>", "<http://example.org/a>"},
		{"?x IN (1 2 3)", "?x IN (1, 2, 3)"},
		{"?x NOT IN (ex:a, \"b\")", `?x NOT IN (<http://example.org/a>, "b")`},
		{"true", "true"},
	}
	p := newParser()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e, err := p.ParseString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.String())
		})
	}
}

func TestParse_NumericClassification(t *testing.T) {
	tests := []struct {
		input string
		want  rdf.Node
	}{
		{"42", rdf.NewTypedLiteral("42", rdf.XSDInteger)},
		{"-7", rdf.NewTypedLiteral("-7", rdf.XSDInteger)},
		{"4.5", rdf.NewTypedLiteral("4.5", rdf.XSDDecimal)},
		{"1.5e3", rdf.NewTypedLiteral("1.5e3", rdf.XSDDouble)},
		{`"5"^^xsd:integer`, rdf.NewTypedLiteral("5", rdf.XSDInteger)},
		{`"5"^^xsd:decimal`, rdf.NewTypedLiteral("5", rdf.XSDDecimal)},
		{`"true"^^xsd:boolean`, expr.True},
		{`"chat"@fr`, rdf.NewLangLiteral("chat", "fr")},
		{`"x"^^<http://example.org/dt>`, rdf.NewTypedLiteral("x", "http://example.org/dt")},
	}
	p := newParser()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e, err := p.ParseString(tt.input)
			require.NoError(t, err)
			c, ok := e.(*expr.Constant)
			require.True(t, ok, "got %T", e)
			assert.Equal(t, tt.want, c.Value)
		})
	}
}

func TestParse_Aggregates(t *testing.T) {
	p := newParser()
	p.AllowAggregates = true

	e, err := p.ParseString("COUNT(*)")
	require.NoError(t, err)
	agg, ok := e.(*expr.Aggregation)
	require.True(t, ok)
	assert.True(t, agg.IsCountAll())
	assert.False(t, agg.Distinct)

	e, err = p.ParseString("COUNT(DISTINCT *)")
	require.NoError(t, err)
	assert.Equal(t, "COUNT(DISTINCT *)", e.String())

	e, err = p.ParseString("SUM(?x * 2)")
	require.NoError(t, err)
	assert.Equal(t, "SUM((?x * 2))", e.String())

	e, err = p.ParseString(`GROUP_CONCAT(?x ; SEPARATOR = ",")`)
	require.NoError(t, err)
	assert.Equal(t, `GROUP_CONCAT(?x ; SEPARATOR = ",")`, e.String())

	e, err = p.ParseString(`GROUP_CONCAT(?x, ?y)`)
	require.NoError(t, err)
	assert.Equal(t, `GROUP_CONCAT(CONCAT(?x, ?y))`, e.String())

	e, err = p.ParseString("AVG(?x) > 2")
	require.NoError(t, err)
	assert.True(t, expr.ContainsAggregate(e))

	e, err = p.ParseString("<http://quarry.dev/functions#all>(DISTINCT ?x)")
	require.NoError(t, err)
	assert.Equal(t, "<http://quarry.dev/functions#all>(DISTINCT ?x)", e.String())
}

func TestParse_ExtendedAggregates(t *testing.T) {
	p := newParser()
	p.AllowAggregates = true

	_, err := p.ParseString("MEDIAN(?x)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extended")

	p.Syntax = Extended
	e, err := p.ParseString("MEDIAN(?x)")
	require.NoError(t, err)
	assert.Equal(t, "MEDIAN(?x)", e.String())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		aggregates bool
		contains   string
	}{
		{"aggregates disabled", "COUNT(*)", false, "aggregates are not permitted"},
		{"extension aggregate disabled", "<http://quarry.dev/functions#any>(?x)", false, "aggregates are not permitted"},
		{"star outside count", "SUM(*)", true, "only valid for the COUNT"},
		{"sample distinct", "SAMPLE(DISTINCT ?x)", true, "DISTINCT modifier is not valid"},
		{"sum distinct", "SUM(DISTINCT ?x)", true, "DISTINCT modifier is not valid"},
		{"nested aggregate", "SUM(COUNT(?x))", true, "aggregates are not permitted"},
		{"typed numeric mismatch", `"abc"^^xsd:integer`, false, "not a valid integer, decimal or double"},
		{"decimal shape for double", `"1.5"^^xsd:double`, false, "not a valid integer, decimal or double"},
		{"bad boolean", `"yes"^^xsd:boolean`, false, "not a valid boolean"},
		{"trailing token", "1 )", false, "conditional or expression"},
		{"bound needs variable", "BOUND(1)", false, "variable"},
		{"wrong arity", "STR(?a, ?b)", false, "does not accept"},
		{"exists without callback", "EXISTS { ?s ?p ?o }", false, "no graph pattern parser"},
		{"distinct in builtin", "STR(DISTINCT ?x)", false, "DISTINCT"},
		{"distinct in function", "ex:f(DISTINCT ?x)", false, "DISTINCT"},
		{"empty brackets", "()", false, "empty bracketed expression"},
		{"variable in set", "?x IN (?y)", false, "IN/NOT IN"},
		{"unterminated", "(1 + 2", false, "end of tokens"},
		{"unknown prefix", "nope:x", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser()
			p.AllowAggregates = tt.aggregates
			_, err := p.ParseString(tt.input)
			require.Error(t, err)
			assert.True(t, IsParseError(err), "got %T: %v", err, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestParse_ErrorFormat(t *testing.T) {
	_, err := newParser().ParseString("?x ?y")
	require.Error(t, err)
	assert.Equal(t,
		"[VARIABLE at Line 1 Column 4 to Line 1 Column 5] unexpected VARIABLE token while trying to parse a conditional or expression",
		err.Error())
}

type patternStub struct{ text string }

func (p patternStub) Variables() []string { return nil }
func (p patternStub) String() string      { return p.text }

func TestParse_Exists(t *testing.T) {
	var got []lexer.Token
	p := newParser()
	p.Exists = func(tokens []lexer.Token, ns *rdf.NamespaceMap, base rdf.IRI) (expr.Pattern, error) {
		got = tokens
		assert.Equal(t, rdf.IRI("http://example.org/base/"), base)
		return patternStub{"{ ... }"}, nil
	}

	e, err := p.ParseString("NOT EXISTS { ?s ex:p { ?o } } && ?x")
	require.NoError(t, err)
	assert.Equal(t, "(NOT EXISTS { ... } && ?x)", e.String())

	require.NotEmpty(t, got)
	assert.Equal(t, lexer.LeftCurlyBracket, got[0].Kind)
	assert.Equal(t, lexer.RightCurlyBracket, got[len(got)-1].Kind)
	assert.Len(t, got, 7)
}

func TestParse_ExistsInsideArguments(t *testing.T) {
	p := newParser()
	p.Exists = func(tokens []lexer.Token, _ *rdf.NamespaceMap, _ rdf.IRI) (expr.Pattern, error) {
		return patternStub{"{ }"}, nil
	}
	// The comma inside the braces does not split the IF arguments.
	e, err := p.ParseString("IF(EXISTS { ?s ?p ?a, ?b }, 1, 2)")
	require.NoError(t, err)
	assert.Equal(t, "IF(EXISTS { }, 1, 2)", e.String())
}

func TestParse_CastResolvesThroughRegistry(t *testing.T) {
	e, err := newParser().ParseString(`xsd:integer("12")`)
	require.NoError(t, err)

	v, err := e.Evaluate(&expr.Context{}, nil)
	require.NoError(t, err)
	assert.Equal(t, rdf.NewTypedLiteral("12", rdf.XSDInteger), v)
}

func TestParse_IRIBuiltinCarriesBase(t *testing.T) {
	e, err := newParser().ParseString(`IRI("rel")`)
	require.NoError(t, err)
	b, ok := e.(*expr.Builtin)
	require.True(t, ok)
	assert.Equal(t, expr.FnIRI, b.Name)
	assert.Equal(t, rdf.IRI("http://example.org/base/"), b.Base)
}
