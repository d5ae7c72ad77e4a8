package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/solution"
)

func integer(s string) rdf.Literal { return rdf.NewTypedLiteral(s, rdf.XSDInteger) }
func decimal(s string) rdf.Literal { return rdf.NewTypedLiteral(s, rdf.XSDDecimal) }
func double(s string) rdf.Literal  { return rdf.NewTypedLiteral(s, rdf.XSDDouble) }

func c(n rdf.Node) Expression { return NewConstant(n) }

func eval(t *testing.T, e Expression, sol *solution.Solution) (rdf.Node, error) {
	t.Helper()
	if sol == nil {
		sol = solution.New()
	}
	return e.Evaluate(&Context{}, sol)
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		expr Expression
		want rdf.Node
	}{
		{"integer add", Add(c(integer("1")), c(integer("2"))), integer("3")},
		{"precedence shape", Add(c(integer("1")), Multiply(c(integer("2")), c(integer("3")))), integer("7")},
		{"integer division is decimal", Divide(c(integer("1")), c(integer("2"))), decimal("0.5")},
		{"exact division keeps a dot", Divide(c(integer("4")), c(integer("2"))), decimal("2.0")},
		{"decimal times integer", Multiply(c(decimal("1.5")), c(integer("2"))), decimal("3.0")},
		{"double promotion", Add(c(double("2.0E0")), c(integer("1"))), double("3.0E0")},
		{"subtract negative", Subtract(c(integer("1")), c(integer("-4"))), integer("5")},
		{"negate", Negate(c(integer("5"))), integer("-5")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval(t, tt.expr, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArithmetic_Errors(t *testing.T) {
	_, err := eval(t, Divide(c(integer("1")), c(integer("0"))), nil)
	assert.Equal(t, CodeDivisionByZero, CodeOf(err))

	_, err = eval(t, Add(c(integer("1")), c(rdf.NewLiteral("x"))), nil)
	assert.Equal(t, CodeTypeError, CodeOf(err))

	_, err = eval(t, Add(c(integer("1")), NewVar("missing")), nil)
	assert.Equal(t, CodeUnbound, CodeOf(err))
}

func TestEffectiveBooleanValue(t *testing.T) {
	tests := []struct {
		name    string
		node    rdf.Node
		want    bool
		wantErr bool
	}{
		{"true", True, true, false},
		{"false", False, false, false},
		{"zero", integer("0"), false, false},
		{"nonzero", decimal("0.1"), true, false},
		{"NaN", double("NaN"), false, false},
		{"empty string", rdf.NewLiteral(""), false, false},
		{"string", rdf.NewLiteral("x"), true, false},
		{"invalid numeric lexical", integer("abc"), false, false},
		{"iri", rdf.IRI("http://ex/a"), false, true},
		{"unknown datatype", rdf.NewTypedLiteral("x", "http://ex/dt"), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EffectiveBooleanValue(tt.node)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComparison(t *testing.T) {
	tests := []struct {
		name string
		expr Expression
		want bool
	}{
		{"numeric equal across types", NewBinary(OpEqual, c(integer("1")), c(decimal("1.0"))), true},
		{"string less", NewBinary(OpLess, c(rdf.NewLiteral("a")), c(rdf.NewLiteral("b"))), true},
		{"iri equality", NewBinary(OpEqual, c(rdf.IRI("http://ex/a")), c(rdf.IRI("http://ex/a"))), true},
		{"iri inequality", NewBinary(OpNotEqual, c(rdf.IRI("http://ex/a")), c(rdf.IRI("http://ex/b"))), true},
		{"boolean order", NewBinary(OpLess, c(False), c(True)), true},
		{"greater or equal", NewBinary(OpGreaterEq, c(integer("2")), c(integer("2"))), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval(t, tt.expr, nil)
			require.NoError(t, err)
			assert.Equal(t, Boolean(tt.want), got)
		})
	}

	_, err := eval(t, NewBinary(OpLess, c(rdf.IRI("http://ex/a")), c(integer("1"))), nil)
	assert.Equal(t, CodeTypeError, CodeOf(err))
}

func TestLogical_ErrorTolerance(t *testing.T) {
	unbound := NewVar("nope")

	got, err := eval(t, Or(unbound, c(True)), nil)
	require.NoError(t, err)
	assert.Equal(t, True, got)

	got, err = eval(t, And(c(False), unbound), nil)
	require.NoError(t, err)
	assert.Equal(t, False, got)

	_, err = eval(t, And(c(True), unbound), nil)
	assert.Error(t, err)

	got, err = eval(t, Not(c(False)), nil)
	require.NoError(t, err)
	assert.Equal(t, True, got)
}

func TestBuiltins(t *testing.T) {
	sol := solution.FromMap(map[string]rdf.Node{
		"name": rdf.NewLangLiteral("chat", "fr"),
		"iri":  rdf.IRI("http://ex/a"),
	})
	tests := []struct {
		name string
		fn   string
		args []Expression
		want rdf.Node
	}{
		{"bound", FnBound, []Expression{NewVar("name")}, True},
		{"not bound", FnBound, []Expression{NewVar("other")}, False},
		{"coalesce skips unbound", FnCoalesce, []Expression{NewVar("other"), NewVar("iri")}, rdf.IRI("http://ex/a")},
		{"if", FnIf, []Expression{c(False), c(integer("1")), c(integer("2"))}, integer("2")},
		{"lang", FnLang, []Expression{NewVar("name")}, rdf.NewLiteral("fr")},
		{"datatype of lang literal", FnDatatype, []Expression{NewVar("name")}, rdf.RDFLangString},
		{"datatype of simple literal", FnDatatype, []Expression{c(rdf.NewLiteral("x"))}, rdf.XSDString},
		{"str of iri", FnStr, []Expression{NewVar("iri")}, rdf.NewLiteral("http://ex/a")},
		{"langmatches prefix", FnLangMatches, []Expression{c(rdf.NewLiteral("en-GB")), c(rdf.NewLiteral("en"))}, True},
		{"langmatches star", FnLangMatches, []Expression{c(rdf.NewLiteral("")), c(rdf.NewLiteral("*"))}, False},
		{"sameterm is not value equality", FnSameTerm, []Expression{c(integer("1")), c(decimal("1.0"))}, False},
		{"isiri", FnIsIRI, []Expression{NewVar("iri")}, True},
		{"isliteral", FnIsLiteral, []Expression{NewVar("iri")}, False},
		{"regex", FnRegex, []Expression{c(rdf.NewLiteral("Alice")), c(rdf.NewLiteral("^al"))}, False},
		{"regex case insensitive", FnRegex, []Expression{c(rdf.NewLiteral("Alice")), c(rdf.NewLiteral("^al")), c(rdf.NewLiteral("i"))}, True},
		{"strdt", FnStrDT, []Expression{c(rdf.NewLiteral("5")), c(rdf.XSDInteger)}, integer("5")},
		{"strlang", FnStrLang, []Expression{c(rdf.NewLiteral("hi")), c(rdf.NewLiteral("EN"))}, rdf.NewLangLiteral("hi", "en")},
		{"iri from string", FnIRI, []Expression{c(rdf.NewLiteral("http://ex/b"))}, rdf.IRI("http://ex/b")},
		{"concat", FnConcat, []Expression{c(rdf.NewLiteral("a")), c(rdf.NewLiteral("b"))}, rdf.NewLiteral("ab")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBuiltin(tt.fn, tt.args...)
			require.NoError(t, err)
			got, err := eval(t, b, sol)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuiltin_Arity(t *testing.T) {
	_, err := NewBuiltin(FnIf, c(True))
	assert.Error(t, err)
	_, err = NewBuiltin(FnBound, c(True))
	assert.Error(t, err, "BOUND requires a variable")
	_, err = NewBuiltin(FnRegex, c(True), c(True), c(True), c(True))
	assert.Error(t, err)
}

func TestIn(t *testing.T) {
	sol := solution.FromMap(map[string]rdf.Node{"x": integer("2")})
	set := []Expression{c(integer("1")), c(decimal("2.0"))}

	got, err := eval(t, &In{Needle: NewVar("x"), Set: set}, sol)
	require.NoError(t, err)
	assert.Equal(t, True, got)

	got, err = eval(t, &In{Needle: NewVar("x"), Set: set, Negated: true}, sol)
	require.NoError(t, err)
	assert.Equal(t, False, got)

	got, err = eval(t, &In{Needle: NewVar("x")}, sol)
	require.NoError(t, err)
	assert.Equal(t, False, got, "empty set never matches")
}

type stubPattern struct{}

func (stubPattern) Variables() []string { return []string{"s"} }
func (stubPattern) String() string      { return "{ ?s ?p ?o }" }

func TestExists(t *testing.T) {
	e := &Exists{Pattern: stubPattern{}, Negated: true}
	_, err := e.Evaluate(&Context{}, solution.New())
	assert.Error(t, err, "no callback")

	ctx := &Context{Exists: func(Pattern, *solution.Solution) (bool, error) { return true, nil }}
	got, err := e.Evaluate(ctx, solution.New())
	require.NoError(t, err)
	assert.Equal(t, False, got)
	assert.Equal(t, "NOT EXISTS { ?s ?p ?o }", e.String())
}

func group(vals ...rdf.Node) []*solution.Solution {
	out := make([]*solution.Solution, len(vals))
	for i, v := range vals {
		s := solution.New()
		if v != nil {
			_ = s.Set("x", v)
		}
		out[i] = s
	}
	return out
}

func TestAggregates(t *testing.T) {
	g := group(integer("1"), integer("2"), integer("2"), nil, integer("3"))
	x := NewVar("x")
	sep := c(rdf.NewLiteral(","))
	tests := []struct {
		name string
		agg  *Aggregation
		want rdf.Node
	}{
		{"count all", CountAll(false), integer("5")},
		{"count all distinct", CountAll(true), integer("4")},
		{"count", NewAggregation(AggCount, x, false), integer("4")},
		{"count distinct", NewAggregation(AggCount, x, true), integer("3")},
		{"sum", NewAggregation(AggSum, x, false), integer("8")},
		{"avg", NewAggregation(AggAvg, x, false), decimal("2.0")},
		{"min", NewAggregation(AggMin, x, false), integer("1")},
		{"max", NewAggregation(AggMax, x, false), integer("3")},
		{"sample", NewAggregation(AggSample, x, false), integer("1")},
		{"median", NewAggregation(AggMedian, x, false), integer("2")},
		{"mode", NewAggregation(AggMode, x, false), integer("2")},
		{"group concat", &Aggregation{Name: AggGroupConcat, Arg: x, Distinct: true, Separator: sep}, rdf.NewLiteral("1,2,3")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.agg.Apply(&Context{}, g)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAggregate_OutsideGroup(t *testing.T) {
	_, err := CountAll(false).Evaluate(&Context{}, solution.New())
	assert.Equal(t, CodeAggregateContext, CodeOf(err))

	got, err := CountAll(false).Evaluate((&Context{}).WithGroup(group(nil, nil)), solution.New())
	require.NoError(t, err)
	assert.Equal(t, integer("2"), got)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()

	e, err := r.Resolve(rdf.XSDInteger, []Expression{c(decimal("3.7"))})
	require.NoError(t, err)
	got, err := eval(t, e, nil)
	require.NoError(t, err)
	assert.Equal(t, integer("3"), got)

	e, err = r.Resolve(FunctionsNamespace+"all", []Expression{NewVar("x")})
	require.NoError(t, err)
	assert.True(t, IsAggregate(e))

	e, err = r.Resolve("http://ex/unknown", nil)
	require.NoError(t, err)
	_, err = eval(t, e, nil)
	assert.Equal(t, CodeUnknownFunction, CodeOf(err))

	r.Register(FactoryFunc(func(iri rdf.IRI, args []Expression) (Expression, bool, error) {
		if iri != "http://ex/one" {
			return nil, false, nil
		}
		return c(integer("1")), true, nil
	}))
	e, err = r.Resolve("http://ex/one", nil)
	require.NoError(t, err)
	assert.Equal(t, "1", e.String())
}

func TestCast(t *testing.T) {
	tests := []struct {
		name    string
		in      rdf.Node
		target  rdf.IRI
		want    rdf.Node
		wantErr bool
	}{
		{"decimal to integer truncates", decimal("-3.7"), rdf.XSDInteger, integer("-3"), false},
		{"double to integer", double("2.5E0"), rdf.XSDInteger, integer("2"), false},
		{"string to integer", rdf.NewLiteral("42"), rdf.XSDInteger, integer("42"), false},
		{"bad string to integer", rdf.NewLiteral("abc"), rdf.XSDInteger, nil, true},
		{"integer to decimal", integer("2"), rdf.XSDDecimal, decimal("2.0"), false},
		{"double to decimal", double("2.5E0"), rdf.XSDDecimal, decimal("2.5"), false},
		{"string to boolean", rdf.NewLiteral("1"), rdf.XSDBoolean, True, false},
		{"number to boolean", integer("0"), rdf.XSDBoolean, False, false},
		{"iri to string", rdf.IRI("http://ex/a"), rdf.XSDString, rdf.NewLiteral("http://ex/a"), false},
		{"iri to integer", rdf.IRI("http://ex/a"), rdf.XSDInteger, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cast(tt.in, tt.target)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransform_SubstitutesVariables(t *testing.T) {
	e := Add(NewVar("x"), Multiply(NewVar("y"), NewVar("x")))
	out, err := Transform(e, func(n Expression) (Expression, error) {
		if v, ok := n.(*Var); ok && v.Name == "x" {
			return NewVar("z"), nil
		}
		return n, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "(?z + (?y * ?z))", out.String())
	assert.Equal(t, []string{"y", "z"}, out.Variables())
	assert.Equal(t, "(?x + (?y * ?x))", e.String(), "original is unchanged")
}

func TestContainsAggregate(t *testing.T) {
	assert.True(t, ContainsAggregate(Add(c(integer("1")), CountAll(false))))
	assert.False(t, ContainsAggregate(Add(c(integer("1")), NewVar("x"))))
}

func TestOrderCompare(t *testing.T) {
	assert.Negative(t, OrderCompare(nil, rdf.Blank("b")))
	assert.Negative(t, OrderCompare(rdf.Blank("b"), rdf.IRI("http://ex/a")))
	assert.Negative(t, OrderCompare(rdf.IRI("http://ex/a"), integer("1")))
	assert.Negative(t, OrderCompare(integer("2"), integer("10")), "numbers compare by value")
}
