package eval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/dataset"
	"github.com/roach88/quarry/internal/expr"
	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/solution"
)

const ex = "http://example.org/"

func iri(local string) rdf.IRI { return rdf.IRI(ex + local) }

func integer(lex string) rdf.Literal { return rdf.NewTypedLiteral(lex, rdf.XSDInteger) }

// item turns "?x" into a variable, "_:b" into a blank and anything else into
// an ex: IRI.
func item(x string) algebra.PatternItem {
	switch {
	case x[0] == '?':
		return algebra.Var(x[1:])
	case len(x) > 2 && x[:2] == "_:":
		return algebra.BlankItem{Label: x[2:]}
	}
	return algebra.Const(iri(x))
}

func tp(s, p, o string) *algebra.Match { return algebra.NewMatch(item(s), item(p), item(o)) }

func bgp(ms ...*algebra.Match) *algebra.Bgp {
	ps := make([]algebra.TriplePattern, len(ms))
	for i, m := range ms {
		ps[i] = m
	}
	return algebra.NewBgp(ps...)
}

// people is a default graph of two people, one with an email and a bad age.
func people() *dataset.Handle {
	src := dataset.NewInMemory()
	src.Update(rdf.DefaultGraph, []rdf.Triple{
		rdf.NewTriple(iri("a"), iri("name"), rdf.NewLiteral("A")),
		rdf.NewTriple(iri("a"), iri("age"), integer("30")),
		rdf.NewTriple(iri("a"), iri("email"), rdf.NewLiteral("a@example.org")),
		rdf.NewTriple(iri("b"), iri("name"), rdf.NewLiteral("B")),
		rdf.NewTriple(iri("b"), iri("age"), rdf.NewLiteral("unknown")),
	}, nil)
	return dataset.NewHandle(src)
}

// quads has a default graph pointing at g1 and two named graphs.
func quads() *dataset.Handle {
	src := dataset.NewInMemory(
		rdf.NewGraphFromTriples(iri("g1"),
			rdf.NewTriple(iri("a"), iri("p"), iri("b")),
			rdf.NewTriple(iri("b"), iri("p"), iri("c")),
		),
		rdf.NewGraphFromTriples(iri("g2"),
			rdf.NewTriple(iri("a"), iri("p"), iri("z")),
			rdf.NewTriple(iri("b"), iri("q"), rdf.NewLiteral("y")),
		),
	)
	src.Update(rdf.DefaultGraph, []rdf.Triple{
		rdf.NewTriple(iri("a"), iri("knows"), iri("g1")),
		rdf.NewTriple(iri("a"), iri("name"), rdf.NewLiteral("A")),
	}, nil)
	return dataset.NewHandle(src)
}

func evaluate(t *testing.T, h *dataset.Handle, n algebra.Node, opts ...Option) *solution.Multiset {
	t.Helper()
	ms, err := New(h, opts...).Evaluate(context.Background(), n)
	require.NoError(t, err)
	return ms
}

func values(ms *solution.Multiset, name string) []rdf.Node {
	var out []rdf.Node
	for _, s := range ms.Solutions() {
		v, _ := s.Get(name)
		out = append(out, v)
	}
	return out
}

func TestGraph_EmptyPatternIsNullAndLeavesScope(t *testing.T) {
	h := quads()
	tree := &algebra.Union{
		Left:  &algebra.Graph{Specifier: algebra.Const(iri("g1")), Inner: algebra.NewBgp()},
		Right: bgp(tp("?s", "name", "?n")),
	}
	ms := evaluate(t, h, tree)
	require.Equal(t, 1, ms.Len())
	assert.Equal(t, []rdf.Node{rdf.NewLiteral("A")}, values(ms, "n"))
	assert.Equal(t, 0, h.Depth())

	ms = evaluate(t, h, &algebra.Graph{Specifier: algebra.Var("g"), Inner: algebra.NewBgp()})
	assert.True(t, ms.IsNull())
}

func TestGraph_ConstantSpecifier(t *testing.T) {
	h := quads()
	ms := evaluate(t, h, &algebra.Graph{Specifier: algebra.Const(iri("g2")), Inner: bgp(tp("?x", "p", "?y"))})
	require.Equal(t, 1, ms.Len())
	assert.Equal(t, []rdf.Node{iri("z")}, values(ms, "y"))
	assert.False(t, ms.ContainsVariable("g"))
}

func TestGraph_FreeVariableFilledFromOrigin(t *testing.T) {
	h := quads()
	tree := &algebra.Graph{Specifier: algebra.Var("g"), Inner: bgp(tp("?x", "p", "?y"))}

	ms := evaluate(t, h, tree)
	require.Equal(t, 3, ms.Len())
	assert.Equal(t, []rdf.Node{iri("g1"), iri("g1"), iri("g2")}, values(ms, "g"))
	assert.Equal(t, []rdf.Node{iri("b"), iri("c"), iri("z")}, values(ms, "y"))

	ms = evaluate(t, h, tree, WithNamedGraphs(iri("g2")))
	require.Equal(t, 1, ms.Len())
	assert.Equal(t, []rdf.Node{iri("g2")}, values(ms, "g"))
}

func TestGraph_PerGraphPatternsDoNotMixGraphs(t *testing.T) {
	h := quads()
	// a p b (g1) and b q "y" (g2) would join in a merged scope.
	tree := &algebra.Graph{Specifier: algebra.Var("g"), Inner: bgp(tp("?x", "p", "?y"), tp("?y", "q", "?v"))}
	ms := evaluate(t, h, tree)
	assert.Equal(t, 0, ms.Len())

	merged := &algebra.Graph{Specifier: algebra.Const(iri("g1")), Inner: bgp(tp("?x", "p", "?y"), tp("?y", "p", "?z"))}
	ms = evaluate(t, h, merged)
	require.Equal(t, 1, ms.Len())
	assert.Equal(t, []rdf.Node{iri("c")}, values(ms, "z"))
}

func TestGraph_VariableBoundByInput(t *testing.T) {
	h := quads()
	tree := &algebra.Join{
		Left:  bgp(tp("a", "knows", "?g")),
		Right: &algebra.Graph{Specifier: algebra.Var("g"), Inner: bgp(tp("?x", "p", "?y"))},
	}
	ms := evaluate(t, h, tree)
	require.Equal(t, 2, ms.Len())
	assert.Equal(t, []rdf.Node{iri("g1"), iri("g1")}, values(ms, "g"))
}

func TestGraph_ScopeRestoredOnError(t *testing.T) {
	h := quads()
	tree := &algebra.Graph{
		Specifier: algebra.Const(iri("g1")),
		Inner:     &algebra.Service{Endpoint: algebra.Const(iri("remote")), Inner: algebra.NewBgp()},
	}
	_, err := New(h).Evaluate(context.Background(), tree)
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, 0, h.Depth())
	assert.Equal(t, dataset.DefaultScope(), h.Scope())
}

func TestService_Silent(t *testing.T) {
	ms := evaluate(t, people(), &algebra.Service{Endpoint: algebra.Const(iri("remote")), Inner: algebra.NewBgp(), Silent: true})
	assert.True(t, ms.IsIdentity())
}

func TestFilter_ErrorsExclude(t *testing.T) {
	tree := &algebra.Filter{
		Inner: bgp(tp("?s", "age", "?age")),
		Expr:  expr.NewBinary(expr.OpGreater, expr.NewVar("age"), expr.NewConstant(integer("20"))),
	}
	ms := evaluate(t, people(), tree)
	require.Equal(t, 1, ms.Len())
	assert.Equal(t, []rdf.Node{iri("a")}, values(ms, "s"))
}

func TestExtend_ErrorLeavesUnbound(t *testing.T) {
	tree := &algebra.Extend{
		Inner: bgp(tp("?s", "age", "?age")),
		Var:   "twice",
		Expr:  expr.Multiply(expr.NewVar("age"), expr.NewConstant(integer("2"))),
	}
	ms := evaluate(t, people(), tree)
	require.Equal(t, 2, ms.Len())
	assert.Equal(t, []rdf.Node{integer("60"), nil}, values(ms, "twice"))
}

func TestCombinators(t *testing.T) {
	names := bgp(tp("?s", "name", "?n"))
	emails := bgp(tp("?s", "email", "?e"))

	tests := []struct {
		name  string
		tree  algebra.Node
		check func(t *testing.T, ms *solution.Multiset)
	}{
		{
			name: "left join keeps unmatched",
			tree: &algebra.LeftJoin{Left: names, Right: emails},
			check: func(t *testing.T, ms *solution.Multiset) {
				assert.Equal(t, []rdf.Node{rdf.NewLiteral("a@example.org"), nil}, values(ms, "e"))
			},
		},
		{
			name: "left join filter false keeps left",
			tree: &algebra.LeftJoin{Left: names, Right: emails, Filter: expr.NewConstant(expr.False)},
			check: func(t *testing.T, ms *solution.Multiset) {
				assert.Equal(t, []rdf.Node{nil, nil}, values(ms, "e"))
			},
		},
		{
			name: "minus",
			tree: &algebra.Minus{Left: names, Right: emails},
			check: func(t *testing.T, ms *solution.Multiset) {
				assert.Equal(t, []rdf.Node{iri("b")}, values(ms, "s"))
			},
		},
		{
			name: "join",
			tree: &algebra.Join{Left: names, Right: emails},
			check: func(t *testing.T, ms *solution.Multiset) {
				assert.Equal(t, []rdf.Node{iri("a")}, values(ms, "s"))
			},
		},
		{
			name: "union",
			tree: &algebra.Union{Left: names, Right: emails},
			check: func(t *testing.T, ms *solution.Multiset) {
				assert.Equal(t, 3, ms.Len())
			},
		},
		{
			name: "order desc then slice",
			tree: &algebra.Slice{
				Inner:  &algebra.OrderBy{Inner: names, Conditions: []algebra.OrderCondition{{Expr: expr.NewVar("n"), Descending: true}}},
				Offset: -1,
				Limit:  1,
			},
			check: func(t *testing.T, ms *solution.Multiset) {
				assert.Equal(t, []rdf.Node{rdf.NewLiteral("B")}, values(ms, "n"))
			},
		},
		{
			name: "count over empty input",
			tree: &algebra.Group{
				Inner:      bgp(tp("?s", "missing", "?o")),
				Aggregates: []algebra.AggregateBinding{{Var: "c", Agg: expr.CountAll(false)}},
			},
			check: func(t *testing.T, ms *solution.Multiset) {
				assert.Equal(t, []rdf.Node{integer("0")}, values(ms, "c"))
			},
		},
		{
			name: "group by subject",
			tree: &algebra.Group{
				Inner:      bgp(tp("?s", "?p", "?o")),
				Keys:       []algebra.GroupKey{{Expr: expr.NewVar("s")}},
				Aggregates: []algebra.AggregateBinding{{Var: "c", Agg: expr.CountAll(false)}},
			},
			check: func(t *testing.T, ms *solution.Multiset) {
				assert.Equal(t, []rdf.Node{iri("a"), iri("b")}, values(ms, "s"))
				assert.Equal(t, []rdf.Node{integer("3"), integer("2")}, values(ms, "c"))
			},
		},
		{
			name: "repeated variable must match itself",
			tree: bgp(tp("?x", "name", "?x")),
			check: func(t *testing.T, ms *solution.Multiset) {
				assert.True(t, ms.IsNull())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, evaluate(t, people(), tt.tree))
		})
	}
}

func TestPaths(t *testing.T) {
	h := quads()
	h.PushScope(dataset.Scope{Graphs: []rdf.IRI{iri("g1")}})
	defer func() { require.NoError(t, h.PopScope()) }()

	p := algebra.PathIRI{IRI: iri("p")}
	tests := []struct {
		name string
		pat  *algebra.PathPattern
		want []rdf.Node
	}{
		{"one or more", &algebra.PathPattern{Subject: item("a"), Path: &algebra.OneOrMorePath{Path: p}, Object: item("?o")}, []rdf.Node{iri("b"), iri("c")}},
		{"zero or more", &algebra.PathPattern{Subject: item("a"), Path: &algebra.ZeroOrMorePath{Path: p}, Object: item("?o")}, []rdf.Node{iri("a"), iri("b"), iri("c")}},
		{"sequence", &algebra.PathPattern{Subject: item("a"), Path: &algebra.SequencePath{Left: p, Right: p}, Object: item("?o")}, []rdf.Node{iri("c")}},
		{"inverse", &algebra.PathPattern{Subject: item("c"), Path: &algebra.InversePath{Path: p}, Object: item("?o")}, []rdf.Node{iri("b")}},
		{"backwards from object", &algebra.PathPattern{Subject: item("?o"), Path: &algebra.OneOrMorePath{Path: p}, Object: item("c")}, []rdf.Node{iri("b"), iri("a")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := evaluate(t, h, algebra.NewBgp(tt.pat))
			assert.Equal(t, tt.want, values(ms, "o"))
		})
	}
}

func TestExistsThroughContext(t *testing.T) {
	tree := &algebra.Filter{
		Inner: bgp(tp("?s", "name", "?n")),
		Expr:  &expr.Exists{Pattern: bgp(tp("?s", "email", "?e")), Negated: true},
	}
	ms := evaluate(t, people(), tree)
	assert.Equal(t, []rdf.Node{iri("b")}, values(ms, "s"))
}

func TestSelectAskConstruct(t *testing.T) {
	ctx := context.Background()
	e := New(people())

	q := algebra.NewQuery(algebra.FormSelect)
	q.Where = bgp(tp("?s", "nothing", "?o"))
	q.Select = []algebra.SelectItem{{Var: "s"}}
	ms, err := e.Select(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 0, ms.Len())
	assert.Equal(t, []string{"s"}, ms.Variables())

	ask := algebra.NewQuery(algebra.FormAsk)
	ask.Where = bgp(tp("?s", "email", "?e"))
	ok, err := e.Ask(ctx, ask)
	require.NoError(t, err)
	assert.True(t, ok)

	c := algebra.NewQuery(algebra.FormConstruct)
	c.Where = bgp(tp("?s", "name", "?n"))
	c.Template = []*algebra.Match{tp("?s", "label", "?n"), tp("?s", "card", "_:c"), tp("_:c", "mail", "?missing")}
	g, err := e.Construct(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Len())
	assert.Len(t, g.Match(nil, iri("card"), nil), 2)
	assert.Empty(t, g.Match(nil, iri("mail"), nil))
}

func TestQuery_FromGraphs(t *testing.T) {
	h := quads()
	q := algebra.NewQuery(algebra.FormSelect)
	q.SelectAll = true
	q.DefaultGraphs = []rdf.IRI{iri("g1"), iri("g2")}
	q.Where = bgp(tp("?x", "p", "?y"), tp("?y", "q", "?v"))

	ms, err := New(h).Select(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, 1, ms.Len(), "FROM merges graphs, so patterns may join across them")
	assert.Equal(t, 0, h.Depth())
}

func TestCheckpointAndCancellation(t *testing.T) {
	var seen int
	ms := evaluate(t, people(), &algebra.Join{Left: bgp(tp("?s", "name", "?n")), Right: bgp(tp("?s", "age", "?a"))},
		WithCheckpoint(func(*solution.Multiset) { seen++ }))
	assert.Equal(t, 2, ms.Len())
	assert.Equal(t, 3, seen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(people()).Evaluate(ctx, bgp(tp("?s", "name", "?n")))
	require.ErrorIs(t, err, context.Canceled)
}

func TestInstantiate(t *testing.T) {
	sol := solution.FromMap(map[string]rdf.Node{"s": iri("a")})
	n := 0
	mint := func() rdf.BlankNode { n++; return rdf.Blank("n" + string(rune('0'+n))) }

	triples, skipped := Instantiate([]*algebra.Match{tp("?s", "p", "_:x"), tp("_:x", "p", "_:x"), tp("?s", "p", "?unbound")}, sol, mint)
	assert.Equal(t, 1, skipped)
	require.Len(t, triples, 2)
	assert.Equal(t, rdf.Blank("n1"), triples[0].Object)
	assert.Equal(t, rdf.Blank("n1"), triples[1].Subject)
	assert.Equal(t, 1, n)
}
