package algebra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quarry/internal/expr"
	"github.com/roach88/quarry/internal/rdf"
)

func spo(s, p, o string) *Match {
	item := func(x string) PatternItem {
		switch x[0] {
		case '?':
			return Var(x[1:])
		case '_':
			return BlankItem{Label: x[2:]}
		}
		return Const(rdf.IRI(x))
	}
	return NewMatch(item(s), item(p), item(o))
}

func TestNode_String(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"empty bgp", NewBgp(), "(bgp)"},
		{"bgp", NewBgp(spo("?s", "http://ex/p", "?o")), "(bgp (?s <http://ex/p> ?o))"},
		{
			"graph",
			&Graph{Specifier: Var("g"), Inner: NewBgp(spo("?s", "?p", "?o"))},
			"(graph ?g (bgp (?s ?p ?o)))",
		},
		{
			"slice unrestricted offset",
			&Slice{Inner: NewBgp(), Offset: -1, Limit: 5},
			"(slice _ 5 (bgp))",
		},
		{
			"filter",
			&Filter{Inner: NewBgp(), Expr: expr.NewBinary(expr.OpEqual, expr.NewVar("x"), expr.NewConstant(rdf.IRI("http://ex/a")))},
			"(filter (?x = <http://ex/a>) (bgp))",
		},
		{
			"extend",
			&Extend{Inner: NewBgp(), Var: "y", Expr: expr.NewVar("x")},
			"(extend ((?y ?x)) (bgp))",
		},
		{"table unit", &Table{Kind: TableUnit}, "(table unit)"},
		{
			"project",
			&Project{Inner: NewBgp(), Vars: []string{"a", "b"}},
			"(project (?a ?b) (bgp))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.node.String())
		})
	}
}

func TestNode_Variables(t *testing.T) {
	left := NewBgp(spo("?s", "http://ex/p", "?o"), spo("?o", "http://ex/q", "_:b"))
	right := NewBgp(spo("?s", "http://ex/r", "?z"))

	assert.Equal(t, []string{"s", "o", "_:b"}, left.Variables())
	assert.Equal(t, []string{"s", "o", "_:b", "z"}, (&Join{Left: left, Right: right}).Variables())
	assert.Equal(t, []string{"s", "o", "_:b"}, (&Minus{Left: left, Right: right}).Variables())

	g := &Graph{Specifier: Var("g"), Inner: right}
	assert.Equal(t, []string{"s", "z", "g"}, g.Variables())
}

func TestVariables_DoNotAliasChildSlices(t *testing.T) {
	p := &Project{Inner: NewBgp(), Vars: make([]string, 1, 4)}
	p.Vars[0] = "a"
	j := &Join{Left: p, Right: NewBgp(spo("?b", "?c", "?d"))}

	_ = j.Variables()
	assert.Equal(t, []string{"a"}, p.Vars)
	assert.Equal(t, "", p.Vars[:2][1])
}

func TestTransform(t *testing.T) {
	bgp := NewBgp(spo("?s", "?p", "?o"))
	untouched := NewBgp(spo("?a", "?b", "?c"))
	tree := &Union{Left: &Filter{Inner: bgp, Expr: expr.NewVar("s")}, Right: untouched}

	replacement := NewBgp()
	out, err := Transform(tree, func(n Node) (Node, error) {
		if n == bgp {
			return replacement, nil
		}
		return n, nil
	})
	require.NoError(t, err)

	u, ok := out.(*Union)
	require.True(t, ok)
	assert.NotSame(t, tree, u)
	assert.Same(t, untouched, u.Right)
	assert.Same(t, replacement, u.Left.(*Filter).Inner)

	// The original tree is not modified.
	assert.Same(t, bgp, tree.Left.(*Filter).Inner)
}

func TestTransform_NoChangeKeepsIdentity(t *testing.T) {
	tree := &Join{Left: NewBgp(), Right: NewBgp()}
	out, err := Transform(tree, func(n Node) (Node, error) { return n, nil })
	require.NoError(t, err)
	assert.Same(t, tree, out)
}

func TestWalk(t *testing.T) {
	tree := &Distinct{Inner: &Join{Left: NewBgp(), Right: &Graph{Specifier: Var("g"), Inner: NewBgp()}}}
	var kinds []string
	Walk(tree, func(n Node) bool {
		switch n.(type) {
		case *Distinct:
			kinds = append(kinds, "distinct")
		case *Join:
			kinds = append(kinds, "join")
		case *Graph:
			kinds = append(kinds, "graph")
			return false
		case *Bgp:
			kinds = append(kinds, "bgp")
		}
		return true
	})
	assert.Equal(t, []string{"distinct", "join", "bgp", "graph"}, kinds)
}

func TestQuery_Algebra(t *testing.T) {
	q := NewQuery(FormSelect)
	q.Where = NewBgp(spo("?s", "http://ex/p", "?o"))
	q.Select = []SelectItem{{Var: "s"}, {Var: "n", Expr: expr.NewAggregation(expr.AggCount, expr.NewVar("o"), false)}}
	q.GroupBy = []GroupKey{{Expr: expr.NewVar("s")}}
	q.OrderBy = []OrderCondition{{Expr: expr.NewAggregation(expr.AggCount, expr.NewVar("o"), false), Descending: true}}
	q.Limit = 10

	root, err := q.Algebra()
	require.NoError(t, err)
	assert.Equal(t,
		"(slice _ 10 (project (?s ?n) (order ((desc ?.agg0)) (extend ((?n ?.agg0)) (group (?s) ((?.agg0 COUNT(?o))) (bgp (?s <http://ex/p> ?o)))))))",
		root.String())
}

func TestQuery_ProjectedVariablesHidesBlanks(t *testing.T) {
	q := NewQuery(FormSelect)
	q.SelectAll = true
	q.Where = NewBgp(spo("?s", "http://ex/p", "_:x"))
	assert.Equal(t, []string{"s"}, q.ProjectedVariables())
}

func TestValidate(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		q := NewQuery(FormSelect)
		q.Where = NewBgp(spo("?s", "?p", "?o"))
		q.Select = []SelectItem{{Var: "s"}}
		res := Validate(q)
		assert.True(t, res.Clean)
		assert.Empty(t, res.Warnings)
	})

	t.Run("unbound projection", func(t *testing.T) {
		q := NewQuery(FormSelect)
		q.Where = NewBgp(spo("?s", "?p", "?o"))
		q.Select = []SelectItem{{Var: "missing"}}
		res := Validate(q)
		assert.False(t, res.Clean)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "?missing is never bound")
	})

	t.Run("ungrouped projection", func(t *testing.T) {
		q := NewQuery(FormSelect)
		q.Where = NewBgp(spo("?s", "?p", "?o"))
		q.GroupBy = []GroupKey{{Expr: expr.NewVar("s")}}
		q.Select = []SelectItem{
			{Var: "s"},
			{Var: "p"},
			{Var: "c", Expr: expr.Add(expr.NewVar("o"), expr.NewAggregation(expr.AggSum, expr.NewVar("o"), false))},
		}
		res := Validate(q)
		require.Len(t, res.Warnings, 2)
		assert.Contains(t, res.Warnings[0], "?p is projected but neither grouped nor aggregated")
		assert.Contains(t, res.Warnings[1], "uses ?o outside an aggregate")
	})
}
