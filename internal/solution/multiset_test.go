package solution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quarry/internal/rdf"
)

func sol(pairs ...string) *Solution {
	s := New()
	for i := 0; i+1 < len(pairs); i += 2 {
		_ = s.Set(pairs[i], rdf.IRI(pairs[i+1]))
	}
	return s
}

func TestSolution_SetConflict(t *testing.T) {
	s := sol("x", "http://ex/a")
	require.NoError(t, s.Set("x", rdf.IRI("http://ex/a")))
	assert.Error(t, s.Set("x", rdf.IRI("http://ex/b")))
}

func TestSolution_CompatibleAndMerge(t *testing.T) {
	a := sol("x", "http://ex/a", "y", "http://ex/b")
	b := sol("y", "http://ex/b", "z", "http://ex/c")
	c := sol("y", "http://ex/other")

	assert.True(t, a.Compatible(b))
	assert.False(t, a.Compatible(c))

	m := a.Merge(b)
	assert.Equal(t, []string{"x", "y", "z"}, m.Variables())
	assert.Equal(t, 2, a.Len(), "merge must not modify the receiver")
}

func TestSolution_Origins(t *testing.T) {
	s := sol("s", "http://ex/a")
	s.SetOrigin("s", "http://ex/g2")
	t2 := sol("o", "http://ex/b")
	t2.SetOrigin("o", "http://ex/g1")

	m := s.Merge(t2)
	g, ok := m.AnyOrigin()
	require.True(t, ok)
	assert.Equal(t, rdf.IRI("http://ex/g1"), g, "smallest variable name wins")

	_, ok = New().AnyOrigin()
	assert.False(t, ok)
}

func TestSolution_KeyEquality(t *testing.T) {
	a := sol("x", "http://ex/a", "y", "http://ex/b")
	b := sol("y", "http://ex/b", "x", "http://ex/a")
	assert.Equal(t, a.Key(nil), b.Key(nil))
	assert.True(t, a.Equal(b))
	assert.NotEqual(t, a.Key(nil), sol("x", "http://ex/a").Key(nil))
}

func TestMultiset_JoinShortCircuits(t *testing.T) {
	rows := FromSolutions(sol("x", "http://ex/a"))

	assert.True(t, Null().Join(rows).IsNull())
	assert.True(t, rows.Join(Null()).IsNull())
	assert.Same(t, rows, Identity().Join(rows))
	assert.Same(t, rows, rows.Join(Identity()))
}

func TestMultiset_Join(t *testing.T) {
	left := FromSolutions(
		sol("x", "http://ex/a", "y", "http://ex/1"),
		sol("x", "http://ex/b", "y", "http://ex/2"),
	)
	right := FromSolutions(
		sol("y", "http://ex/1", "z", "http://ex/p"),
		sol("y", "http://ex/1", "z", "http://ex/q"),
		sol("y", "http://ex/3", "z", "http://ex/r"),
	)

	out := left.Join(right)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, []string{"x", "y", "z"}, out.Variables())
	for _, s := range out.Solutions() {
		v, _ := s.Get("x")
		assert.Equal(t, rdf.IRI("http://ex/a"), v)
	}
}

func TestMultiset_LeftJoin(t *testing.T) {
	left := FromSolutions(sol("x", "http://ex/a"), sol("x", "http://ex/b"))
	right := FromSolutions(sol("x", "http://ex/a", "n", "http://ex/1"))

	out := left.LeftJoin(right, nil)
	require.Equal(t, 2, out.Len())
	assert.True(t, out.Solutions()[0].Bound("n"))
	assert.False(t, out.Solutions()[1].Bound("n"))

	rejected := left.LeftJoin(right, func(*Solution) bool { return false })
	for _, s := range rejected.Solutions() {
		assert.False(t, s.Bound("n"))
	}
}

func TestMultiset_UnionAndMinus(t *testing.T) {
	a := FromSolutions(sol("x", "http://ex/a"), sol("x", "http://ex/b"))
	b := FromSolutions(sol("x", "http://ex/b"))

	assert.Equal(t, 3, a.Union(b).Len())
	assert.Same(t, a, Null().Union(a))

	minus := a.Minus(b)
	require.Equal(t, 1, minus.Len())
	v, _ := minus.Solutions()[0].Get("x")
	assert.Equal(t, rdf.IRI("http://ex/a"), v)

	disjoint := FromSolutions(sol("y", "http://ex/a"))
	assert.Equal(t, 2, a.Minus(disjoint).Len(), "no shared variables removes nothing")
}

func TestMultiset_DistinctAndSlice(t *testing.T) {
	m := FromSolutions(
		sol("x", "http://ex/a"),
		sol("x", "http://ex/b"),
		sol("x", "http://ex/a"),
		sol("x", "http://ex/c"),
	)

	assert.Equal(t, 3, m.Distinct().Len())
	assert.Equal(t, 4, m.Reduced().Len())

	tests := []struct {
		name          string
		offset, limit int
		want          int
	}{
		{"unrestricted", 0, -1, 4},
		{"limit", 0, 2, 2},
		{"offset", 3, -1, 1},
		{"offset past end", 10, -1, 0},
		{"limit zero", 0, 0, 0},
		{"both", 1, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Slice(tt.offset, tt.limit).Len())
		})
	}
}

func TestMultiset_AddLeavesSpecialStates(t *testing.T) {
	n := Null()
	n.Add(sol("x", "http://ex/a"))
	assert.False(t, n.IsNull())
	assert.Equal(t, 1, n.Len())

	id := Identity()
	id.Add(sol("x", "http://ex/a"))
	assert.False(t, id.IsIdentity())
	assert.Equal(t, 2, id.Len())
	assert.True(t, id.ContainsVariable("x"))
}

func TestMultiset_Values(t *testing.T) {
	m := FromSolutions(
		sol("g", "http://ex/g1"),
		sol("g", "http://ex/g2"),
		sol("g", "http://ex/g1"),
		sol("h", "http://ex/g3"),
	)
	assert.Equal(t, []rdf.Node{rdf.IRI("http://ex/g1"), rdf.IRI("http://ex/g2")}, m.Values("g"))
}
