package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quarry/internal/rdf"
)

const (
	g1 = rdf.IRI("http://ex/g1")
	g2 = rdf.IRI("http://ex/g2")
	p  = rdf.IRI("http://ex/p")
)

func fixture() *InMemory {
	a := rdf.NewGraphFromTriples(g1, rdf.NewTriple(rdf.IRI("http://ex/a"), p, rdf.NewLiteral("1")))
	b := rdf.NewGraphFromTriples(g2, rdf.NewTriple(rdf.IRI("http://ex/b"), p, rdf.NewLiteral("2")))
	src := NewInMemory(a, b)
	src.Update(rdf.DefaultGraph, []rdf.Triple{rdf.NewTriple(rdf.IRI("http://ex/d"), p, rdf.NewLiteral("0"))}, nil)
	return src
}

func TestValidateScopeMode(t *testing.T) {
	tests := []struct {
		mode    string
		wantErr bool
	}{
		{"merged", false},
		{"per-graph", false},
		{"", false},
		{"bogus", true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			err := ValidateScopeMode(tt.mode)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid scope mode")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNormalizeScope(t *testing.T) {
	s := NormalizeScope(Scope{Graphs: []rdf.IRI{g2, g1, g2}})
	assert.Equal(t, ScopeModeMerged, s.Mode)
	assert.Equal(t, []rdf.IRI{g2, g1}, s.Graphs)
	assert.True(t, s.Includes(g1))
	assert.False(t, s.Includes(rdf.DefaultGraph))
}

func TestHandle_PushPopRestoresScope(t *testing.T) {
	h := NewHandle(fixture())
	base := h.Scope()
	assert.Equal(t, DefaultScope(), base)

	h.PushScope(Scope{Graphs: []rdf.IRI{g1}})
	h.PushScope(Scope{Graphs: []rdf.IRI{g2}, Mode: ScopeModePerGraph})
	assert.Equal(t, 2, h.Depth())
	assert.Equal(t, ScopeModePerGraph, h.Scope().Mode)

	require.NoError(t, h.PopScope())
	assert.Equal(t, []rdf.IRI{g1}, h.Scope().Graphs)
	require.NoError(t, h.PopScope())
	assert.Equal(t, base, h.Scope())

	assert.ErrorIs(t, h.PopScope(), ErrScopeUnderflow)
}

func TestHandle_Match(t *testing.T) {
	h := NewHandle(fixture())

	quads, err := h.Match(nil, p, nil)
	require.NoError(t, err)
	require.Len(t, quads, 1)
	assert.Equal(t, rdf.DefaultGraph, quads[0].Graph)

	h.PushScope(Scope{Graphs: []rdf.IRI{g1, g2}})
	defer func() { require.NoError(t, h.PopScope()) }()

	quads, err = h.Match(nil, p, nil)
	require.NoError(t, err)
	require.Len(t, quads, 2)
	assert.Equal(t, g1, quads[0].Graph)
	assert.Equal(t, g2, quads[1].Graph)

	quads, err = h.MatchIn(g2, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, quads, 1)
	assert.Equal(t, rdf.IRI("http://ex/b"), quads[0].Subject)

	quads, err = h.MatchIn(rdf.DefaultGraph, nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, quads, "graphs outside the scope match nothing")
}

func TestHandle_NamedGraphsAndFork(t *testing.T) {
	src := fixture()
	h := NewHandleWithDefault(src, []rdf.IRI{g1})
	names, err := h.NamedGraphs()
	require.NoError(t, err)
	assert.Equal(t, []rdf.IRI{g1, g2}, names)

	h.PushScope(Scope{Graphs: []rdf.IRI{g2}})
	f := h.Fork()
	assert.Equal(t, 0, f.Depth())
	assert.Equal(t, []rdf.IRI{g1}, f.Scope().Graphs)

	ok, err := h.HasGraph(rdf.IRI("http://ex/none"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemory_RemoveGraph(t *testing.T) {
	src := fixture()
	assert.True(t, src.RemoveGraph(g1))
	assert.False(t, src.RemoveGraph(g1))

	assert.True(t, src.RemoveGraph(rdf.DefaultGraph))
	ok, err := src.HasGraph(rdf.DefaultGraph)
	require.NoError(t, err)
	assert.True(t, ok)
	triples, err := src.MatchGraph(rdf.DefaultGraph, nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, triples)
}

func TestNodes(t *testing.T) {
	h := NewHandle(fixture())
	h.PushScope(Scope{Graphs: []rdf.IRI{g1, g2}})
	nodes, err := Nodes(h)
	require.NoError(t, err)
	assert.Len(t, nodes, 4)
}
