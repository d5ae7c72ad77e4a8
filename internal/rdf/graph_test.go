package rdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ex = "http://example.org/"

func iri(local string) IRI { return IRI(ex + local) }

func TestGraph_AssertRetract(t *testing.T) {
	g := NewGraph(iri("g"))
	t1 := NewTriple(iri("s"), iri("p"), NewLiteral("o"))

	assert.Equal(t, 1, g.Assert(t1))
	assert.Equal(t, 0, g.Assert(t1), "duplicate assert must be a no-op")
	assert.True(t, g.Contains(t1))
	assert.Equal(t, 1, g.Len())

	assert.Equal(t, 1, g.Retract(t1))
	assert.Equal(t, 0, g.Retract(t1))
	assert.True(t, g.IsEmpty())
}

func TestGraph_AssertIgnoresNonGround(t *testing.T) {
	g := NewGraph("")
	added := g.Assert(NewTriple(Variable("s"), iri("p"), iri("o")))
	assert.Equal(t, 0, added)
	assert.True(t, g.IsEmpty())
}

func TestGraph_Match(t *testing.T) {
	g := NewGraphFromTriples("",
		NewTriple(iri("a"), iri("p"), iri("b")),
		NewTriple(iri("a"), iri("q"), iri("c")),
		NewTriple(iri("b"), iri("p"), iri("c")),
		NewTriple(iri("c"), iri("p"), NewLiteral("x")),
	)

	tests := []struct {
		name    string
		s, p, o Node
		want    int
	}{
		{"all wildcards", nil, nil, nil, 4},
		{"subject bound", iri("a"), nil, nil, 2},
		{"predicate bound", nil, iri("p"), nil, 3},
		{"object bound", nil, nil, iri("c"), 2},
		{"subject and predicate", iri("a"), iri("q"), nil, 1},
		{"fully bound present", iri("b"), iri("p"), iri("c"), 1},
		{"fully bound absent", iri("b"), iri("q"), iri("c"), 0},
		{"variables are wildcards", Variable("x"), iri("p"), Variable("y"), 3},
		{"literal object", nil, nil, NewLiteral("x"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, g.Match(tt.s, tt.p, tt.o), tt.want)
		})
	}
}

func TestGraph_TriplesAreOrdered(t *testing.T) {
	g := NewGraphFromTriples("",
		NewTriple(iri("z"), iri("p"), iri("o")),
		NewTriple(iri("a"), iri("p"), iri("o")),
		NewTriple(Blank("b"), iri("p"), iri("o")),
	)
	ts := g.Triples()
	require.Len(t, ts, 3)
	assert.Equal(t, Blank("b"), ts[0].Subject, "blank nodes sort before IRIs")
	assert.Equal(t, iri("a"), ts[1].Subject)
	assert.Equal(t, iri("z"), ts[2].Subject)
}

func TestGraph_CloneIsIndependent(t *testing.T) {
	g := NewGraphFromTriples(iri("g"), NewTriple(iri("s"), iri("p"), iri("o")))
	c := g.Clone()
	c.Assert(NewTriple(iri("s"), iri("p"), iri("o2")))

	assert.Equal(t, 1, g.Len())
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, g.Name(), c.Name())
}

func TestGraph_MergeRemapsForeignBlankNodes(t *testing.T) {
	target := NewGraph("")
	own := target.NewBlankNode()
	target.Assert(NewTriple(own, iri("p"), NewLiteral("mine")))

	source := NewGraph("")
	foreign := BlankNode{ID: own.ID, Scope: source.Scope()}
	source.Assert(
		NewTriple(foreign, iri("p"), NewLiteral("theirs")),
		NewTriple(foreign, iri("q"), NewLiteral("also theirs")),
	)

	added := target.Merge(source)
	assert.Equal(t, 2, added)
	assert.Equal(t, 3, target.Len())

	theirs := target.Match(nil, iri("p"), NewLiteral("theirs"))
	require.Len(t, theirs, 1)
	remapped := theirs[0].Subject.(BlankNode)
	assert.Equal(t, target.Scope(), remapped.Scope)
	assert.NotEqual(t, own.ID, remapped.ID, "colliding label must be renamed")

	// The same foreign node maps to the same local node.
	also := target.Match(nil, iri("q"), nil)
	require.Len(t, also, 1)
	assert.Equal(t, remapped, also[0].Subject)
}

func TestGraph_Equal(t *testing.T) {
	a := NewGraphFromTriples(iri("a"), NewTriple(iri("s"), iri("p"), iri("o")))
	b := NewGraphFromTriples(iri("b"), NewTriple(iri("s"), iri("p"), iri("o")))
	assert.True(t, a.Equal(b))

	b.Assert(NewTriple(iri("s"), iri("p"), iri("o2")))
	assert.False(t, a.Equal(b))
}

func TestFingerprint_StableAcrossInsertOrder(t *testing.T) {
	t1 := NewTriple(iri("s"), iri("p"), iri("o"))
	t2 := NewTriple(iri("s"), iri("p"), NewLangLiteral("chat", "FR"))

	a := NewGraphFromTriples("", t1, t2)
	b := NewGraphFromTriples("", t2, t1)
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.Len(t, Fingerprint(a), 64)

	b.Retract(t1)
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
