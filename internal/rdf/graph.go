package rdf

import (
	"fmt"

	"github.com/google/btree"
	"github.com/google/uuid"
)

const indexDegree = 8

// Graph is a mutable set of triples with a name and a blank-node scope.
//
// Triples are held in three ordered indexes (SPO, POS, OSP) so that any
// pattern with at least one bound slot is answered by a range scan.
//
// Graph is not safe for concurrent mutation.
type Graph struct {
	name  IRI
	scope string

	spo *btree.BTreeG[Triple]
	pos *btree.BTreeG[Triple]
	osp *btree.BTreeG[Triple]

	// blankRefs counts occurrences of in-scope blank labels, for Merge collision checks.
	blankRefs map[string]int
	minted    int
}

// NewGraph creates an empty graph. The empty name denotes the default graph.
func NewGraph(name IRI) *Graph {
	return &Graph{
		name:      name,
		scope:     uuid.Must(uuid.NewV7()).String(),
		spo:       btree.NewG(indexDegree, lessSPO),
		pos:       btree.NewG(indexDegree, lessPOS),
		osp:       btree.NewG(indexDegree, lessOSP),
		blankRefs: make(map[string]int),
	}
}

// NewGraphFromTriples creates a graph holding ts.
func NewGraphFromTriples(name IRI, ts ...Triple) *Graph {
	g := NewGraph(name)
	g.Assert(ts...)
	return g
}

// Name returns the graph name.
func (g *Graph) Name() IRI { return g.name }

// Scope returns the blank-node scope minted for this graph.
func (g *Graph) Scope() string { return g.scope }

// Len returns the number of triples.
func (g *Graph) Len() int { return g.spo.Len() }

// IsEmpty reports whether the graph holds no triples.
func (g *Graph) IsEmpty() bool { return g.spo.Len() == 0 }

// Assert adds ground triples, returning how many were new.
// Non-ground triples are ignored.
func (g *Graph) Assert(ts ...Triple) int {
	added := 0
	for _, t := range ts {
		if !t.IsGround() {
			continue
		}
		if _, found := g.spo.ReplaceOrInsert(t); found {
			continue
		}
		g.pos.ReplaceOrInsert(t)
		g.osp.ReplaceOrInsert(t)
		g.trackBlanks(t, 1)
		added++
	}
	return added
}

// Retract removes triples, returning how many were present.
func (g *Graph) Retract(ts ...Triple) int {
	removed := 0
	for _, t := range ts {
		if _, found := g.spo.Delete(t); !found {
			continue
		}
		g.pos.Delete(t)
		g.osp.Delete(t)
		g.trackBlanks(t, -1)
		removed++
	}
	return removed
}

// Contains reports whether the graph holds t.
func (g *Graph) Contains(t Triple) bool {
	return g.spo.Has(t)
}

// Clear removes every triple.
func (g *Graph) Clear() {
	g.spo.Clear(false)
	g.pos.Clear(false)
	g.osp.Clear(false)
	g.blankRefs = make(map[string]int)
}

// Triples returns every triple in SPO order.
func (g *Graph) Triples() []Triple {
	out := make([]Triple, 0, g.spo.Len())
	g.spo.Ascend(func(t Triple) bool {
		out = append(out, t)
		return true
	})
	return out
}

// Match returns the triples matching the given slots.
// A nil or Variable slot is a wildcard.
func (g *Graph) Match(s, p, o Node) []Triple {
	s, p, o = wildcard(s), wildcard(p), wildcard(o)
	var out []Triple
	keep := func(t Triple) bool {
		if (s == nil || Equal(t.Subject, s)) && (p == nil || Equal(t.Predicate, p)) && (o == nil || Equal(t.Object, o)) {
			out = append(out, t)
		}
		return true
	}

	switch {
	case s != nil:
		g.spo.AscendGreaterOrEqual(Triple{Subject: s}, func(t Triple) bool {
			if !Equal(t.Subject, s) {
				return false
			}
			return keep(t)
		})
	case p != nil:
		g.pos.AscendGreaterOrEqual(Triple{Predicate: p}, func(t Triple) bool {
			if !Equal(t.Predicate, p) {
				return false
			}
			return keep(t)
		})
	case o != nil:
		g.osp.AscendGreaterOrEqual(Triple{Object: o}, func(t Triple) bool {
			if !Equal(t.Object, o) {
				return false
			}
			return keep(t)
		})
	default:
		g.spo.Ascend(keep)
	}
	return out
}

// Clone returns an independent copy sharing no mutable state.
func (g *Graph) Clone() *Graph {
	refs := make(map[string]int, len(g.blankRefs))
	for k, v := range g.blankRefs {
		refs[k] = v
	}
	return &Graph{
		name:      g.name,
		scope:     g.scope,
		spo:       g.spo.Clone(),
		pos:       g.pos.Clone(),
		osp:       g.osp.Clone(),
		blankRefs: refs,
		minted:    g.minted,
	}
}

// Rename returns a copy of the graph under a new name.
func (g *Graph) Rename(name IRI) *Graph {
	c := g.Clone()
	c.name = name
	return c
}

// NewBlankNode mints a blank node in this graph's scope.
func (g *Graph) NewBlankNode() BlankNode {
	for {
		g.minted++
		id := fmt.Sprintf("b%d", g.minted)
		if g.blankRefs[id] == 0 {
			return BlankNode{ID: id, Scope: g.scope}
		}
	}
}

// Merge asserts every triple of other into g.
//
// Blank nodes from a foreign scope are remapped into g's scope. A label is
// kept when g does not already use it; otherwise a suffix is appended.
// The remapping is consistent across the whole merge.
func (g *Graph) Merge(other *Graph) int {
	if other == nil {
		return 0
	}
	mapping := make(map[BlankNode]BlankNode)
	remap := func(n Node) Node {
		b, ok := n.(BlankNode)
		if !ok || b.Scope == g.scope {
			return n
		}
		if m, ok := mapping[b]; ok {
			return m
		}
		id := b.ID
		for i := 1; g.blankRefs[id] > 0 || usedLabel(mapping, id); i++ {
			id = fmt.Sprintf("%s_%d", b.ID, i)
		}
		m := BlankNode{ID: id, Scope: g.scope}
		mapping[b] = m
		return m
	}

	added := 0
	for _, t := range other.Triples() {
		added += g.Assert(Triple{Subject: remap(t.Subject), Predicate: t.Predicate, Object: remap(t.Object)})
	}
	return added
}

// Equal reports whether two graphs hold exactly the same triples.
// Names are not compared and blank nodes are compared by identity.
func (g *Graph) Equal(other *Graph) bool {
	if g.Len() != other.Len() {
		return false
	}
	equal := true
	g.spo.Ascend(func(t Triple) bool {
		if !other.Contains(t) {
			equal = false
		}
		return equal
	})
	return equal
}

func (g *Graph) trackBlanks(t Triple, delta int) {
	for _, n := range []Node{t.Subject, t.Object} {
		if b, ok := n.(BlankNode); ok && b.Scope == g.scope {
			g.blankRefs[b.ID] += delta
			if g.blankRefs[b.ID] <= 0 {
				delete(g.blankRefs, b.ID)
			}
		}
	}
}

func usedLabel(mapping map[BlankNode]BlankNode, id string) bool {
	for _, m := range mapping {
		if m.ID == id {
			return true
		}
	}
	return false
}

func wildcard(n Node) Node {
	if n == nil || n.Kind() == KindVariable {
		return nil
	}
	return n
}

func lessSPO(a, b Triple) bool { return CompareTriples(a, b) < 0 }

func lessPOS(a, b Triple) bool {
	if c := Compare(a.Predicate, b.Predicate); c != 0 {
		return c < 0
	}
	if c := Compare(a.Object, b.Object); c != 0 {
		return c < 0
	}
	return Compare(a.Subject, b.Subject) < 0
}

func lessOSP(a, b Triple) bool {
	if c := Compare(a.Object, b.Object); c != 0 {
		return c < 0
	}
	if c := Compare(a.Subject, b.Subject); c != 0 {
		return c < 0
	}
	return Compare(a.Predicate, b.Predicate) < 0
}
