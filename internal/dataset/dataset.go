// Package dataset provides the RDF dataset seen by the evaluator: a source
// of named graphs plus a stack of active-graph scopes.
//
// A Source owns the triples. A Handle layers the scope stack over a Source.
// Scope changes are strictly nested: every PushScope is paired with a
// PopScope on all exit paths, normally with defer.
//
// A Handle is not safe for concurrent use. Concurrent queries use their own
// handles, created with Fork, over a shared Source.
package dataset

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/quarry/internal/rdf"
)

// ErrScopeUnderflow is returned by PopScope when only the base scope is left.
var ErrScopeUnderflow = errors.New("active graph scope underflow")

// Quad is a triple together with the graph it was matched in.
type Quad struct {
	rdf.Triple
	Graph rdf.IRI
}

// Source supplies graphs to a Handle.
type Source interface {
	// GraphNames lists the named graphs, excluding the default graph.
	GraphNames() ([]rdf.IRI, error)
	// HasGraph reports whether a graph exists. The default graph always exists.
	HasGraph(name rdf.IRI) (bool, error)
	// MatchGraph returns the triples of one graph matching the pattern.
	// Nil slots are wildcards. A missing graph matches nothing.
	MatchGraph(name rdf.IRI, s, p, o rdf.Node) ([]rdf.Triple, error)
}

// Dataset is the evaluator's view of the data.
type Dataset interface {
	// Scope returns the innermost active scope.
	Scope() Scope
	// PushScope makes s the active scope until the matching PopScope.
	PushScope(s Scope)
	// PopScope restores the previous scope.
	PopScope() error
	// NamedGraphs lists the named graphs of the dataset.
	NamedGraphs() ([]rdf.IRI, error)
	// HasGraph reports whether a graph exists.
	HasGraph(name rdf.IRI) (bool, error)
	// Match returns the quads of the active scope matching the pattern.
	Match(s, p, o rdf.Node) ([]Quad, error)
	// MatchIn returns the quads of one active graph matching the pattern.
	MatchIn(graph rdf.IRI, s, p, o rdf.Node) ([]Quad, error)
}

// Handle is a Dataset over a Source.
type Handle struct {
	source Source
	stack  []Scope
}

// NewHandle creates a handle whose base scope is the default graph.
func NewHandle(src Source) *Handle {
	return NewHandleWithDefault(src, nil)
}

// NewHandleWithDefault creates a handle whose base scope merges the given
// graphs. An empty list means the default graph.
func NewHandleWithDefault(src Source, defaults []rdf.IRI) *Handle {
	base := DefaultScope()
	if len(defaults) > 0 {
		base = NormalizeScope(Scope{Graphs: defaults, Mode: ScopeModeMerged})
	}
	return &Handle{source: src, stack: []Scope{base}}
}

// Fork returns an independent handle over the same source, starting from
// this handle's base scope.
func (h *Handle) Fork() *Handle {
	return &Handle{source: h.source, stack: []Scope{h.stack[0]}}
}

// Source returns the underlying source.
func (h *Handle) Source() Source { return h.source }

// Depth returns the number of pushed scopes above the base scope.
func (h *Handle) Depth() int { return len(h.stack) - 1 }

func (h *Handle) Scope() Scope { return h.stack[len(h.stack)-1] }

func (h *Handle) PushScope(s Scope) {
	h.stack = append(h.stack, NormalizeScope(s))
}

func (h *Handle) PopScope() error {
	if len(h.stack) <= 1 {
		return ErrScopeUnderflow
	}
	h.stack = h.stack[:len(h.stack)-1]
	return nil
}

func (h *Handle) NamedGraphs() ([]rdf.IRI, error) {
	return h.source.GraphNames()
}

func (h *Handle) HasGraph(name rdf.IRI) (bool, error) {
	return h.source.HasGraph(name)
}

func (h *Handle) Match(s, p, o rdf.Node) ([]Quad, error) {
	var out []Quad
	for _, g := range h.Scope().Graphs {
		quads, err := h.matchGraph(g, s, p, o)
		if err != nil {
			return nil, err
		}
		out = append(out, quads...)
	}
	return out, nil
}

func (h *Handle) MatchIn(graph rdf.IRI, s, p, o rdf.Node) ([]Quad, error) {
	if !h.Scope().Includes(graph) {
		return nil, nil
	}
	return h.matchGraph(graph, s, p, o)
}

func (h *Handle) matchGraph(g rdf.IRI, s, p, o rdf.Node) ([]Quad, error) {
	triples, err := h.source.MatchGraph(g, s, p, o)
	if err != nil {
		return nil, fmt.Errorf("match in graph %s: %w", g, err)
	}
	out := make([]Quad, len(triples))
	for i, t := range triples {
		out[i] = Quad{Triple: t, Graph: g}
	}
	return out, nil
}

// Nodes returns every distinct subject and object of the active scope, in
// triple order.
func Nodes(d Dataset) ([]rdf.Node, error) {
	quads, err := d.Match(nil, nil, nil)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []rdf.Node
	for _, q := range quads {
		for _, n := range []rdf.Node{q.Subject, q.Object} {
			k := rdf.Key(n)
			if !seen[k] {
				seen[k] = true
				out = append(out, n)
			}
		}
	}
	return out, nil
}

// SortedNames returns names sorted, without modifying the input.
func SortedNames(names []rdf.IRI) []rdf.IRI {
	out := slices.Clone(names)
	slices.Sort(out)
	return out
}
