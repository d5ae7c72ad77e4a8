package dataset

import (
	"fmt"
	"slices"

	"github.com/roach88/quarry/internal/rdf"
)

// ScopeMode defines how triple patterns see the graphs of an active scope.
type ScopeMode string

const (
	// ScopeModeMerged treats the active graphs as one merged graph. A
	// solution may join triples drawn from different graphs. This is the
	// mode of the default graph and of FROM / USING clauses.
	ScopeModeMerged ScopeMode = "merged"

	// ScopeModePerGraph keeps the active graphs apart: once a solution has
	// matched a triple in one graph, later patterns of the same basic graph
	// pattern only match in that graph. GRAPH ?g uses this mode.
	ScopeModePerGraph ScopeMode = "per-graph"
)

// ValidateScopeMode checks that mode is merged, per-graph or empty.
func ValidateScopeMode(mode string) error {
	switch ScopeMode(mode) {
	case ScopeModeMerged, ScopeModePerGraph, "":
		return nil
	default:
		return fmt.Errorf("invalid scope mode %q: must be merged or per-graph", mode)
	}
}

// Scope is one frame of the active-graph stack.
type Scope struct {
	Graphs []rdf.IRI
	Mode   ScopeMode
}

// DefaultScope is the scope of a fresh handle: the unnamed default graph.
func DefaultScope() Scope {
	return Scope{Graphs: []rdf.IRI{rdf.DefaultGraph}, Mode: ScopeModeMerged}
}

// NormalizeScope defaults an empty mode to merged and removes duplicate
// graph names, keeping first occurrences.
func NormalizeScope(s Scope) Scope {
	if s.Mode == "" {
		s.Mode = ScopeModeMerged
	}
	var graphs []rdf.IRI
	for _, g := range s.Graphs {
		if !slices.Contains(graphs, g) {
			graphs = append(graphs, g)
		}
	}
	s.Graphs = graphs
	return s
}

// Includes reports whether graph is active in the scope.
func (s Scope) Includes(graph rdf.IRI) bool {
	return slices.Contains(s.Graphs, graph)
}
