package dataset

import (
	"sync"

	"github.com/roach88/quarry/internal/rdf"
)

// InMemory is a Source holding graphs in memory. It is safe for concurrent
// use; the graphs it hands out must not be mutated by callers.
type InMemory struct {
	mu     sync.RWMutex
	graphs map[rdf.IRI]*rdf.Graph
}

// NewInMemory creates a dataset with an empty default graph and the given
// graphs, keyed by name.
func NewInMemory(graphs ...*rdf.Graph) *InMemory {
	m := &InMemory{graphs: map[rdf.IRI]*rdf.Graph{rdf.DefaultGraph: rdf.NewGraph(rdf.DefaultGraph)}}
	for _, g := range graphs {
		m.graphs[g.Name()] = g
	}
	return m
}

// Graph returns a graph by name.
func (m *InMemory) Graph(name rdf.IRI) (*rdf.Graph, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.graphs[name]
	return g, ok
}

// PutGraph adds or replaces a graph under its own name.
func (m *InMemory) PutGraph(g *rdf.Graph) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphs[g.Name()] = g
}

// RemoveGraph deletes a graph. Removing the default graph empties it.
func (m *InMemory) RemoveGraph(name rdf.IRI) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name == rdf.DefaultGraph {
		m.graphs[name] = rdf.NewGraph(rdf.DefaultGraph)
		return true
	}
	_, ok := m.graphs[name]
	delete(m.graphs, name)
	return ok
}

// Update applies removals, then additions, to one graph, creating it when
// missing.
func (m *InMemory) Update(name rdf.IRI, additions, removals []rdf.Triple) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.graphs[name]
	if !ok {
		g = rdf.NewGraph(name)
		m.graphs[name] = g
	}
	g.Retract(removals...)
	g.Assert(additions...)
}

func (m *InMemory) GraphNames() ([]rdf.IRI, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]rdf.IRI, 0, len(m.graphs))
	for name := range m.graphs {
		if name != rdf.DefaultGraph {
			names = append(names, name)
		}
	}
	return SortedNames(names), nil
}

func (m *InMemory) HasGraph(name rdf.IRI) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.graphs[name]
	return ok || name == rdf.DefaultGraph, nil
}

func (m *InMemory) MatchGraph(name rdf.IRI, s, p, o rdf.Node) ([]rdf.Triple, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.graphs[name]
	if !ok {
		return nil, nil
	}
	return g.Match(s, p, o), nil
}
