package store

import (
	"context"

	"github.com/roach88/quarry/internal/dataset"
	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/update"
)

// Memory keeps graphs in a dataset.InMemory. Graphs are copied on the way
// in and out, so callers may mutate what they load.
type Memory struct {
	data *dataset.InMemory
}

// NewMemory creates a store holding copies of graphs.
func NewMemory(graphs ...*rdf.Graph) *Memory {
	m := &Memory{data: dataset.NewInMemory()}
	for _, g := range graphs {
		m.data.PutGraph(g.Clone())
	}
	return m
}

func (m *Memory) Capabilities() update.Capabilities {
	return update.Capabilities{Query: true, IncrementalUpdate: true}
}

func (m *Memory) LoadGraph(_ context.Context, name rdf.IRI) (*rdf.Graph, error) {
	if g, ok := m.data.Graph(name); ok {
		return g.Clone(), nil
	}
	return rdf.NewGraph(name), nil
}

func (m *Memory) SaveGraph(_ context.Context, g *rdf.Graph) error {
	m.data.PutGraph(g.Clone())
	return nil
}

func (m *Memory) UpdateGraph(_ context.Context, name rdf.IRI, additions, removals []rdf.Triple) error {
	m.data.Update(name, additions, removals)
	return nil
}

func (m *Memory) DeleteGraph(_ context.Context, name rdf.IRI) error {
	m.data.RemoveGraph(name)
	return nil
}

func (m *Memory) HasGraph(_ context.Context, name rdf.IRI) (bool, error) {
	return m.data.HasGraph(name)
}

func (m *Memory) GraphNames(context.Context) ([]rdf.IRI, error) {
	return m.data.GraphNames()
}

func (m *Memory) Dataset() dataset.Source { return m.data }

// Close is a no-op.
func (m *Memory) Close() error { return nil }
