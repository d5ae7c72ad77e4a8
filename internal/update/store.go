package update

import (
	"context"

	"github.com/roach88/quarry/internal/dataset"
	"github.com/roach88/quarry/internal/rdf"
)

// Capabilities are the optional features a Store declares.
type Capabilities struct {
	// Query means Dataset answers pattern matches, so WHERE clauses can run.
	Query bool

	// IncrementalUpdate means UpdateGraph applies deltas natively. Without
	// it the processor loads, edits and saves whole graphs.
	IncrementalUpdate bool
}

// Store is the mutable target of update commands.
type Store interface {
	Capabilities() Capabilities

	// LoadGraph returns a copy of the named graph. A missing graph loads
	// as an empty graph.
	LoadGraph(ctx context.Context, name rdf.IRI) (*rdf.Graph, error)

	// SaveGraph replaces the graph stored under g.Name().
	SaveGraph(ctx context.Context, g *rdf.Graph) error

	// UpdateGraph removes, then adds, triples in one graph, creating the
	// graph when missing. Only called with IncrementalUpdate.
	UpdateGraph(ctx context.Context, name rdf.IRI, additions, removals []rdf.Triple) error

	// DeleteGraph removes a named graph. Deleting the default graph empties it.
	DeleteGraph(ctx context.Context, name rdf.IRI) error

	HasGraph(ctx context.Context, name rdf.IRI) (bool, error)

	// GraphNames lists the named graphs, excluding the default graph.
	GraphNames(ctx context.Context) ([]rdf.IRI, error)

	// Dataset exposes the store for query evaluation. Only called with Query.
	Dataset() dataset.Source
}

// Retriever fetches the graph behind a LOAD source IRI.
type Retriever interface {
	Retrieve(ctx context.Context, source rdf.IRI) (*rdf.Graph, error)
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, source rdf.IRI) (*rdf.Graph, error)

func (f RetrieverFunc) Retrieve(ctx context.Context, source rdf.IRI) (*rdf.Graph, error) {
	return f(ctx, source)
}
