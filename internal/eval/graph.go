package eval

import (
	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/dataset"
	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/solution"
)

// graph evaluates GRAPH spec { inner }.
//
// A constant specifier scopes inner to that graph. A variable bound by the
// input scopes each input solution to the graph it names. For input
// solutions that leave the variable unbound, inner runs over the declared
// named graphs (or all of them) in per-graph mode and the variable is
// filled from the graph origin of each result.
func (r *run) graph(g *algebra.Graph, input *solution.Multiset) (*solution.Multiset, error) {
	if bgp, ok := g.Inner.(*algebra.Bgp); ok && bgp.IsEmpty() {
		return solution.Null(), nil
	}

	switch spec := g.Specifier.(type) {
	case algebra.ConstantItem:
		iri, ok := spec.Value.(rdf.IRI)
		if !ok {
			return solution.Null(), nil
		}
		return r.scoped(dataset.Scope{Graphs: []rdf.IRI{iri}, Mode: dataset.ScopeModeMerged}, g.Inner, input)
	}

	name, ok := algebra.ItemVariable(g.Specifier)
	if !ok {
		return solution.Null(), nil
	}

	var (
		order   []rdf.IRI
		byGraph = map[rdf.IRI]*solution.Multiset{}
		free    = solution.NewMultiset(input.Variables()...)
	)
	for _, s := range input.Solutions() {
		v, bound := s.Get(name)
		if !bound {
			free.Add(s)
			continue
		}
		iri, isIRI := v.(rdf.IRI)
		if !isIRI {
			continue
		}
		ms, seen := byGraph[iri]
		if !seen {
			ms = solution.NewMultiset(input.Variables()...)
			byGraph[iri] = ms
			order = append(order, iri)
		}
		ms.Add(s)
	}

	out := solution.Null()
	for _, iri := range order {
		res, err := r.scoped(dataset.Scope{Graphs: []rdf.IRI{iri}, Mode: dataset.ScopeModeMerged}, g.Inner, byGraph[iri])
		if err != nil {
			return nil, err
		}
		out = out.Union(res)
	}
	if free.IsEmpty() {
		return out, nil
	}

	graphs, err := r.namedGraphs()
	if err != nil {
		return nil, err
	}
	res, err := r.scoped(dataset.Scope{Graphs: graphs, Mode: dataset.ScopeModePerGraph}, g.Inner, free)
	if err != nil {
		return nil, err
	}
	if res.IsNull() || res.IsIdentity() {
		return out.Union(res), nil
	}
	return out.Union(fillGraph(res, name, graphs)), nil
}

// scoped evaluates inner under scope and restores the previous scope on
// every exit path.
func (r *run) scoped(scope dataset.Scope, inner algebra.Node, input *solution.Multiset) (ms *solution.Multiset, err error) {
	r.ds.PushScope(scope)
	defer func() {
		if perr := r.ds.PopScope(); perr != nil && err == nil {
			err = perr
		}
	}()
	return r.eval(inner, input)
}

func (r *run) namedGraphs() ([]rdf.IRI, error) {
	if r.named != nil {
		return r.named, nil
	}
	return r.ds.NamedGraphs()
}

// fillGraph binds name in every solution from a graph origin that lies in
// graphs. Solutions without such an origin keep name unbound.
func fillGraph(ms *solution.Multiset, name string, graphs []rdf.IRI) *solution.Multiset {
	out := solution.NewMultiset(ms.Variables()...)
	out.AddVariable(name)
	scope := dataset.Scope{Graphs: graphs}
	for _, s := range ms.Solutions() {
		if g, ok := originIn(s, scope); ok && !s.Bound(name) {
			if ext, err := s.With(name, g); err == nil {
				out.Add(ext)
				continue
			}
		}
		out.Add(s)
	}
	return out
}

// originIn returns the first graph origin of s, by variable name, that the
// scope includes.
func originIn(s *solution.Solution, scope dataset.Scope) (rdf.IRI, bool) {
	for _, v := range s.Variables() {
		if g, ok := s.Origin(v); ok && scope.Includes(g) {
			return g, true
		}
	}
	return "", false
}
