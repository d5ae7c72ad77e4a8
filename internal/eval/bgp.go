package eval

import (
	"fmt"

	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/dataset"
	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/solution"
)

// row is a partial solution of a basic graph pattern. In per-graph mode a
// row is pinned to the graph of its first matched triple.
type row struct {
	sol    *solution.Solution
	graph  rdf.IRI
	pinned bool
}

// bgp evaluates the patterns left to right, extending every input solution.
// A pattern that leaves no rows makes the whole pattern Null.
func (r *run) bgp(b *algebra.Bgp, input *solution.Multiset) (*solution.Multiset, error) {
	if b.IsEmpty() {
		return input, nil
	}
	scope := r.ds.Scope()
	perGraph := scope.Mode == dataset.ScopeModePerGraph

	rows := make([]row, 0, input.Len())
	for _, s := range input.Solutions() {
		rw := row{sol: s}
		if perGraph {
			rw.graph, rw.pinned = originIn(s, scope)
		}
		rows = append(rows, rw)
	}
	vars := append(append([]string(nil), input.Variables()...), b.Variables()...)

	for _, p := range b.Patterns {
		if err := r.ctx.Err(); err != nil {
			return nil, fmt.Errorf("evaluation interrupted: %w", err)
		}
		var err error
		switch x := p.(type) {
		case *algebra.Match:
			rows, err = r.match(x, rows, perGraph)
		case *algebra.FilterPattern:
			rows = filterRows(rows, func(s *solution.Solution) bool { return r.test(x.Expr, s) })
		case *algebra.Assign:
			rows = r.assign(x, rows)
		case *algebra.PathPattern:
			rows, err = r.path(x, rows)
		case *algebra.SubQueryPattern:
			rows, err = r.subQueryRows(x, rows)
		default:
			err = fmt.Errorf("pattern %T: %w", p, ErrUnsupported)
		}
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return solution.Null(), nil
		}
		if r.checkpoint != nil {
			r.mark(collect(rows, vars))
		}
	}
	return collect(rows, vars), nil
}

func collect(rows []row, vars []string) *solution.Multiset {
	ms := solution.NewMultiset(vars...)
	for _, rw := range rows {
		ms.Add(rw.sol)
	}
	return ms
}

func (r *run) match(m *algebra.Match, rows []row, perGraph bool) ([]row, error) {
	var out []row
	for _, rw := range rows {
		s := algebra.Resolve(m.Subject, rw.sol)
		p := algebra.Resolve(m.Predicate, rw.sol)
		o := algebra.Resolve(m.Object, rw.sol)

		var (
			quads []dataset.Quad
			err   error
		)
		if rw.pinned {
			quads, err = r.ds.MatchIn(rw.graph, s, p, o)
		} else {
			quads, err = r.ds.Match(s, p, o)
		}
		if err != nil {
			return nil, err
		}
		for _, q := range quads {
			next, ok := bindQuad(m, rw.sol, q)
			if !ok {
				continue
			}
			nr := row{sol: next, graph: rw.graph, pinned: rw.pinned}
			if perGraph && !nr.pinned {
				nr.graph, nr.pinned = q.Graph, true
			}
			out = append(out, nr)
		}
	}
	return out, nil
}

// bindQuad extends sol with the variables of m bound by q, recording the
// graph as their origin. It fails when one variable appears twice in m
// with different values.
func bindQuad(m *algebra.Match, sol *solution.Solution, q dataset.Quad) (*solution.Solution, bool) {
	next := sol.Clone()
	slots := [3]struct {
		item algebra.PatternItem
		node rdf.Node
	}{
		{m.Subject, q.Subject},
		{m.Predicate, q.Predicate},
		{m.Object, q.Object},
	}
	for _, slot := range slots {
		name, ok := algebra.ItemVariable(slot.item)
		if !ok || sol.Bound(name) {
			continue
		}
		if err := next.Set(name, slot.node); err != nil {
			return nil, false
		}
		next.SetOrigin(name, q.Graph)
	}
	return next, true
}

func filterRows(rows []row, keep func(*solution.Solution) bool) []row {
	var out []row
	for _, rw := range rows {
		if keep(rw.sol) {
			out = append(out, rw)
		}
	}
	return out
}

// assign evaluates BIND and LET. A failing expression leaves the variable
// unbound. LET drops a row that already binds the variable differently;
// BIND keeps it unchanged.
func (r *run) assign(a *algebra.Assign, rows []row) []row {
	out := make([]row, 0, len(rows))
	for _, rw := range rows {
		v, err := a.Expr.Evaluate(r.exprCtx, rw.sol)
		if err != nil {
			out = append(out, rw)
			continue
		}
		next, err := rw.sol.With(a.Var, v)
		if err != nil {
			if !a.Let {
				out = append(out, rw)
			}
			continue
		}
		rw.sol = next
		out = append(out, rw)
	}
	return out
}

func (r *run) subQueryRows(sq *algebra.SubQueryPattern, rows []row) ([]row, error) {
	ms, err := r.subQuery(sq.Query)
	if err != nil {
		return nil, err
	}
	var out []row
	for _, rw := range rows {
		for _, s := range ms.Solutions() {
			if rw.sol.Compatible(s) {
				out = append(out, row{sol: rw.sol.Merge(s), graph: rw.graph, pinned: rw.pinned})
			}
		}
	}
	return out, nil
}
