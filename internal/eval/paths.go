package eval

import (
	"fmt"

	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/dataset"
	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/solution"
)

type matcher func(s, p, o rdf.Node) ([]dataset.Quad, error)

// path evaluates a property path pattern for each row. A bound end is used
// as the starting point; with both ends free every subject and object of
// the active graphs is tried.
func (r *run) path(pp *algebra.PathPattern, rows []row) ([]row, error) {
	var out []row
	for _, rw := range rows {
		m := matcher(r.ds.Match)
		if rw.pinned {
			graph := rw.graph
			m = func(s, p, o rdf.Node) ([]dataset.Quad, error) { return r.ds.MatchIn(graph, s, p, o) }
		}
		s := algebra.Resolve(pp.Subject, rw.sol)
		o := algebra.Resolve(pp.Object, rw.sol)

		var pairs [][2]rdf.Node
		switch {
		case s != nil:
			ends, err := reach(m, pp.Path, s, true)
			if err != nil {
				return nil, err
			}
			for _, e := range ends {
				pairs = append(pairs, [2]rdf.Node{s, e})
			}
		case o != nil:
			starts, err := reach(m, pp.Path, o, false)
			if err != nil {
				return nil, err
			}
			for _, st := range starts {
				pairs = append(pairs, [2]rdf.Node{st, o})
			}
		default:
			nodes, err := dataset.Nodes(r.ds)
			if err != nil {
				return nil, err
			}
			for _, st := range nodes {
				ends, err := reach(m, pp.Path, st, true)
				if err != nil {
					return nil, err
				}
				for _, e := range ends {
					pairs = append(pairs, [2]rdf.Node{st, e})
				}
			}
		}

		for _, pair := range pairs {
			next := rw.sol.Clone()
			if bindItem(next, pp.Subject, pair[0]) && bindItem(next, pp.Object, pair[1]) {
				out = append(out, row{sol: next, graph: rw.graph, pinned: rw.pinned})
			}
		}
	}
	return out, nil
}

// bindItem binds the variable of item to n, or checks a constant. It
// reports false on a mismatch.
func bindItem(sol *solution.Solution, item algebra.PatternItem, n rdf.Node) bool {
	if c, ok := item.(algebra.ConstantItem); ok {
		return rdf.Equal(c.Value, n)
	}
	name, ok := algebra.ItemVariable(item)
	if !ok {
		return false
	}
	return sol.Set(name, n) == nil
}

// reach returns the nodes reachable from node along p, following p forwards
// or backwards. Fixed-length steps keep duplicates; closures return each
// node once.
func reach(m matcher, p algebra.Path, node rdf.Node, forward bool) ([]rdf.Node, error) {
	switch x := p.(type) {
	case algebra.PathIRI:
		var (
			quads []dataset.Quad
			err   error
		)
		if forward {
			quads, err = m(node, x.IRI, nil)
		} else {
			quads, err = m(nil, x.IRI, node)
		}
		if err != nil {
			return nil, err
		}
		out := make([]rdf.Node, len(quads))
		for i, q := range quads {
			if forward {
				out[i] = q.Object
			} else {
				out[i] = q.Subject
			}
		}
		return out, nil

	case *algebra.InversePath:
		return reach(m, x.Path, node, !forward)

	case *algebra.SequencePath:
		first, second := x.Left, x.Right
		if !forward {
			first, second = second, first
		}
		mids, err := reach(m, first, node, forward)
		if err != nil {
			return nil, err
		}
		var out []rdf.Node
		for _, mid := range mids {
			ends, err := reach(m, second, mid, forward)
			if err != nil {
				return nil, err
			}
			out = append(out, ends...)
		}
		return out, nil

	case *algebra.AlternativePath:
		left, err := reach(m, x.Left, node, forward)
		if err != nil {
			return nil, err
		}
		right, err := reach(m, x.Right, node, forward)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil

	case *algebra.ZeroOrOnePath:
		steps, err := reach(m, x.Path, node, forward)
		if err != nil {
			return nil, err
		}
		return distinctNodes(append([]rdf.Node{node}, steps...)), nil

	case *algebra.ZeroOrMorePath:
		return closure(m, x.Path, node, forward, true)

	case *algebra.OneOrMorePath:
		return closure(m, x.Path, node, forward, false)
	}
	return nil, fmt.Errorf("path %T: %w", p, ErrUnsupported)
}

// closure walks p breadth-first from node. The start node is part of the
// result when includeStart is set or when a cycle leads back to it.
func closure(m matcher, p algebra.Path, node rdf.Node, forward, includeStart bool) ([]rdf.Node, error) {
	visited := map[string]bool{}
	var out []rdf.Node
	if includeStart {
		visited[rdf.Key(node)] = true
		out = append(out, node)
	}
	frontier := []rdf.Node{node}
	for len(frontier) > 0 {
		n := frontier[0]
		frontier = frontier[1:]
		next, err := reach(m, p, n, forward)
		if err != nil {
			return nil, err
		}
		for _, x := range next {
			k := rdf.Key(x)
			if visited[k] {
				continue
			}
			visited[k] = true
			out = append(out, x)
			frontier = append(frontier, x)
		}
	}
	return out, nil
}

func distinctNodes(nodes []rdf.Node) []rdf.Node {
	seen := map[string]bool{}
	out := nodes[:0:0]
	for _, n := range nodes {
		k := rdf.Key(n)
		if !seen[k] {
			seen[k] = true
			out = append(out, n)
		}
	}
	return out
}
