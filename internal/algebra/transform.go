package algebra

import "fmt"

// Children returns the direct operator children of n. Leaves (Bgp, Table,
// SubQuery) have none; a SubQuery is opaque to generic traversal.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Join:
		return []Node{n.Left, n.Right}
	case *LeftJoin:
		return []Node{n.Left, n.Right}
	case *Union:
		return []Node{n.Left, n.Right}
	case *Minus:
		return []Node{n.Left, n.Right}
	case *Graph:
		return []Node{n.Inner}
	case *Filter:
		return []Node{n.Inner}
	case *Extend:
		return []Node{n.Inner}
	case *Slice:
		return []Node{n.Inner}
	case *Distinct:
		return []Node{n.Inner}
	case *Reduced:
		return []Node{n.Inner}
	case *Service:
		return []Node{n.Inner}
	case *Group:
		return []Node{n.Inner}
	case *OrderBy:
		return []Node{n.Inner}
	case *Project:
		return []Node{n.Inner}
	}
	return nil
}

// WithChildren returns a shallow copy of n with its children replaced.
func WithChildren(n Node, kids []Node) (Node, error) {
	want := len(Children(n))
	if len(kids) != want {
		return nil, fmt.Errorf("%T takes %d children, got %d", n, want, len(kids))
	}
	switch n := n.(type) {
	case *Join:
		return &Join{Left: kids[0], Right: kids[1]}, nil
	case *LeftJoin:
		return &LeftJoin{Left: kids[0], Right: kids[1], Filter: n.Filter}, nil
	case *Union:
		return &Union{Left: kids[0], Right: kids[1]}, nil
	case *Minus:
		return &Minus{Left: kids[0], Right: kids[1]}, nil
	case *Graph:
		return &Graph{Specifier: n.Specifier, Inner: kids[0]}, nil
	case *Filter:
		return &Filter{Inner: kids[0], Expr: n.Expr}, nil
	case *Extend:
		return &Extend{Inner: kids[0], Var: n.Var, Expr: n.Expr}, nil
	case *Slice:
		return &Slice{Inner: kids[0], Offset: n.Offset, Limit: n.Limit}, nil
	case *Distinct:
		return &Distinct{Inner: kids[0]}, nil
	case *Reduced:
		return &Reduced{Inner: kids[0]}, nil
	case *Service:
		return &Service{Endpoint: n.Endpoint, Inner: kids[0], Silent: n.Silent}, nil
	case *Group:
		return &Group{Inner: kids[0], Keys: n.Keys, Aggregates: n.Aggregates}, nil
	case *OrderBy:
		return &OrderBy{Inner: kids[0], Conditions: n.Conditions}, nil
	case *Project:
		return &Project{Inner: kids[0], Vars: n.Vars}, nil
	}
	return n, nil
}

// Transform rewrites the tree bottom-up. fn sees each node after its
// children were rewritten. Nodes whose children are unchanged are not
// copied.
func Transform(n Node, fn func(Node) (Node, error)) (Node, error) {
	kids := Children(n)
	if len(kids) > 0 {
		changed := false
		next := make([]Node, len(kids))
		for i, k := range kids {
			r, err := Transform(k, fn)
			if err != nil {
				return nil, err
			}
			next[i] = r
			changed = changed || r != k
		}
		if changed {
			var err error
			if n, err = WithChildren(n, next); err != nil {
				return nil, err
			}
		}
	}
	return fn(n)
}

// Walk visits n and its descendants depth-first, parents first. Returning
// false from fn skips the children of that node.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, k := range Children(n) {
		Walk(k, fn)
	}
}
