// Package optimizer rewrites algebra trees before evaluation.
//
// VariableSubstitution replaces one variable by another variable or by a
// constant throughout a tree. It refuses rewrites it cannot prove safe
// rather than producing a tree with different answers. IdentityFilter uses
// it to fold FILTER(?x = <iri>) into the pattern it guards.
package optimizer

import (
	"fmt"

	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/expr"
	"github.com/roach88/quarry/internal/rdf"
)

// Optimiser rewrites a tree. A returned error means the original tree must
// be used unchanged.
type Optimiser interface {
	Name() string
	Optimise(n algebra.Node) (algebra.Node, error)
}

// VariableSubstitution replaces the variable Find.
//
// Within a basic graph pattern, objects are only rewritten once the
// subject or predicate of an earlier slot has been rewritten, unless the
// replacement is a constant. SetCanReplaceObjects overrides that rule for
// the whole rewrite.
type VariableSubstitution struct {
	find    string
	replace algebra.PatternItem

	custom  bool
	objects bool
}

// NewVariableSubstitution replaces ?find by ?replace.
func NewVariableSubstitution(find, replace string) *VariableSubstitution {
	return &VariableSubstitution{find: find, replace: algebra.Var(replace)}
}

// NewConstantSubstitution replaces ?find by the constant n.
func NewConstantSubstitution(find string, n rdf.Node) *VariableSubstitution {
	return &VariableSubstitution{find: find, replace: algebra.Const(n)}
}

// SetCanReplaceObjects fixes whether object positions may be rewritten,
// replacing the default rule.
func (v *VariableSubstitution) SetCanReplaceObjects(allow bool) {
	v.custom = true
	v.objects = allow
}

// CanReplaceObjects reports the starting permission for object positions.
func (v *VariableSubstitution) CanReplaceObjects() bool {
	if v.custom {
		return v.objects
	}
	_, isConst := v.replace.(algebra.ConstantItem)
	return isConst
}

func (v *VariableSubstitution) Name() string {
	return fmt.Sprintf("substitute(?%s -> %s)", v.find, v.replace)
}

// Optimise returns a rewritten copy of n. n itself is never modified.
func (v *VariableSubstitution) Optimise(n algebra.Node) (algebra.Node, error) {
	switch n := n.(type) {
	case *algebra.Bgp:
		return v.bgp(n)
	case *algebra.Table:
		return n, nil
	case *algebra.Service:
		return nil, refuse(CodeUnsupportedNode, n, "cannot substitute into a remote pattern")
	case *algebra.SubQuery:
		return nil, refuse(CodeUnsupportedNode, n, "cannot substitute into a sub-query")
	case *algebra.Graph:
		return v.graph(n)
	}

	kids := algebra.Children(n)
	if kids == nil {
		return nil, refuse(CodeUnsupportedNode, n, "unknown operator")
	}
	next := make([]algebra.Node, len(kids))
	for i, k := range kids {
		r, err := v.Optimise(k)
		if err != nil {
			return nil, err
		}
		next[i] = r
	}
	out, err := algebra.WithChildren(n, next)
	if err != nil {
		return nil, err
	}
	return v.expressions(out)
}

func (v *VariableSubstitution) bgp(b *algebra.Bgp) (algebra.Node, error) {
	objects := v.CanReplaceObjects()
	out := make([]algebra.TriplePattern, 0, len(b.Patterns))
	for _, tp := range b.Patterns {
		switch tp := tp.(type) {
		case *algebra.Match:
			m := *tp
			if v.matches(m.Subject) {
				m.Subject = v.replace
				objects = !v.custom || v.objects
			}
			if v.matches(m.Predicate) {
				m.Predicate = v.replace
				objects = !v.custom || v.objects
			}
			if v.matches(m.Object) {
				if !objects {
					return nil, refuse(CodeUnsafeObjectSubstitution, b,
						"?%s in object position of %s", v.find, tp)
				}
				m.Object = v.replace
			}
			out = append(out, &m)
		case *algebra.FilterPattern:
			e, err := v.expr(tp.Expr)
			if err != nil {
				return nil, err
			}
			out = append(out, &algebra.FilterPattern{Expr: e})
		case *algebra.Assign:
			e, err := v.expr(tp.Expr)
			if err != nil {
				return nil, err
			}
			out = append(out, &algebra.Assign{Var: tp.Var, Expr: e, Let: tp.Let})
		case *algebra.PathPattern:
			return nil, refuse(CodeUnsupportedNode, b, "cannot substitute into property path %s", tp)
		case *algebra.SubQueryPattern:
			return nil, refuse(CodeUnsupportedNode, b, "cannot substitute into a sub-query")
		default:
			return nil, refuse(CodeUnsupportedNode, b, "unknown pattern %T", tp)
		}
	}
	return &algebra.Bgp{Patterns: out}, nil
}

func (v *VariableSubstitution) graph(g *algebra.Graph) (algebra.Node, error) {
	inner, err := v.Optimise(g.Inner)
	if err != nil {
		return nil, err
	}
	spec := g.Specifier
	if v.matches(spec) {
		c, ok := v.replace.(algebra.ConstantItem)
		if !ok {
			return nil, refuse(CodeInvalidGraphReplacement, g, "GRAPH ?%s can only be replaced by an IRI", v.find)
		}
		if _, ok := c.Value.(rdf.IRI); !ok {
			return nil, refuse(CodeInvalidGraphReplacement, g, "GRAPH ?%s replaced by non-IRI %s", v.find, c)
		}
		spec = c
	}
	return &algebra.Graph{Specifier: spec, Inner: inner}, nil
}

// expressions rewrites the expressions an operator carries itself.
func (v *VariableSubstitution) expressions(n algebra.Node) (algebra.Node, error) {
	var err error
	switch n := n.(type) {
	case *algebra.Filter:
		n.Expr, err = v.expr(n.Expr)
	case *algebra.Extend:
		n.Expr, err = v.expr(n.Expr)
	case *algebra.LeftJoin:
		if n.Filter != nil {
			n.Filter, err = v.expr(n.Filter)
		}
	case *algebra.OrderBy:
		conds := make([]algebra.OrderCondition, len(n.Conditions))
		for i, c := range n.Conditions {
			if c.Expr, err = v.expr(c.Expr); err != nil {
				return nil, err
			}
			conds[i] = c
		}
		n.Conditions = conds
	case *algebra.Group:
		keys := make([]algebra.GroupKey, len(n.Keys))
		for i, k := range n.Keys {
			if k.Expr, err = v.expr(k.Expr); err != nil {
				return nil, err
			}
			keys[i] = k
		}
		n.Keys = keys
		aggs := make([]algebra.AggregateBinding, len(n.Aggregates))
		for i, a := range n.Aggregates {
			e, err := v.expr(a.Agg)
			if err != nil {
				return nil, err
			}
			agg, ok := e.(expr.Aggregate)
			if !ok {
				return nil, refuse(CodeUnsupportedNode, n, "aggregate ?%s rewritten to %T", a.Var, e)
			}
			aggs[i] = algebra.AggregateBinding{Var: a.Var, Agg: agg}
		}
		n.Aggregates = aggs
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (v *VariableSubstitution) expr(e expr.Expression) (expr.Expression, error) {
	return expr.Transform(e, func(x expr.Expression) (expr.Expression, error) {
		switch x := x.(type) {
		case *expr.Var:
			if x.Name != v.find {
				return x, nil
			}
			switch r := v.replace.(type) {
			case algebra.VariableItem:
				return expr.NewVar(r.Name), nil
			case algebra.ConstantItem:
				return expr.NewConstant(r.Value), nil
			}
		case *expr.Exists:
			inner, ok := x.Pattern.(algebra.Node)
			if !ok {
				return nil, refuse(CodeUnsupportedNode, nil, "EXISTS over %T", x.Pattern)
			}
			p, err := v.Optimise(inner)
			if err != nil {
				return nil, err
			}
			return &expr.Exists{Pattern: p, Negated: x.Negated}, nil
		}
		return x, nil
	})
}

func (v *VariableSubstitution) matches(it algebra.PatternItem) bool {
	vi, ok := it.(algebra.VariableItem)
	return ok && vi.Name == v.find
}
