package algebra

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/quarry/internal/expr"
	"github.com/roach88/quarry/internal/solution"
)

// Node is an operator of the algebra tree.
//
// This is a sealed interface - only types in this package implement it.
// Every Node also satisfies expr.Pattern, so a Node can be carried by an
// EXISTS expression.
type Node interface {
	// Variables lists the variables the operator may bind.
	Variables() []string
	String() string
	algebraNode()
}

// Bgp is a basic graph pattern: triple patterns evaluated in order against
// the active graph. An empty Bgp evaluates to the identity multiset without
// touching the dataset.
type Bgp struct {
	Patterns []TriplePattern
}

// NewBgp creates a Bgp.
func NewBgp(patterns ...TriplePattern) *Bgp { return &Bgp{Patterns: patterns} }

// IsEmpty reports whether the Bgp has no patterns.
func (b *Bgp) IsEmpty() bool { return len(b.Patterns) == 0 }

func (b *Bgp) Variables() []string {
	var out []string
	for _, p := range b.Patterns {
		out = appendUnique(out, p.Variables()...)
	}
	return out
}

func (b *Bgp) String() string {
	if b.IsEmpty() {
		return "(bgp)"
	}
	return "(bgp " + joinPatterns(b.Patterns) + ")"
}

// Join is the inner join of two patterns.
type Join struct {
	Left, Right Node
}

func (j *Join) Variables() []string { return appendUnique(j.Left.Variables(), j.Right.Variables()...) }
func (j *Join) String() string      { return sexpr("join", j.Left, j.Right) }

// LeftJoin is OPTIONAL: every left solution survives, extended by the
// compatible right solutions that satisfy Filter.
type LeftJoin struct {
	Left, Right Node
	// Filter is the OPTIONAL's own FILTER; nil means true.
	Filter expr.Expression
}

func (j *LeftJoin) Variables() []string {
	return appendUnique(j.Left.Variables(), j.Right.Variables()...)
}

func (j *LeftJoin) String() string {
	if j.Filter == nil {
		return sexpr("leftjoin", j.Left, j.Right)
	}
	return sexpr("leftjoin", j.Left, j.Right, j.Filter)
}

// Union is the bag union of two patterns.
type Union struct {
	Left, Right Node
}

func (u *Union) Variables() []string { return appendUnique(u.Left.Variables(), u.Right.Variables()...) }
func (u *Union) String() string      { return sexpr("union", u.Left, u.Right) }

// Minus removes left solutions compatible with some right solution.
type Minus struct {
	Left, Right Node
}

func (m *Minus) Variables() []string { return m.Left.Variables() }
func (m *Minus) String() string      { return sexpr("minus", m.Left, m.Right) }

// Graph evaluates Inner with the active graph set by Specifier, which is a
// ConstantItem holding an IRI or a VariableItem.
type Graph struct {
	Specifier PatternItem
	Inner     Node
}

func (g *Graph) Variables() []string {
	vars := g.Inner.Variables()
	if name, ok := ItemVariable(g.Specifier); ok {
		vars = appendUnique(vars, name)
	}
	return vars
}

func (g *Graph) String() string { return sexpr("graph", g.Specifier, g.Inner) }

// Filter keeps the solutions of Inner for which Expr has an effective
// boolean value of true.
type Filter struct {
	Inner Node
	Expr  expr.Expression
}

func (f *Filter) Variables() []string { return f.Inner.Variables() }
func (f *Filter) String() string      { return sexpr("filter", f.Expr, f.Inner) }

// Extend binds Var to Expr on every solution of Inner. An evaluation error
// leaves Var unbound.
type Extend struct {
	Inner Node
	Var   string
	Expr  expr.Expression
}

func (e *Extend) Variables() []string { return appendUnique(e.Inner.Variables(), e.Var) }

func (e *Extend) String() string {
	return fmt.Sprintf("(extend ((?%s %s)) %s)", e.Var, e.Expr, e.Inner)
}

// Slice applies Offset then Limit. A negative value means unrestricted.
type Slice struct {
	Inner  Node
	Offset int
	Limit  int
}

func (s *Slice) Variables() []string { return s.Inner.Variables() }

func (s *Slice) String() string {
	bound := func(v int) string {
		if v < 0 {
			return "_"
		}
		return strconv.Itoa(v)
	}
	return fmt.Sprintf("(slice %s %s %s)", bound(s.Offset), bound(s.Limit), s.Inner)
}

// Distinct removes duplicate solutions.
type Distinct struct{ Inner Node }

func (d *Distinct) Variables() []string { return d.Inner.Variables() }
func (d *Distinct) String() string      { return sexpr("distinct", d.Inner) }

// Reduced permits the removal of duplicate solutions.
type Reduced struct{ Inner Node }

func (r *Reduced) Variables() []string { return r.Inner.Variables() }
func (r *Reduced) String() string      { return sexpr("reduced", r.Inner) }

// Service delegates Inner to a remote endpoint.
type Service struct {
	Endpoint PatternItem
	Inner    Node
	Silent   bool
}

func (s *Service) Variables() []string {
	vars := s.Inner.Variables()
	if name, ok := ItemVariable(s.Endpoint); ok {
		vars = appendUnique(vars, name)
	}
	return vars
}

func (s *Service) String() string {
	if s.Silent {
		return sexpr("service silent", s.Endpoint, s.Inner)
	}
	return sexpr("service", s.Endpoint, s.Inner)
}

// SubQuery evaluates a nested SELECT; only its projected variables escape.
type SubQuery struct {
	Query *Query
}

func (s *SubQuery) Variables() []string { return s.Query.ProjectedVariables() }
func (s *SubQuery) String() string      { return s.Query.String() }

// TableKind selects the shape of a Table.
type TableKind int

const (
	// TableUnit holds one empty solution.
	TableUnit TableKind = iota
	// TableEmpty holds no solutions.
	TableEmpty
	// TableRows holds the explicit Rows.
	TableRows
)

// Table is an inline set of solutions.
type Table struct {
	Kind TableKind
	Vars []string
	Rows []*solution.Solution
}

func (t *Table) Variables() []string { return t.Vars }

func (t *Table) String() string {
	switch t.Kind {
	case TableUnit:
		return "(table unit)"
	case TableEmpty:
		return "(table empty)"
	}
	parts := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		parts[i] = "(row " + r.String() + ")"
	}
	return "(table " + strings.Join(parts, " ") + ")"
}

// GroupKey is one GROUP BY condition. Var names the key when it is an
// aliased expression, as in GROUP BY (?a + 1 AS ?k).
type GroupKey struct {
	Expr expr.Expression
	Var  string
}

// KeyVariable returns the variable the key binds in the grouped output.
func (k GroupKey) KeyVariable() (string, bool) {
	if k.Var != "" {
		return k.Var, true
	}
	if v, ok := k.Expr.(*expr.Var); ok {
		return v.Name, true
	}
	return "", false
}

func (k GroupKey) String() string {
	if k.Var != "" {
		return fmt.Sprintf("(?%s %s)", k.Var, k.Expr)
	}
	return k.Expr.String()
}

// AggregateBinding computes Agg for each group and binds it to Var.
type AggregateBinding struct {
	Var string
	Agg expr.Aggregate
}

// Group partitions the solutions of Inner by Keys and computes Aggregates
// per partition. With no keys the whole input is one group, which exists
// even when the input is empty.
type Group struct {
	Inner      Node
	Keys       []GroupKey
	Aggregates []AggregateBinding
}

func (g *Group) Variables() []string {
	var out []string
	for _, k := range g.Keys {
		if v, ok := k.KeyVariable(); ok {
			out = appendUnique(out, v)
		}
	}
	for _, a := range g.Aggregates {
		out = appendUnique(out, a.Var)
	}
	return out
}

func (g *Group) String() string {
	keys := make([]string, len(g.Keys))
	for i, k := range g.Keys {
		keys[i] = k.String()
	}
	aggs := make([]string, len(g.Aggregates))
	for i, a := range g.Aggregates {
		aggs[i] = fmt.Sprintf("(?%s %s)", a.Var, a.Agg)
	}
	return fmt.Sprintf("(group (%s) (%s) %s)", strings.Join(keys, " "), strings.Join(aggs, " "), g.Inner)
}

// OrderCondition is one ORDER BY key.
type OrderCondition struct {
	Expr       expr.Expression
	Descending bool
}

func (c OrderCondition) String() string {
	if c.Descending {
		return "(desc " + c.Expr.String() + ")"
	}
	return "(asc " + c.Expr.String() + ")"
}

// OrderBy sorts the solutions of Inner. The sort is stable.
type OrderBy struct {
	Inner      Node
	Conditions []OrderCondition
}

func (o *OrderBy) Variables() []string { return o.Inner.Variables() }

func (o *OrderBy) String() string {
	conds := make([]string, len(o.Conditions))
	for i, c := range o.Conditions {
		conds[i] = c.String()
	}
	return fmt.Sprintf("(order (%s) %s)", strings.Join(conds, " "), o.Inner)
}

// Project restricts solutions to Vars.
type Project struct {
	Inner Node
	Vars  []string
}

func (p *Project) Variables() []string { return p.Vars }

func (p *Project) String() string {
	vars := make([]string, len(p.Vars))
	for i, v := range p.Vars {
		vars[i] = "?" + v
	}
	return fmt.Sprintf("(project (%s) %s)", strings.Join(vars, " "), p.Inner)
}

func (*Bgp) algebraNode()      {}
func (*Join) algebraNode()     {}
func (*LeftJoin) algebraNode() {}
func (*Union) algebraNode()    {}
func (*Minus) algebraNode()    {}
func (*Graph) algebraNode()    {}
func (*Filter) algebraNode()   {}
func (*Extend) algebraNode()   {}
func (*Slice) algebraNode()    {}
func (*Distinct) algebraNode() {}
func (*Reduced) algebraNode()  {}
func (*Service) algebraNode()  {}
func (*SubQuery) algebraNode() {}
func (*Table) algebraNode()    {}
func (*Group) algebraNode()    {}
func (*OrderBy) algebraNode()  {}
func (*Project) algebraNode()  {}

func sexpr(head string, parts ...fmt.Stringer) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(head)
	for _, p := range parts {
		b.WriteByte(' ')
		b.WriteString(p.String())
	}
	b.WriteByte(')')
	return b.String()
}
