package algebra

import (
	"fmt"

	"github.com/roach88/quarry/internal/expr"
	"github.com/roach88/quarry/internal/rdf"
)

// Form is the query result form.
type Form int

const (
	FormSelect Form = iota
	FormAsk
	FormConstruct
)

func (f Form) String() string {
	switch f {
	case FormAsk:
		return "ASK"
	case FormConstruct:
		return "CONSTRUCT"
	}
	return "SELECT"
}

// aggregatePrefix names the hidden variables that hold aggregate values
// lifted out of SELECT, HAVING and ORDER BY expressions.
const aggregatePrefix = ".agg"

// SelectItem is one projection. Expr is nil for a plain variable.
type SelectItem struct {
	Var  string
	Expr expr.Expression
}

// Query is a parsed query before compilation to a single algebra tree.
type Query struct {
	Form       Form
	BaseIRI    rdf.IRI
	Namespaces *rdf.NamespaceMap

	// DefaultGraphs (FROM) are merged into the default graph. NamedGraphs
	// (FROM NAMED) are the graphs GRAPH ?g ranges over.
	DefaultGraphs []rdf.IRI
	NamedGraphs   []rdf.IRI

	SelectAll bool
	Select    []SelectItem
	Distinct  bool
	Reduced   bool

	Where   Node
	GroupBy []GroupKey
	Having  []expr.Expression
	OrderBy []OrderCondition

	// Offset and Limit are negative when absent.
	Offset int
	Limit  int

	// Template holds the CONSTRUCT template.
	Template []*Match
}

// NewQuery creates a query of the given form with an empty pattern and no
// slice.
func NewQuery(form Form) *Query {
	return &Query{Form: form, Where: NewBgp(), Offset: -1, Limit: -1}
}

// IsAggregated reports whether the query groups its solutions, either
// explicitly or by using an aggregate.
func (q *Query) IsAggregated() bool {
	if len(q.GroupBy) > 0 {
		return true
	}
	for _, s := range q.Select {
		if s.Expr != nil && expr.ContainsAggregate(s.Expr) {
			return true
		}
	}
	for _, h := range q.Having {
		if expr.ContainsAggregate(h) {
			return true
		}
	}
	for _, o := range q.OrderBy {
		if expr.ContainsAggregate(o.Expr) {
			return true
		}
	}
	return false
}

// ProjectedVariables returns the variables a SELECT exposes. For SELECT *
// these are the visible variables of the pattern.
func (q *Query) ProjectedVariables() []string {
	if q.SelectAll || q.Form != FormSelect {
		var out []string
		for _, v := range q.where().Variables() {
			if !IsHiddenVariable(v) {
				out = append(out, v)
			}
		}
		return out
	}
	out := make([]string, len(q.Select))
	for i, s := range q.Select {
		out[i] = s.Var
	}
	return out
}

func (q *Query) where() Node {
	if q.Where == nil {
		return NewBgp()
	}
	return q.Where
}

// Algebra compiles the query to one operator tree:
//
//	Slice(Distinct|Reduced(Project(OrderBy(Extend*(Filter*(Group(Where)))))))
//
// Aggregates in SELECT, HAVING and ORDER BY are lifted into the Group and
// replaced by hidden variables.
func (q *Query) Algebra() (Node, error) {
	root := q.where()

	selects := append([]SelectItem(nil), q.Select...)
	having := append([]expr.Expression(nil), q.Having...)
	order := append([]OrderCondition(nil), q.OrderBy...)

	if q.IsAggregated() {
		var aggs []AggregateBinding
		lift := func(e expr.Expression) (expr.Expression, error) {
			return expr.Transform(e, func(x expr.Expression) (expr.Expression, error) {
				a, ok := x.(expr.Aggregate)
				if !ok {
					return x, nil
				}
				for _, existing := range aggs {
					if existing.Agg.String() == a.String() {
						return expr.NewVar(existing.Var), nil
					}
				}
				name := fmt.Sprintf("%s%d", aggregatePrefix, len(aggs))
				aggs = append(aggs, AggregateBinding{Var: name, Agg: a})
				return expr.NewVar(name), nil
			})
		}
		var err error
		for i := range selects {
			if selects[i].Expr == nil {
				continue
			}
			if selects[i].Expr, err = lift(selects[i].Expr); err != nil {
				return nil, err
			}
		}
		for i := range having {
			if having[i], err = lift(having[i]); err != nil {
				return nil, err
			}
		}
		for i := range order {
			if order[i].Expr, err = lift(order[i].Expr); err != nil {
				return nil, err
			}
		}
		root = &Group{Inner: root, Keys: q.GroupBy, Aggregates: aggs}
	}

	for _, h := range having {
		root = &Filter{Inner: root, Expr: h}
	}
	for _, s := range selects {
		if s.Expr != nil {
			root = &Extend{Inner: root, Var: s.Var, Expr: s.Expr}
		}
	}
	if len(order) > 0 {
		root = &OrderBy{Inner: root, Conditions: order}
	}
	if q.Form == FormSelect {
		root = &Project{Inner: root, Vars: q.ProjectedVariables()}
	}
	switch {
	case q.Distinct:
		root = &Distinct{Inner: root}
	case q.Reduced:
		root = &Reduced{Inner: root}
	}
	if q.Limit >= 0 || q.Offset > 0 {
		root = &Slice{Inner: root, Offset: q.Offset, Limit: q.Limit}
	}
	return root, nil
}

// String prints the compiled algebra, prefixed by the form for ASK and
// CONSTRUCT.
func (q *Query) String() string {
	root, err := q.Algebra()
	if err != nil {
		return fmt.Sprintf("(invalid %s: %v)", q.Form, err)
	}
	switch q.Form {
	case FormAsk:
		return "(ask " + root.String() + ")"
	case FormConstruct:
		return "(construct " + root.String() + ")"
	}
	return root.String()
}
