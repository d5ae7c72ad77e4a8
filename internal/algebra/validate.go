package algebra

import (
	"fmt"
	"slices"

	"github.com/roach88/quarry/internal/expr"
)

// ValidationResult lists the problems found in a query that still allow it
// to run.
type ValidationResult struct {
	// Clean is true when there are no warnings.
	Clean bool

	// Warnings describes each finding.
	Warnings []string
}

// Validate inspects a query for projections that can never be bound and for
// grouped queries that project ungrouped variables.
//
// Validate is a pure function with no side effects.
func Validate(q *Query) ValidationResult {
	v := &validator{warnings: []string{}}
	v.validateQuery(q)
	return ValidationResult{Clean: len(v.warnings) == 0, Warnings: v.warnings}
}

type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q *Query) {
	if q == nil {
		v.addWarning("nil query")
		return
	}
	if q.Form != FormSelect || q.SelectAll {
		if q.SelectAll && len(q.GroupBy) > 0 {
			v.addWarning("SELECT * cannot be combined with GROUP BY")
		}
		return
	}

	bound := q.where().Variables()
	if q.IsAggregated() {
		v.validateGrouped(q)
		return
	}
	for _, s := range q.Select {
		if s.Expr != nil {
			bound = append(bound, s.Var)
			continue
		}
		if !slices.Contains(bound, s.Var) {
			v.addWarning("projected variable ?%s is never bound by the query pattern", s.Var)
		}
	}
}

func (v *validator) validateGrouped(q *Query) {
	grouped := map[string]bool{}
	for _, k := range q.GroupBy {
		if name, ok := k.KeyVariable(); ok {
			grouped[name] = true
		}
	}
	for _, s := range q.Select {
		if s.Expr == nil {
			if !grouped[s.Var] {
				v.addWarning("variable ?%s is projected but neither grouped nor aggregated", s.Var)
			}
			grouped[s.Var] = true
			continue
		}
		for _, name := range ungroupedVariables(s.Expr) {
			if !grouped[name] {
				v.addWarning("expression for ?%s uses ?%s outside an aggregate but it is not grouped", s.Var, name)
			}
		}
		grouped[s.Var] = true
	}
}

// ungroupedVariables lists the variables of e that are read outside any
// aggregate.
func ungroupedVariables(e expr.Expression) []string {
	switch x := e.(type) {
	case expr.Aggregate:
		return nil
	case *expr.Var:
		return []string{x.Name}
	}
	var out []string
	for _, a := range e.Arguments() {
		if a != nil {
			out = append(out, ungroupedVariables(a)...)
		}
	}
	return out
}
