// Package expr defines SPARQL expression trees and their evaluation.
//
// Expressions evaluate against one solution to an RDF term. Aggregates
// evaluate against the group of solutions carried in the Context and fail
// with AGGREGATE_CONTEXT outside a grouping.
package expr

import (
	"sort"
	"strings"
	"time"

	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/solution"
)

// Expression is a node of an expression tree.
type Expression interface {
	// Evaluate computes the value of the expression for one solution.
	Evaluate(ctx *Context, sol *solution.Solution) (rdf.Node, error)
	// Variables returns the variables the expression mentions, sorted.
	Variables() []string
	// Arguments returns the direct sub-expressions.
	Arguments() []Expression
	// WithArguments returns a copy with its sub-expressions replaced.
	WithArguments(args []Expression) (Expression, error)
	// Functor names the operator or function.
	Functor() string
	String() string
}

// Pattern is a graph pattern nested in an EXISTS expression. It is
// implemented by algebra nodes; evaluation is delegated to Context.Exists.
type Pattern interface {
	Variables() []string
	String() string
}

// Context carries evaluation state shared by all expressions of one query.
type Context struct {
	// Exists evaluates a nested pattern joined with sol and reports
	// whether any solution results.
	Exists func(p Pattern, sol *solution.Solution) (bool, error)
	// Group holds the members of the current group while evaluating
	// aggregates.
	Group []*solution.Solution
	// Now is the query evaluation time.
	Now time.Time
}

// WithGroup returns a copy of the context scoped to a group.
func (c *Context) WithGroup(group []*solution.Solution) *Context {
	cp := *c
	cp.Group = group
	return &cp
}

// Aggregate is an expression computed over a group of solutions.
type Aggregate interface {
	Expression
	// Apply computes the aggregate over group.
	Apply(ctx *Context, group []*solution.Solution) (rdf.Node, error)
}

// IsAggregate reports whether e is an aggregate.
func IsAggregate(e Expression) bool {
	_, ok := e.(Aggregate)
	return ok
}

// ContainsAggregate reports whether e or any sub-expression is an aggregate.
func ContainsAggregate(e Expression) bool {
	if IsAggregate(e) {
		return true
	}
	for _, a := range e.Arguments() {
		if a != nil && ContainsAggregate(a) {
			return true
		}
	}
	return false
}

// Transform rebuilds e bottom-up, applying fn to every node after its
// arguments have been transformed.
func Transform(e Expression, fn func(Expression) (Expression, error)) (Expression, error) {
	args := e.Arguments()
	if len(args) > 0 {
		rewritten := make([]Expression, len(args))
		changed := false
		for i, a := range args {
			if a == nil {
				continue
			}
			r, err := Transform(a, fn)
			if err != nil {
				return nil, err
			}
			rewritten[i] = r
			if r != a {
				changed = true
			}
		}
		if changed {
			var err error
			if e, err = e.WithArguments(rewritten); err != nil {
				return nil, err
			}
		}
	}
	return fn(e)
}

func collectVariables(args ...Expression) []string {
	seen := map[string]bool{}
	for _, a := range args {
		if a == nil {
			continue
		}
		for _, v := range a.Variables() {
			seen[v] = true
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func joinArgs(args []Expression) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if a == nil {
			parts[i] = ""
			continue
		}
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

func call(name string, args ...Expression) string {
	return name + "(" + joinArgs(args) + ")"
}

func checkArity(functor string, args []Expression, n int) error {
	if len(args) != n {
		return Errorf(CodeInvalidArgument, "%s expects %d arguments, got %d", functor, n, len(args))
	}
	return nil
}
