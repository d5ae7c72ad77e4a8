package expr

import (
	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/solution"
)

// Constant is a fixed RDF term.
type Constant struct {
	Value rdf.Node
}

// NewConstant wraps a term.
func NewConstant(n rdf.Node) *Constant { return &Constant{Value: n} }

func (c *Constant) Evaluate(*Context, *solution.Solution) (rdf.Node, error) {
	return c.Value, nil
}
func (c *Constant) Variables() []string     { return nil }
func (c *Constant) Arguments() []Expression { return nil }
func (c *Constant) WithArguments([]Expression) (Expression, error) {
	return c, nil
}
func (c *Constant) Functor() string { return "" }
func (c *Constant) String() string  { return formatConstant(c.Value) }

// formatConstant prints numbers and booleans in their short form.
func formatConstant(n rdf.Node) string {
	if lit, ok := n.(rdf.Literal); ok {
		if lit.Datatype == rdf.XSDBoolean && (lit.Lexical == "true" || lit.Lexical == "false") {
			return lit.Lexical
		}
		if kind := KindOfDatatype(lit.Datatype); kind == Integer || kind == Decimal || kind == Double {
			if _, err := ParseNumeric(lit.Lexical, kind); err == nil && kind.Datatype() == lit.Datatype {
				return lit.Lexical
			}
		}
	}
	return rdf.FormatTerm(n)
}

// Var reads a variable from the solution.
type Var struct {
	Name string
}

// NewVar creates a variable term.
func NewVar(name string) *Var { return &Var{Name: name} }

func (v *Var) Evaluate(_ *Context, sol *solution.Solution) (rdf.Node, error) {
	n, ok := sol.Get(v.Name)
	if !ok {
		return nil, Errorf(CodeUnbound, "?%s is unbound", v.Name)
	}
	return n, nil
}
func (v *Var) Variables() []string     { return []string{v.Name} }
func (v *Var) Arguments() []Expression { return nil }
func (v *Var) WithArguments([]Expression) (Expression, error) {
	return v, nil
}
func (v *Var) Functor() string { return "" }
func (v *Var) String() string  { return "?" + v.Name }

// DistinctModifier marks DISTINCT as the first argument of an aggregate.
// It only exists during parsing and never evaluates.
type DistinctModifier struct{}

func (DistinctModifier) Evaluate(*Context, *solution.Solution) (rdf.Node, error) {
	return nil, Errorf(CodeInvalidArgument, "DISTINCT cannot be evaluated")
}
func (DistinctModifier) Variables() []string     { return nil }
func (DistinctModifier) Arguments() []Expression { return nil }
func (d DistinctModifier) WithArguments([]Expression) (Expression, error) {
	return d, nil
}
func (DistinctModifier) Functor() string { return "DISTINCT" }
func (DistinctModifier) String() string  { return "DISTINCT" }
