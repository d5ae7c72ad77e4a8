package optimizer

import (
	"log/slog"
	"strings"

	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/expr"
	"github.com/roach88/quarry/internal/rdf"
)

// IdentityFilter folds FILTER(?x = <iri>) and FILTER(SAMETERM(?x, <iri>))
// over a basic graph pattern into the pattern itself:
//
//	(filter (= ?x <iri>) bgp)  =>  (extend ?x <iri> bgp[?x := <iri>])
//
// The fold only applies when ?x is matched by a triple pattern of the
// guarded group and not bound by a BIND or LET there. A substitution the
// rewrite refuses leaves the filter in place.
type IdentityFilter struct {
	logger *slog.Logger
}

// NewIdentityFilter creates the pass. A nil logger uses slog.Default().
func NewIdentityFilter(logger *slog.Logger) *IdentityFilter {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityFilter{logger: logger}
}

func (*IdentityFilter) Name() string { return "identity-filter" }

func (f *IdentityFilter) Optimise(n algebra.Node) (algebra.Node, error) {
	return algebra.Transform(n, func(x algebra.Node) (algebra.Node, error) {
		flt, ok := x.(*algebra.Filter)
		if !ok {
			return x, nil
		}
		name, value, ok := identity(flt.Expr)
		if !ok {
			return x, nil
		}
		bgp, ok := flt.Inner.(*algebra.Bgp)
		if !ok || !matchedOnly(bgp, name) {
			return x, nil
		}
		inner, err := NewConstantSubstitution(name, value).Optimise(bgp)
		if err != nil {
			f.logger.Debug("identity filter not folded",
				"variable", name,
				"error", err,
			)
			return x, nil
		}
		return &algebra.Extend{Inner: inner, Var: name, Expr: expr.NewConstant(value)}, nil
	})
}

// identity recognizes ?x = <iri> and SAMETERM(?x, <iri>) in either order.
func identity(e expr.Expression) (string, rdf.IRI, bool) {
	var l, r expr.Expression
	switch e := e.(type) {
	case *expr.Binary:
		if e.Op != expr.OpEqual {
			return "", "", false
		}
		l, r = e.Left, e.Right
	case *expr.Builtin:
		if !strings.EqualFold(e.Name, expr.FnSameTerm) || len(e.Args) != 2 {
			return "", "", false
		}
		l, r = e.Args[0], e.Args[1]
	default:
		return "", "", false
	}
	if name, iri, ok := varIRI(l, r); ok {
		return name, iri, true
	}
	return varIRI(r, l)
}

func varIRI(a, b expr.Expression) (string, rdf.IRI, bool) {
	v, ok := a.(*expr.Var)
	if !ok {
		return "", "", false
	}
	c, ok := b.(*expr.Constant)
	if !ok {
		return "", "", false
	}
	iri, ok := c.Value.(rdf.IRI)
	return v.Name, iri, ok
}

func matchedOnly(b *algebra.Bgp, name string) bool {
	matched := false
	for _, tp := range b.Patterns {
		switch tp := tp.(type) {
		case *algebra.Match:
			for _, v := range tp.Variables() {
				if v == name {
					matched = true
				}
			}
		case *algebra.Assign:
			if tp.Var == name {
				return false
			}
		}
	}
	return matched
}

// Pipeline runs optimisers in order, each over the previous one's output.
// An optimiser that fails is skipped and its input passed on.
type Pipeline struct {
	Passes []Optimiser
	Logger *slog.Logger
}

// Default returns the passes applied to every query.
func Default(logger *slog.Logger) *Pipeline {
	return &Pipeline{Passes: []Optimiser{NewIdentityFilter(logger)}, Logger: logger}
}

func (p *Pipeline) Name() string {
	names := make([]string, len(p.Passes))
	for i, o := range p.Passes {
		names[i] = o.Name()
	}
	return strings.Join(names, ",")
}

func (p *Pipeline) Optimise(n algebra.Node) (algebra.Node, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, o := range p.Passes {
		r, err := o.Optimise(n)
		if err != nil {
			logger.Debug("optimiser skipped", "pass", o.Name(), "error", err)
			continue
		}
		n = r
	}
	return n, nil
}
