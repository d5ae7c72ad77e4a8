package expr

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/quarry/internal/rdf"
)

// FunctionsNamespace holds the engine's own extension functions.
const FunctionsNamespace = "http://quarry.dev/functions#"

// FunctionFactory creates extension function expressions. ok is false when
// the factory does not know iri.
type FunctionFactory interface {
	CreateFunction(iri rdf.IRI, args []Expression) (e Expression, ok bool, err error)
}

// FactoryFunc adapts a function to FunctionFactory.
type FactoryFunc func(iri rdf.IRI, args []Expression) (Expression, bool, error)

func (f FactoryFunc) CreateFunction(iri rdf.IRI, args []Expression) (Expression, bool, error) {
	return f(iri, args)
}

// Registry resolves extension functions through an ordered list of
// factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories []FunctionFactory
}

// NewRegistry creates a registry consulting factories in order.
func NewRegistry(factories ...FunctionFactory) *Registry {
	return &Registry{factories: factories}
}

// DefaultRegistry returns a registry with XSD casts and the quarry
// aggregates (qfn:all, qfn:any, qfn:none).
func DefaultRegistry() *Registry {
	return NewRegistry(FactoryFunc(castFactory), FactoryFunc(aggregateFactory))
}

// Register appends a factory. Earlier factories take precedence.
func (r *Registry) Register(f FunctionFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = append(r.factories, f)
}

// Resolve creates the expression for a call to iri. Unknown functions
// resolve to a Call that fails when evaluated.
func (r *Registry) Resolve(iri rdf.IRI, args []Expression) (Expression, error) {
	if r != nil {
		r.mu.RLock()
		factories := r.factories
		r.mu.RUnlock()
		for _, f := range factories {
			e, ok, err := f.CreateFunction(iri, args)
			if err != nil {
				return nil, err
			}
			if ok {
				return e, nil
			}
		}
	}
	return &Call{IRI: iri, Args: args}, nil
}

var castTargets = map[rdf.IRI]bool{
	rdf.XSDInteger:                true,
	rdf.XSDDecimal:                true,
	rdf.XSDFloat:                  true,
	rdf.XSDDouble:                 true,
	rdf.XSDBoolean:                true,
	rdf.XSDString:                 true,
	rdf.XSDNamespace + "dateTime": true,
}

func castFactory(iri rdf.IRI, args []Expression) (Expression, bool, error) {
	if !castTargets[iri] {
		return nil, false, nil
	}
	if len(args) != 1 {
		return nil, true, Errorf(CodeInvalidArgument, "cast to %s takes one argument", iri)
	}
	target := iri
	return &Call{IRI: iri, Args: args, Impl: func(vals []rdf.Node) (rdf.Node, error) {
		return Cast(vals[0], target)
	}}, true, nil
}

func aggregateFactory(iri rdf.IRI, args []Expression) (Expression, bool, error) {
	local, ok := strings.CutPrefix(string(iri), FunctionsNamespace)
	if !ok {
		return nil, false, nil
	}
	var name string
	switch local {
	case "all":
		name = AggAll
	case "any":
		name = AggAny
	case "none":
		name = AggNone
	default:
		return nil, false, nil
	}
	distinct := false
	if len(args) > 0 {
		if _, ok := args[0].(DistinctModifier); ok {
			distinct = true
			args = args[1:]
		}
	}
	if len(args) != 1 {
		return nil, true, Errorf(CodeInvalidArgument, "%s takes one argument", iri)
	}
	agg := NewAggregation(name, args[0], distinct)
	agg.Label = iri.String()
	return agg, true, nil
}

// Cast converts a term to an xsd datatype following the XPath casting rules
// for the supported types.
func Cast(n rdf.Node, target rdf.IRI) (rdf.Node, error) {
	if n == nil {
		return nil, Errorf(CodeUnbound, "cast of unbound value")
	}
	if _, ok := n.(rdf.BlankNode); ok {
		return nil, Errorf(CodeTypeError, "cannot cast blank node %s", n)
	}
	if iri, ok := n.(rdf.IRI); ok {
		if target == rdf.XSDString {
			return rdf.NewLiteral(string(iri)), nil
		}
		return nil, Errorf(CodeTypeError, "cannot cast IRI %s to %s", n, target)
	}
	lit, ok := n.(rdf.Literal)
	if !ok {
		return nil, Errorf(CodeTypeError, "cannot cast %s", n)
	}

	if target == rdf.XSDString {
		return rdf.NewLiteral(lit.Lexical), nil
	}
	if b, isBool := boolValue(lit); isBool {
		if target == rdf.XSDBoolean {
			return Boolean(b), nil
		}
		if kind := KindOfDatatype(target); kind != NotNumeric {
			v := int64(0)
			if b {
				v = 1
			}
			return NewInteger(v).promote(kind).Node(), nil
		}
		return nil, Errorf(CodeTypeError, "cannot cast %s to %s", n, target)
	}
	if num, isNum := NumericOf(lit); isNum {
		switch kind := KindOfDatatype(target); {
		case target == rdf.XSDBoolean:
			return Boolean(!num.IsZero() && !num.IsNaN()), nil
		case kind == Integer:
			return truncate(num)
		case kind != NotNumeric:
			if kind >= num.Kind {
				return num.promote(kind).Node(), nil
			}
			return demote(num, kind)
		}
		return nil, Errorf(CodeTypeError, "cannot cast %s to %s", n, target)
	}

	if !IsStringLiteral(lit) {
		return nil, Errorf(CodeTypeError, "cannot cast %s to %s", n, target)
	}
	s := strings.TrimSpace(lit.Lexical)
	switch {
	case target == rdf.XSDBoolean:
		switch s {
		case "true", "1":
			return True, nil
		case "false", "0":
			return False, nil
		}
	case target == rdf.XSDNamespace+"dateTime":
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return rdf.NewTypedLiteral(t.Format(time.RFC3339Nano), target), nil
		}
	case KindOfDatatype(target) != NotNumeric:
		kind := KindOfDatatype(target)
		if num, err := ParseNumeric(s, kind); err == nil {
			return num.Node(), nil
		}
	}
	return nil, Errorf(CodeTypeError, "cannot cast %q to %s", lit.Lexical, target)
}

// demote narrows a floating value to Float or Decimal.
func demote(num Numeric, kind NumericKind) (rdf.Node, error) {
	if kind == Float {
		return Numeric{Kind: Float, f: float64(float32(num.f))}.Node(), nil
	}
	if math.IsNaN(num.f) || math.IsInf(num.f, 0) {
		return nil, Errorf(CodeTypeError, "cannot cast %v to %s", num.f, kind)
	}
	out := Numeric{Kind: kind}
	if _, err := out.dec.SetFloat64(num.f); err != nil {
		return nil, Errorf(CodeTypeError, "cannot cast %v to %s", num.f, kind)
	}
	return out.Node(), nil
}

// truncate converts a numeric to an integer, truncating toward zero.
func truncate(num Numeric) (rdf.Node, error) {
	var src apd.Decimal
	src.Set(&num.dec)
	if num.Kind == Float || num.Kind == Double {
		if math.IsNaN(num.f) || math.IsInf(num.f, 0) {
			return nil, Errorf(CodeTypeError, "cannot cast %v to integer", num.f)
		}
		if _, err := src.SetFloat64(num.f); err != nil {
			return nil, Errorf(CodeTypeError, "cannot cast %v to integer", num.f)
		}
	}
	out := Numeric{Kind: Integer}
	if _, err := truncateCtx.Quantize(&out.dec, &src, 0); err != nil {
		return nil, Errorf(CodeTypeError, "cannot cast %s to integer", src.String())
	}
	return out.Node(), nil
}
