package expr

import (
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/quarry/internal/rdf"
)

// NumericKind is a rung of the numeric promotion tower.
type NumericKind int

const (
	NotNumeric NumericKind = iota
	Integer
	Decimal
	Float
	Double
)

func (k NumericKind) String() string {
	switch k {
	case Integer:
		return "Integer"
	case Decimal:
		return "Decimal"
	case Float:
		return "Float"
	case Double:
		return "Double"
	}
	return "NotNumeric"
}

// Datatype returns the canonical xsd datatype of the kind.
func (k NumericKind) Datatype() rdf.IRI {
	switch k {
	case Integer:
		return rdf.XSDInteger
	case Decimal:
		return rdf.XSDDecimal
	case Float:
		return rdf.XSDFloat
	case Double:
		return rdf.XSDDouble
	}
	return ""
}

// KindOfDatatype maps an xsd datatype to its numeric kind.
func KindOfDatatype(dt rdf.IRI) NumericKind {
	switch {
	case rdf.IntegerDatatypes[dt]:
		return Integer
	case dt == rdf.XSDDecimal:
		return Decimal
	case dt == rdf.XSDFloat:
		return Float
	case dt == rdf.XSDDouble:
		return Double
	}
	return NotNumeric
}

// decimalCtx is used for all exact arithmetic. Quotients are rounded to
// 34 significant digits (decimal128).
var decimalCtx = apd.BaseContext.WithPrecision(34)

var truncateCtx = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(34)
	c.Rounding = apd.RoundDown
	return c
}()

// Numeric is a numeric value. Integers and decimals are exact.
type Numeric struct {
	Kind NumericKind
	dec  apd.Decimal
	f    float64
}

// NewInteger creates an integer value.
func NewInteger(i int64) Numeric {
	n := Numeric{Kind: Integer}
	n.dec.SetInt64(i)
	return n
}

// NewDouble creates a double value.
func NewDouble(f float64) Numeric {
	return Numeric{Kind: Double, f: f}
}

// ParseNumeric parses a lexical form as kind. The lexical shape must match.
func ParseNumeric(lexical string, kind NumericKind) (Numeric, error) {
	lexical = strings.TrimSpace(lexical)
	n := Numeric{Kind: kind}
	switch kind {
	case Integer, Decimal:
		ok := rdf.IsIntegerLexical(lexical)
		if kind == Decimal {
			ok = ok || rdf.IsDecimalLexical(lexical)
		}
		if !ok {
			return Numeric{}, Errorf(CodeTypeError, "%q is not a valid %s", lexical, kind)
		}
		if _, _, err := n.dec.SetString(strings.TrimPrefix(lexical, "+")); err != nil {
			return Numeric{}, Errorf(CodeTypeError, "%q is not a valid %s: %v", lexical, kind, err)
		}
	case Float, Double:
		if !rdf.IsFloatLexical(lexical) {
			return Numeric{}, Errorf(CodeTypeError, "%q is not a valid %s", lexical, kind)
		}
		bits := 64
		if kind == Float {
			bits = 32
		}
		f, err := strconv.ParseFloat(lexical, bits)
		if err != nil && !isRangeError(err) {
			return Numeric{}, Errorf(CodeTypeError, "%q is not a valid %s", lexical, kind)
		}
		n.f = f
	default:
		return Numeric{}, Errorf(CodeTypeError, "%q is not numeric", lexical)
	}
	return n, nil
}

func isRangeError(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

// NumericOf extracts the numeric value of a literal with a numeric datatype.
func NumericOf(node rdf.Node) (Numeric, bool) {
	lit, ok := node.(rdf.Literal)
	if !ok {
		return Numeric{}, false
	}
	kind := KindOfDatatype(lit.Datatype)
	if kind == NotNumeric {
		return Numeric{}, false
	}
	n, err := ParseNumeric(lit.Lexical, kind)
	if err != nil {
		return Numeric{}, false
	}
	return n, true
}

func toNumeric(node rdf.Node) (Numeric, error) {
	if node == nil {
		return Numeric{}, Errorf(CodeUnbound, "numeric operand is unbound")
	}
	n, ok := NumericOf(node)
	if !ok {
		return Numeric{}, Errorf(CodeTypeError, "%s is not numeric", node)
	}
	return n, nil
}

// Float64 returns the value as a float64.
func (n Numeric) Float64() float64 {
	switch n.Kind {
	case Integer, Decimal:
		f, err := n.dec.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return n.f
}

// IsZero reports whether the value is zero.
func (n Numeric) IsZero() bool {
	switch n.Kind {
	case Integer, Decimal:
		return n.dec.IsZero()
	}
	return n.f == 0
}

// IsNaN reports whether the value is a floating NaN.
func (n Numeric) IsNaN() bool {
	return (n.Kind == Float || n.Kind == Double) && math.IsNaN(n.f)
}

func (n Numeric) promote(kind NumericKind) Numeric {
	if kind <= n.Kind {
		return n
	}
	switch kind {
	case Decimal:
		out := Numeric{Kind: Decimal}
		out.dec.Set(&n.dec)
		return out
	case Float:
		return Numeric{Kind: Float, f: float64(float32(n.Float64()))}
	}
	return Numeric{Kind: kind, f: n.Float64()}
}

// Negate returns -n.
func (n Numeric) Negate() Numeric {
	out := Numeric{Kind: n.Kind, f: -n.f}
	out.dec.Neg(&n.dec)
	return out
}

// Node returns the canonical literal for the value.
func (n Numeric) Node() rdf.Literal {
	switch n.Kind {
	case Integer:
		return rdf.NewTypedLiteral(n.dec.Text('f'), rdf.XSDInteger)
	case Decimal:
		var reduced apd.Decimal
		reduced.Reduce(&n.dec)
		s := reduced.Text('f')
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return rdf.NewTypedLiteral(s, rdf.XSDDecimal)
	case Float:
		return rdf.NewTypedLiteral(formatFloating(n.f, 32), rdf.XSDFloat)
	case Double:
		return rdf.NewTypedLiteral(formatFloating(n.f, 64), rdf.XSDDouble)
	}
	return rdf.NewLiteral("")
}

func formatFloating(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	}
	s := strconv.FormatFloat(f, 'E', -1, bits)
	mantissa, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	e, _ := strconv.Atoi(exp)
	return mantissa + "E" + strconv.Itoa(e)
}

// Arithmetic applies a binary operator (+ - * /) after promoting both
// operands to the wider kind. Integer division yields a decimal.
func Arithmetic(op byte, a, b Numeric) (Numeric, error) {
	kind := max(a.Kind, b.Kind)
	if op == '/' && kind == Integer {
		kind = Decimal
	}
	a, b = a.promote(kind), b.promote(kind)

	if kind == Float || kind == Double {
		var f float64
		switch op {
		case '+':
			f = a.f + b.f
		case '-':
			f = a.f - b.f
		case '*':
			f = a.f * b.f
		case '/':
			f = a.f / b.f
		}
		if kind == Float {
			f = float64(float32(f))
		}
		return Numeric{Kind: kind, f: f}, nil
	}

	out := Numeric{Kind: kind}
	var err error
	switch op {
	case '+':
		_, err = decimalCtx.Add(&out.dec, &a.dec, &b.dec)
	case '-':
		_, err = decimalCtx.Sub(&out.dec, &a.dec, &b.dec)
	case '*':
		_, err = decimalCtx.Mul(&out.dec, &a.dec, &b.dec)
	case '/':
		if b.dec.IsZero() {
			return Numeric{}, Errorf(CodeDivisionByZero, "division by zero")
		}
		_, err = decimalCtx.Quo(&out.dec, &a.dec, &b.dec)
	default:
		return Numeric{}, Errorf(CodeInvalidArgument, "unknown operator %q", op)
	}
	if err != nil {
		return Numeric{}, Errorf(CodeTypeError, "arithmetic failed: %v", err)
	}
	return out, nil
}

// CompareNumeric orders two numeric values. NaN is incomparable.
func CompareNumeric(a, b Numeric) (int, error) {
	kind := max(a.Kind, b.Kind)
	a, b = a.promote(kind), b.promote(kind)
	if kind == Integer || kind == Decimal {
		return a.dec.Cmp(&b.dec), nil
	}
	if math.IsNaN(a.f) || math.IsNaN(b.f) {
		return 0, Errorf(CodeTypeError, "NaN is not comparable")
	}
	switch {
	case a.f < b.f:
		return -1, nil
	case a.f > b.f:
		return 1, nil
	}
	return 0, nil
}
