package expr

import (
	"strings"
	"time"

	"github.com/roach88/quarry/internal/rdf"
)

var (
	// True is the canonical xsd:boolean true.
	True = rdf.NewTypedLiteral("true", rdf.XSDBoolean)
	// False is the canonical xsd:boolean false.
	False = rdf.NewTypedLiteral("false", rdf.XSDBoolean)
)

// Boolean returns the canonical boolean literal for b.
func Boolean(b bool) rdf.Literal {
	if b {
		return True
	}
	return False
}

// IsStringLiteral reports whether n is a simple literal, an xsd:string or a
// language-tagged literal.
func IsStringLiteral(n rdf.Node) bool {
	lit, ok := n.(rdf.Literal)
	return ok && (lit.Datatype == "" || lit.Datatype == rdf.XSDString)
}

func isSimple(n rdf.Node) bool {
	lit, ok := n.(rdf.Literal)
	return ok && lit.Datatype == "" && lit.Language == ""
}

// EffectiveBooleanValue coerces a term to a boolean.
//
//   - xsd:boolean: its value (an invalid lexical form is false)
//   - numeric: false for zero or NaN
//   - string literals: false when empty
//   - anything else: TYPE_ERROR
func EffectiveBooleanValue(n rdf.Node) (bool, error) {
	if n == nil {
		return false, Errorf(CodeUnbound, "cannot take the boolean value of an unbound term")
	}
	lit, ok := n.(rdf.Literal)
	if !ok {
		return false, Errorf(CodeTypeError, "%s has no effective boolean value", n)
	}
	switch {
	case lit.Datatype == rdf.XSDBoolean:
		return lit.Lexical == "true" || lit.Lexical == "1", nil
	case IsStringLiteral(lit):
		return lit.Lexical != "", nil
	case rdf.IsNumericDatatype(lit.Datatype):
		num, ok := NumericOf(lit)
		if !ok {
			return false, nil
		}
		return !num.IsZero() && !num.IsNaN(), nil
	}
	return false, Errorf(CodeTypeError, "%s has no effective boolean value", n)
}

func boolValue(n rdf.Node) (bool, bool) {
	lit, ok := n.(rdf.Literal)
	if !ok || lit.Datatype != rdf.XSDBoolean {
		return false, false
	}
	switch lit.Lexical {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

func dateTimeValue(n rdf.Node) (time.Time, bool) {
	lit, ok := n.(rdf.Literal)
	if !ok || lit.Datatype != rdf.XSDNamespace+"dateTime" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, lit.Lexical)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ValueEqual implements the = operator.
//
// Numerics, booleans, strings and dateTimes compare by value. Other terms
// compare by identity, except that two literals with distinct unknown
// datatypes cannot be decided and raise TYPE_ERROR.
func ValueEqual(a, b rdf.Node) (bool, error) {
	if a == nil || b == nil {
		return false, Errorf(CodeUnbound, "cannot compare an unbound term")
	}
	if c, ok, err := valueCompare(a, b); ok {
		return c == 0, err
	}
	if rdf.Equal(a, b) {
		return true, nil
	}
	la, aLit := a.(rdf.Literal)
	lb, bLit := b.(rdf.Literal)
	if aLit && bLit && la.Language == "" && lb.Language == "" &&
		!knownDatatype(la.Datatype) && !knownDatatype(lb.Datatype) {
		return false, Errorf(CodeTypeError, "cannot decide equality of %s and %s", a, b)
	}
	return false, nil
}

func knownDatatype(dt rdf.IRI) bool {
	return dt == "" || dt == rdf.XSDString || dt == rdf.XSDBoolean ||
		rdf.IsNumericDatatype(dt) || dt == rdf.XSDNamespace+"dateTime"
}

// ValueCompare orders two terms for the < > <= >= operators.
func ValueCompare(a, b rdf.Node) (int, error) {
	if a == nil || b == nil {
		return 0, Errorf(CodeUnbound, "cannot compare an unbound term")
	}
	if c, ok, err := valueCompare(a, b); ok {
		return c, err
	}
	return 0, Errorf(CodeTypeError, "cannot order %s and %s", a, b)
}

// valueCompare compares a and b when they share a value space. ok is false
// when they do not.
func valueCompare(a, b rdf.Node) (c int, ok bool, err error) {
	if na, isNum := NumericOf(a); isNum {
		if nb, isNum := NumericOf(b); isNum {
			c, err := CompareNumeric(na, nb)
			return c, true, err
		}
		return 0, false, nil
	}
	if ba, isBool := boolValue(a); isBool {
		if bb, isBool := boolValue(b); isBool {
			switch {
			case ba == bb:
				return 0, true, nil
			case !ba:
				return -1, true, nil
			}
			return 1, true, nil
		}
		return 0, false, nil
	}
	if ta, isTime := dateTimeValue(a); isTime {
		if tb, isTime := dateTimeValue(b); isTime {
			return ta.Compare(tb), true, nil
		}
		return 0, false, nil
	}
	if IsStringLiteral(a) && IsStringLiteral(b) {
		la, lb := a.(rdf.Literal), b.(rdf.Literal)
		if la.Language != lb.Language {
			return 0, false, nil
		}
		return strings.Compare(la.Lexical, lb.Lexical), true, nil
	}
	return 0, false, nil
}

// OrderCompare is the total order used by ORDER BY: unbound first, then
// blank nodes, IRIs and literals. Literals in a shared value space compare
// by value and fall back to term order otherwise.
func OrderCompare(a, b rdf.Node) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if a.Kind() == rdf.KindLiteral && b.Kind() == rdf.KindLiteral {
		if c, ok, err := valueCompare(a, b); ok && err == nil {
			return c
		}
	}
	return rdf.Compare(a, b)
}

// StringValue returns the lexical value of a literal or the text of an IRI.
func StringValue(n rdf.Node) (string, error) {
	switch v := n.(type) {
	case rdf.Literal:
		return v.Lexical, nil
	case rdf.IRI:
		return string(v), nil
	case nil:
		return "", Errorf(CodeUnbound, "string operand is unbound")
	}
	return "", Errorf(CodeTypeError, "%s has no string value", n)
}

func stringArg(n rdf.Node) (rdf.Literal, error) {
	if n == nil {
		return rdf.Literal{}, Errorf(CodeUnbound, "string operand is unbound")
	}
	if !IsStringLiteral(n) {
		return rdf.Literal{}, Errorf(CodeTypeError, "%s is not a string literal", n)
	}
	return n.(rdf.Literal), nil
}
