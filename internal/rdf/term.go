package rdf

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	integerShape = regexp.MustCompile(`^[+-]?[0-9]+$`)
	decimalShape = regexp.MustCompile(`^[+-]?[0-9]*\.[0-9]+$`)
	doubleShape  = regexp.MustCompile(`^[+-]?([0-9]+\.[0-9]*|\.?[0-9]+)[eE][+-]?[0-9]+$`)
)

// IsIntegerLexical reports whether s has the xsd:integer lexical shape.
func IsIntegerLexical(s string) bool { return integerShape.MatchString(s) }

// IsDecimalLexical reports whether s has the xsd:decimal lexical shape (a dot is required).
func IsDecimalLexical(s string) bool { return decimalShape.MatchString(s) }

// IsDoubleLexical reports whether s has the xsd:double lexical shape (an exponent is required),
// or is one of the special values INF, -INF, NaN.
func IsDoubleLexical(s string) bool {
	switch s {
	case "INF", "-INF", "+INF", "NaN":
		return true
	}
	return doubleShape.MatchString(s)
}

// IsFloatLexical reports whether s has the xsd:float lexical shape.
// Floats share the double shape and additionally accept plain integer and decimal forms.
func IsFloatLexical(s string) bool {
	return IsDoubleLexical(s) || IsIntegerLexical(s) || IsDecimalLexical(s)
}

// ParseTerm parses a single term in N-Triples style, extended with prefixed
// names (resolved through ns), ?variables, bare numbers and booleans.
//
// Examples: <http://ex/a>, _:b1, "x", "x"@en, "1"^^xsd:integer, ex:a, ?s, 42, true.
func ParseTerm(s string, ns *NamespaceMap) (Node, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, fmt.Errorf("empty term")
	case strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">"):
		return IRI(s[1 : len(s)-1]), nil
	case strings.HasPrefix(s, "_:"):
		if len(s) == 2 {
			return nil, fmt.Errorf("blank node %q has no label", s)
		}
		return Blank(s[2:]), nil
	case strings.HasPrefix(s, "?") || strings.HasPrefix(s, "$"):
		if len(s) == 1 {
			return nil, fmt.Errorf("variable %q has no name", s)
		}
		return Variable(s[1:]), nil
	case strings.HasPrefix(s, `"`):
		return parseLiteralTerm(s, ns)
	case s == "true" || s == "false":
		return NewTypedLiteral(s, XSDBoolean), nil
	case s == "a":
		return RDFType, nil
	case IsIntegerLexical(s):
		return NewTypedLiteral(s, XSDInteger), nil
	case IsDecimalLexical(s):
		return NewTypedLiteral(s, XSDDecimal), nil
	case IsDoubleLexical(s):
		return NewTypedLiteral(s, XSDDouble), nil
	case strings.Contains(s, ":"):
		return ResolveQName(s, ns, "")
	}
	return nil, fmt.Errorf("unrecognised term %q", s)
}

// FormatTerm renders a node in the syntax accepted by ParseTerm.
func FormatTerm(n Node) string {
	if n == nil {
		return ""
	}
	return n.String()
}

func parseLiteralTerm(s string, ns *NamespaceMap) (Node, error) {
	end := closingQuote(s)
	if end < 0 {
		return nil, fmt.Errorf("unterminated literal %q", s)
	}
	lexical, err := unescapeLiteral(s[1:end])
	if err != nil {
		return nil, err
	}
	rest := s[end+1:]
	switch {
	case rest == "":
		return NewLiteral(lexical), nil
	case strings.HasPrefix(rest, "@"):
		return NewLangLiteral(lexical, rest[1:]), nil
	case strings.HasPrefix(rest, "^^"):
		dt, err := ParseTerm(rest[2:], ns)
		if err != nil {
			return nil, fmt.Errorf("literal datatype: %w", err)
		}
		iri, ok := dt.(IRI)
		if !ok {
			return nil, fmt.Errorf("literal datatype %q is not an IRI", rest[2:])
		}
		return NewTypedLiteral(lexical, iri), nil
	}
	return nil, fmt.Errorf("unexpected text %q after literal", rest)
}

func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func unescapeLiteral(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		i++
		if i >= len(s) {
			return "", fmt.Errorf("dangling escape in %q", s)
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '"', '\'', '\\':
			b.WriteByte(s[i])
		default:
			return "", fmt.Errorf("unknown escape \\%c in %q", s[i], s)
		}
	}
	return b.String(), nil
}

// UnescapeString decodes the backslash escapes allowed in quoted literals.
func UnescapeString(s string) (string, error) {
	return unescapeLiteral(s)
}
