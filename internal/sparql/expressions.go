package sparql

import (
	"github.com/roach88/quarry/internal/expr"
	"github.com/roach88/quarry/internal/exprparser"
	"github.com/roach88/quarry/internal/lexer"
	"github.com/roach88/quarry/internal/rdf"
)

// bracketed consumes a balanced ( ... ) run, brackets included.
func (s *state) bracketed() ([]lexer.Token, error) {
	return s.balanced(lexer.LeftBracket, lexer.RightBracket, "a bracketed expression")
}

// braced consumes a balanced { ... } run, braces included.
func (s *state) braced() ([]lexer.Token, error) {
	return s.balanced(lexer.LeftCurlyBracket, lexer.RightCurlyBracket, "a graph pattern")
}

func (s *state) balanced(opening, closing lexer.Kind, context string) ([]lexer.Token, error) {
	if _, err := s.expect(opening, context); err != nil {
		return nil, err
	}
	start := s.pos - 1
	depth := 1
	for depth > 0 {
		tok, err := s.next(context)
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case opening:
			depth++
		case closing:
			depth--
		}
	}
	return s.toks[start:s.pos], nil
}

// constraintRun cuts out the tokens of one FILTER/HAVING/ORDER BY
// constraint: a bracketed expression, a built-in or aggregate call, an
// EXISTS pattern or an extension function call. It reports false, consuming
// nothing, when the next token cannot start a constraint.
func (s *state) constraintRun() ([]lexer.Token, bool, error) {
	tok, ok := s.peek()
	if !ok {
		return nil, false, nil
	}
	switch {
	case tok.Kind == lexer.LeftBracket:
		run, err := s.bracketed()
		return run, true, err
	case tok.Kind == lexer.Exists || tok.Kind == lexer.NotExists:
		s.pos++
		body, err := s.braced()
		if err != nil {
			return nil, true, err
		}
		return append([]lexer.Token{tok}, body...), true, nil
	case tok.Kind.IsBuiltIn() || tok.Kind.IsAggregate() || tok.Kind == lexer.URI || tok.Kind == lexer.QName:
		if tok.Kind == lexer.URI || tok.Kind == lexer.QName {
			if s.pos+1 >= len(s.toks) || s.toks[s.pos+1].Kind != lexer.LeftBracket {
				return nil, false, nil
			}
		}
		s.pos++
		args, err := s.bracketed()
		if err != nil {
			return nil, true, err
		}
		return append([]lexer.Token{tok}, args...), true, nil
	}
	return nil, false, nil
}

// aliased parses ( expr [AS ?v] ) and returns the expression and alias.
// The alias is empty when there is no AS.
func (s *state) aliased(run []lexer.Token, aggregates bool) (expr.Expression, string, error) {
	inner := run[1 : len(run)-1]
	depth := 0
	for i, tok := range inner {
		switch tok.Kind {
		case lexer.LeftBracket, lexer.LeftCurlyBracket:
			depth++
		case lexer.RightBracket, lexer.RightCurlyBracket:
			depth--
		case lexer.As:
			if depth != 0 {
				continue
			}
			if i+2 != len(inner) || inner[i+1].Kind != lexer.Variable {
				return nil, "", exprparser.Errorf(tok, "AS must be followed by a single variable and the closing bracket")
			}
			if i == 0 {
				return nil, "", exprparser.Errorf(tok, "missing expression before AS")
			}
			e, err := s.parseExpr(inner[:i], aggregates)
			if err != nil {
				return nil, "", err
			}
			return e, inner[i+1].Value, nil
		}
	}
	e, err := s.parseExpr(run, aggregates)
	return e, "", err
}

func (s *state) exprParser(aggregates bool) *exprparser.Parser {
	return &exprparser.Parser{
		BaseIRI:         s.base,
		Namespaces:      s.ns,
		AllowAggregates: aggregates,
		Syntax:          s.syntax,
		Functions:       s.functions,
		Exists:          s.existsPattern,
	}
}

func (s *state) parseExpr(run []lexer.Token, aggregates bool) (expr.Expression, error) {
	return s.exprParser(aggregates).Parse(lexer.NewQueue(run...))
}

// existsPattern compiles the braced token run of an EXISTS into a group
// graph pattern.
func (s *state) existsPattern(tokens []lexer.Token, ns *rdf.NamespaceMap, base rdf.IRI) (expr.Pattern, error) {
	sub := &state{
		toks:      tokens,
		base:      base,
		ns:        ns,
		syntax:    s.syntax,
		functions: s.functions,
		anon:      s.anon,
	}
	n, err := sub.groupGraphPattern()
	if err != nil {
		return nil, err
	}
	if err := sub.end(); err != nil {
		return nil, err
	}
	return n, nil
}
