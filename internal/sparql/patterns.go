package sparql

import (
	"fmt"

	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/expr"
	"github.com/roach88/quarry/internal/exprparser"
	"github.com/roach88/quarry/internal/lexer"
	"github.com/roach88/quarry/internal/rdf"
)

// groupGraphPattern parses { ... }.
//
// Consecutive triples accumulate into one Bgp. OPTIONAL, MINUS, GRAPH,
// SERVICE, BIND and nested groups close the current Bgp and combine with
// everything before them. FILTERs apply to the whole group regardless of
// their position.
func (s *state) groupGraphPattern() (algebra.Node, error) {
	if _, err := s.expect(lexer.LeftCurlyBracket, "a group graph pattern"); err != nil {
		return nil, err
	}
	if s.kind() == lexer.Select {
		q, err := s.subSelect()
		if err != nil {
			return nil, err
		}
		if _, err := s.expect(lexer.RightCurlyBracket, "a sub-query"); err != nil {
			return nil, err
		}
		return &algebra.SubQuery{Query: q}, nil
	}

	var (
		result  algebra.Node
		cur     = algebra.NewBgp()
		filters []expr.Expression
	)
	flush := func() {
		if len(cur.Patterns) > 0 {
			result = join(result, cur)
			cur = algebra.NewBgp()
		}
	}

	for {
		tok, ok := s.peek()
		if !ok {
			return nil, exprparser.EndOfInput("unexpected end of input while parsing a group graph pattern, expected }")
		}
		switch tok.Kind {
		case lexer.RightCurlyBracket:
			s.pos++
			flush()
			if result == nil {
				result = cur
			}
			for _, f := range filters {
				result = &algebra.Filter{Inner: result, Expr: f}
			}
			return result, nil

		case lexer.Dot:
			s.pos++

		case lexer.Filter:
			s.pos++
			run, ok, err := s.constraintRun()
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, s.unexpected("a FILTER")
			}
			e, err := s.parseExpr(run, false)
			if err != nil {
				return nil, err
			}
			filters = append(filters, e)

		case lexer.Optional:
			s.pos++
			inner, err := s.groupGraphPattern()
			if err != nil {
				return nil, err
			}
			flush()
			lj := &algebra.LeftJoin{Left: orEmpty(result), Right: inner}
			if f, ok := inner.(*algebra.Filter); ok {
				lj.Right, lj.Filter = f.Inner, f.Expr
			}
			result = lj

		case lexer.MinusPattern:
			s.pos++
			inner, err := s.groupGraphPattern()
			if err != nil {
				return nil, err
			}
			flush()
			result = &algebra.Minus{Left: orEmpty(result), Right: inner}

		case lexer.Graph:
			s.pos++
			spec, err := s.varOrIRI("a GRAPH pattern")
			if err != nil {
				return nil, err
			}
			inner, err := s.groupGraphPattern()
			if err != nil {
				return nil, err
			}
			flush()
			result = join(result, &algebra.Graph{Specifier: spec, Inner: inner})

		case lexer.Service:
			s.pos++
			silent := s.accept(lexer.Silent)
			endpoint, err := s.varOrIRI("a SERVICE pattern")
			if err != nil {
				return nil, err
			}
			inner, err := s.groupGraphPattern()
			if err != nil {
				return nil, err
			}
			flush()
			result = join(result, &algebra.Service{Endpoint: endpoint, Inner: inner, Silent: silent})

		case lexer.Bind:
			s.pos++
			run, err := s.bracketed()
			if err != nil {
				return nil, err
			}
			e, name, err := s.aliased(run, false)
			if err != nil {
				return nil, err
			}
			if name == "" {
				return nil, exprparser.Errorf(tok, "BIND requires AS ?variable")
			}
			flush()
			result = &algebra.Extend{Inner: orEmpty(result), Var: name, Expr: e}

		case lexer.Let:
			s.pos++
			assign, err := s.let(tok)
			if err != nil {
				return nil, err
			}
			cur.Patterns = append(cur.Patterns, assign)

		case lexer.LeftCurlyBracket:
			inner, err := s.groupGraphPattern()
			if err != nil {
				return nil, err
			}
			for s.accept(lexer.Union) {
				right, err := s.groupGraphPattern()
				if err != nil {
					return nil, err
				}
				inner = &algebra.Union{Left: inner, Right: right}
			}
			flush()
			result = join(result, inner)

		default:
			patterns, err := s.triplesBlock(false)
			if err != nil {
				return nil, err
			}
			cur.Patterns = append(cur.Patterns, patterns...)
		}
	}
}

// let parses LET (?v := expr), available in the extended syntax only.
func (s *state) let(kw lexer.Token) (*algebra.Assign, error) {
	if s.syntax != exprparser.Extended {
		return nil, exprparser.Errorf(kw, "LET assignments require the extended syntax")
	}
	run, err := s.bracketed()
	if err != nil {
		return nil, err
	}
	inner := run[1 : len(run)-1]
	if len(inner) < 3 || inner[0].Kind != lexer.Variable || inner[1].Kind != lexer.Assignment {
		return nil, exprparser.Errorf(kw, "LET must have the form LET(?variable := expression)")
	}
	e, err := s.parseExpr(inner[2:], false)
	if err != nil {
		return nil, err
	}
	return &algebra.Assign{Var: inner[0].Value, Expr: e, Let: true}, nil
}

// join combines two patterns, dropping empty Bgps.
func join(left, right algebra.Node) algebra.Node {
	if left == nil || isEmptyBgp(left) {
		return right
	}
	if isEmptyBgp(right) {
		return left
	}
	return &algebra.Join{Left: left, Right: right}
}

func isEmptyBgp(n algebra.Node) bool {
	b, ok := n.(*algebra.Bgp)
	return ok && b.IsEmpty()
}

func orEmpty(n algebra.Node) algebra.Node {
	if n == nil {
		return algebra.NewBgp()
	}
	return n
}

// triplesBlock parses one subject with its property list, plus any
// patterns generated by blank node property lists. A trailing dot is left
// for the caller. With template set, property paths are rejected.
func (s *state) triplesBlock(template bool) ([]algebra.TriplePattern, error) {
	b := &triples{template: template}
	var subject algebra.PatternItem
	if s.kind() == lexer.LeftSquareBracket {
		var err error
		if subject, err = s.blankPropertyList(b); err != nil {
			return nil, err
		}
		// [ :p :o ] . is a complete statement
		switch s.kind() {
		case lexer.Dot, lexer.RightCurlyBracket:
			return b.out, nil
		}
	} else {
		var err error
		if subject, err = s.term("a triple subject"); err != nil {
			return nil, err
		}
	}
	if err := s.propertyList(b, subject); err != nil {
		return nil, err
	}
	return b.out, nil
}

// triples collects the patterns of one block.
type triples struct {
	template bool
	out      []algebra.TriplePattern
}

func (s *state) propertyList(b *triples, subject algebra.PatternItem) error {
	for {
		verbTok, _ := s.peek()
		predicate, path, err := s.verb()
		if err != nil {
			return err
		}
		if path != nil && b.template {
			return exprparser.Errorf(verbTok, "property paths are not allowed in templates")
		}
		for {
			object, err := s.object(b)
			if err != nil {
				return err
			}
			if path != nil {
				b.out = append(b.out, &algebra.PathPattern{Subject: subject, Path: path, Object: object})
			} else {
				b.out = append(b.out, algebra.NewMatch(subject, predicate, object))
			}
			if !s.accept(lexer.Comma) {
				break
			}
		}
		if !s.accept(lexer.Semicolon) {
			return nil
		}
		// a trailing semicolon may end the list
		switch s.kind() {
		case lexer.Dot, lexer.RightCurlyBracket, lexer.RightSquareBracket:
			return nil
		}
	}
}

// verb returns either a predicate item or, for anything beyond a single
// forward IRI, a path.
func (s *state) verb() (algebra.PatternItem, algebra.Path, error) {
	if s.kind() == lexer.Variable {
		tok, _ := s.next("a predicate")
		return algebra.Var(tok.Value), nil, nil
	}
	path, err := s.pathAlternative()
	if err != nil {
		return nil, nil, err
	}
	if iri, ok := algebra.SimplePredicate(path); ok {
		return algebra.Const(iri), nil, nil
	}
	return nil, path, nil
}

func (s *state) pathAlternative() (algebra.Path, error) {
	left, err := s.pathSequence()
	if err != nil {
		return nil, err
	}
	for s.accept(lexer.Pipe) {
		right, err := s.pathSequence()
		if err != nil {
			return nil, err
		}
		left = &algebra.AlternativePath{Left: left, Right: right}
	}
	return left, nil
}

func (s *state) pathSequence() (algebra.Path, error) {
	left, err := s.pathElt()
	if err != nil {
		return nil, err
	}
	for s.accept(lexer.Divide) {
		right, err := s.pathElt()
		if err != nil {
			return nil, err
		}
		left = &algebra.SequencePath{Left: left, Right: right}
	}
	return left, nil
}

func (s *state) pathElt() (algebra.Path, error) {
	inverse := s.accept(lexer.Hat)
	var p algebra.Path
	tok, err := s.next("a property path")
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case lexer.KeywordA:
		p = algebra.PathIRI{IRI: rdf.RDFType}
	case lexer.URI, lexer.QName:
		iri, err := s.resolve(tok, "a property path")
		if err != nil {
			return nil, err
		}
		p = algebra.PathIRI{IRI: iri}
	case lexer.LeftBracket:
		if p, err = s.pathAlternative(); err != nil {
			return nil, err
		}
		if _, err := s.expect(lexer.RightBracket, "a property path group"); err != nil {
			return nil, err
		}
	case lexer.Negation:
		return nil, exprparser.Errorf(tok, "negated property sets are not supported")
	default:
		return nil, exprparser.Errorf(tok, "unexpected %s token, expected a predicate or property path", tok.Kind)
	}

	switch s.kind() {
	case lexer.Multiply:
		s.pos++
		p = &algebra.ZeroOrMorePath{Path: p}
	case lexer.Plus:
		s.pos++
		p = &algebra.OneOrMorePath{Path: p}
	case lexer.QuestionMark:
		s.pos++
		p = &algebra.ZeroOrOnePath{Path: p}
	}
	if inverse {
		p = &algebra.InversePath{Path: p}
	}
	return p, nil
}

func (s *state) object(b *triples) (algebra.PatternItem, error) {
	if s.kind() == lexer.LeftSquareBracket {
		return s.blankPropertyList(b)
	}
	return s.term("a triple object")
}

// blankPropertyList parses [] or [ property list ] into a fresh anonymous
// blank item.
func (s *state) blankPropertyList(b *triples) (algebra.PatternItem, error) {
	s.pos++
	*s.anon++
	node := algebra.BlankItem{Label: fmt.Sprintf("anon%d", *s.anon)}
	if s.accept(lexer.RightSquareBracket) {
		return node, nil
	}
	if err := s.propertyList(b, node); err != nil {
		return nil, err
	}
	if _, err := s.expect(lexer.RightSquareBracket, "a blank node property list"); err != nil {
		return nil, err
	}
	return node, nil
}

// term parses a variable, IRI, blank node label or literal.
func (s *state) term(context string) (algebra.PatternItem, error) {
	tok, err := s.next(context)
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case lexer.Variable:
		return algebra.Var(tok.Value), nil
	case lexer.URI, lexer.QName:
		iri, err := s.resolve(tok, context)
		if err != nil {
			return nil, err
		}
		return algebra.Const(iri), nil
	case lexer.BlankNodeWithID:
		return algebra.BlankItem{Label: tok.Value}, nil
	case lexer.PlainLiteral:
		return s.literal([]lexer.Token{tok})
	case lexer.Literal, lexer.LongLiteral:
		run := []lexer.Token{tok}
		switch s.kind() {
		case lexer.LangSpec:
			lang, _ := s.next(context)
			run = append(run, lang)
		case lexer.HatHat:
			hat, _ := s.next(context)
			dt, err := s.expect(lexer.Datatype, "a literal datatype")
			if err != nil {
				return nil, err
			}
			run = append(run, hat, dt)
		}
		return s.literal(run)
	case lexer.LeftBracket:
		return nil, exprparser.Errorf(tok, "RDF collections are not supported")
	}
	return nil, exprparser.Errorf(tok, "unexpected %s token while parsing %s", tok.Kind, context)
}

// literal reuses the expression parser's literal rules.
func (s *state) literal(run []lexer.Token) (algebra.PatternItem, error) {
	e, err := s.parseExpr(run, false)
	if err != nil {
		return nil, err
	}
	c, ok := e.(*expr.Constant)
	if !ok {
		return nil, exprparser.Errorf(run[0], "expected a literal")
	}
	return algebra.Const(c.Value), nil
}

func (s *state) varOrIRI(context string) (algebra.PatternItem, error) {
	tok, err := s.next(context)
	if err != nil {
		return nil, err
	}
	if tok.Kind == lexer.Variable {
		return algebra.Var(tok.Value), nil
	}
	iri, err := s.resolve(tok, context)
	if err != nil {
		return nil, err
	}
	return algebra.Const(iri), nil
}

// constructTemplate parses the braced triples of a CONSTRUCT.
func (s *state) constructTemplate() ([]*algebra.Match, error) {
	if _, err := s.expect(lexer.LeftCurlyBracket, "a CONSTRUCT template"); err != nil {
		return nil, err
	}
	out := []*algebra.Match{}
	for {
		switch s.kind() {
		case lexer.RightCurlyBracket:
			s.pos++
			return out, nil
		case lexer.Dot:
			s.pos++
		case lexer.Unknown:
			return nil, s.unexpected("a CONSTRUCT template")
		default:
			ms, err := s.templateTriples()
			if err != nil {
				return nil, err
			}
			out = append(out, ms...)
		}
	}
}

func (s *state) templateTriples() ([]*algebra.Match, error) {
	patterns, err := s.triplesBlock(true)
	if err != nil {
		return nil, err
	}
	out := make([]*algebra.Match, len(patterns))
	for i, tp := range patterns {
		out[i] = tp.(*algebra.Match)
	}
	return out, nil
}
