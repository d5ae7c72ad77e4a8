// Package sparql parses SPARQL query and update text into algebra queries
// and update commands.
//
// The parser works over the token slice produced by the lexer with an
// explicit cursor. Expressions are cut out of the token stream as balanced
// runs and handed to exprparser; this package supplies the EXISTS callback
// that turns the graph patterns nested in expressions back into algebra.
//
// Errors are *exprparser.ParseError values positioned on the offending
// token.
package sparql

import (
	"strings"

	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/expr"
	"github.com/roach88/quarry/internal/exprparser"
	"github.com/roach88/quarry/internal/lexer"
	"github.com/roach88/quarry/internal/rdf"
)

// Parser holds the settings shared by every parse call. The zero value
// parses SPARQL 1.1 with the default function registry.
type Parser struct {
	// BaseIRI is the initial base, overridden by BASE declarations.
	BaseIRI rdf.IRI

	// Namespaces seeds the prefix map. It is copied, never modified.
	Namespaces *rdf.NamespaceMap

	Syntax exprparser.Syntax

	// Functions resolves extension functions. Nil means expr.DefaultRegistry().
	Functions *expr.Registry
}

// ParseQuery parses a SELECT, ASK or CONSTRUCT query.
func (p *Parser) ParseQuery(text string) (*algebra.Query, error) {
	s, err := p.start(text)
	if err != nil {
		return nil, err
	}
	if err := s.prologue(); err != nil {
		return nil, err
	}
	q, err := s.query()
	if err != nil {
		return nil, err
	}
	if err := s.end(); err != nil {
		return nil, err
	}
	return q, nil
}

func (p *Parser) start(text string) (*state, error) {
	toks, err := lexer.Tokenize(text)
	if err != nil {
		return nil, err
	}
	ns := rdf.NewNamespaceMap()
	ns.Import(p.Namespaces)
	fns := p.Functions
	if fns == nil {
		fns = expr.DefaultRegistry()
	}
	return &state{
		toks:      toks,
		base:      p.BaseIRI,
		ns:        ns,
		syntax:    p.Syntax,
		functions: fns,
		anon:      new(int),
	}, nil
}

// state is the cursor of one parse call.
type state struct {
	toks      []lexer.Token
	pos       int
	base      rdf.IRI
	ns        *rdf.NamespaceMap
	syntax    exprparser.Syntax
	functions *expr.Registry

	// anon numbers anonymous blank nodes; shared with EXISTS sub-parses.
	anon *int
}

func (s *state) peek() (lexer.Token, bool) {
	if s.pos >= len(s.toks) {
		return lexer.Token{}, false
	}
	return s.toks[s.pos], true
}

// kind returns the kind of the next token, Unknown at the end.
func (s *state) kind() lexer.Kind {
	tok, ok := s.peek()
	if !ok {
		return lexer.Unknown
	}
	return tok.Kind
}

func (s *state) next(context string) (lexer.Token, error) {
	tok, ok := s.peek()
	if !ok {
		return lexer.Token{}, exprparser.EndOfInput("unexpected end of input while parsing %s", context)
	}
	s.pos++
	return tok, nil
}

func (s *state) expect(k lexer.Kind, context string) (lexer.Token, error) {
	tok, err := s.next(context)
	if err != nil {
		return tok, err
	}
	if tok.Kind != k {
		return tok, exprparser.Errorf(tok, "unexpected %s token while parsing %s, expected %s", tok.Kind, context, k)
	}
	return tok, nil
}

// accept consumes the next token when it has kind k.
func (s *state) accept(k lexer.Kind) bool {
	if s.kind() == k {
		s.pos++
		return true
	}
	return false
}

func (s *state) end() error {
	if tok, ok := s.peek(); ok {
		return exprparser.Errorf(tok, "unexpected %s token after the end of the input", tok.Kind)
	}
	return nil
}

func (s *state) prologue() error {
	for {
		switch s.kind() {
		case lexer.Base:
			s.pos++
			tok, err := s.expect(lexer.URI, "a BASE declaration")
			if err != nil {
				return err
			}
			base, err := rdf.ResolveIRI(tok.Value, s.base)
			if err != nil {
				return exprparser.Errorf(tok, "%v", err)
			}
			s.base = base
		case lexer.Prefix:
			s.pos++
			pre, err := s.expect(lexer.QName, "a PREFIX declaration")
			if err != nil {
				return err
			}
			prefix, local, _ := strings.Cut(pre.Value, ":")
			if local != "" {
				return exprparser.Errorf(pre, "a prefix declaration must end with a colon")
			}
			tok, err := s.expect(lexer.URI, "a PREFIX declaration")
			if err != nil {
				return err
			}
			iri, err := rdf.ResolveIRI(tok.Value, s.base)
			if err != nil {
				return exprparser.Errorf(tok, "%v", err)
			}
			s.ns.Set(prefix, string(iri))
		default:
			return nil
		}
	}
}

func (s *state) query() (*algebra.Query, error) {
	tok, err := s.next("a query")
	if err != nil {
		return nil, err
	}
	var q *algebra.Query
	switch tok.Kind {
	case lexer.Select:
		q = s.newQuery(algebra.FormSelect)
		if err := s.selectClause(q); err != nil {
			return nil, err
		}
	case lexer.Ask:
		q = s.newQuery(algebra.FormAsk)
	case lexer.Construct:
		q = s.newQuery(algebra.FormConstruct)
		if s.kind() == lexer.LeftCurlyBracket {
			if q.Template, err = s.constructTemplate(); err != nil {
				return nil, err
			}
		}
	case lexer.Describe:
		return nil, exprparser.Errorf(tok, "DESCRIBE queries are not supported")
	default:
		return nil, exprparser.Errorf(tok, "unexpected %s token, expected SELECT, ASK or CONSTRUCT", tok.Kind)
	}

	if err := s.datasetClauses(q); err != nil {
		return nil, err
	}
	if err := s.whereClause(q); err != nil {
		return nil, err
	}
	if q.Form == algebra.FormConstruct && q.Template == nil {
		// CONSTRUCT WHERE: the pattern is its own template
		if q.Template, err = templateOf(q.Where, tok); err != nil {
			return nil, err
		}
	}
	if err := s.modifiers(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *state) newQuery(form algebra.Form) *algebra.Query {
	q := algebra.NewQuery(form)
	q.BaseIRI = s.base
	q.Namespaces = s.ns
	return q
}

// subSelect parses a nested SELECT up to, not including, the closing brace
// of the group that holds it.
func (s *state) subSelect() (*algebra.Query, error) {
	if _, err := s.expect(lexer.Select, "a sub-query"); err != nil {
		return nil, err
	}
	q := s.newQuery(algebra.FormSelect)
	if err := s.selectClause(q); err != nil {
		return nil, err
	}
	if err := s.whereClause(q); err != nil {
		return nil, err
	}
	if err := s.modifiers(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *state) selectClause(q *algebra.Query) error {
	switch {
	case s.accept(lexer.Distinct):
		q.Distinct = true
	case s.accept(lexer.Reduced):
		q.Reduced = true
	}
	if s.accept(lexer.Multiply) {
		q.SelectAll = true
		return nil
	}
	for {
		switch s.kind() {
		case lexer.Variable:
			tok, _ := s.next("a projection")
			q.Select = append(q.Select, algebra.SelectItem{Var: tok.Value})
		case lexer.LeftBracket:
			run, err := s.bracketed()
			if err != nil {
				return err
			}
			e, name, err := s.aliased(run, true)
			if err != nil {
				return err
			}
			if name == "" {
				return exprparser.Errorf(run[0], "a projected expression needs AS ?variable")
			}
			q.Select = append(q.Select, algebra.SelectItem{Var: name, Expr: e})
		default:
			if len(q.Select) == 0 {
				tok, ok := s.peek()
				if !ok {
					return exprparser.EndOfInput("unexpected end of input while parsing a SELECT clause")
				}
				return exprparser.Errorf(tok, "unexpected %s token, expected * or a projection", tok.Kind)
			}
			return nil
		}
	}
}

func (s *state) datasetClauses(q *algebra.Query) error {
	for s.accept(lexer.From) {
		named := s.accept(lexer.Named)
		iri, err := s.iri("a FROM clause")
		if err != nil {
			return err
		}
		if named {
			q.NamedGraphs = append(q.NamedGraphs, iri)
		} else {
			q.DefaultGraphs = append(q.DefaultGraphs, iri)
		}
	}
	return nil
}

func (s *state) whereClause(q *algebra.Query) error {
	s.accept(lexer.Where)
	where, err := s.groupGraphPattern()
	if err != nil {
		return err
	}
	q.Where = where
	return nil
}

func (s *state) modifiers(q *algebra.Query) error {
	if s.accept(lexer.Group) {
		if _, err := s.expect(lexer.By, "a GROUP BY clause"); err != nil {
			return err
		}
		if err := s.groupBy(q); err != nil {
			return err
		}
	}
	if s.accept(lexer.Having) {
		for {
			run, ok, err := s.constraintRun()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			e, err := s.parseExpr(run, true)
			if err != nil {
				return err
			}
			q.Having = append(q.Having, e)
		}
		if len(q.Having) == 0 {
			return s.unexpected("a HAVING clause")
		}
	}
	if s.accept(lexer.Order) {
		if _, err := s.expect(lexer.By, "an ORDER BY clause"); err != nil {
			return err
		}
		if err := s.orderBy(q); err != nil {
			return err
		}
	}
	for {
		switch {
		case s.accept(lexer.Limit):
			n, err := s.integer("a LIMIT clause")
			if err != nil {
				return err
			}
			q.Limit = n
		case s.accept(lexer.Offset):
			n, err := s.integer("an OFFSET clause")
			if err != nil {
				return err
			}
			q.Offset = n
		default:
			return nil
		}
	}
}

func (s *state) groupBy(q *algebra.Query) error {
	for {
		switch s.kind() {
		case lexer.Variable:
			tok, _ := s.next("a GROUP BY clause")
			q.GroupBy = append(q.GroupBy, algebra.GroupKey{Expr: expr.NewVar(tok.Value)})
		case lexer.LeftBracket:
			run, err := s.bracketed()
			if err != nil {
				return err
			}
			e, name, err := s.aliased(run, false)
			if err != nil {
				return err
			}
			q.GroupBy = append(q.GroupBy, algebra.GroupKey{Expr: e, Var: name})
		default:
			run, ok, err := s.constraintRun()
			if err != nil {
				return err
			}
			if !ok {
				if len(q.GroupBy) == 0 {
					return s.unexpected("a GROUP BY clause")
				}
				return nil
			}
			e, err := s.parseExpr(run, false)
			if err != nil {
				return err
			}
			q.GroupBy = append(q.GroupBy, algebra.GroupKey{Expr: e})
		}
	}
}

func (s *state) orderBy(q *algebra.Query) error {
	for {
		var cond algebra.OrderCondition
		switch s.kind() {
		case lexer.Asc, lexer.Desc:
			tok, _ := s.next("an ORDER BY condition")
			cond.Descending = tok.Kind == lexer.Desc
			run, err := s.bracketed()
			if err != nil {
				return err
			}
			if cond.Expr, err = s.parseExpr(run, true); err != nil {
				return err
			}
		case lexer.Variable:
			tok, _ := s.next("an ORDER BY condition")
			cond.Expr = expr.NewVar(tok.Value)
		default:
			run, ok, err := s.constraintRun()
			if err != nil {
				return err
			}
			if !ok {
				if len(q.OrderBy) == 0 {
					return s.unexpected("an ORDER BY clause")
				}
				return nil
			}
			if cond.Expr, err = s.parseExpr(run, true); err != nil {
				return err
			}
		}
		q.OrderBy = append(q.OrderBy, cond)
	}
}

func (s *state) integer(context string) (int, error) {
	tok, err := s.expect(lexer.PlainLiteral, context)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range tok.Value {
		if r < '0' || r > '9' {
			return 0, exprparser.Errorf(tok, "expected a non-negative integer in %s", context)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

func (s *state) unexpected(context string) error {
	tok, ok := s.peek()
	if !ok {
		return exprparser.EndOfInput("unexpected end of input while parsing %s", context)
	}
	return exprparser.Errorf(tok, "unexpected %s token while parsing %s", tok.Kind, context)
}

// iri reads an IRI reference or prefixed name.
func (s *state) iri(context string) (rdf.IRI, error) {
	tok, err := s.next(context)
	if err != nil {
		return "", err
	}
	return s.resolve(tok, context)
}

func (s *state) resolve(tok lexer.Token, context string) (rdf.IRI, error) {
	var (
		iri rdf.IRI
		err error
	)
	switch tok.Kind {
	case lexer.URI:
		iri, err = rdf.ResolveIRI(tok.Value, s.base)
	case lexer.QName:
		iri, err = rdf.ResolveQName(tok.Value, s.ns, s.base)
	default:
		return "", exprparser.Errorf(tok, "unexpected %s token while parsing %s, expected an IRI", tok.Kind, context)
	}
	if err != nil {
		return "", exprparser.Errorf(tok, "%v", err)
	}
	return iri, nil
}

// templateOf turns the pattern of CONSTRUCT WHERE into a template. Only a
// plain basic graph pattern qualifies.
func templateOf(where algebra.Node, at lexer.Token) ([]*algebra.Match, error) {
	bgp, ok := where.(*algebra.Bgp)
	if !ok {
		return nil, exprparser.Errorf(at, "CONSTRUCT WHERE requires a basic graph pattern")
	}
	out := make([]*algebra.Match, 0, len(bgp.Patterns))
	for _, tp := range bgp.Patterns {
		m, ok := tp.(*algebra.Match)
		if !ok {
			return nil, exprparser.Errorf(at, "CONSTRUCT WHERE requires a basic graph pattern")
		}
		out = append(out, m)
	}
	return out, nil
}
