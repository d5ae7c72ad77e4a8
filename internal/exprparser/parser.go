// Package exprparser parses SPARQL expressions from a token queue.
//
// The grammar is recursive descent over precedence levels:
//
//	ConditionalOr → ConditionalAnd → Relational → Additive →
//	Multiplicative → Unary → Primary
//
// Or and And recurse into themselves for their right operand. Relational,
// Additive and Multiplicative accept at most one operator at their level
// and return the first term when none follows.
package exprparser

import (
	"strings"

	"github.com/roach88/quarry/internal/expr"
	"github.com/roach88/quarry/internal/lexer"
	"github.com/roach88/quarry/internal/rdf"
)

// Syntax selects the accepted language level.
type Syntax int

const (
	// SPARQL11 accepts standard SPARQL 1.1 expressions.
	SPARQL11 Syntax = iota
	// Extended additionally accepts MEDIAN, MODE, NMAX and NMIN.
	Extended
)

// ExistsParser compiles the brace-delimited token run of an EXISTS or
// NOT EXISTS into a graph pattern.
type ExistsParser func(tokens []lexer.Token, ns *rdf.NamespaceMap, base rdf.IRI) (expr.Pattern, error)

// Parser turns a token queue into an expression tree.
type Parser struct {
	// BaseIRI resolves relative IRIs and empty-prefix names.
	BaseIRI rdf.IRI

	// Namespaces resolves prefixed names.
	Namespaces *rdf.NamespaceMap

	// AllowAggregates permits aggregate keywords and aggregate extension
	// functions.
	AllowAggregates bool

	// Syntax selects SPARQL 1.1 or the extended syntax.
	Syntax Syntax

	// Functions resolves extension function calls. Nil leaves every
	// extension function unresolved.
	Functions *expr.Registry

	// Exists compiles EXISTS patterns. Nil makes EXISTS a parse error.
	Exists ExistsParser
}

// Parse parses a complete expression. Every token of q must belong to it.
func (p *Parser) Parse(q lexer.Queue) (expr.Expression, error) {
	return p.parseOr(q)
}

// ParseString tokenizes and parses text.
func (p *Parser) ParseString(text string) (expr.Expression, error) {
	q, err := lexer.TokenizeQueue(text)
	if err != nil {
		return nil, err
	}
	return p.Parse(q)
}

func dequeue(q lexer.Queue, context string) (lexer.Token, error) {
	tok, ok := q.Dequeue()
	if !ok {
		return lexer.Token{}, EndOfInput("unexpected end of tokens while trying to parse %s", context)
	}
	return tok, nil
}

func peekKind(q lexer.Queue) (lexer.Kind, bool) {
	tok, ok := q.Peek()
	return tok.Kind, ok
}

func (p *Parser) parseOr(q lexer.Queue) (expr.Expression, error) {
	first, err := p.parseAnd(q)
	if err != nil {
		return nil, err
	}
	if q.Len() == 0 {
		return first, nil
	}
	tok, _ := q.Dequeue()
	if tok.Kind != lexer.Or {
		return nil, Errorf(tok, "unexpected %s token while trying to parse a conditional or expression", tok.Kind)
	}
	rest, err := p.parseOr(q)
	if err != nil {
		return nil, err
	}
	return expr.Or(first, rest), nil
}

func (p *Parser) parseAnd(q lexer.Queue) (expr.Expression, error) {
	first, err := p.parseRelational(q)
	if err != nil {
		return nil, err
	}
	if k, ok := peekKind(q); ok && k == lexer.And {
		q.Dequeue()
		rest, err := p.parseAnd(q)
		if err != nil {
			return nil, err
		}
		return expr.And(first, rest), nil
	}
	return first, nil
}

var relationalOps = map[lexer.Kind]expr.Op{
	lexer.Equals:             expr.OpEqual,
	lexer.NotEquals:          expr.OpNotEqual,
	lexer.LessThan:           expr.OpLess,
	lexer.GreaterThan:        expr.OpGreater,
	lexer.LessThanOrEqual:    expr.OpLessEq,
	lexer.GreaterThanOrEqual: expr.OpGreaterEq,
}

func (p *Parser) parseRelational(q lexer.Queue) (expr.Expression, error) {
	first, err := p.parseAdditive(q)
	if err != nil {
		return nil, err
	}
	k, ok := peekKind(q)
	if !ok {
		return first, nil
	}
	op, isRel := relationalOps[k]
	if !isRel {
		return first, nil
	}
	q.Dequeue()
	second, err := p.parseAdditive(q)
	if err != nil {
		return nil, err
	}
	return expr.NewBinary(op, first, second), nil
}

func (p *Parser) parseAdditive(q lexer.Queue) (expr.Expression, error) {
	first, err := p.parseMultiplicative(q)
	if err != nil {
		return nil, err
	}
	k, ok := peekKind(q)
	if !ok {
		return first, nil
	}
	switch k {
	case lexer.Plus, lexer.Minus:
		q.Dequeue()
		second, err := p.parseMultiplicative(q)
		if err != nil {
			return nil, err
		}
		if k == lexer.Plus {
			return expr.Add(first, second), nil
		}
		return expr.Subtract(first, second), nil
	case lexer.PlainLiteral:
		// A signed number directly after a term, as in ?x -1, adds the
		// signed value.
		tok, _ := q.Dequeue()
		second, err := p.plainNumeric(tok)
		if err != nil {
			return nil, err
		}
		return expr.Add(first, second), nil
	}
	return first, nil
}

func (p *Parser) parseMultiplicative(q lexer.Queue) (expr.Expression, error) {
	first, err := p.parseUnary(q)
	if err != nil {
		return nil, err
	}
	k, ok := peekKind(q)
	if !ok || (k != lexer.Multiply && k != lexer.Divide) {
		return first, nil
	}
	q.Dequeue()
	second, err := p.parseUnary(q)
	if err != nil {
		return nil, err
	}
	if k == lexer.Multiply {
		return expr.Multiply(first, second), nil
	}
	return expr.Divide(first, second), nil
}

func (p *Parser) parseUnary(q lexer.Queue) (expr.Expression, error) {
	k, ok := peekKind(q)
	if !ok {
		return p.parsePrimary(q)
	}
	switch k {
	case lexer.Negation:
		q.Dequeue()
		e, err := p.parsePrimary(q)
		if err != nil {
			return nil, err
		}
		return expr.Not(e), nil
	case lexer.Plus:
		q.Dequeue()
		return p.parsePrimary(q)
	case lexer.Minus:
		q.Dequeue()
		e, err := p.parsePrimary(q)
		if err != nil {
			return nil, err
		}
		return expr.Negate(e), nil
	}
	return p.parsePrimary(q)
}

func (p *Parser) parsePrimary(q lexer.Queue) (expr.Expression, error) {
	tok, ok := q.Peek()
	if !ok {
		return nil, EndOfInput("unexpected end of tokens while trying to parse a primary expression")
	}
	switch {
	case tok.Kind == lexer.LeftBracket:
		e, comma, err := p.bracketed(q, true)
		if err != nil {
			return nil, err
		}
		switch {
		case e == nil:
			return nil, Errorf(tok, "empty bracketed expression")
		case comma:
			return nil, Errorf(tok, "unexpected argument list where a bracketed expression was expected")
		}
		return e, nil
	case tok.Kind.IsBuiltIn():
		return p.builtin(q)
	case tok.Kind.IsAggregate():
		if !p.AllowAggregates {
			return nil, Errorf(tok, "aggregate expression '%s' encountered but aggregates are not permitted in this expression", tok.Value)
		}
		return p.aggregate(q)
	case tok.Kind == lexer.URI || tok.Kind == lexer.QName:
		return p.iriOrFunction(q)
	case tok.Kind == lexer.Literal || tok.Kind == lexer.LongLiteral:
		return p.rdfLiteral(q)
	case tok.Kind == lexer.PlainLiteral:
		return p.booleanOrNumeric(q)
	case tok.Kind == lexer.Variable:
		q.Dequeue()
		v := expr.NewVar(tok.Value)
		if k, ok := peekKind(q); ok && (k == lexer.In || k == lexer.NotIn) {
			return p.set(v, q)
		}
		return v, nil
	}
	return nil, Errorf(tok, "unexpected %s token while trying to parse a primary expression", tok.Kind)
}

// bracketed collects the tokens of one bracketed argument and parses them.
//
// At bracket depth 1 (outside any braces) a comma ends the argument and
// sets comma, and a leading DISTINCT is returned as a DistinctModifier with
// comma set. An empty argument yields a nil expression.
func (p *Parser) bracketed(q lexer.Queue, requireOpen bool) (e expr.Expression, comma bool, err error) {
	if requireOpen {
		tok, err := dequeue(q, "a bracketed expression")
		if err != nil {
			return nil, false, err
		}
		if tok.Kind != lexer.LeftBracket {
			return nil, false, Errorf(tok, "unexpected %s token, expected a left bracket to start a bracketed expression", tok.Kind)
		}
	}

	depth, braces := 1, 0
	var terms []lexer.Token
	for depth > 0 {
		tok, ok := q.Peek()
		if !ok {
			return nil, false, EndOfInput("unexpected end of tokens inside a bracketed expression")
		}
		top := depth == 1 && braces == 0
		switch {
		case tok.Kind == lexer.LeftBracket:
			depth++
		case tok.Kind == lexer.RightBracket:
			depth--
		case tok.Kind == lexer.LeftCurlyBracket:
			braces++
		case tok.Kind == lexer.RightCurlyBracket:
			braces--
		case tok.Kind == lexer.Comma && top:
			depth--
			comma = true
		case tok.Kind == lexer.Distinct && top:
			if len(terms) == 0 {
				q.Dequeue()
				return expr.DistinctModifier{}, true, nil
			}
			return nil, false, Errorf(tok, "unexpected DISTINCT keyword, DISTINCT may only occur as the first argument to an aggregate function")
		}
		if depth > 0 {
			terms = append(terms, tok)
		}
		q.Dequeue()
	}

	if len(terms) == 0 {
		return nil, comma, nil
	}
	e, err = p.Parse(lexer.NewQueue(terms...))
	return e, comma, err
}

// arguments parses a full argument list starting at its opening bracket.
// A single empty argument is an empty list.
func (p *Parser) arguments(q lexer.Queue, fn lexer.Token) ([]expr.Expression, error) {
	var args []expr.Expression
	first := true
	for {
		a, comma, err := p.bracketed(q, first)
		if err != nil {
			return nil, err
		}
		if a == nil && (comma || !first) {
			return nil, Errorf(fn, "empty argument in call to %s", fn.Value)
		}
		first = false
		if a != nil {
			args = append(args, a)
		}
		if !comma {
			return args, nil
		}
	}
}

var builtinNames = map[lexer.Kind]string{
	lexer.Bound:        expr.FnBound,
	lexer.Coalesce:     expr.FnCoalesce,
	lexer.DatatypeFunc: expr.FnDatatype,
	lexer.If:           expr.FnIf,
	lexer.IRIFunc:      expr.FnIRI,
	lexer.URIFunc:      expr.FnIRI,
	lexer.IsBlank:      expr.FnIsBlank,
	lexer.IsIRI:        expr.FnIsIRI,
	lexer.IsURI:        expr.FnIsURI,
	lexer.IsLiteral:    expr.FnIsLiteral,
	lexer.Lang:         expr.FnLang,
	lexer.LangMatches:  expr.FnLangMatches,
	lexer.SameTerm:     expr.FnSameTerm,
	lexer.Str:          expr.FnStr,
	lexer.StrDT:        expr.FnStrDT,
	lexer.StrLang:      expr.FnStrLang,
	lexer.Regex:        expr.FnRegex,
}

func (p *Parser) builtin(q lexer.Queue) (expr.Expression, error) {
	tok, _ := q.Dequeue()
	switch tok.Kind {
	case lexer.Bound:
		return p.bound(q, tok)
	case lexer.Exists, lexer.NotExists:
		return p.exists(q, tok)
	}

	args, err := p.arguments(q, tok)
	if err != nil {
		return nil, err
	}
	for _, a := range args {
		if _, ok := a.(expr.DistinctModifier); ok {
			return nil, Errorf(tok, "DISTINCT is not valid in a call to %s", tok.Value)
		}
	}
	b, err := expr.NewBuiltin(builtinNames[tok.Kind], args...)
	if err != nil {
		return nil, Errorf(tok, "%v", err)
	}
	if b.Name == expr.FnIRI {
		b.Base = p.BaseIRI
	}
	return b, nil
}

// bound requires exactly ( VARIABLE ).
func (p *Parser) bound(q lexer.Queue, fn lexer.Token) (expr.Expression, error) {
	expect := []struct {
		kind lexer.Kind
		what string
	}{
		{lexer.LeftBracket, "a left bracket to start a BOUND function call"},
		{lexer.Variable, "a variable for a BOUND function call"},
		{lexer.RightBracket, "a right bracket to end a BOUND function call"},
	}
	var name string
	for _, e := range expect {
		tok, err := dequeue(q, "a BOUND function call")
		if err != nil {
			return nil, err
		}
		if tok.Kind != e.kind {
			return nil, Errorf(tok, "unexpected %s token, %s was expected", tok.Kind, e.what)
		}
		if tok.Kind == lexer.Variable {
			name = tok.Value
		}
	}
	return expr.MustBuiltin(expr.FnBound, expr.NewVar(name)), nil
}

func (p *Parser) exists(q lexer.Queue, fn lexer.Token) (expr.Expression, error) {
	if p.Exists == nil {
		return nil, Errorf(fn, "unable to parse an EXISTS/NOT EXISTS as there is no graph pattern parser to call into")
	}
	var run []lexer.Token
	depth := 0
	for {
		tok, err := dequeue(q, "an EXISTS/NOT EXISTS function")
		if err != nil {
			return nil, err
		}
		if len(run) == 0 && tok.Kind != lexer.LeftCurlyBracket {
			return nil, Errorf(tok, "unexpected %s token, expected a left curly bracket to start an EXISTS/NOT EXISTS pattern", tok.Kind)
		}
		switch tok.Kind {
		case lexer.LeftCurlyBracket:
			depth++
		case lexer.RightCurlyBracket:
			depth--
		}
		run = append(run, tok)
		if depth == 0 {
			break
		}
	}
	pattern, err := p.Exists(run, p.Namespaces, p.BaseIRI)
	if err != nil {
		return nil, err
	}
	return &expr.Exists{Pattern: pattern, Negated: fn.Kind == lexer.NotExists}, nil
}

func (p *Parser) resolve(tok lexer.Token) (rdf.IRI, error) {
	var (
		iri rdf.IRI
		err error
	)
	if tok.Kind == lexer.QName {
		iri, err = rdf.ResolveQName(tok.Value, p.Namespaces, p.BaseIRI)
	} else {
		iri, err = rdf.ResolveIRI(tok.Value, p.BaseIRI)
	}
	if err != nil {
		return "", Errorf(tok, "%v", err)
	}
	return iri, nil
}

func (p *Parser) iriOrFunction(q lexer.Queue) (expr.Expression, error) {
	tok, _ := q.Dequeue()
	iri, err := p.resolve(tok)
	if err != nil {
		return nil, err
	}
	if k, ok := peekKind(q); !ok || k != lexer.LeftBracket {
		return expr.NewConstant(iri), nil
	}

	args, err := p.arguments(q, tok)
	if err != nil {
		return nil, err
	}
	e, err := p.Functions.Resolve(iri, args)
	if err != nil {
		return nil, Errorf(tok, "%v", err)
	}
	if expr.IsAggregate(e) {
		if !p.AllowAggregates {
			return nil, Errorf(tok, "aggregate expression '%s' encountered but aggregates are not permitted in this expression", e)
		}
		return e, nil
	}
	for _, a := range args {
		if _, ok := a.(expr.DistinctModifier); ok {
			return nil, Errorf(tok, "DISTINCT is only valid as the first argument to an aggregate function")
		}
	}
	return e, nil
}

func (p *Parser) rdfLiteral(q lexer.Queue) (expr.Expression, error) {
	str, _ := q.Dequeue()
	k, ok := peekKind(q)
	if !ok {
		return expr.NewConstant(rdf.NewLiteral(str.Value)), nil
	}
	switch k {
	case lexer.LangSpec:
		lang, _ := q.Dequeue()
		return expr.NewConstant(rdf.NewLangLiteral(str.Value, lang.Value)), nil
	case lexer.HatHat:
		q.Dequeue()
		dtTok, err := dequeue(q, "a literal datatype")
		if err != nil {
			return nil, err
		}
		if dtTok.Kind != lexer.Datatype {
			return nil, Errorf(dtTok, "unexpected %s token, expected a datatype after ^^", dtTok.Kind)
		}
		dt, err := p.datatype(dtTok)
		if err != nil {
			return nil, err
		}
		switch {
		case rdf.IsNumericDatatype(dt):
			return p.typedNumeric(str, dt)
		case dt == rdf.XSDBoolean:
			switch strings.ToLower(str.Value) {
			case "true":
				return expr.NewConstant(expr.True), nil
			case "false":
				return expr.NewConstant(expr.False), nil
			}
			return nil, Errorf(str, "the literal '%s' is not a valid boolean", str.Value)
		}
		return expr.NewConstant(rdf.NewTypedLiteral(str.Value, dt)), nil
	}
	return expr.NewConstant(rdf.NewLiteral(str.Value)), nil
}

func (p *Parser) datatype(tok lexer.Token) (rdf.IRI, error) {
	if strings.HasPrefix(tok.Value, "<") && strings.HasSuffix(tok.Value, ">") {
		iri, err := rdf.ResolveIRI(tok.Value[1:len(tok.Value)-1], p.BaseIRI)
		if err != nil {
			return "", Errorf(tok, "%v", err)
		}
		return iri, nil
	}
	iri, err := rdf.ResolveQName(tok.Value, p.Namespaces, p.BaseIRI)
	if err != nil {
		return "", Errorf(tok, "%v", err)
	}
	return iri, nil
}

// typedNumeric accepts a literal with a numeric datatype only when its
// lexical form has the shape of that datatype.
func (p *Parser) typedNumeric(str lexer.Token, dt rdf.IRI) (expr.Expression, error) {
	lex := str.Value
	var valid bool
	switch expr.KindOfDatatype(dt) {
	case expr.Integer:
		valid = rdf.IsIntegerLexical(lex)
	case expr.Decimal:
		valid = rdf.IsDecimalLexical(lex) || rdf.IsIntegerLexical(lex)
	case expr.Float:
		valid = rdf.IsFloatLexical(lex)
	case expr.Double:
		valid = rdf.IsDoubleLexical(lex)
	}
	if !valid {
		return nil, Errorf(str, "the literal '%s' with datatype URI '%s' is not a valid integer, decimal or double", lex, dt)
	}
	return expr.NewConstant(rdf.NewTypedLiteral(lex, dt)), nil
}

func (p *Parser) booleanOrNumeric(q lexer.Queue) (expr.Expression, error) {
	tok, _ := q.Dequeue()
	switch tok.Value {
	case "true":
		return expr.NewConstant(expr.True), nil
	case "false":
		return expr.NewConstant(expr.False), nil
	}
	return p.plainNumeric(tok)
}

// plainNumeric classifies a bare number as integer, decimal or double, in
// that order of priority.
func (p *Parser) plainNumeric(tok lexer.Token) (expr.Expression, error) {
	var dt rdf.IRI
	switch {
	case rdf.IsIntegerLexical(tok.Value):
		dt = rdf.XSDInteger
	case rdf.IsDecimalLexical(tok.Value):
		dt = rdf.XSDDecimal
	case rdf.IsDoubleLexical(tok.Value):
		dt = rdf.XSDDouble
	default:
		return nil, Errorf(tok, "the plain literal '%s' is not a valid integer, decimal or double", tok.Value)
	}
	return expr.NewConstant(rdf.NewTypedLiteral(tok.Value, dt)), nil
}

// set parses the value list of an IN / NOT IN test. Values must be
// constants; commas between them are optional.
func (p *Parser) set(v *expr.Var, q lexer.Queue) (expr.Expression, error) {
	op, _ := q.Dequeue()
	open, err := dequeue(q, "an IN/NOT IN expression")
	if err != nil {
		return nil, err
	}
	if open.Kind != lexer.LeftBracket {
		return nil, Errorf(open, "expected a left bracket to start the set of values for an IN/NOT IN expression")
	}

	in := &expr.In{Needle: v, Negated: op.Kind == lexer.NotIn}
	for {
		tok, ok := q.Peek()
		if !ok {
			return nil, EndOfInput("unexpected end of tokens inside the set of an IN/NOT IN expression")
		}
		var (
			e   expr.Expression
			err error
		)
		switch tok.Kind {
		case lexer.RightBracket:
			q.Dequeue()
			return in, nil
		case lexer.Comma:
			if len(in.Set) == 0 {
				return nil, Errorf(tok, "unexpected comma before the first value of an IN/NOT IN set")
			}
			q.Dequeue()
			continue
		case lexer.URI, lexer.QName:
			e, err = p.iriOrFunction(q)
		case lexer.Literal, lexer.LongLiteral:
			e, err = p.rdfLiteral(q)
		case lexer.PlainLiteral:
			e, err = p.booleanOrNumeric(q)
		default:
			return nil, Errorf(tok, "unexpected %s token, expected a QName/URI/Literal as a value for the set for an IN/NOT IN expression", tok.Kind)
		}
		if err != nil {
			return nil, err
		}
		if _, ok := e.(*expr.Constant); !ok {
			return nil, Errorf(tok, "expected a constant as a value for the set for an IN/NOT IN expression but got %s", e)
		}
		in.Set = append(in.Set, e)
	}
}

// aggregate parses an aggregate keyword call. The argument is parsed with
// aggregates disabled so aggregates never nest.
func (p *Parser) aggregate(q lexer.Queue) (expr.Expression, error) {
	agg, _ := q.Dequeue()
	open, err := dequeue(q, "an aggregate")
	if err != nil {
		return nil, err
	}
	if open.Kind != lexer.LeftBracket {
		return nil, Errorf(open, "unexpected %s token, expected a left bracket after the aggregate keyword %s", open.Kind, agg.Value)
	}

	next, err := dequeue(q, "an aggregate")
	if err != nil {
		return nil, err
	}
	var distinct, all bool
	if next.Kind == lexer.Distinct {
		distinct = true
		if next, err = dequeue(q, "an aggregate"); err != nil {
			return nil, err
		}
	}
	if next.Kind == lexer.All || next.Kind == lexer.Multiply {
		all = true
		if next, err = dequeue(q, "an aggregate"); err != nil {
			return nil, err
		}
	}
	if all {
		if next.Kind != lexer.RightBracket {
			return nil, Errorf(next, "unexpected %s token, expected a right bracket after the * specifier", next.Kind)
		}
		if agg.Kind != lexer.Count {
			return nil, Errorf(agg, "the * specifier is only valid for the COUNT aggregate")
		}
		return expr.CountAll(distinct), nil
	}

	inner := *p
	inner.AllowAggregates = false
	groupConcat := agg.Kind == lexer.GroupConcat

	terms, end, err := scanArgument(q, next, groupConcat)
	if err != nil {
		return nil, err
	}
	arg, err := inner.argument(agg, terms)
	if err != nil {
		return nil, err
	}

	// GROUP_CONCAT(a, b, c) concatenates its expressions before grouping.
	if end == lexer.Comma {
		parts := []expr.Expression{arg}
		for end == lexer.Comma {
			tok, err := dequeue(q, "a GROUP_CONCAT aggregate")
			if err != nil {
				return nil, err
			}
			if terms, end, err = scanArgument(q, tok, true); err != nil {
				return nil, err
			}
			part, err := inner.argument(agg, terms)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
		arg = expr.MustBuiltin(expr.FnConcat, parts...)
	}

	var separator expr.Expression
	if end == lexer.Semicolon {
		if separator, err = inner.separator(q); err != nil {
			return nil, err
		}
	}

	switch agg.Kind {
	case lexer.Count:
		return expr.NewAggregation(expr.AggCount, arg, distinct), nil
	case lexer.Avg:
		return expr.NewAggregation(expr.AggAvg, arg, distinct), nil
	case lexer.Min:
		return expr.NewAggregation(expr.AggMin, arg, distinct), nil
	case lexer.Max:
		return expr.NewAggregation(expr.AggMax, arg, distinct), nil
	case lexer.GroupConcat:
		a := expr.NewAggregation(expr.AggGroupConcat, arg, distinct)
		a.Separator = separator
		return a, nil
	case lexer.Sample, lexer.Sum:
		name := expr.AggSample
		if agg.Kind == lexer.Sum {
			name = expr.AggSum
		}
		if distinct {
			return nil, Errorf(agg, "DISTINCT modifier is not valid for the %s aggregate", name)
		}
		return expr.NewAggregation(name, arg, false), nil
	}

	extended := map[lexer.Kind]string{
		lexer.Median: expr.AggMedian,
		lexer.Mode:   expr.AggMode,
		lexer.NMax:   expr.AggNMax,
		lexer.NMin:   expr.AggNMin,
	}
	name, ok := extended[agg.Kind]
	if !ok {
		return nil, Errorf(agg, "unexpected aggregate keyword %s", agg.Value)
	}
	if p.Syntax != Extended {
		return nil, Errorf(agg, "the %s aggregate is only supported when the syntax is set to extended", name)
	}
	return expr.NewAggregation(name, arg, distinct), nil
}

func (p *Parser) argument(agg lexer.Token, terms []lexer.Token) (expr.Expression, error) {
	if len(terms) == 0 {
		return nil, Errorf(agg, "the %s aggregate requires an argument", agg.Value)
	}
	return p.Parse(lexer.NewQueue(terms...))
}

// separator parses SEPARATOR = expr ) after a GROUP_CONCAT semicolon.
func (p *Parser) separator(q lexer.Queue) (expr.Expression, error) {
	for _, want := range []lexer.Kind{lexer.Separator, lexer.Equals} {
		tok, err := dequeue(q, "a GROUP_CONCAT separator")
		if err != nil {
			return nil, err
		}
		if tok.Kind != want {
			return nil, Errorf(tok, "unexpected %s token, expected %s in a GROUP_CONCAT separator", tok.Kind, want)
		}
	}
	first, err := dequeue(q, "a GROUP_CONCAT separator")
	if err != nil {
		return nil, err
	}
	terms, _, err := scanArgument(q, first, false)
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return nil, Errorf(first, "empty GROUP_CONCAT separator")
	}
	return p.Parse(lexer.NewQueue(terms...))
}

// scanArgument collects tokens from first until the bracket that closes
// the aggregate call. With split set, a comma or semicolon at the top level
// also ends the run. The terminating token is consumed and its kind
// returned.
func scanArgument(q lexer.Queue, first lexer.Token, split bool) ([]lexer.Token, lexer.Kind, error) {
	var terms []lexer.Token
	depth := 1
	tok := first
	for {
		switch tok.Kind {
		case lexer.LeftBracket:
			depth++
		case lexer.RightBracket:
			depth--
			if depth == 0 {
				return terms, lexer.RightBracket, nil
			}
		case lexer.Comma, lexer.Semicolon:
			if split && depth == 1 {
				return terms, tok.Kind, nil
			}
		}
		terms = append(terms, tok)

		var err error
		if tok, err = dequeue(q, "an aggregate argument"); err != nil {
			return nil, 0, err
		}
	}
}
