package expr

import (
	"regexp"
	"strings"

	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/solution"
)

// Built-in function names.
const (
	FnBound       = "BOUND"
	FnCoalesce    = "COALESCE"
	FnDatatype    = "DATATYPE"
	FnIf          = "IF"
	FnIRI         = "IRI"
	FnURI         = "URI"
	FnIsBlank     = "ISBLANK"
	FnIsIRI       = "ISIRI"
	FnIsURI       = "ISURI"
	FnIsLiteral   = "ISLITERAL"
	FnLang        = "LANG"
	FnLangMatches = "LANGMATCHES"
	FnSameTerm    = "SAMETERM"
	FnStr         = "STR"
	FnStrDT       = "STRDT"
	FnStrLang     = "STRLANG"
	FnRegex       = "REGEX"
	FnConcat      = "CONCAT"
)

var builtinArity = map[string][2]int{
	FnBound:       {1, 1},
	FnCoalesce:    {0, -1},
	FnDatatype:    {1, 1},
	FnIf:          {3, 3},
	FnIRI:         {1, 1},
	FnURI:         {1, 1},
	FnIsBlank:     {1, 1},
	FnIsIRI:       {1, 1},
	FnIsURI:       {1, 1},
	FnIsLiteral:   {1, 1},
	FnLang:        {1, 1},
	FnLangMatches: {2, 2},
	FnSameTerm:    {2, 2},
	FnStr:         {1, 1},
	FnStrDT:       {2, 2},
	FnStrLang:     {2, 2},
	FnRegex:       {2, 3},
	FnConcat:      {0, -1},
}

// Builtin is a call to one of the SPARQL built-in functions.
type Builtin struct {
	Name string
	Args []Expression
	// Base resolves relative IRIs produced by IRI() and URI().
	Base rdf.IRI
}

// NewBuiltin creates a built-in call after checking its arity.
func NewBuiltin(name string, args ...Expression) (*Builtin, error) {
	name = strings.ToUpper(name)
	arity, ok := builtinArity[name]
	if !ok {
		return nil, Errorf(CodeUnknownFunction, "unknown built-in %s", name)
	}
	if len(args) < arity[0] || (arity[1] >= 0 && len(args) > arity[1]) {
		return nil, Errorf(CodeInvalidArgument, "%s does not accept %d arguments", name, len(args))
	}
	if name == FnBound {
		if _, ok := args[0].(*Var); !ok {
			return nil, Errorf(CodeInvalidArgument, "BOUND requires a variable")
		}
	}
	return &Builtin{Name: name, Args: args}, nil
}

// MustBuiltin is NewBuiltin for arguments known to be valid.
func MustBuiltin(name string, args ...Expression) *Builtin {
	b, err := NewBuiltin(name, args...)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builtin) Evaluate(ctx *Context, sol *solution.Solution) (rdf.Node, error) {
	switch b.Name {
	case FnBound:
		return Boolean(sol.Bound(b.Args[0].(*Var).Name)), nil
	case FnCoalesce:
		for _, a := range b.Args {
			if v, err := a.Evaluate(ctx, sol); err == nil && v != nil {
				return v, nil
			}
		}
		return nil, Errorf(CodeUnbound, "COALESCE found no bound argument")
	case FnIf:
		cond, err := ebvOf(b.Args[0], ctx, sol)
		if err != nil {
			return nil, err
		}
		if cond {
			return b.Args[1].Evaluate(ctx, sol)
		}
		return b.Args[2].Evaluate(ctx, sol)
	}

	vals := make([]rdf.Node, len(b.Args))
	for i, a := range b.Args {
		v, err := a.Evaluate(ctx, sol)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return b.apply(vals)
}

func (b *Builtin) apply(vals []rdf.Node) (rdf.Node, error) {
	switch b.Name {
	case FnDatatype:
		lit, ok := vals[0].(rdf.Literal)
		if !ok {
			return nil, Errorf(CodeTypeError, "DATATYPE of non-literal %s", vals[0])
		}
		switch {
		case lit.Language != "":
			return rdf.RDFLangString, nil
		case lit.Datatype == "":
			return rdf.XSDString, nil
		}
		return lit.Datatype, nil
	case FnIRI, FnURI:
		switch v := vals[0].(type) {
		case rdf.IRI:
			return v, nil
		case rdf.Literal:
			if !IsStringLiteral(v) || v.Language != "" {
				break
			}
			iri, err := rdf.ResolveIRI(v.Lexical, b.Base)
			if err != nil {
				return nil, Errorf(CodeInvalidArgument, "%v", err)
			}
			return iri, nil
		}
		return nil, Errorf(CodeTypeError, "%s cannot be converted to an IRI", vals[0])
	case FnIsBlank:
		return Boolean(vals[0].Kind() == rdf.KindBlank), nil
	case FnIsIRI, FnIsURI:
		return Boolean(vals[0].Kind() == rdf.KindIRI), nil
	case FnIsLiteral:
		return Boolean(vals[0].Kind() == rdf.KindLiteral), nil
	case FnLang:
		lit, ok := vals[0].(rdf.Literal)
		if !ok {
			return nil, Errorf(CodeTypeError, "LANG of non-literal %s", vals[0])
		}
		return rdf.NewLiteral(lit.Language), nil
	case FnLangMatches:
		tag, err := stringArg(vals[0])
		if err != nil {
			return nil, err
		}
		rng, err := stringArg(vals[1])
		if err != nil {
			return nil, err
		}
		return Boolean(langMatches(tag.Lexical, rng.Lexical)), nil
	case FnSameTerm:
		return Boolean(rdf.Equal(vals[0], vals[1])), nil
	case FnStr:
		s, err := StringValue(vals[0])
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteral(s), nil
	case FnStrDT:
		if !isSimple(vals[0]) {
			return nil, Errorf(CodeTypeError, "STRDT requires a simple literal, got %s", vals[0])
		}
		dt, ok := vals[1].(rdf.IRI)
		if !ok {
			return nil, Errorf(CodeTypeError, "STRDT datatype %s is not an IRI", vals[1])
		}
		return rdf.NewTypedLiteral(vals[0].(rdf.Literal).Lexical, dt), nil
	case FnStrLang:
		if !isSimple(vals[0]) {
			return nil, Errorf(CodeTypeError, "STRLANG requires a simple literal, got %s", vals[0])
		}
		tag, err := stringArg(vals[1])
		if err != nil || tag.Lexical == "" {
			return nil, Errorf(CodeTypeError, "STRLANG requires a non-empty language tag")
		}
		return rdf.NewLangLiteral(vals[0].(rdf.Literal).Lexical, tag.Lexical), nil
	case FnRegex:
		return regex(vals)
	case FnConcat:
		var sb strings.Builder
		for _, v := range vals {
			s, err := StringValue(v)
			if err != nil {
				return nil, err
			}
			sb.WriteString(s)
		}
		return rdf.NewLiteral(sb.String()), nil
	}
	return nil, Errorf(CodeUnknownFunction, "unknown built-in %s", b.Name)
}

func langMatches(tag, rng string) bool {
	if rng == "*" {
		return tag != ""
	}
	tag, rng = strings.ToLower(tag), strings.ToLower(rng)
	return tag == rng || strings.HasPrefix(tag, rng+"-")
}

func regex(vals []rdf.Node) (rdf.Node, error) {
	text, err := stringArg(vals[0])
	if err != nil {
		return nil, err
	}
	pattern, err := stringArg(vals[1])
	if err != nil {
		return nil, err
	}
	expr := pattern.Lexical
	if len(vals) == 3 {
		flags, err := stringArg(vals[2])
		if err != nil {
			return nil, err
		}
		if flags.Lexical != "" {
			if strings.Trim(flags.Lexical, "ismx") != "" {
				return nil, Errorf(CodeInvalidArgument, "unsupported regex flags %q", flags.Lexical)
			}
			// RE2 has no x flag: whitespace is dropped from the pattern.
			f := flags.Lexical
			if strings.Contains(f, "x") {
				expr = strings.Join(strings.Fields(expr), "")
				f = strings.ReplaceAll(f, "x", "")
			}
			if f != "" {
				expr = "(?" + f + ")" + expr
			}
		}
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, Errorf(CodeInvalidArgument, "invalid regex %q: %v", pattern.Lexical, err)
	}
	return Boolean(re.MatchString(text.Lexical)), nil
}

func (b *Builtin) Variables() []string     { return collectVariables(b.Args...) }
func (b *Builtin) Arguments() []Expression { return b.Args }
func (b *Builtin) WithArguments(args []Expression) (Expression, error) {
	nb, err := NewBuiltin(b.Name, args...)
	if err != nil {
		return nil, err
	}
	nb.Base = b.Base
	return nb, nil
}
func (b *Builtin) Functor() string { return b.Name }
func (b *Builtin) String() string  { return call(b.Name, b.Args...) }

// Exists tests whether a nested pattern has solutions compatible with the
// current one.
type Exists struct {
	Pattern Pattern
	Negated bool
}

func (e *Exists) Evaluate(ctx *Context, sol *solution.Solution) (rdf.Node, error) {
	if ctx == nil || ctx.Exists == nil {
		return nil, Errorf(CodeInvalidArgument, "EXISTS is not supported in this context")
	}
	ok, err := ctx.Exists(e.Pattern, sol)
	if err != nil {
		return nil, err
	}
	return Boolean(ok != e.Negated), nil
}

// WithPattern returns a copy over a different pattern.
func (e *Exists) WithPattern(p Pattern) *Exists {
	return &Exists{Pattern: p, Negated: e.Negated}
}

func (e *Exists) Variables() []string     { return e.Pattern.Variables() }
func (e *Exists) Arguments() []Expression { return nil }
func (e *Exists) WithArguments([]Expression) (Expression, error) {
	return e, nil
}
func (e *Exists) Functor() string {
	if e.Negated {
		return "NOT EXISTS"
	}
	return "EXISTS"
}
func (e *Exists) String() string { return e.Functor() + " " + e.Pattern.String() }

// In tests membership of a value in a list of expressions.
type In struct {
	Needle  Expression
	Set     []Expression
	Negated bool
}

func (in *In) Evaluate(ctx *Context, sol *solution.Solution) (rdf.Node, error) {
	v, err := in.Needle.Evaluate(ctx, sol)
	if err != nil {
		return nil, err
	}
	var firstErr error
	for _, member := range in.Set {
		m, err := member.Evaluate(ctx, sol)
		if err == nil {
			var eq bool
			if eq, err = ValueEqual(v, m); err == nil && eq {
				return Boolean(!in.Negated), nil
			}
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return Boolean(in.Negated), nil
}

func (in *In) Variables() []string {
	return collectVariables(append([]Expression{in.Needle}, in.Set...)...)
}
func (in *In) Arguments() []Expression { return append([]Expression{in.Needle}, in.Set...) }
func (in *In) WithArguments(args []Expression) (Expression, error) {
	if len(args) == 0 {
		return nil, Errorf(CodeInvalidArgument, "IN requires a tested expression")
	}
	return &In{Needle: args[0], Set: args[1:], Negated: in.Negated}, nil
}
func (in *In) Functor() string {
	if in.Negated {
		return "NOT IN"
	}
	return "IN"
}
func (in *In) String() string {
	return in.Needle.String() + " " + in.Functor() + " (" + joinArgs(in.Set) + ")"
}

// Call invokes an extension function identified by IRI.
type Call struct {
	IRI  rdf.IRI
	Args []Expression
	// Impl computes the result from evaluated arguments. A nil Impl fails
	// with UNKNOWN_FUNCTION at evaluation time.
	Impl func(args []rdf.Node) (rdf.Node, error)
}

func (c *Call) Evaluate(ctx *Context, sol *solution.Solution) (rdf.Node, error) {
	if c.Impl == nil {
		return nil, Errorf(CodeUnknownFunction, "no implementation for %s", c.IRI)
	}
	vals := make([]rdf.Node, len(c.Args))
	for i, a := range c.Args {
		v, err := a.Evaluate(ctx, sol)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return c.Impl(vals)
}

func (c *Call) Variables() []string     { return collectVariables(c.Args...) }
func (c *Call) Arguments() []Expression { return c.Args }
func (c *Call) WithArguments(args []Expression) (Expression, error) {
	return &Call{IRI: c.IRI, Args: args, Impl: c.Impl}, nil
}
func (c *Call) Functor() string { return string(c.IRI) }
func (c *Call) String() string  { return call(c.IRI.String(), c.Args...) }
