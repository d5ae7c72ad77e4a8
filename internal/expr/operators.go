package expr

import (
	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/solution"
)

// Op is a binary or unary operator symbol.
type Op string

const (
	OpOr        Op = "||"
	OpAnd       Op = "&&"
	OpEqual     Op = "="
	OpNotEqual  Op = "!="
	OpLess      Op = "<"
	OpGreater   Op = ">"
	OpLessEq    Op = "<="
	OpGreaterEq Op = ">="
	OpAdd       Op = "+"
	OpSubtract  Op = "-"
	OpMultiply  Op = "*"
	OpDivide    Op = "/"
	OpNot       Op = "!"
	OpNegate    Op = "-"
)

// Binary applies an infix operator.
type Binary struct {
	Op          Op
	Left, Right Expression
}

// NewBinary creates a binary expression.
func NewBinary(op Op, left, right Expression) *Binary {
	return &Binary{Op: op, Left: left, Right: right}
}

// Add, Subtract, Multiply and Divide are shorthands used by the parser and tests.
func Add(l, r Expression) *Binary      { return NewBinary(OpAdd, l, r) }
func Subtract(l, r Expression) *Binary { return NewBinary(OpSubtract, l, r) }
func Multiply(l, r Expression) *Binary { return NewBinary(OpMultiply, l, r) }
func Divide(l, r Expression) *Binary   { return NewBinary(OpDivide, l, r) }
func Or(l, r Expression) *Binary       { return NewBinary(OpOr, l, r) }
func And(l, r Expression) *Binary      { return NewBinary(OpAnd, l, r) }

func (b *Binary) Evaluate(ctx *Context, sol *solution.Solution) (rdf.Node, error) {
	switch b.Op {
	case OpOr, OpAnd:
		return b.logical(ctx, sol)
	}
	l, err := b.Left.Evaluate(ctx, sol)
	if err != nil {
		return nil, err
	}
	r, err := b.Right.Evaluate(ctx, sol)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case OpEqual, OpNotEqual:
		eq, err := ValueEqual(l, r)
		if err != nil {
			return nil, err
		}
		return Boolean(eq == (b.Op == OpEqual)), nil
	case OpLess, OpGreater, OpLessEq, OpGreaterEq:
		c, err := ValueCompare(l, r)
		if err != nil {
			return nil, err
		}
		switch b.Op {
		case OpLess:
			return Boolean(c < 0), nil
		case OpGreater:
			return Boolean(c > 0), nil
		case OpLessEq:
			return Boolean(c <= 0), nil
		}
		return Boolean(c >= 0), nil
	}
	ln, err := toNumeric(l)
	if err != nil {
		return nil, err
	}
	rn, err := toNumeric(r)
	if err != nil {
		return nil, err
	}
	out, err := Arithmetic(b.Op[0], ln, rn)
	if err != nil {
		return nil, err
	}
	return out.Node(), nil
}

// logical implements the error-tolerant || and &&: a decisive operand wins
// even when the other raises an error.
func (b *Binary) logical(ctx *Context, sol *solution.Solution) (rdf.Node, error) {
	decisive := b.Op == OpOr
	lv, lerr := ebvOf(b.Left, ctx, sol)
	if lerr == nil && lv == decisive {
		return Boolean(decisive), nil
	}
	rv, rerr := ebvOf(b.Right, ctx, sol)
	if rerr == nil && rv == decisive {
		return Boolean(decisive), nil
	}
	if lerr != nil {
		return nil, lerr
	}
	if rerr != nil {
		return nil, rerr
	}
	return Boolean(!decisive), nil
}

func ebvOf(e Expression, ctx *Context, sol *solution.Solution) (bool, error) {
	v, err := e.Evaluate(ctx, sol)
	if err != nil {
		return false, err
	}
	return EffectiveBooleanValue(v)
}

func (b *Binary) Variables() []string     { return collectVariables(b.Left, b.Right) }
func (b *Binary) Arguments() []Expression { return []Expression{b.Left, b.Right} }
func (b *Binary) WithArguments(args []Expression) (Expression, error) {
	if err := checkArity(string(b.Op), args, 2); err != nil {
		return nil, err
	}
	return NewBinary(b.Op, args[0], args[1]), nil
}
func (b *Binary) Functor() string { return string(b.Op) }
func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + string(b.Op) + " " + b.Right.String() + ")"
}

// Unary applies a prefix operator (! or -).
type Unary struct {
	Op  Op
	Arg Expression
}

// Not creates a logical negation.
func Not(e Expression) *Unary { return &Unary{Op: OpNot, Arg: e} }

// Negate creates an arithmetic negation.
func Negate(e Expression) *Unary { return &Unary{Op: OpNegate, Arg: e} }

func (u *Unary) Evaluate(ctx *Context, sol *solution.Solution) (rdf.Node, error) {
	if u.Op == OpNot {
		v, err := ebvOf(u.Arg, ctx, sol)
		if err != nil {
			return nil, err
		}
		return Boolean(!v), nil
	}
	v, err := u.Arg.Evaluate(ctx, sol)
	if err != nil {
		return nil, err
	}
	n, err := toNumeric(v)
	if err != nil {
		return nil, err
	}
	return n.Negate().Node(), nil
}

func (u *Unary) Variables() []string     { return u.Arg.Variables() }
func (u *Unary) Arguments() []Expression { return []Expression{u.Arg} }
func (u *Unary) WithArguments(args []Expression) (Expression, error) {
	if err := checkArity(string(u.Op), args, 1); err != nil {
		return nil, err
	}
	return &Unary{Op: u.Op, Arg: args[0]}, nil
}
func (u *Unary) Functor() string { return string(u.Op) }
func (u *Unary) String() string  { return string(u.Op) + u.Arg.String() }
