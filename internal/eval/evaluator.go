// Package eval evaluates algebra trees against a dataset.
//
// ARCHITECTURE:
//
// Every operator is evaluated relative to an input multiset: the result of
// eval(n, input) is the join of input with the solutions of n. Bgp, Join,
// Union and Graph thread the input through, so a GRAPH ?g operator sees the
// values its left siblings bound to ?g. Every other operator is evaluated
// from Identity and joined with the input afterwards, which keeps FILTER
// and BIND scoped to their own group.
//
// SCOPE DISCIPLINE:
//
// The Graph operator pushes an active-graph scope onto the dataset and
// pops it with defer, so the previous scope is restored on every exit path.
//
// CANCELLATION:
//
// Evaluation checks its context between steps. The caller bounds a query by
// cancelling the context; the last checkpointed multiset is available to a
// checkpoint callback for partial results.
package eval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/dataset"
	"github.com/roach88/quarry/internal/expr"
	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/solution"
)

// ErrUnsupported is returned for operators the evaluator cannot run, such as
// a SERVICE call that is not SILENT.
var ErrUnsupported = errors.New("unsupported operator")

// Evaluator runs algebra trees against one dataset handle.
//
// An Evaluator is not safe for concurrent use: it mutates the scope stack of
// its dataset.
type Evaluator struct {
	ds         dataset.Dataset
	named      []rdf.IRI
	now        func() time.Time
	checkpoint func(*solution.Multiset)
	rewriter   Rewriter
	logger     *slog.Logger
}

// Rewriter transforms a compiled query tree before it is evaluated.
type Rewriter interface {
	Optimise(n algebra.Node) (algebra.Node, error)
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithNamedGraphs declares the graphs GRAPH ?g ranges over when the query
// itself declares none. Without it GRAPH ?g ranges over every named graph;
// with an empty list it ranges over none.
func WithNamedGraphs(graphs ...rdf.IRI) Option {
	return func(e *Evaluator) {
		e.named = append([]rdf.IRI{}, graphs...)
	}
}

// WithCheckpoint registers a callback that receives each intermediate
// multiset produced by a basic graph pattern or a join.
func WithCheckpoint(fn func(*solution.Multiset)) Option {
	return func(e *Evaluator) {
		e.checkpoint = fn
	}
}

// WithRewriter runs rw over every tree before evaluation. A failing rewrite is
// logged and the original tree is evaluated.
func WithRewriter(rw Rewriter) Option {
	return func(e *Evaluator) {
		e.rewriter = rw
	}
}

// WithNow fixes the clock used for NOW() and similar functions.
func WithNow(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = l
	}
}

// New creates an Evaluator over ds.
func New(ds dataset.Dataset, opts ...Option) *Evaluator {
	e := &Evaluator{
		ds:     ds,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run is the state of one top-level evaluation.
type run struct {
	*Evaluator
	ctx     context.Context
	named   []rdf.IRI
	exprCtx *expr.Context
}

func (e *Evaluator) start(ctx context.Context, named []rdf.IRI) *run {
	r := &run{Evaluator: e, ctx: ctx, named: e.named}
	if len(named) > 0 {
		r.named = named
	}
	r.exprCtx = &expr.Context{Now: e.now()}
	r.exprCtx.Exists = r.exists
	return r
}

// Evaluate evaluates a tree from the Identity multiset.
func (e *Evaluator) Evaluate(ctx context.Context, n algebra.Node) (*solution.Multiset, error) {
	return e.start(ctx, nil).eval(e.rewrite(n), solution.Identity())
}

func (e *Evaluator) rewrite(n algebra.Node) algebra.Node {
	if e.rewriter == nil {
		return n
	}
	out, err := e.rewriter.Optimise(n)
	if err != nil {
		e.logger.Debug("rewrite skipped", "error", err)
		return n
	}
	return out
}

// Select evaluates a SELECT query. The result declares the projected
// variables even when no solution matches.
func (e *Evaluator) Select(ctx context.Context, q *algebra.Query) (*solution.Multiset, error) {
	ms, err := e.query(ctx, q)
	if err != nil {
		return nil, err
	}
	if ms.IsNull() {
		return solution.NewMultiset(q.ProjectedVariables()...), nil
	}
	return ms, nil
}

// Ask evaluates an ASK query.
func (e *Evaluator) Ask(ctx context.Context, q *algebra.Query) (bool, error) {
	ms, err := e.query(ctx, q)
	if err != nil {
		return false, err
	}
	return !ms.IsNull() && ms.Len() > 0, nil
}

// Construct evaluates a CONSTRUCT query into a new graph. Template triples
// that are not fully bound, or not valid RDF, are skipped per solution.
func (e *Evaluator) Construct(ctx context.Context, q *algebra.Query) (*rdf.Graph, error) {
	ms, err := e.query(ctx, q)
	if err != nil {
		return nil, err
	}
	g := rdf.NewGraph(rdf.DefaultGraph)
	for _, sol := range ms.Solutions() {
		triples, _ := Instantiate(q.Template, sol, g.NewBlankNode)
		g.Assert(triples...)
	}
	return g, nil
}

func (e *Evaluator) query(ctx context.Context, q *algebra.Query) (ms *solution.Multiset, err error) {
	root, err := q.Algebra()
	if err != nil {
		return nil, err
	}
	root = e.rewrite(root)
	r := e.start(ctx, q.NamedGraphs)
	if len(q.DefaultGraphs) > 0 {
		e.ds.PushScope(dataset.Scope{Graphs: q.DefaultGraphs, Mode: dataset.ScopeModeMerged})
		defer func() {
			if perr := e.ds.PopScope(); perr != nil && err == nil {
				err = perr
			}
		}()
	}
	e.logger.Debug("evaluating query", "form", q.Form.String(), "algebra", root.String())
	return r.eval(root, solution.Identity())
}

func (r *run) eval(n algebra.Node, input *solution.Multiset) (*solution.Multiset, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluation interrupted: %w", err)
	}
	if input.IsNull() {
		return solution.Null(), nil
	}
	switch x := n.(type) {
	case *algebra.Bgp:
		return r.bgp(x, input)
	case *algebra.Join:
		left, err := r.eval(x.Left, input)
		if err != nil || left.IsNull() {
			return left, err
		}
		out, err := r.eval(x.Right, left)
		if err != nil {
			return nil, err
		}
		r.mark(out)
		return out, nil
	case *algebra.Union:
		left, err := r.eval(x.Left, input)
		if err != nil {
			return nil, err
		}
		right, err := r.eval(x.Right, input)
		if err != nil {
			return nil, err
		}
		return left.Union(right), nil
	case *algebra.Graph:
		return r.graph(x, input)
	}

	base, err := r.evalBase(n)
	if err != nil {
		return nil, err
	}
	return input.Join(base), nil
}

// evalBase evaluates the operators that do not thread their input.
func (r *run) evalBase(n algebra.Node) (*solution.Multiset, error) {
	identity := solution.Identity()
	switch x := n.(type) {
	case *algebra.LeftJoin:
		return r.leftJoin(x)
	case *algebra.Minus:
		left, err := r.eval(x.Left, identity)
		if err != nil {
			return nil, err
		}
		right, err := r.eval(x.Right, solution.Identity())
		if err != nil {
			return nil, err
		}
		return left.Minus(right), nil
	case *algebra.Filter:
		inner, err := r.eval(x.Inner, identity)
		if err != nil {
			return nil, err
		}
		return inner.Filter(func(s *solution.Solution) bool { return r.test(x.Expr, s) }), nil
	case *algebra.Extend:
		inner, err := r.eval(x.Inner, identity)
		if err != nil {
			return nil, err
		}
		return r.extend(inner, x.Var, x.Expr), nil
	case *algebra.Slice:
		inner, err := r.eval(x.Inner, identity)
		if err != nil {
			return nil, err
		}
		return inner.Slice(x.Offset, x.Limit), nil
	case *algebra.Distinct:
		inner, err := r.eval(x.Inner, identity)
		if err != nil {
			return nil, err
		}
		return inner.Distinct(), nil
	case *algebra.Reduced:
		inner, err := r.eval(x.Inner, identity)
		if err != nil {
			return nil, err
		}
		return inner.Reduced(), nil
	case *algebra.Project:
		inner, err := r.eval(x.Inner, identity)
		if err != nil {
			return nil, err
		}
		return inner.Project(x.Vars), nil
	case *algebra.OrderBy:
		inner, err := r.eval(x.Inner, identity)
		if err != nil {
			return nil, err
		}
		return r.order(inner, x.Conditions), nil
	case *algebra.Group:
		inner, err := r.eval(x.Inner, identity)
		if err != nil {
			return nil, err
		}
		return r.group(inner, x), nil
	case *algebra.SubQuery:
		return r.subQuery(x.Query)
	case *algebra.Table:
		return table(x), nil
	case *algebra.Service:
		if x.Silent {
			return solution.Identity(), nil
		}
		return nil, fmt.Errorf("SERVICE %s: %w", x.Endpoint, ErrUnsupported)
	}
	return nil, fmt.Errorf("%T: %w", n, ErrUnsupported)
}

func (r *run) leftJoin(x *algebra.LeftJoin) (*solution.Multiset, error) {
	left, err := r.eval(x.Left, solution.Identity())
	if err != nil || left.IsNull() {
		return left, err
	}
	keep := func(s *solution.Solution) bool {
		return x.Filter == nil || r.test(x.Filter, s)
	}

	// Inside GRAPH ?g the optional side is evaluated per left solution so
	// that it stays in the graph the left solution was matched in.
	if r.ds.Scope().Mode == dataset.ScopeModePerGraph {
		out := solution.NewMultiset(left.Variables()...)
		for _, l := range left.Solutions() {
			right, err := r.eval(x.Right, solution.FromSolutions(l))
			if err != nil {
				return nil, err
			}
			matched := false
			for _, s := range right.Solutions() {
				if keep(s) {
					out.Add(s)
					matched = true
				}
			}
			if !matched {
				out.Add(l)
			}
		}
		return out, nil
	}

	right, err := r.eval(x.Right, solution.Identity())
	if err != nil {
		return nil, err
	}
	return left.LeftJoin(right, keep), nil
}

func (r *run) subQuery(q *algebra.Query) (*solution.Multiset, error) {
	root, err := q.Algebra()
	if err != nil {
		return nil, fmt.Errorf("compile sub-query: %w", err)
	}
	return r.eval(root, solution.Identity())
}

func table(t *algebra.Table) *solution.Multiset {
	switch t.Kind {
	case algebra.TableUnit:
		return solution.Identity()
	case algebra.TableEmpty:
		return solution.Null()
	}
	ms := solution.NewMultiset(t.Vars...)
	for _, row := range t.Rows {
		ms.Add(row.Clone())
	}
	return ms
}

// test evaluates a condition for one solution. Evaluation errors count as
// false.
func (r *run) test(e expr.Expression, s *solution.Solution) bool {
	v, err := e.Evaluate(r.exprCtx, s)
	if err != nil {
		return false
	}
	ok, err := expr.EffectiveBooleanValue(v)
	return err == nil && ok
}

// extend binds name to the value of e in every solution. A failing
// evaluation leaves the solution unchanged.
func (r *run) extend(in *solution.Multiset, name string, e expr.Expression) *solution.Multiset {
	if in.IsNull() {
		return in
	}
	out := solution.NewMultiset(in.Variables()...)
	out.AddVariable(name)
	for _, s := range in.Solutions() {
		v, err := e.Evaluate(r.exprCtx, s)
		if err != nil || s.Bound(name) {
			out.Add(s)
			continue
		}
		ext, err := s.With(name, v)
		if err != nil {
			out.Add(s)
			continue
		}
		out.Add(ext)
	}
	return out
}

// exists backs EXISTS and NOT EXISTS: the nested pattern is evaluated with
// sol as its only input solution.
func (r *run) exists(p expr.Pattern, sol *solution.Solution) (bool, error) {
	n, ok := p.(algebra.Node)
	if !ok {
		return false, fmt.Errorf("EXISTS pattern %T: %w", p, ErrUnsupported)
	}
	ms, err := r.eval(n, solution.FromSolutions(sol.Clone()))
	if err != nil {
		return false, err
	}
	return !ms.IsNull() && ms.Len() > 0, nil
}

func (r *run) mark(ms *solution.Multiset) {
	if r.checkpoint != nil && ms != nil {
		r.checkpoint(ms)
	}
}
