package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/config"
	"github.com/roach88/quarry/internal/dataset"
	"github.com/roach88/quarry/internal/eval"
	"github.com/roach88/quarry/internal/optimizer"
	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/solution"
	"github.com/roach88/quarry/internal/sparql"
	"github.com/roach88/quarry/internal/stats"
	"github.com/roach88/quarry/internal/update"
)

// Engine runs queries and updates against one store.
//
// Query and Update are safe for concurrent use as long as the store is;
// every call evaluates on its own dataset handle.
type Engine struct {
	store     update.Store
	cfg       *config.Config
	parser    *sparql.Parser
	optimiser optimizer.Optimiser
	graphs    *config.GraphMatcher
	retriever update.Retriever
	ids       IDGenerator
	clock     *Clock
	now       func() time.Time
	stats     *stats.Manager
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces config.Default().
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithRetriever sets the source of LOAD graphs.
func WithRetriever(r update.Retriever) Option {
	return func(e *Engine) { e.retriever = r }
}

// WithIDGenerator replaces the UUIDv7 query ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithNow fixes the clock used for durations and NOW().
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithStats records every operation in m. Without it the engine creates
// a manager from the stats section of the config.
func WithStats(m *stats.Manager) Option {
	return func(e *Engine) { e.stats = m }
}

// WithOptimiser replaces optimizer.Default.
func WithOptimiser(o optimizer.Optimiser) Option {
	return func(e *Engine) { e.optimiser = o }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over s.
func New(s update.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:  s,
		cfg:    config.Default(),
		ids:    UUIDv7Generator{},
		clock:  NewClock(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	graphs, err := e.cfg.GraphMatcher()
	if err != nil {
		return nil, err
	}
	e.graphs = graphs
	e.parser = &sparql.Parser{
		BaseIRI:    rdf.IRI(e.cfg.BaseIRI),
		Namespaces: e.cfg.NamespaceMap(),
		Syntax:     e.cfg.ExprSyntax(),
	}
	if e.optimiser == nil {
		e.optimiser = optimizer.Default(e.logger)
	}
	if e.stats == nil {
		e.stats = stats.NewManager(
			stats.WithRecording(e.cfg.Stats.Enabled),
			stats.WithMaxRecords(e.cfg.Stats.MaxRecords),
		)
	}
	return e, nil
}

// Stats returns the statistics manager.
func (e *Engine) Stats() *stats.Manager { return e.stats }

// Store returns the underlying store.
func (e *Engine) Store() update.Store { return e.store }

// Result is the answer to one query.
type Result struct {
	ID   string
	Seq  int64
	Form algebra.Form

	// Variables and Solutions answer SELECT.
	Variables []string
	Solutions *solution.Multiset

	// Boolean answers ASK.
	Boolean bool

	// Graph answers CONSTRUCT.
	Graph *rdf.Graph

	// Partial marks a SELECT cut short by the timeout.
	Partial bool

	Duration time.Duration

	// Warnings come from algebra validation.
	Warnings []string
}

// Len is the number of solutions or triples, or 1 for a true ASK.
func (r *Result) Len() int {
	switch r.Form {
	case algebra.FormAsk:
		if r.Boolean {
			return 1
		}
		return 0
	case algebra.FormConstruct:
		if r.Graph == nil {
			return 0
		}
		return r.Graph.Len()
	}
	if r.Solutions == nil {
		return 0
	}
	return r.Solutions.Len()
}

// Parse parses query text with the configured prologue.
func (e *Engine) Parse(text string) (*algebra.Query, error) {
	return e.parser.ParseQuery(text)
}

// Query parses and runs query text.
func (e *Engine) Query(ctx context.Context, text string) (*Result, error) {
	q, err := e.Parse(text)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, q, text)
}

// Select runs query text that must be a SELECT.
func (e *Engine) Select(ctx context.Context, text string) (*Result, error) {
	q, err := e.Parse(text)
	if err != nil {
		return nil, err
	}
	if q.Form != algebra.FormSelect {
		return nil, &RuntimeError{
			Code:    ErrCodeUnsupportedForm,
			Message: fmt.Sprintf("%s query where SELECT was expected", q.Form),
		}
	}
	return e.Run(ctx, q, text)
}

// Run evaluates a parsed query. label describes it in statistics.
func (e *Engine) Run(ctx context.Context, q *algebra.Query, label string) (*Result, error) {
	res := &Result{
		ID:       e.ids.Generate(),
		Seq:      e.clock.Next(),
		Form:     q.Form,
		Warnings: algebra.Validate(q).Warnings,
	}
	start := e.now()
	logger := e.logger.With("query", res.ID)
	logger.Debug("query started", "form", q.Form.String(), "seq", res.Seq)

	err := e.execute(ctx, q, res, logger)
	res.Duration = e.now().Sub(start)
	if err != nil {
		logger.Debug("query failed", "error", err)
		return nil, err
	}
	logger.Debug("query finished", "results", res.Len(), "partial", res.Partial, "duration", res.Duration)

	e.stats.Add(stats.Record{
		Kind:     stats.KindQuery,
		Label:    label,
		Context:  res.ID,
		Start:    start,
		Duration: res.Duration,
		Results:  res.Len(),
	})
	return res, nil
}

func (e *Engine) execute(ctx context.Context, q *algebra.Query, res *Result, logger *slog.Logger) error {
	opts, err := e.evalOptions(ctx, q, logger)
	if err != nil {
		return err
	}
	var last *solution.Multiset
	opts = append(opts, eval.WithCheckpoint(func(ms *solution.Multiset) { last = ms }))
	ev := eval.New(dataset.NewHandle(e.store.Dataset()), opts...)

	qctx := ctx
	timeout := time.Duration(e.cfg.Query.Timeout)
	if timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err = evaluate(qctx, ev, q, res)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || !errors.Is(qctx.Err(), context.DeadlineExceeded) {
		return err
	}

	logger.Warn("query timed out", "timeout", timeout, "partial", e.cfg.Query.PartialResults)
	if e.cfg.Query.PartialResults && q.Form == algebra.FormSelect {
		res.Partial = true
		res.Variables = q.ProjectedVariables()
		if last == nil {
			res.Solutions = solution.NewMultiset(res.Variables...)
		} else {
			res.Solutions = last.Project(res.Variables)
		}
		return nil
	}
	return &RuntimeError{
		Code:    ErrCodeQueryTimeout,
		Message: fmt.Sprintf("query exceeded %s", timeout),
		QueryID: res.ID,
	}
}

func evaluate(ctx context.Context, ev *eval.Evaluator, q *algebra.Query, res *Result) error {
	switch q.Form {
	case algebra.FormSelect:
		ms, err := ev.Select(ctx, q)
		if err != nil {
			return err
		}
		res.Variables = q.ProjectedVariables()
		res.Solutions = ms
	case algebra.FormAsk:
		ok, err := ev.Ask(ctx, q)
		if err != nil {
			return err
		}
		res.Boolean = ok
	case algebra.FormConstruct:
		g, err := ev.Construct(ctx, q)
		if err != nil {
			return err
		}
		res.Graph = g
	default:
		return &RuntimeError{Code: ErrCodeUnsupportedForm, Message: q.Form.String(), QueryID: res.ID}
	}
	return nil
}

func (e *Engine) evalOptions(ctx context.Context, q *algebra.Query, logger *slog.Logger) ([]eval.Option, error) {
	opts := []eval.Option{
		eval.WithLogger(logger),
		eval.WithNow(e.now),
		eval.WithRewriter(e.optimiser),
	}
	if len(q.NamedGraphs) > 0 || e.graphs.MatchesAll() {
		return opts, nil
	}
	names, err := e.store.GraphNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list named graphs: %w", err)
	}
	return append(opts, eval.WithNamedGraphs(e.graphs.Select(names)...)), nil
}

// Plan is the algebra of a query before and after optimisation.
type Plan struct {
	Query     *algebra.Query
	Before    algebra.Node
	After     algebra.Node
	Optimiser string
	Warnings  []string
}

// Explain compiles query text without running it.
func (e *Engine) Explain(text string) (*Plan, error) {
	q, err := e.Parse(text)
	if err != nil {
		return nil, err
	}
	before, err := q.Algebra()
	if err != nil {
		return nil, err
	}
	after, err := e.optimiser.Optimise(before)
	if err != nil {
		e.logger.Debug("optimiser refused query", "error", err)
		after = before
	}
	return &Plan{
		Query:     q,
		Before:    before,
		After:     after,
		Optimiser: e.optimiser.Name(),
		Warnings:  algebra.Validate(q).Warnings,
	}, nil
}

// ParseUpdate parses update text with the configured prologue.
func (e *Engine) ParseUpdate(text string) ([]update.Command, error) {
	return e.parser.ParseUpdate(text)
}

// Update parses and applies update text. Under update.best_effort failing
// commands are skipped and listed in the report.
func (e *Engine) Update(ctx context.Context, text string) (update.Report, error) {
	id := e.ids.Generate()
	seq := e.clock.Next()
	logger := e.logger.With("update", id)

	cmds, err := e.ParseUpdate(text)
	if err != nil {
		return update.Report{}, err
	}

	opts := []update.Option{
		update.WithBestEffort(e.cfg.Update.BestEffort),
		update.WithLogger(logger),
		update.WithEvalOptions(eval.WithNow(e.now), eval.WithRewriter(e.optimiser)),
	}
	if e.retriever != nil {
		opts = append(opts, update.WithRetriever(e.retriever))
	}

	start := e.now()
	logger.Debug("update started", "commands", len(cmds), "seq", seq)
	report, err := update.NewProcessor(e.store, opts...).ProcessAll(ctx, cmds)
	duration := e.now().Sub(start)
	if err != nil {
		logger.Debug("update failed", "applied", report.Applied, "error", err)
		return report, err
	}
	logger.Debug("update finished", "applied", report.Applied, "skipped", len(report.Skipped), "duration", duration)

	e.stats.Add(stats.Record{
		Kind:     stats.KindUpdate,
		Label:    text,
		Context:  id,
		Start:    start,
		Duration: duration,
		Results:  report.Applied,
	})
	return report, nil
}

// Graphs lists the named graphs of the store.
func (e *Engine) Graphs(ctx context.Context) ([]rdf.IRI, error) {
	return e.store.GraphNames(ctx)
}
