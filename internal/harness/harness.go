package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/engine"
	"github.com/roach88/quarry/internal/expr"
	"github.com/roach88/quarry/internal/exprparser"
	"github.com/roach88/quarry/internal/fixture"
	"github.com/roach88/quarry/internal/lexer"
	"github.com/roach88/quarry/internal/optimizer"
	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/store"
	"github.com/roach88/quarry/internal/testutil"
	"github.com/roach88/quarry/internal/update"
)

// Harness executes the steps of one scenario.
type Harness struct {
	scenario *Scenario
	store    store.Store
	engine   *engine.Engine
	ns       *rdf.NamespaceMap
}

// Option configures a run.
type Option func(*runOptions)

type runOptions struct {
	logger *slog.Logger
}

// WithLogger routes engine logs. Default: discarded.
func WithLogger(l *slog.Logger) Option {
	return func(o *runOptions) { o.logger = l }
}

// Run executes a scenario in a fresh store and returns its result. The
// error reports a scenario that could not be set up; failed expectations
// are listed in the result.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	o := runOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := s.EngineConfig()
	st, cleanup, err := openStore(cfg.Store.Driver)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := fixture.Seed(ctx, st, s.Data...); err != nil {
		return nil, fmt.Errorf("failed to seed data: %w", err)
	}

	eng, err := engine.New(st,
		engine.WithConfig(cfg),
		engine.WithIDGenerator(testutil.NewSequentialIDs(s.Name)),
		engine.WithNow(testutil.NewDeterministicClock(time.Millisecond).Now),
		engine.WithRetriever(&fixture.Retriever{Root: s.Dir}),
		engine.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	h := &Harness{scenario: s, store: st, engine: eng, ns: s.namespaces()}
	result := NewResult()
	for i, step := range s.Steps {
		ev := h.execute(ctx, i+1, step)
		result.AddTrace(ev)
		for _, msg := range h.check(ev, step.Expect) {
			result.AddError(fmt.Sprintf("step %d: %s", i+1, msg))
		}
	}

	for _, msg := range h.evaluateAssertions(ctx, s.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func openStore(driver string) (store.Store, func(), error) {
	if driver != store.DriverSQLite {
		return store.NewMemory(), func() {}, nil
	}
	dir, err := os.MkdirTemp("", "quarry-scenario-*")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	st, err := store.New(store.DriverSQLite, filepath.Join(dir, "scenario.db"))
	if err != nil {
		os.RemoveAll(dir)
		return nil, nil, err
	}
	return st, func() {
		st.Close()
		os.RemoveAll(dir)
	}, nil
}

func (h *Harness) execute(ctx context.Context, n int, step Step) TraceEvent {
	if step.Update != "" {
		ev := TraceEvent{Step: n, Kind: "update"}
		report, err := h.engine.Update(ctx, step.Update)
		ev.Applied = report.Applied
		ev.Skipped = len(report.Skipped)
		if err != nil {
			ev.Error = ErrorCode(err)
		}
		return ev
	}

	ev := TraceEvent{Step: n, Kind: "query"}
	res, err := h.engine.Query(ctx, step.Query)
	if err != nil {
		ev.Error = ErrorCode(err)
		return ev
	}
	ev.Form = res.Form.String()
	ev.Partial = res.Partial
	switch res.Form {
	case algebra.FormSelect:
		ev.Variables = res.Variables
		for _, sol := range res.Solutions.Solutions() {
			row := map[string]string{}
			for _, v := range res.Variables {
				if t, ok := sol.Get(v); ok {
					row[v] = rdf.FormatTerm(t)
				}
			}
			ev.Rows = append(ev.Rows, row)
		}
	case algebra.FormAsk:
		b := res.Boolean
		ev.Boolean = &b
	case algebra.FormConstruct:
		for _, t := range res.Graph.Triples() {
			ev.Triples = append(ev.Triples, t.String())
		}
	}
	return ev
}

// check compares a step outcome with its expectation.
func (h *Harness) check(ev TraceEvent, want *Expect) []string {
	var errs []string
	if want == nil {
		if ev.Error != "" {
			errs = append(errs, fmt.Sprintf("unexpected error %s", ev.Error))
		}
		return errs
	}
	if ev.Error != want.Error {
		errs = append(errs, fmt.Sprintf("error: expected %q, got %q", want.Error, ev.Error))
	}
	if want.Applied != nil && *want.Applied != ev.Applied {
		errs = append(errs, fmt.Sprintf("applied: expected %d, got %d", *want.Applied, ev.Applied))
	}
	if want.Skipped != nil && *want.Skipped != ev.Skipped {
		errs = append(errs, fmt.Sprintf("skipped: expected %d, got %d", *want.Skipped, ev.Skipped))
	}
	if want.Count != nil {
		got := len(ev.Rows) + len(ev.Triples)
		if *want.Count != got {
			errs = append(errs, fmt.Sprintf("count: expected %d, got %d", *want.Count, got))
		}
	}
	if want.Boolean != nil && (ev.Boolean == nil || *ev.Boolean != *want.Boolean) {
		errs = append(errs, fmt.Sprintf("boolean: expected %t", *want.Boolean))
	}
	if want.Partial != nil && *want.Partial != ev.Partial {
		errs = append(errs, fmt.Sprintf("partial: expected %t, got %t", *want.Partial, ev.Partial))
	}
	if want.Rows != nil {
		errs = append(errs, h.compareRows(want.Rows, ev.Rows)...)
	}
	return errs
}

func (h *Harness) compareRows(want, got []map[string]string) []string {
	if len(want) != len(got) {
		return []string{fmt.Sprintf("rows: expected %d, got %d: %v", len(want), len(got), got)}
	}
	var errs []string
	for i := range want {
		expected, err := h.canonicalRow(want[i])
		if err != nil {
			errs = append(errs, fmt.Sprintf("rows[%d]: %v", i, err))
			continue
		}
		if !sameRow(expected, got[i]) {
			errs = append(errs, fmt.Sprintf("rows[%d]: expected %v, got %v", i, expected, got[i]))
		}
	}
	return errs
}

// canonicalRow rewrites expected terms into FormatTerm syntax.
func (h *Harness) canonicalRow(row map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(row))
	for v, text := range row {
		t, err := rdf.ParseTerm(text, h.ns)
		if err != nil {
			return nil, fmt.Errorf("?%s: %w", v, err)
		}
		out[v] = rdf.FormatTerm(t)
	}
	return out, nil
}

func sameRow(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// ErrorCode condenses an error into the code scenarios expect.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := update.CodeOf(err); code != "" {
		return string(code)
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	var pe *exprparser.ParseError
	var le *lexer.Error
	if errors.As(err, &pe) || errors.As(err, &le) {
		return "PARSE_ERROR"
	}
	var ee *expr.EvaluationError
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	if optimizer.IsOptimizerError(err) {
		return string(optimizer.CodeOf(err))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "CANCELLED"
	}
	return "ERROR"
}

func (h *Harness) evaluateAssertions(ctx context.Context, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := h.evaluateAssertion(ctx, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d] %s: %v", i, a.Type, err))
		}
	}
	return errs
}

func (h *Harness) evaluateAssertion(ctx context.Context, a Assertion) error {
	switch a.Type {
	case AssertAsk:
		res, err := h.engine.Query(ctx, a.Query)
		if err != nil {
			return err
		}
		if res.Form != algebra.FormAsk {
			return fmt.Errorf("not an ASK query")
		}
		if res.Boolean != a.Boolean {
			return fmt.Errorf("expected %t, got %t", a.Boolean, res.Boolean)
		}
		return nil
	}

	name, err := h.graphName(a.Graph)
	if err != nil {
		return err
	}
	g, err := h.store.LoadGraph(ctx, name)
	if err != nil {
		return err
	}
	switch a.Type {
	case AssertGraphSize:
		if g.Len() != a.Count {
			return fmt.Errorf("expected %d triples, got %d", a.Count, g.Len())
		}
	case AssertGraphContains, AssertGraphExcludes:
		t, err := h.triple(a.Triple)
		if err != nil {
			return err
		}
		want := a.Type == AssertGraphContains
		if g.Contains(t) != want {
			return fmt.Errorf("%s: expected present=%t in %v", t, want, tripleStrings(g))
		}
	}
	return nil
}

func (h *Harness) graphName(text string) (rdf.IRI, error) {
	if text == "" {
		return rdf.DefaultGraph, nil
	}
	n, err := rdf.ParseTerm(text, h.ns)
	if err != nil {
		return "", err
	}
	iri, ok := n.(rdf.IRI)
	if !ok {
		return "", fmt.Errorf("graph %q is not an IRI", text)
	}
	return iri, nil
}

func (h *Harness) triple(terms []string) (rdf.Triple, error) {
	var nodes [3]rdf.Node
	for i, text := range terms {
		n, err := rdf.ParseTerm(text, h.ns)
		if err != nil {
			return rdf.Triple{}, err
		}
		nodes[i] = n
	}
	return rdf.NewTriple(nodes[0], nodes[1], nodes[2]), nil
}

func tripleStrings(g *rdf.Graph) []string {
	var out []string
	for _, t := range g.Triples() {
		out = append(out, t.String())
	}
	slices.Sort(out)
	return out
}
