package update

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/dataset"
	"github.com/roach88/quarry/internal/eval"
	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/solution"
)

// Processor applies commands to a Store.
type Processor struct {
	store      Store
	retriever  Retriever
	bestEffort bool
	logger     *slog.Logger
	evalOpts   []eval.Option
}

// Option configures a Processor.
type Option func(*Processor)

// WithRetriever sets the source of LOAD graphs.
func WithRetriever(r Retriever) Option {
	return func(p *Processor) { p.retriever = r }
}

// WithBestEffort makes ProcessAll log and skip failing commands instead of
// stopping at the first failure.
func WithBestEffort(on bool) Option {
	return func(p *Processor) { p.bestEffort = on }
}

// WithLogger sets the processor logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithEvalOptions passes options to the evaluator used for WHERE clauses.
func WithEvalOptions(opts ...eval.Option) Option {
	return func(p *Processor) { p.evalOpts = append(p.evalOpts, opts...) }
}

// NewProcessor creates a processor over store.
func NewProcessor(store Store, opts ...Option) *Processor {
	p := &Processor{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Report summarizes a ProcessAll run.
type Report struct {
	Applied int
	// Skipped holds the failures tolerated in best-effort mode.
	Skipped []error
}

// ProcessAll runs cmds in order. Without best-effort it stops at the first
// failure; earlier commands stay applied.
func (p *Processor) ProcessAll(ctx context.Context, cmds []Command) (Report, error) {
	var rep Report
	for i, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return rep, fmt.Errorf("update interrupted before command %d: %w", i, err)
		}
		if err := p.Process(ctx, cmd); err != nil {
			if !p.bestEffort {
				return rep, err
			}
			p.logger.Warn("update command skipped",
				"index", i,
				"command", cmd.Name(),
				"error", err)
			rep.Skipped = append(rep.Skipped, err)
			continue
		}
		rep.Applied++
	}
	return rep, nil
}

// Process runs one command.
func (p *Processor) Process(ctx context.Context, cmd Command) error {
	p.logger.Debug("update command", "command", cmd.Name())
	switch c := cmd.(type) {
	case *InsertData:
		return p.insertData(ctx, c)
	case *DeleteData:
		return p.deleteData(ctx, c)
	case *Modify:
		return p.modify(ctx, c)
	case *Load:
		return p.load(ctx, c)
	case *Clear:
		return p.clear(ctx, c)
	case *Create:
		return p.create(ctx, c)
	case *Drop:
		return p.drop(ctx, c)
	}
	return &UpdateError{
		Code:    CodeUnsupportedCommand,
		Command: fmt.Sprintf("%T", cmd),
		Message: "unknown command type",
	}
}

// delta collects per-graph changes in first-touched order.
type delta struct {
	order     []rdf.IRI
	additions map[rdf.IRI][]rdf.Triple
	removals  map[rdf.IRI][]rdf.Triple
}

func newDelta() *delta {
	return &delta{additions: map[rdf.IRI][]rdf.Triple{}, removals: map[rdf.IRI][]rdf.Triple{}}
}

func (d *delta) touch(g rdf.IRI) {
	if _, ok := d.additions[g]; ok {
		return
	}
	if _, ok := d.removals[g]; ok {
		return
	}
	d.order = append(d.order, g)
}

func (d *delta) add(g rdf.IRI, ts []rdf.Triple) {
	if len(ts) == 0 {
		return
	}
	d.touch(g)
	d.additions[g] = append(d.additions[g], ts...)
}

func (d *delta) remove(g rdf.IRI, ts []rdf.Triple) {
	if len(ts) == 0 {
		return
	}
	d.touch(g)
	d.removals[g] = append(d.removals[g], ts...)
}

// apply writes the delta, removals before additions in each graph.
func (p *Processor) apply(ctx context.Context, cmd Command, d *delta) error {
	incremental := p.store.Capabilities().IncrementalUpdate
	for _, g := range d.order {
		adds, rems := d.additions[g], d.removals[g]
		if incremental {
			if err := p.store.UpdateGraph(ctx, g, adds, rems); err != nil {
				return newError(CodeStoreFailure, cmd, g, err, "incremental update failed")
			}
			continue
		}
		graph, err := p.store.LoadGraph(ctx, g)
		if err != nil {
			return newError(CodeStoreFailure, cmd, g, err, "load failed")
		}
		graph.Retract(rems...)
		graph.Assert(adds...)
		if err := p.store.SaveGraph(ctx, graph); err != nil {
			return newError(CodeStoreFailure, cmd, g, err, "save failed")
		}
	}
	p.logger.Debug("update applied", "command", cmd.Name(), "graphs", len(d.order))
	return nil
}

// minter returns a blank-node factory for one instantiation context. Labels
// carry the context id so they stay distinct once scopes are dropped.
func minter() func() rdf.BlankNode {
	id := uuid.Must(uuid.NewV7())
	prefix := "b" + strings.ReplaceAll(id.String(), "-", "")
	n := 0
	return func() rdf.BlankNode {
		n++
		return rdf.BlankNode{ID: fmt.Sprintf("%s_%d", prefix, n), Scope: id.String()}
	}
}

// groundData checks that a DATA template holds only constants, allowing
// blank items when blanks is set.
func groundData(cmd Command, t *Template, blanks bool) error {
	if vars := t.variables(); len(vars) > 0 {
		return newError(CodeNonGroundData, cmd, "", nil, "variable ?%s not allowed in data", vars[0])
	}
	if !blanks && t.hasBlanks() {
		return newError(CodeNonGroundData, cmd, "", nil, "blank nodes not allowed in data")
	}
	return nil
}

func (p *Processor) insertData(ctx context.Context, c *InsertData) error {
	if err := groundData(c, &c.Data, true); err != nil {
		return err
	}
	d := newDelta()
	empty := solution.New()
	mint := minter()
	ts, err := dataTriples(c, rdf.DefaultGraph, c.Data.Default, mint)
	if err != nil {
		return err
	}
	d.add(rdf.DefaultGraph, ts)
	for _, gt := range c.Data.Graphs {
		g, ok := graphName(gt.Graph, empty)
		if !ok {
			return newError(CodeNonGroundData, c, "", nil, "graph %s is not an IRI", gt.Graph)
		}
		ts, err := dataTriples(c, g, gt.Triples, mint)
		if err != nil {
			return err
		}
		d.add(g, ts)
	}
	return p.apply(ctx, c, d)
}

func (p *Processor) deleteData(ctx context.Context, c *DeleteData) error {
	if err := groundData(c, &c.Data, false); err != nil {
		return err
	}
	d := newDelta()
	empty := solution.New()
	ts, err := dataTriples(c, rdf.DefaultGraph, c.Data.Default, nil)
	if err != nil {
		return err
	}
	d.remove(rdf.DefaultGraph, ts)
	for _, gt := range c.Data.Graphs {
		g, ok := graphName(gt.Graph, empty)
		if !ok {
			return newError(CodeNonGroundData, c, "", nil, "graph %s is not an IRI", gt.Graph)
		}
		ts, err := dataTriples(c, g, gt.Triples, nil)
		if err != nil {
			return err
		}
		d.remove(g, ts)
	}
	return p.apply(ctx, c, d)
}

// dataTriples instantiates the ground template of a DATA command. A triple
// that is not valid RDF, such as a literal subject, fails the whole command.
func dataTriples(cmd Command, graph rdf.IRI, template []*algebra.Match, mint func() rdf.BlankNode) ([]rdf.Triple, error) {
	ts, skipped := eval.Instantiate(template, solution.New(), mint)
	if skipped > 0 {
		return nil, newError(CodeNonGroundData, cmd, graph, nil, "%d triples are not valid RDF", skipped)
	}
	return ts, nil
}

// graphName resolves a GRAPH specifier under sol. It reports false when the
// specifier is not bound to an IRI.
func graphName(spec algebra.PatternItem, sol *solution.Solution) (rdf.IRI, bool) {
	iri, ok := algebra.Resolve(spec, sol).(rdf.IRI)
	return iri, ok
}

func (p *Processor) modify(ctx context.Context, c *Modify) error {
	if !p.store.Capabilities().Query {
		return newError(CodeQueryUnsupported, c, "", nil, "store cannot evaluate WHERE clauses")
	}
	if c.Where == nil {
		return newError(CodeUnsupportedCommand, c, "", nil, "missing WHERE clause")
	}

	defaults := c.Using
	if len(defaults) == 0 && c.With != "" {
		defaults = []rdf.IRI{c.With}
	}
	handle := dataset.NewHandleWithDefault(p.store.Dataset(), defaults)
	opts := append([]eval.Option{eval.WithLogger(p.logger)}, p.evalOpts...)
	if len(c.UsingNamed) > 0 {
		opts = append(opts, eval.WithNamedGraphs(c.UsingNamed...))
	}
	ms, err := eval.New(handle, opts...).Evaluate(ctx, c.Where)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return newError(CodeUnsupportedCommand, c, "", err, "WHERE evaluation failed")
	}

	target := c.With
	d := newDelta()
	for _, sol := range ms.Solutions() {
		if c.Delete != nil {
			instantiate(c.Delete, sol, target, nil, d.remove)
		}
	}
	for _, sol := range ms.Solutions() {
		if c.Insert != nil {
			instantiate(c.Insert, sol, target, minter(), d.add)
		}
	}
	p.logger.Debug("modify matched", "solutions", ms.Len())
	return p.apply(ctx, c, d)
}

// instantiate expands t under sol. A triple group with any unbound triple is
// dropped for this solution, and a graph sub-template whose specifier is not
// bound to an IRI is skipped.
func instantiate(t *Template, sol *solution.Solution, target rdf.IRI, mint func() rdf.BlankNode, emit func(rdf.IRI, []rdf.Triple)) {
	if mint == nil {
		mint = minter()
	}
	if ts, skipped := eval.Instantiate(t.Default, sol, mint); skipped == 0 {
		emit(target, ts)
	}
	for _, gt := range t.Graphs {
		g, ok := graphName(gt.Graph, sol)
		if !ok {
			continue
		}
		if ts, skipped := eval.Instantiate(gt.Triples, sol, mint); skipped == 0 {
			emit(g, ts)
		}
	}
}

func (p *Processor) load(ctx context.Context, c *Load) error {
	if p.retriever == nil {
		return p.silence(c, c.Silent, newError(CodeLoadFailure, c, c.Source, nil, "no retriever configured"))
	}
	src, err := p.retriever.Retrieve(ctx, c.Source)
	if err != nil {
		return p.silence(c, c.Silent, newError(CodeLoadFailure, c, c.Source, err, "retrieval failed"))
	}
	if p.store.Capabilities().IncrementalUpdate {
		if err := p.store.UpdateGraph(ctx, c.Into, src.Triples(), nil); err != nil {
			return newError(CodeStoreFailure, c, c.Into, err, "incremental update failed")
		}
		return nil
	}
	dst, err := p.store.LoadGraph(ctx, c.Into)
	if err != nil {
		return newError(CodeStoreFailure, c, c.Into, err, "load failed")
	}
	dst.Merge(src)
	if err := p.store.SaveGraph(ctx, dst); err != nil {
		return newError(CodeStoreFailure, c, c.Into, err, "save failed")
	}
	return nil
}

// targets expands a CLEAR/DROP target into graph names.
func (p *Processor) targets(ctx context.Context, cmd Command, t Target, silent bool) ([]rdf.IRI, error) {
	switch t.Kind {
	case TargetDefault:
		return []rdf.IRI{rdf.DefaultGraph}, nil
	case TargetNamed, TargetAll:
		names, err := p.store.GraphNames(ctx)
		if err != nil {
			return nil, newError(CodeStoreFailure, cmd, "", err, "listing graphs failed")
		}
		if t.Kind == TargetAll {
			names = append([]rdf.IRI{rdf.DefaultGraph}, names...)
		}
		return names, nil
	}
	ok, err := p.store.HasGraph(ctx, t.Graph)
	if err != nil {
		return nil, newError(CodeStoreFailure, cmd, t.Graph, err, "existence check failed")
	}
	if !ok {
		return nil, p.silence(cmd, silent, newError(CodeGraphNotFound, cmd, t.Graph, nil, "graph does not exist"))
	}
	return []rdf.IRI{t.Graph}, nil
}

func (p *Processor) clear(ctx context.Context, c *Clear) error {
	names, err := p.targets(ctx, c, c.Target, c.Silent)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := p.store.SaveGraph(ctx, rdf.NewGraph(name)); err != nil {
			return newError(CodeStoreFailure, c, name, err, "save failed")
		}
	}
	return nil
}

func (p *Processor) drop(ctx context.Context, c *Drop) error {
	names, err := p.targets(ctx, c, c.Target, c.Silent)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := p.store.DeleteGraph(ctx, name); err != nil {
			return newError(CodeStoreFailure, c, name, err, "delete failed")
		}
	}
	return nil
}

func (p *Processor) create(ctx context.Context, c *Create) error {
	ok, err := p.store.HasGraph(ctx, c.Graph)
	if err != nil {
		return newError(CodeStoreFailure, c, c.Graph, err, "existence check failed")
	}
	if ok {
		return p.silence(c, c.Silent, newError(CodeGraphExists, c, c.Graph, nil, "graph already exists"))
	}
	if err := p.store.SaveGraph(ctx, rdf.NewGraph(c.Graph)); err != nil {
		return newError(CodeStoreFailure, c, c.Graph, err, "save failed")
	}
	return nil
}

// silence drops err when the command is SILENT.
func (p *Processor) silence(cmd Command, silent bool, err error) error {
	if !silent || err == nil {
		return err
	}
	p.logger.Debug("silent command suppressed error", "command", cmd.Name(), "error", err)
	return nil
}
