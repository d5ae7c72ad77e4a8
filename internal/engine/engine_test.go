package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/config"
	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/stats"
	"github.com/roach88/quarry/internal/store"
	"github.com/roach88/quarry/internal/testutil"
	"github.com/roach88/quarry/internal/update"
)

const ex = "http://example.org/"

func iri(local string) rdf.IRI { return rdf.IRI(ex + local) }

const people = `
PREFIX ex: <http://example.org/>
INSERT DATA {
  ex:a ex:name "Ann" ; ex:knows ex:b .
  ex:b ex:name "Bob" .
  GRAPH ex:keep1 { ex:a ex:age 30 }
  GRAPH ex:drop1 { ex:b ex:age 41 }
}`

func newEngine(t *testing.T, cfg *config.Config, opts ...Option) *Engine {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	opts = append([]Option{
		WithConfig(cfg),
		WithIDGenerator(testutil.NewSequentialIDs("q")),
		WithNow(testutil.NewDeterministicClock(time.Millisecond).Now),
	}, opts...)
	e, err := New(store.NewMemory(), opts...)
	require.NoError(t, err)
	_, err = e.Update(context.Background(), people)
	require.NoError(t, err)
	return e
}

func column(r *Result, name string) []rdf.Node {
	var out []rdf.Node
	for _, s := range r.Solutions.Solutions() {
		n, _ := s.Get(name)
		out = append(out, n)
	}
	return out
}

func TestEngine_Query(t *testing.T) {
	e := newEngine(t, nil)
	ctx := context.Background()

	res, err := e.Query(ctx, `PREFIX ex: <http://example.org/> SELECT ?n WHERE { ?p ex:name ?n } ORDER BY ?n`)
	require.NoError(t, err)
	assert.Equal(t, "q-2", res.ID, "the seeding update took q-1")
	assert.Equal(t, int64(2), res.Seq)
	assert.Equal(t, algebra.FormSelect, res.Form)
	assert.Equal(t, []string{"n"}, res.Variables)
	assert.Equal(t, []rdf.Node{rdf.NewLiteral("Ann"), rdf.NewLiteral("Bob")}, column(res, "n"))
	assert.False(t, res.Partial)
	assert.Positive(t, res.Duration)

	res, err = e.Query(ctx, `PREFIX ex: <http://example.org/> ASK { ex:a ex:knows ex:b }`)
	require.NoError(t, err)
	assert.True(t, res.Boolean)
	assert.Equal(t, 1, res.Len())

	res, err = e.Query(ctx, `PREFIX ex: <http://example.org/> CONSTRUCT { ?b ex:knownBy ?a } WHERE { ?a ex:knows ?b }`)
	require.NoError(t, err)
	require.NotNil(t, res.Graph)
	assert.True(t, res.Graph.Contains(rdf.NewTriple(iri("b"), iri("knownBy"), iri("a"))))
	assert.Equal(t, 1, res.Len())
}

func TestEngine_ConfiguredPrologue(t *testing.T) {
	cfg := config.Default()
	cfg.Namespaces = map[string]string{"ex": ex}
	e := newEngine(t, cfg)

	res, err := e.Query(context.Background(), `SELECT ?n WHERE { ex:b ex:name ?n }`)
	require.NoError(t, err)
	assert.Equal(t, []rdf.Node{rdf.NewLiteral("Bob")}, column(res, "n"))
}

func TestEngine_SelectRejectsOtherForms(t *testing.T) {
	e := newEngine(t, nil)
	_, err := e.Select(context.Background(), `ASK { ?s ?p ?o }`)
	require.Error(t, err)
	assert.True(t, IsUnsupportedFormError(err))
	assert.False(t, IsTimeoutError(err))
}

func TestEngine_ParseError(t *testing.T) {
	e := newEngine(t, nil)
	_, err := e.Query(context.Background(), `SELECT ?x WHERE { ?x`)
	assert.Error(t, err)
}

func TestEngine_NamedGraphPatterns(t *testing.T) {
	cfg := config.Default()
	cfg.Query.NamedGraphs = []string{ex + "keep*"}
	e := newEngine(t, cfg)
	ctx := context.Background()

	res, err := e.Query(ctx, `SELECT ?g WHERE { GRAPH ?g { ?s ?p ?o } }`)
	require.NoError(t, err)
	assert.Equal(t, []rdf.Node{iri("keep1")}, column(res, "g"))

	res, err = e.Query(ctx, `SELECT ?g FROM NAMED <http://example.org/drop1> WHERE { GRAPH ?g { ?s ?p ?o } }`)
	require.NoError(t, err)
	assert.Equal(t, []rdf.Node{iri("drop1")}, column(res, "g"), "FROM NAMED wins over the patterns")

	cfg = config.Default()
	cfg.Query.NamedGraphs = []string{"urn:nothing:*"}
	none := newEngine(t, cfg)
	res, err = none.Query(ctx, `SELECT ?g WHERE { GRAPH ?g { ?s ?p ?o } }`)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
}

func TestEngine_InvalidNamedGraphPattern(t *testing.T) {
	cfg := config.Default()
	cfg.Query.NamedGraphs = []string{"["}
	_, err := New(store.NewMemory(), WithConfig(cfg))
	assert.Error(t, err)
}

func crowded(n int) *rdf.Graph {
	g := rdf.NewGraph(rdf.DefaultGraph)
	for i := 0; i < n; i++ {
		g.Assert(rdf.NewTriple(iri(fmt.Sprintf("s%d", i)), iri("p"), iri(fmt.Sprintf("o%d", i))))
	}
	return g
}

const crossProduct = `PREFIX ex: <http://example.org/>
SELECT ?a ?c WHERE { ?a ex:p ?b . ?c ex:p ?d . ?e ex:p ?f }`

func TestEngine_Timeout(t *testing.T) {
	cfg := config.Default()
	cfg.Query.Timeout = config.Duration(time.Nanosecond)
	e, err := New(store.NewMemory(crowded(40)), WithConfig(cfg))
	require.NoError(t, err)

	_, err = e.Query(context.Background(), crossProduct)
	require.Error(t, err)
	assert.True(t, IsTimeoutError(err), "got %v", err)
}

func TestEngine_TimeoutWithPartialResults(t *testing.T) {
	cfg := config.Default()
	cfg.Query.Timeout = config.Duration(time.Nanosecond)
	cfg.Query.PartialResults = true
	e, err := New(store.NewMemory(crowded(40)), WithConfig(cfg))
	require.NoError(t, err)

	res, err := e.Query(context.Background(), crossProduct)
	require.NoError(t, err)
	assert.True(t, res.Partial)
	assert.Equal(t, []string{"a", "c"}, res.Variables)
	require.NotNil(t, res.Solutions)
	assert.Less(t, res.Len(), 40*40*40)

	_, err = e.Query(context.Background(), `PREFIX ex: <http://example.org/> ASK { ?a ex:p ?b . ?c ex:p ?d . ?e ex:p ?f }`)
	assert.True(t, IsTimeoutError(err), "only SELECT returns partial results")
}

func TestEngine_CancelledContextIsNotATimeout(t *testing.T) {
	e := newEngine(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Query(ctx, `SELECT * WHERE { ?s ?p ?o }`)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsTimeoutError(err))
}

func TestEngine_Update(t *testing.T) {
	e := newEngine(t, nil)
	ctx := context.Background()

	report, err := e.Update(ctx, `PREFIX ex: <http://example.org/>
DELETE { ?p ex:name ?n } INSERT { ?p ex:label ?n } WHERE { ?p ex:name ?n }`)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Applied)

	res, err := e.Query(ctx, `PREFIX ex: <http://example.org/> SELECT ?n WHERE { ?p ex:label ?n } ORDER BY ?n`)
	require.NoError(t, err)
	assert.Equal(t, []rdf.Node{rdf.NewLiteral("Ann"), rdf.NewLiteral("Bob")}, column(res, "n"))

	graphs, err := e.Graphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []rdf.IRI{iri("drop1"), iri("keep1")}, graphs)
}

func TestEngine_UpdateBestEffort(t *testing.T) {
	script := `PREFIX ex: <http://example.org/>
CREATE GRAPH ex:keep1 ;
INSERT DATA { ex:c ex:name "Cid" }`

	strict := newEngine(t, nil)
	_, err := strict.Update(context.Background(), script)
	require.Error(t, err)
	assert.True(t, update.IsUpdateError(err))

	cfg := config.Default()
	cfg.Update.BestEffort = true
	lenient := newEngine(t, cfg)
	report, err := lenient.Update(context.Background(), script)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Applied)
	assert.Len(t, report.Skipped, 1)
}

func TestEngine_LoadUsesRetriever(t *testing.T) {
	source := rdf.NewGraphFromTriples("http://remote/data",
		rdf.NewTriple(iri("z"), iri("name"), rdf.NewLiteral("Zed")))
	retriever := update.RetrieverFunc(func(ctx context.Context, src rdf.IRI) (*rdf.Graph, error) {
		return source.Rename(src), nil
	})
	e := newEngine(t, nil, WithRetriever(retriever))
	ctx := context.Background()

	_, err := e.Update(ctx, `LOAD <http://remote/data> INTO GRAPH <http://example.org/loaded>`)
	require.NoError(t, err)

	res, err := e.Query(ctx, `SELECT ?n WHERE { GRAPH <http://example.org/loaded> { ?s ?p ?n } }`)
	require.NoError(t, err)
	assert.Equal(t, []rdf.Node{rdf.NewLiteral("Zed")}, column(res, "n"))
}

func TestEngine_Statistics(t *testing.T) {
	cfg := config.Default()
	cfg.Stats.Enabled = true
	e := newEngine(t, cfg)

	_, err := e.Query(context.Background(), `SELECT * WHERE { ?s ?p ?o }`)
	require.NoError(t, err)

	records := e.Stats().Statistics()
	require.Len(t, records, 2)
	assert.Equal(t, stats.KindUpdate, records[0].Kind)
	assert.Equal(t, "q-1", records[0].Context)
	assert.Equal(t, 1, records[0].Results, "seeding ran one command")
	assert.Equal(t, stats.KindQuery, records[1].Kind)
	assert.Equal(t, "q-2", records[1].Context)
	assert.Equal(t, 3, records[1].Results)

	quiet := newEngine(t, nil)
	assert.Empty(t, quiet.Stats().Statistics(), "recording is off by default")
}

func TestEngine_Explain(t *testing.T) {
	e := newEngine(t, nil)
	plan, err := e.Explain(`PREFIX ex: <http://example.org/>
SELECT ?n WHERE { ?p ex:name ?n FILTER(?p = ex:a) }`)
	require.NoError(t, err)
	assert.Equal(t, "identity-filter", plan.Optimiser)
	assert.NotEqual(t, plan.Before.String(), plan.After.String())
	assert.Contains(t, plan.Before.String(), "?p")

	res, err := e.Query(context.Background(), `PREFIX ex: <http://example.org/>
SELECT ?p ?n WHERE { ?p ex:name ?n FILTER(?p = ex:a) }`)
	require.NoError(t, err)
	assert.Equal(t, []rdf.Node{iri("a")}, column(res, "p"), "the rewritten query still binds ?p")
	assert.Equal(t, []rdf.Node{rdf.NewLiteral("Ann")}, column(res, "n"))
}
