package sparql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/exprparser"
	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/update"
)

func TestParseUpdate_CommandSequence(t *testing.T) {
	cmds, err := (&Parser{}).ParseUpdate(prologue + `
		INSERT DATA { ex:a ex:p "x" . GRAPH ex:g { ex:b ex:p 1 } } ;
		DELETE WHERE { ?s ex:p ?o GRAPH ?g { ?s ex:q ?o } } ;
		CLEAR SILENT GRAPH ex:g ;
		DROP ALL ;
		CREATE GRAPH <http://x/g> ;
		LOAD SILENT <http://x/src> INTO GRAPH <http://x/dst>`)
	require.NoError(t, err)
	require.Len(t, cmds, 6)

	ins, ok := cmds[0].(*update.InsertData)
	require.True(t, ok, "%T", cmds[0])
	assert.Len(t, ins.Data.Default, 1)
	require.Len(t, ins.Data.Graphs, 1)
	assert.Equal(t, algebra.Const(ex("g")), ins.Data.Graphs[0].Graph)

	dw, ok := cmds[1].(*update.Modify)
	require.True(t, ok, "%T", cmds[1])
	assert.Equal(t, "DELETE", dw.Name())
	j, ok := dw.Where.(*algebra.Join)
	require.True(t, ok, "%T", dw.Where)
	assert.IsType(t, &algebra.Graph{}, j.Right)

	assert.Equal(t, &update.Clear{Target: update.Target{Kind: update.TargetGraph, Graph: ex("g")}, Silent: true}, cmds[2])
	assert.Equal(t, &update.Drop{Target: update.Target{Kind: update.TargetAll}}, cmds[3])
	assert.Equal(t, &update.Create{Graph: rdf.IRI("http://x/g")}, cmds[4])
	assert.Equal(t, &update.Load{Source: "http://x/src", Into: "http://x/dst", Silent: true}, cmds[5])
}

func TestParseUpdate_Modify(t *testing.T) {
	cmds, err := (&Parser{}).ParseUpdate(prologue + `
		WITH ex:g
		DELETE { ?s ex:p ?o }
		INSERT { ?s ex:q ?o . GRAPH ?h { ?s ex:seen true } }
		USING ex:src USING NAMED ex:n
		WHERE { ?s ex:p ?o OPTIONAL { ?s ex:home ?h } }`)
	require.NoError(t, err)
	require.Len(t, cmds, 1)

	m, ok := cmds[0].(*update.Modify)
	require.True(t, ok)
	assert.Equal(t, "MODIFY", m.Name())
	assert.Equal(t, ex("g"), m.With)
	assert.Equal(t, []rdf.IRI{ex("src")}, m.Using)
	assert.Equal(t, []rdf.IRI{ex("n")}, m.UsingNamed)
	assert.Len(t, m.Delete.Default, 1)
	require.Len(t, m.Insert.Graphs, 1)
	assert.Equal(t, algebra.Var("h"), m.Insert.Graphs[0].Graph)
	assert.IsType(t, &algebra.LeftJoin{}, m.Where)
}

func TestParseUpdate_PrologueBetweenCommands(t *testing.T) {
	cmds, err := (&Parser{}).ParseUpdate(`
		PREFIX a: <http://a/> INSERT DATA { a:s a:p a:o } ;
		PREFIX b: <http://b/> INSERT DATA { b:s a:p b:o }`)
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	second := cmds[1].(*update.InsertData)
	assert.Equal(t, algebra.Const(rdf.IRI("http://b/s")), second.Data.Default[0].Subject)
	assert.Equal(t, algebra.Const(rdf.IRI("http://a/p")), second.Data.Default[0].Predicate)
}

func TestParseUpdate_Empty(t *testing.T) {
	cmds, err := (&Parser{}).ParseUpdate("  # nothing to do\n")
	require.NoError(t, err)
	assert.Empty(t, cmds)
}

func TestParseUpdate_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"modify without where", `INSERT { ?s ex:p ?o }`},
		{"clear without graph keyword", `CLEAR <http://x/g>`},
		{"create without graph keyword", `CREATE <http://x/g>`},
		{"with without template", `WITH ex:g WHERE { }`},
		{"path in template", `INSERT { ?s ex:p* ?o } WHERE { }`},
		{"query keyword", `SELECT * { }`},
		{"missing separator", `CLEAR ALL DROP ALL`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&Parser{}).ParseUpdate(prologue + tt.text)
			require.Error(t, err)
			assert.True(t, exprparser.IsParseError(err), "got %v", err)
		})
	}
}
