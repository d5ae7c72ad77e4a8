package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quarry/internal/rdf"
)

const ex = "http://example.org/"

func TestCompileMatch_BoundSlots(t *testing.T) {
	compiler := NewCompiler()

	sql, params, err := compiler.CompileMatch(Pattern{
		Graph:     rdf.IRI(ex + "g"),
		Predicate: rdf.IRI(ex + "name"),
		Object:    rdf.NewLangLiteral("Ann", "EN"),
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM quads")
	assert.Contains(t, sql, "WHERE graph = ? AND predicate = ? AND object = ?")
	assert.NotContains(t, sql, "subject = ?")
	assert.NotContains(t, sql, "Ann")
	assert.Equal(t, []any{ex + "g", "<" + ex + "name>", `"Ann"@en`}, params)
}

func TestCompileMatch_OrderByMandatory(t *testing.T) {
	compiler := NewCompiler()
	patterns := []Pattern{
		{},
		{Graph: rdf.IRI(ex + "g")},
		{Subject: rdf.IRI(ex + "a"), Predicate: rdf.IRI(ex + "p"), Object: rdf.IRI(ex + "b")},
	}
	for _, p := range patterns {
		sql, _, err := compiler.CompileMatch(p)
		require.NoError(t, err)
		assert.Contains(t, sql, "ORDER BY subject COLLATE BINARY ASC")
	}
}

func TestCompileMatch_DefaultGraphIsEmptyName(t *testing.T) {
	_, params, err := NewCompiler().CompileMatch(Pattern{})
	require.NoError(t, err)
	assert.Equal(t, []any{""}, params)
}

func TestCompileMatch_RejectsVariables(t *testing.T) {
	_, _, err := NewCompiler().CompileMatch(Pattern{Subject: rdf.Variable("s")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "?s")
}

func TestCompileDeleteAndCount(t *testing.T) {
	compiler := &Compiler{Table: "staging"}
	p := Pattern{Graph: rdf.IRI(ex + "g"), Subject: rdf.Blank("b1")}

	sql, params, err := compiler.CompileDelete(p)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM staging WHERE graph = ? AND subject = ?", sql)
	assert.Equal(t, []any{ex + "g", "_:b1"}, params)

	sql, _, err = compiler.CompileCount(p)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM staging WHERE graph = ? AND subject = ?", sql)
}

func TestCompileInsert(t *testing.T) {
	compiler := NewCompiler()
	tr := rdf.NewTriple(rdf.IRI(ex+"a"), rdf.IRI(ex+"age"), rdf.NewTypedLiteral("30", rdf.XSDInteger))

	sql, params, err := compiler.CompileInsert(rdf.IRI(ex+"g"), tr)
	require.NoError(t, err)
	assert.Contains(t, sql, "ON CONFLICT DO NOTHING")
	assert.Len(t, params, 4)
	assert.Equal(t, `"30"^^<http://www.w3.org/2001/XMLSchema#integer>`, params[3])

	_, _, err = compiler.CompileInsert("", rdf.NewTriple(rdf.NewLiteral("x"), rdf.IRI(ex+"p"), rdf.IRI(ex+"o")))
	assert.Error(t, err)
}

func TestCompilePredicate_UnknownColumn(t *testing.T) {
	_, _, err := NewCompiler().compilePredicate(equals{Column: "id; DROP TABLE quads", Value: "x"})
	require.Error(t, err)
}

func TestTermCodec(t *testing.T) {
	terms := []rdf.Node{
		rdf.IRI(ex + "a"),
		rdf.Blank("b1"),
		rdf.NewLiteral("plain \"quoted\"\nline"),
		rdf.NewLangLiteral("chat", "fr"),
		rdf.NewTypedLiteral("1.5", rdf.XSDDecimal),
	}
	for _, n := range terms {
		got, err := DecodeTerm(EncodeTerm(n))
		require.NoError(t, err)
		assert.True(t, rdf.Equal(n, got), "%s round-tripped to %s", n, got)
	}

	_, err := DecodeTerm("not a term")
	assert.Error(t, err)
}
