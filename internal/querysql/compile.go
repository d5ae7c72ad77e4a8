// Package querysql compiles quad-pattern lookups into parameterized SQLite
// SQL over the quads table of the SQLite store.
//
// Every statement orders its rows with an explicit ORDER BY so results are
// deterministic, and every term is passed as a ? parameter, never
// interpolated.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/quarry/internal/rdf"
)

// Column names of the quads table.
const (
	ColumnGraph     = "graph"
	ColumnSubject   = "subject"
	ColumnPredicate = "predicate"
	ColumnObject    = "object"
)

var columns = map[string]bool{
	ColumnGraph:     true,
	ColumnSubject:   true,
	ColumnPredicate: true,
	ColumnObject:    true,
}

// Pattern is one lookup in a single graph. Nil term slots are wildcards.
type Pattern struct {
	Graph     rdf.IRI
	Subject   rdf.Node
	Predicate rdf.Node
	Object    rdf.Node
}

// Compiler compiles patterns to SQL.
type Compiler struct {
	// Table is the quads table name. Empty means "quads".
	Table string
}

// NewCompiler creates a Compiler over the default quads table.
func NewCompiler() *Compiler {
	return &Compiler{Table: "quads"}
}

func (c *Compiler) table() string {
	if c.Table == "" {
		return "quads"
	}
	return c.Table
}

// predicate is a WHERE-clause fragment.
type predicate interface{ predicate() }

type equals struct {
	Column string
	Value  string
}

type and struct{ Predicates []predicate }

func (equals) predicate() {}
func (and) predicate()    {}

// CompileMatch compiles a pattern to a SELECT of subject, predicate and
// object, ordered by subject, predicate, object.
func (c *Compiler) CompileMatch(p Pattern) (string, []any, error) {
	where, err := patternPredicate(p)
	if err != nil {
		return "", nil, err
	}
	cond, params, err := c.compilePredicate(where)
	if err != nil {
		return "", nil, fmt.Errorf("compile match: %w", err)
	}
	sql := fmt.Sprintf("SELECT %s, %s, %s FROM %s WHERE %s ORDER BY %s",
		ColumnSubject, ColumnPredicate, ColumnObject,
		c.table(), cond, stableOrderKey())
	return sql, params, nil
}

// CompileCount compiles a pattern to a SELECT COUNT(*).
func (c *Compiler) CompileCount(p Pattern) (string, []any, error) {
	where, err := patternPredicate(p)
	if err != nil {
		return "", nil, err
	}
	cond, params, err := c.compilePredicate(where)
	if err != nil {
		return "", nil, fmt.Errorf("compile count: %w", err)
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", c.table(), cond), params, nil
}

// CompileDelete compiles a pattern to a DELETE of the matching rows.
func (c *Compiler) CompileDelete(p Pattern) (string, []any, error) {
	where, err := patternPredicate(p)
	if err != nil {
		return "", nil, err
	}
	cond, params, err := c.compilePredicate(where)
	if err != nil {
		return "", nil, fmt.Errorf("compile delete: %w", err)
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", c.table(), cond), params, nil
}

// CompileInsert compiles the insertion of one triple into a graph.
// Existing rows are left alone.
func (c *Compiler) CompileInsert(graph rdf.IRI, t rdf.Triple) (string, []any, error) {
	if err := t.Validate(); err != nil {
		return "", nil, fmt.Errorf("compile insert: %w", err)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s, %s, %s, %s) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING",
		c.table(), ColumnGraph, ColumnSubject, ColumnPredicate, ColumnObject)
	return sql, []any{string(graph), EncodeTerm(t.Subject), EncodeTerm(t.Predicate), EncodeTerm(t.Object)}, nil
}

func patternPredicate(p Pattern) (predicate, error) {
	preds := []predicate{equals{Column: ColumnGraph, Value: string(p.Graph)}}
	slots := []struct {
		column string
		node   rdf.Node
	}{
		{ColumnSubject, p.Subject},
		{ColumnPredicate, p.Predicate},
		{ColumnObject, p.Object},
	}
	for _, s := range slots {
		if s.node == nil {
			continue
		}
		if s.node.Kind() == rdf.KindVariable {
			return nil, fmt.Errorf("variable %s cannot be matched in SQL; leave the slot nil", s.node)
		}
		preds = append(preds, equals{Column: s.column, Value: EncodeTerm(s.node)})
	}
	return and{Predicates: preds}, nil
}

// compilePredicate compiles a predicate to a WHERE fragment and parameters.
func (c *Compiler) compilePredicate(p predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case equals:
		if !columns[pred.Column] {
			return "", nil, fmt.Errorf("unknown column %q", pred.Column)
		}
		return pred.Column + " = ?", []any{pred.Value}, nil
	case and:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			sql, ps, err := c.compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			params = append(params, ps...)
		}
		return strings.Join(parts, " AND "), params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// stableOrderKey uses COLLATE BINARY for deterministic text ordering.
func stableOrderKey() string {
	return ColumnSubject + " COLLATE BINARY ASC, " +
		ColumnPredicate + " COLLATE BINARY ASC, " +
		ColumnObject + " COLLATE BINARY ASC"
}

// EncodeTerm renders a term for storage in a quads column.
// Blank nodes keep their label and lose their scope.
func EncodeTerm(n rdf.Node) string {
	return rdf.FormatTerm(n)
}

// DecodeTerm parses a stored term.
func DecodeTerm(s string) (rdf.Node, error) {
	n, err := rdf.ParseTerm(s, nil)
	if err != nil {
		return nil, fmt.Errorf("decode term %q: %w", s, err)
	}
	return n, nil
}
