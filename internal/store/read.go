package store

import (
	"context"
	"fmt"

	"github.com/roach88/quarry/internal/dataset"
	"github.com/roach88/quarry/internal/querysql"
	"github.com/roach88/quarry/internal/rdf"
)

// LoadGraph reads a whole graph. A missing graph loads as empty.
func (s *SQLite) LoadGraph(ctx context.Context, name rdf.IRI) (*rdf.Graph, error) {
	ts, err := s.match(ctx, querysql.Pattern{Graph: name})
	if err != nil {
		return nil, fmt.Errorf("load graph %s: %w", name, err)
	}
	return rdf.NewGraphFromTriples(name, ts...), nil
}

// HasGraph reports whether a graph exists. The default graph always exists.
func (s *SQLite) HasGraph(ctx context.Context, name rdf.IRI) (bool, error) {
	if name == rdf.DefaultGraph {
		return true, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM graphs WHERE name = ?`, string(name)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("has graph %s: %w", name, err)
	}
	return n > 0, nil
}

// GraphNames lists the named graphs in name order, excluding the default
// graph. Returns an empty slice (not nil) when there are none.
func (s *SQLite) GraphNames(ctx context.Context) ([]rdf.IRI, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM graphs
		WHERE name != ''
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query graphs: %w", err)
	}
	defer rows.Close()

	names := []rdf.IRI{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan graph name: %w", err)
		}
		names = append(names, rdf.IRI(name))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate graphs: %w", err)
	}
	return names, nil
}

// CountTriples returns the number of triples in one graph.
func (s *SQLite) CountTriples(ctx context.Context, name rdf.IRI) (int, error) {
	query, params, err := s.compiler.CompileCount(querysql.Pattern{Graph: name})
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count triples in %s: %w", name, err)
	}
	return n, nil
}

func (s *SQLite) match(ctx context.Context, p querysql.Pattern) ([]rdf.Triple, error) {
	query, params, err := s.compiler.CompileMatch(p)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query quads: %w", err)
	}
	defer rows.Close()
	return scanTriples(rows)
}

// Dataset returns a query view that reads through to the database.
func (s *SQLite) Dataset() dataset.Source {
	return sqlSource{s: s}
}

// sqlSource adapts SQLite to dataset.Source. The evaluator's source
// interface carries no context, so lookups run under context.Background.
type sqlSource struct {
	s *SQLite
}

func (src sqlSource) GraphNames() ([]rdf.IRI, error) {
	return src.s.GraphNames(context.Background())
}

func (src sqlSource) HasGraph(name rdf.IRI) (bool, error) {
	return src.s.HasGraph(context.Background(), name)
}

func (src sqlSource) MatchGraph(name rdf.IRI, s, p, o rdf.Node) ([]rdf.Triple, error) {
	return src.s.match(context.Background(), querysql.Pattern{
		Graph:     name,
		Subject:   wildcard(s),
		Predicate: wildcard(p),
		Object:    wildcard(o),
	})
}
