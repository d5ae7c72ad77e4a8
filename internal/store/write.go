package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/quarry/internal/querysql"
	"github.com/roach88/quarry/internal/rdf"
)

// SaveGraph replaces the stored contents of g's graph with g, creating the
// graph when missing.
func (s *SQLite) SaveGraph(ctx context.Context, g *rdf.Graph) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureGraph(ctx, tx, g.Name()); err != nil {
			return err
		}
		query, params, err := s.compiler.CompileDelete(querysql.Pattern{Graph: g.Name()})
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, params...); err != nil {
			return fmt.Errorf("clear graph: %w", err)
		}
		return s.insert(ctx, tx, g.Name(), g.Triples())
	})
	if err != nil {
		return fmt.Errorf("save graph %s: %w", g.Name(), err)
	}
	return nil
}

// UpdateGraph removes, then adds, triples in one transaction, creating the
// graph when missing.
func (s *SQLite) UpdateGraph(ctx context.Context, name rdf.IRI, additions, removals []rdf.Triple) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureGraph(ctx, tx, name); err != nil {
			return err
		}
		for _, t := range removals {
			query, params, err := s.compiler.CompileDelete(querysql.Pattern{
				Graph: name, Subject: t.Subject, Predicate: t.Predicate, Object: t.Object,
			})
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, params...); err != nil {
				return fmt.Errorf("delete quad: %w", err)
			}
		}
		return s.insert(ctx, tx, name, additions)
	})
	if err != nil {
		return fmt.Errorf("update graph %s: %w", name, err)
	}
	return nil
}

// DeleteGraph removes a graph and its triples. Deleting the default graph
// empties it.
func (s *SQLite) DeleteGraph(ctx context.Context, name rdf.IRI) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if name != rdf.DefaultGraph {
			_, err := tx.ExecContext(ctx, `DELETE FROM graphs WHERE name = ?`, string(name))
			return err
		}
		query, params, err := s.compiler.CompileDelete(querysql.Pattern{Graph: name})
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, query, params...)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete graph %s: %w", name, err)
	}
	return nil
}

func (s *SQLite) insert(ctx context.Context, tx *sql.Tx, name rdf.IRI, ts []rdf.Triple) error {
	for _, t := range ts {
		query, params, err := s.compiler.CompileInsert(name, t)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, params...); err != nil {
			return fmt.Errorf("insert quad: %w", err)
		}
	}
	return nil
}

// ensureGraph uses ON CONFLICT DO NOTHING so existing graphs are untouched.
func ensureGraph(ctx context.Context, tx *sql.Tx, name rdf.IRI) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO graphs (name) VALUES (?)
		ON CONFLICT(name) DO NOTHING
	`, string(name))
	if err != nil {
		return fmt.Errorf("create graph: %w", err)
	}
	return nil
}
