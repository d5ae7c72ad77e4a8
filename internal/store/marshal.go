package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/quarry/internal/querysql"
	"github.com/roach88/quarry/internal/rdf"
)

// scanTriples reads (subject, predicate, object) rows.
// Returns an empty slice (not nil) when there are no rows.
func scanTriples(rows *sql.Rows) ([]rdf.Triple, error) {
	out := []rdf.Triple{}
	for rows.Next() {
		var s, p, o string
		if err := rows.Scan(&s, &p, &o); err != nil {
			return nil, fmt.Errorf("scan quad: %w", err)
		}
		t, err := decodeTriple(s, p, o)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quads: %w", err)
	}
	return out, nil
}

func decodeTriple(s, p, o string) (rdf.Triple, error) {
	var terms [3]rdf.Node
	for i, raw := range []string{s, p, o} {
		n, err := querysql.DecodeTerm(raw)
		if err != nil {
			return rdf.Triple{}, err
		}
		terms[i] = n
	}
	return rdf.NewTriple(terms[0], terms[1], terms[2]), nil
}

// wildcard maps variables to nil so they match anything.
func wildcard(n rdf.Node) rdf.Node {
	if n == nil || n.Kind() == rdf.KindVariable {
		return nil
	}
	return n
}
