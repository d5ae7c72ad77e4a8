package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/quarry/internal/rdf"
)

const ex = "http://example.org/"

func iri(local string) rdf.IRI { return rdf.IRI(ex + local) }

// createTestStore creates a new SQLite store in a temporary directory.
func createTestStore(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// stores returns one fresh store per driver.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		DriverMemory: NewMemory(),
		DriverSQLite: createTestStore(t),
	}
}

// sampleGraph mixes IRIs, literals and a blank node.
func sampleGraph(name rdf.IRI) *rdf.Graph {
	return rdf.NewGraphFromTriples(name,
		rdf.NewTriple(iri("a"), iri("name"), rdf.NewLangLiteral("Ann", "en")),
		rdf.NewTriple(iri("a"), iri("age"), rdf.NewTypedLiteral("30", rdf.XSDInteger)),
		rdf.NewTriple(iri("a"), iri("address"), rdf.Blank("addr")),
		rdf.NewTriple(rdf.Blank("addr"), iri("city"), rdf.NewLiteral("Oslo \"Norway\"")),
	)
}
