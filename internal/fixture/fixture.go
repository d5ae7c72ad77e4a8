// Package fixture reads RDF graphs from YAML files.
//
// A fixture file declares prefixes and a list of graphs, each triple
// written as three terms in the syntax of rdf.ParseTerm:
//
//	prefixes:
//	  ex: http://example.org/
//	graphs:
//	  - name: ex:people      # omitted or "" for the default graph
//	    triples:
//	      - [ex:a, ex:name, '"Ann"']
//	      - [ex:a, ex:age, 30]
//
// Fixtures seed stores for the CLI and test scenarios, and back LOAD
// through Retriever.
package fixture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/update"
)

// File is the YAML layout of a fixture.
type File struct {
	Prefixes map[string]string `yaml:"prefixes,omitempty"`
	Graphs   []Graph           `yaml:"graphs"`
}

// Graph is one graph of a fixture.
type Graph struct {
	// Name is an IRI or prefixed name. Empty names the default graph.
	Name    string     `yaml:"name,omitempty"`
	Triples [][]string `yaml:"triples"`
}

// Parse decodes fixture YAML into graphs, in file order. Unknown fields
// are rejected. Graphs named twice are merged.
func Parse(data []byte) ([]*rdf.Graph, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return f.Build()
}

// Build resolves the file's terms into graphs.
func (f *File) Build() ([]*rdf.Graph, error) {
	ns := rdf.NewNamespaceMap()
	for prefix, iri := range f.Prefixes {
		ns.Set(prefix, iri)
	}

	var order []rdf.IRI
	graphs := map[rdf.IRI]*rdf.Graph{}
	for i, spec := range f.Graphs {
		name, err := graphName(spec.Name, ns)
		if err != nil {
			return nil, fmt.Errorf("graphs[%d]: %w", i, err)
		}
		g, ok := graphs[name]
		if !ok {
			g = rdf.NewGraph(name)
			graphs[name] = g
			order = append(order, name)
		}
		for j, raw := range spec.Triples {
			t, err := triple(raw, ns)
			if err != nil {
				return nil, fmt.Errorf("graphs[%d].triples[%d]: %w", i, j, err)
			}
			g.Assert(t)
		}
	}

	out := make([]*rdf.Graph, len(order))
	for i, name := range order {
		out[i] = graphs[name]
	}
	return out, nil
}

// LoadFile reads one fixture file.
func LoadFile(path string) ([]*rdf.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	gs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return gs, nil
}

// Seed merges the graphs of each fixture file into s.
func Seed(ctx context.Context, s update.Store, paths ...string) error {
	for _, path := range paths {
		gs, err := LoadFile(path)
		if err != nil {
			return err
		}
		for _, g := range gs {
			existing, err := s.LoadGraph(ctx, g.Name())
			if err != nil {
				return fmt.Errorf("seed %s: %w", g.Name(), err)
			}
			existing.Merge(g)
			if err := s.SaveGraph(ctx, existing); err != nil {
				return fmt.Errorf("seed %s: %w", g.Name(), err)
			}
		}
	}
	return nil
}

func graphName(raw string, ns *rdf.NamespaceMap) (rdf.IRI, error) {
	if raw == "" {
		return rdf.DefaultGraph, nil
	}
	n, err := rdf.ParseTerm(raw, ns)
	if err != nil {
		return "", fmt.Errorf("graph name: %w", err)
	}
	iri, ok := n.(rdf.IRI)
	if !ok {
		return "", fmt.Errorf("graph name %q is not an IRI", raw)
	}
	return iri, nil
}

func triple(raw []string, ns *rdf.NamespaceMap) (rdf.Triple, error) {
	if len(raw) != 3 {
		return rdf.Triple{}, fmt.Errorf("want 3 terms, got %d", len(raw))
	}
	var terms [3]rdf.Node
	for i, s := range raw {
		n, err := rdf.ParseTerm(s, ns)
		if err != nil {
			return rdf.Triple{}, err
		}
		terms[i] = n
	}
	t := rdf.NewTriple(terms[0], terms[1], terms[2])
	if err := t.Validate(); err != nil {
		return rdf.Triple{}, err
	}
	return t, nil
}

// Retriever serves LOAD sources from preloaded graphs and fixture files.
type Retriever struct {
	// Static maps source IRIs to graphs.
	Static map[rdf.IRI]*rdf.Graph

	// Root resolves relative file: paths. Empty means the working directory.
	Root string
}

// Retrieve returns the graph behind source. A fixture file's graphs are
// merged into one graph named after the source.
func (r *Retriever) Retrieve(ctx context.Context, source rdf.IRI) (*rdf.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g, ok := r.Static[source]; ok {
		return g.Rename(source), nil
	}
	path, ok := strings.CutPrefix(string(source), "file:")
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", source)
	}
	path = strings.TrimPrefix(path, "//")
	if !filepath.IsAbs(path) && r.Root != "" {
		path = filepath.Join(r.Root, path)
	}
	gs, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	out := rdf.NewGraph(source)
	for _, g := range gs {
		out.Merge(g)
	}
	return out, nil
}

var _ update.Retriever = (*Retriever)(nil)
