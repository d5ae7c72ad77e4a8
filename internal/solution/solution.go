// Package solution provides variable-binding solutions and multisets.
//
// A Solution maps variable names to RDF terms; a Multiset is an ordered bag
// of solutions plus the variables they may bind. Two distinguished states
// exist: Null (no solutions, absorbing for joins) and Identity (one empty
// solution, neutral for joins). Joins and unions short-circuit on both
// without inspecting rows.
package solution

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/quarry/internal/rdf"
)

// Solution is a partial mapping from variable name to term.
//
// A name is never bound to two different values: Set fails on a conflicting
// rebinding. Each binding may carry the IRI of the graph the term was
// matched in (its graph origin).
type Solution struct {
	bindings map[string]rdf.Node
	origins  map[string]rdf.IRI
}

// New creates an empty solution.
func New() *Solution {
	return &Solution{bindings: make(map[string]rdf.Node)}
}

// FromMap creates a solution from a map of bindings. Nil values are skipped.
func FromMap(m map[string]rdf.Node) *Solution {
	s := New()
	for k, v := range m {
		if v != nil {
			s.bindings[k] = v
		}
	}
	return s
}

// Get returns the value bound to name.
func (s *Solution) Get(name string) (rdf.Node, bool) {
	if s == nil {
		return nil, false
	}
	n, ok := s.bindings[name]
	return n, ok
}

// Bound reports whether name is bound.
func (s *Solution) Bound(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Set binds name to value. Rebinding to an equal value is a no-op; rebinding
// to a different value is an error.
func (s *Solution) Set(name string, value rdf.Node) error {
	if value == nil {
		return nil
	}
	if existing, ok := s.bindings[name]; ok {
		if rdf.Equal(existing, value) {
			return nil
		}
		return fmt.Errorf("variable ?%s already bound to %s, cannot rebind to %s", name, existing, value)
	}
	s.bindings[name] = value
	return nil
}

// SetOrigin records the graph a binding was matched in.
func (s *Solution) SetOrigin(name string, graph rdf.IRI) {
	if s.origins == nil {
		s.origins = make(map[string]rdf.IRI)
	}
	s.origins[name] = graph
}

// Origin returns the graph origin of a binding.
func (s *Solution) Origin(name string) (rdf.IRI, bool) {
	if s == nil || s.origins == nil {
		return "", false
	}
	g, ok := s.origins[name]
	return g, ok
}

// AnyOrigin returns a graph origin carried by any binding, preferring the
// lexically smallest variable name for determinism.
func (s *Solution) AnyOrigin() (rdf.IRI, bool) {
	if s == nil || len(s.origins) == 0 {
		return "", false
	}
	names := make([]string, 0, len(s.origins))
	for name := range s.origins {
		names = append(names, name)
	}
	sort.Strings(names)
	return s.origins[names[0]], true
}

// Variables returns the bound variable names in sorted order.
func (s *Solution) Variables() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.bindings))
	for name := range s.bindings {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of bindings.
func (s *Solution) Len() int {
	if s == nil {
		return 0
	}
	return len(s.bindings)
}

// Clone returns an independent copy.
func (s *Solution) Clone() *Solution {
	c := &Solution{bindings: make(map[string]rdf.Node, len(s.bindings))}
	for k, v := range s.bindings {
		c.bindings[k] = v
	}
	if s.origins != nil {
		c.origins = make(map[string]rdf.IRI, len(s.origins))
		for k, v := range s.origins {
			c.origins[k] = v
		}
	}
	return c
}

// With returns a copy with name bound to value.
func (s *Solution) With(name string, value rdf.Node) (*Solution, error) {
	c := s.Clone()
	if err := c.Set(name, value); err != nil {
		return nil, err
	}
	return c, nil
}

// Without returns a copy with name unbound.
func (s *Solution) Without(name string) *Solution {
	c := s.Clone()
	delete(c.bindings, name)
	delete(c.origins, name)
	return c
}

// Compatible reports whether every variable bound in both solutions has
// equal values.
func (s *Solution) Compatible(other *Solution) bool {
	small, large := s, other
	if small.Len() > large.Len() {
		small, large = large, small
	}
	for name, v := range small.bindings {
		if w, ok := large.bindings[name]; ok && !rdf.Equal(v, w) {
			return false
		}
	}
	return true
}

// Disjoint reports whether the solutions share no bound variables.
func (s *Solution) Disjoint(other *Solution) bool {
	for name := range s.bindings {
		if other.Bound(name) {
			return false
		}
	}
	return true
}

// Merge combines two compatible solutions. The caller must check Compatible first.
func (s *Solution) Merge(other *Solution) *Solution {
	c := s.Clone()
	for name, v := range other.bindings {
		if _, ok := c.bindings[name]; !ok {
			c.bindings[name] = v
		}
	}
	for name, g := range other.origins {
		if _, ok := c.Origin(name); !ok {
			c.SetOrigin(name, g)
		}
	}
	return c
}

// Project returns a copy restricted to vars.
func (s *Solution) Project(vars []string) *Solution {
	c := New()
	for _, name := range vars {
		if v, ok := s.bindings[name]; ok {
			c.bindings[name] = v
			if g, ok := s.Origin(name); ok {
				c.SetOrigin(name, g)
			}
		}
	}
	return c
}

// Equal reports whether two solutions bind exactly the same values.
func (s *Solution) Equal(other *Solution) bool {
	if s.Len() != other.Len() {
		return false
	}
	return s.Compatible(other)
}

// Key returns a canonical string for the bindings of vars (all bindings if
// vars is nil). Equal solutions have equal keys.
func (s *Solution) Key(vars []string) string {
	if vars == nil {
		vars = s.Variables()
	}
	var b strings.Builder
	for _, name := range vars {
		b.WriteString(name)
		b.WriteByte('=')
		if v, ok := s.bindings[name]; ok {
			b.WriteString(rdf.Key(v))
		}
		b.WriteByte(0)
	}
	return b.String()
}

func (s *Solution) String() string {
	parts := make([]string, 0, s.Len())
	for _, name := range s.Variables() {
		parts = append(parts, fmt.Sprintf("?%s = %s", name, s.bindings[name]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
