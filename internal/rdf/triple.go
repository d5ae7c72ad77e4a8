package rdf

import (
	"fmt"
	"slices"
)

// Triple is an immutable subject-predicate-object statement.
type Triple struct {
	Subject   Node
	Predicate Node
	Object    Node
}

// NewTriple creates a triple.
func NewTriple(s, p, o Node) Triple {
	return Triple{Subject: s, Predicate: p, Object: o}
}

func (t Triple) String() string {
	return fmt.Sprintf("%s %s %s .", nodeString(t.Subject), nodeString(t.Predicate), nodeString(t.Object))
}

// IsGround reports whether all three slots hold concrete (non-variable) terms.
func (t Triple) IsGround() bool {
	return IsConcrete(t.Subject) && IsConcrete(t.Predicate) && IsConcrete(t.Object)
}

// Validate checks the RDF positional rules: subjects are IRIs or blank nodes,
// predicates are IRIs.
func (t Triple) Validate() error {
	if !t.IsGround() {
		return fmt.Errorf("triple %s is not ground", t)
	}
	switch t.Subject.Kind() {
	case KindIRI, KindBlank:
	default:
		return fmt.Errorf("triple %s: subject must be an IRI or blank node", t)
	}
	if t.Predicate.Kind() != KindIRI {
		return fmt.Errorf("triple %s: predicate must be an IRI", t)
	}
	return nil
}

// CompareTriples orders triples by subject, predicate, object.
func CompareTriples(a, b Triple) int {
	if c := Compare(a.Subject, b.Subject); c != 0 {
		return c
	}
	if c := Compare(a.Predicate, b.Predicate); c != 0 {
		return c
	}
	return Compare(a.Object, b.Object)
}

// SortTriples returns a sorted copy.
func SortTriples(ts []Triple) []Triple {
	out := slices.Clone(ts)
	slices.SortFunc(out, CompareTriples)
	return out
}

func nodeString(n Node) string {
	if n == nil {
		return "ANY"
	}
	return n.String()
}
