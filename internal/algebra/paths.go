package algebra

import (
	"github.com/roach88/quarry/internal/rdf"
)

// Path is a property path expression.
//
// This is a sealed interface. Implementations: PathIRI, *InversePath,
// *SequencePath, *AlternativePath, *ZeroOrMorePath, *OneOrMorePath,
// *ZeroOrOnePath.
type Path interface {
	String() string
	path()
}

// PathIRI is a single predicate step.
type PathIRI struct {
	IRI rdf.IRI
}

// InversePath traverses Path from object to subject (^p).
type InversePath struct{ Path Path }

// SequencePath traverses Left then Right (a/b).
type SequencePath struct{ Left, Right Path }

// AlternativePath traverses either side (a|b).
type AlternativePath struct{ Left, Right Path }

// ZeroOrMorePath is p*.
type ZeroOrMorePath struct{ Path Path }

// OneOrMorePath is p+.
type OneOrMorePath struct{ Path Path }

// ZeroOrOnePath is p?.
type ZeroOrOnePath struct{ Path Path }

func (PathIRI) path()          {}
func (*InversePath) path()     {}
func (*SequencePath) path()    {}
func (*AlternativePath) path() {}
func (*ZeroOrMorePath) path()  {}
func (*OneOrMorePath) path()   {}
func (*ZeroOrOnePath) path()   {}

func (p PathIRI) String() string          { return p.IRI.String() }
func (p *InversePath) String() string     { return "^" + p.Path.String() }
func (p *SequencePath) String() string    { return "(" + p.Left.String() + "/" + p.Right.String() + ")" }
func (p *AlternativePath) String() string { return "(" + p.Left.String() + "|" + p.Right.String() + ")" }
func (p *ZeroOrMorePath) String() string  { return p.Path.String() + "*" }
func (p *OneOrMorePath) String() string   { return p.Path.String() + "+" }
func (p *ZeroOrOnePath) String() string   { return p.Path.String() + "?" }

// SimplePredicate returns the IRI of a path that is a single forward step.
func SimplePredicate(p Path) (rdf.IRI, bool) {
	if iri, ok := p.(PathIRI); ok {
		return iri.IRI, true
	}
	return "", false
}
