package algebra

import (
	"fmt"
	"strings"

	"github.com/roach88/quarry/internal/expr"
	"github.com/roach88/quarry/internal/rdf"
)

// TriplePattern is one element of a basic graph pattern.
//
// This is a sealed interface. Implementations: *Match, *FilterPattern,
// *Assign, *PathPattern, *SubQueryPattern.
type TriplePattern interface {
	// Variables lists the variables the pattern mentions, in first-seen order.
	Variables() []string
	String() string
	triplePattern()
}

// Match matches a subject-predicate-object pattern against the active graph.
type Match struct {
	Subject   PatternItem
	Predicate PatternItem
	Object    PatternItem
}

// NewMatch creates a match pattern.
func NewMatch(s, p, o PatternItem) *Match {
	return &Match{Subject: s, Predicate: p, Object: o}
}

func (*Match) triplePattern() {}

func (m *Match) Variables() []string {
	return itemVariables(m.Subject, m.Predicate, m.Object)
}

func (m *Match) String() string {
	return fmt.Sprintf("%s %s %s", m.Subject, m.Predicate, m.Object)
}

// IsGround reports whether no slot is a variable or blank item.
func (m *Match) IsGround() bool {
	for _, it := range []PatternItem{m.Subject, m.Predicate, m.Object} {
		if _, ok := it.(ConstantItem); !ok {
			return false
		}
	}
	return true
}

// Triple returns the ground triple of a ground pattern.
func (m *Match) Triple() rdf.Triple {
	return rdf.NewTriple(constValue(m.Subject), constValue(m.Predicate), constValue(m.Object))
}

func constValue(it PatternItem) rdf.Node {
	if c, ok := it.(ConstantItem); ok {
		return c.Value
	}
	return nil
}

// FilterPattern restricts the solutions built so far inside a Bgp.
type FilterPattern struct {
	Expr expr.Expression
}

func (*FilterPattern) triplePattern()        {}
func (f *FilterPattern) Variables() []string { return f.Expr.Variables() }
func (f *FilterPattern) String() string      { return "FILTER(" + f.Expr.String() + ")" }

// Assign binds Var to the value of Expr for each solution built so far.
//
// With Let unset it is a BIND: an evaluation error leaves Var unbound. With
// Let set it is a LET: a solution that already binds Var to a different
// value is dropped.
type Assign struct {
	Var  string
	Expr expr.Expression
	Let  bool
}

func (*Assign) triplePattern() {}

func (a *Assign) Variables() []string {
	return appendUnique([]string{a.Var}, a.Expr.Variables()...)
}

func (a *Assign) String() string {
	if a.Let {
		return fmt.Sprintf("LET(?%s := %s)", a.Var, a.Expr)
	}
	return fmt.Sprintf("BIND(%s AS ?%s)", a.Expr, a.Var)
}

// PathPattern matches a property path between two items.
type PathPattern struct {
	Subject PatternItem
	Path    Path
	Object  PatternItem
}

func (*PathPattern) triplePattern() {}

func (p *PathPattern) Variables() []string { return itemVariables(p.Subject, p.Object) }

func (p *PathPattern) String() string {
	return fmt.Sprintf("%s %s %s", p.Subject, p.Path, p.Object)
}

// SubQueryPattern embeds a sub-select inside a Bgp.
type SubQueryPattern struct {
	Query *Query
}

func (*SubQueryPattern) triplePattern()        {}
func (s *SubQueryPattern) Variables() []string { return s.Query.ProjectedVariables() }
func (s *SubQueryPattern) String() string      { return "{ " + s.Query.String() + " }" }

func itemVariables(items ...PatternItem) []string {
	var out []string
	for _, it := range items {
		if name, ok := ItemVariable(it); ok {
			out = appendUnique(out, name)
		}
	}
	return out
}

// appendUnique returns a copy of dst extended by the names it lacks.
func appendUnique(dst []string, names ...string) []string {
	dst = append([]string(nil), dst...)
	for _, n := range names {
		found := false
		for _, d := range dst {
			if d == n {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, n)
		}
	}
	return dst
}

func joinPatterns(ps []TriplePattern) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = "(" + p.String() + ")"
	}
	return strings.Join(parts, " ")
}
