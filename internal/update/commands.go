// Package update executes SPARQL Update commands against a Store.
//
// Commands run strictly in sequence. Each command either completes or fails
// with an UpdateError; a failure aborts the remaining commands unless the
// processor runs in best-effort mode. SILENT turns the existence errors of
// CREATE, CLEAR, DROP and LOAD into no-ops.
package update

import (
	"fmt"
	"strings"

	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/rdf"
)

// Command is one update operation.
//
// This is a sealed interface. Implementations: *InsertData, *DeleteData,
// *Modify, *Load, *Clear, *Create, *Drop.
type Command interface {
	// Name is the command keyword, e.g. "INSERT DATA".
	Name() string
	String() string
	command()
}

// GraphTemplate is a template nested in GRAPH spec { ... }.
type GraphTemplate struct {
	Graph   algebra.PatternItem
	Triples []*algebra.Match
}

// Template is the body of an INSERT or DELETE clause: triples for the
// default target graph plus graph-scoped sub-templates.
type Template struct {
	Default []*algebra.Match
	Graphs  []GraphTemplate
}

// IsEmpty reports whether the template has no triples.
func (t *Template) IsEmpty() bool {
	if t == nil {
		return true
	}
	if len(t.Default) > 0 {
		return false
	}
	for _, g := range t.Graphs {
		if len(g.Triples) > 0 {
			return false
		}
	}
	return true
}

// variables lists the variables the template mentions.
func (t *Template) variables() []string {
	var out []string
	add := func(it algebra.PatternItem) {
		if v, ok := it.(algebra.VariableItem); ok {
			out = append(out, v.Name)
		}
	}
	for _, m := range t.Default {
		add(m.Subject)
		add(m.Predicate)
		add(m.Object)
	}
	for _, g := range t.Graphs {
		add(g.Graph)
		for _, m := range g.Triples {
			add(m.Subject)
			add(m.Predicate)
			add(m.Object)
		}
	}
	return out
}

// hasBlanks reports whether any slot is a blank item.
func (t *Template) hasBlanks() bool {
	check := func(ms []*algebra.Match) bool {
		for _, m := range ms {
			for _, it := range []algebra.PatternItem{m.Subject, m.Predicate, m.Object} {
				if _, ok := it.(algebra.BlankItem); ok {
					return true
				}
			}
		}
		return false
	}
	if check(t.Default) {
		return true
	}
	for _, g := range t.Graphs {
		if check(g.Triples) {
			return true
		}
	}
	return false
}

func (t *Template) String() string {
	var parts []string
	for _, m := range t.Default {
		parts = append(parts, m.String()+" .")
	}
	for _, g := range t.Graphs {
		inner := make([]string, len(g.Triples))
		for i, m := range g.Triples {
			inner[i] = m.String() + " ."
		}
		parts = append(parts, fmt.Sprintf("GRAPH %s { %s }", g.Graph, strings.Join(inner, " ")))
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

// InsertData adds ground triples.
type InsertData struct {
	Data Template
}

// DeleteData removes ground triples.
type DeleteData struct {
	Data Template
}

// Modify is DELETE/INSERT ... WHERE. Insert-only and delete-only commands
// leave the other template nil.
type Modify struct {
	// With is the default target graph, and the WHERE default graph when
	// Using is empty.
	With rdf.IRI

	Delete *Template
	Insert *Template

	// Using and UsingNamed replace the WHERE dataset.
	Using      []rdf.IRI
	UsingNamed []rdf.IRI

	Where algebra.Node
}

// Load merges a retrieved graph into Into (the default graph when empty).
type Load struct {
	Source rdf.IRI
	Into   rdf.IRI
	Silent bool
}

// TargetKind selects the graphs of CLEAR and DROP.
type TargetKind int

const (
	TargetGraph TargetKind = iota
	TargetDefault
	TargetNamed
	TargetAll
)

// Target names the graphs a CLEAR or DROP applies to.
type Target struct {
	Kind  TargetKind
	Graph rdf.IRI
}

func (t Target) String() string {
	switch t.Kind {
	case TargetDefault:
		return "DEFAULT"
	case TargetNamed:
		return "NAMED"
	case TargetAll:
		return "ALL"
	}
	return "GRAPH " + t.Graph.String()
}

// Clear empties the target graphs.
type Clear struct {
	Target Target
	Silent bool
}

// Create adds an empty graph.
type Create struct {
	Graph  rdf.IRI
	Silent bool
}

// Drop removes the target graphs. Dropping the default graph empties it.
type Drop struct {
	Target Target
	Silent bool
}

func (*InsertData) command() {}
func (*DeleteData) command() {}
func (*Modify) command()     {}
func (*Load) command()       {}
func (*Clear) command()      {}
func (*Create) command()     {}
func (*Drop) command()       {}

func (*InsertData) Name() string { return "INSERT DATA" }
func (*DeleteData) Name() string { return "DELETE DATA" }
func (*Load) Name() string       { return "LOAD" }
func (*Clear) Name() string      { return "CLEAR" }
func (*Create) Name() string     { return "CREATE" }
func (*Drop) Name() string       { return "DROP" }

// Name is INSERT, DELETE or MODIFY depending on the templates present.
func (m *Modify) Name() string {
	switch {
	case m.Delete == nil:
		return "INSERT"
	case m.Insert == nil:
		return "DELETE"
	}
	return "MODIFY"
}

func (c *InsertData) String() string { return "INSERT DATA " + c.Data.String() }
func (c *DeleteData) String() string { return "DELETE DATA " + c.Data.String() }

func (m *Modify) String() string {
	var b strings.Builder
	if m.With != "" {
		fmt.Fprintf(&b, "WITH %s ", m.With)
	}
	if m.Delete != nil {
		fmt.Fprintf(&b, "DELETE %s ", m.Delete)
	}
	if m.Insert != nil {
		fmt.Fprintf(&b, "INSERT %s ", m.Insert)
	}
	for _, u := range m.Using {
		fmt.Fprintf(&b, "USING %s ", u)
	}
	for _, u := range m.UsingNamed {
		fmt.Fprintf(&b, "USING NAMED %s ", u)
	}
	b.WriteString("WHERE ")
	if m.Where != nil {
		b.WriteString(m.Where.String())
	}
	return b.String()
}

func (c *Load) String() string {
	s := "LOAD " + silent(c.Silent) + c.Source.String()
	if c.Into != rdf.DefaultGraph {
		s += " INTO GRAPH " + c.Into.String()
	}
	return s
}

func (c *Clear) String() string  { return "CLEAR " + silent(c.Silent) + c.Target.String() }
func (c *Create) String() string { return "CREATE " + silent(c.Silent) + "GRAPH " + c.Graph.String() }
func (c *Drop) String() string   { return "DROP " + silent(c.Silent) + c.Target.String() }

func silent(s bool) string {
	if s {
		return "SILENT "
	}
	return ""
}
