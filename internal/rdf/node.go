package rdf

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NodeKind discriminates the Node variants.
// The numeric order is the cross-kind sort order used by Compare.
type NodeKind int

const (
	KindVariable NodeKind = iota
	KindBlank
	KindIRI
	KindLiteral
	KindGraphLiteral
)

func (k NodeKind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindBlank:
		return "blank"
	case KindIRI:
		return "iri"
	case KindLiteral:
		return "literal"
	case KindGraphLiteral:
		return "graph-literal"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is a sealed interface over RDF terms.
// Implementations: IRI, Literal, BlankNode, Variable, GraphLiteral.
type Node interface {
	Kind() NodeKind
	String() string
	rdfNode()
}

// IRI is an absolute IRI reference.
// The empty IRI names the default graph.
type IRI string

// DefaultGraph names the unnamed default graph of a dataset.
const DefaultGraph IRI = ""

func (IRI) Kind() NodeKind { return KindIRI }
func (i IRI) String() string { return "<" + string(i) + ">" }
func (IRI) rdfNode()         {}

// Literal is an RDF literal with an optional datatype or language tag.
// A literal never carries both; Language wins when both are supplied to a constructor.
type Literal struct {
	Lexical  string
	Datatype IRI
	Language string
}

func (Literal) Kind() NodeKind { return KindLiteral }
func (Literal) rdfNode()       {}

func (l Literal) String() string {
	var b strings.Builder
	b.WriteByte('"')
	b.WriteString(escapeLiteral(l.Lexical))
	b.WriteByte('"')
	switch {
	case l.Language != "":
		b.WriteByte('@')
		b.WriteString(l.Language)
	case l.Datatype != "" && l.Datatype != XSDString:
		b.WriteString("^^")
		b.WriteString(l.Datatype.String())
	}
	return b.String()
}

// IsPlain reports whether the literal is a simple literal (no language, string or no datatype).
func (l Literal) IsPlain() bool {
	return l.Language == "" && (l.Datatype == "" || l.Datatype == XSDString)
}

// BlankNode is a blank node whose identity is scoped.
// Two blank nodes are equal only when both ID and Scope match.
type BlankNode struct {
	ID    string
	Scope string
}

func (BlankNode) Kind() NodeKind   { return KindBlank }
func (b BlankNode) String() string { return "_:" + b.ID }
func (BlankNode) rdfNode()         {}

// Variable is a query variable, named without the leading ? or $.
type Variable string

func (Variable) Kind() NodeKind   { return KindVariable }
func (v Variable) String() string { return "?" + string(v) }
func (Variable) rdfNode()         {}

// GraphLiteral is a nested set of triples used as a term.
type GraphLiteral struct {
	Triples []Triple
}

func (GraphLiteral) Kind() NodeKind { return KindGraphLiteral }
func (GraphLiteral) rdfNode()       {}

func (g GraphLiteral) String() string {
	parts := make([]string, len(g.Triples))
	for i, t := range SortTriples(g.Triples) {
		parts[i] = t.String()
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

// NewLiteral creates a simple literal.
// The lexical form is NFC normalised.
func NewLiteral(lexical string) Literal {
	return Literal{Lexical: norm.NFC.String(lexical)}
}

// NewLangLiteral creates a language-tagged literal. Tags are lower-cased.
func NewLangLiteral(lexical, lang string) Literal {
	return Literal{Lexical: norm.NFC.String(lexical), Language: strings.ToLower(lang)}
}

// NewTypedLiteral creates a datatyped literal.
// xsd:string typed literals are folded into simple literals.
func NewTypedLiteral(lexical string, datatype IRI) Literal {
	if datatype == XSDString {
		datatype = ""
	}
	return Literal{Lexical: norm.NFC.String(lexical), Datatype: datatype}
}

// Blank creates an unscoped blank node.
func Blank(id string) BlankNode {
	return BlankNode{ID: id}
}

// IsConcrete reports whether a node can appear in asserted data.
func IsConcrete(n Node) bool {
	if n == nil {
		return false
	}
	return n.Kind() != KindVariable
}

func escapeLiteral(s string) string {
	if !strings.ContainsAny(s, "\"\\\n\r\t") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return r.Replace(s)
}
