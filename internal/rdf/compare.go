package rdf

import "strings"

// Compare orders two nodes. nil sorts before every node.
//
// Cross-kind order follows NodeKind: Variable < Blank < IRI < Literal < GraphLiteral.
// Within a kind:
//   - IRI, Variable: by string
//   - Blank: by ID, then Scope
//   - Literal: by lexical form, then language, then datatype
//   - GraphLiteral: by sorted triple sequence
func Compare(a, b Node) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if ka, kb := a.Kind(), b.Kind(); ka != kb {
		if ka < kb {
			return -1
		}
		return 1
	}

	switch x := a.(type) {
	case IRI:
		return strings.Compare(string(x), string(b.(IRI)))
	case Variable:
		return strings.Compare(string(x), string(b.(Variable)))
	case BlankNode:
		y := b.(BlankNode)
		if c := strings.Compare(x.ID, y.ID); c != 0 {
			return c
		}
		return strings.Compare(x.Scope, y.Scope)
	case Literal:
		y := b.(Literal)
		if c := strings.Compare(x.Lexical, y.Lexical); c != 0 {
			return c
		}
		if c := strings.Compare(x.Language, y.Language); c != 0 {
			return c
		}
		return strings.Compare(string(x.Datatype), string(y.Datatype))
	case GraphLiteral:
		xs, ys := SortTriples(x.Triples), SortTriples(b.(GraphLiteral).Triples)
		for i := 0; i < len(xs) && i < len(ys); i++ {
			if c := CompareTriples(xs[i], ys[i]); c != 0 {
				return c
			}
		}
		switch {
		case len(xs) < len(ys):
			return -1
		case len(xs) > len(ys):
			return 1
		}
		return 0
	}
	return 0
}

// Equal reports term equality (same kind, same identity).
func Equal(a, b Node) bool {
	return Compare(a, b) == 0
}
