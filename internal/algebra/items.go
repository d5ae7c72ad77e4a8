package algebra

import (
	"strings"

	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/solution"
)

// PatternItem is one slot of a triple pattern.
//
// This is a sealed interface. Implementations: VariableItem, ConstantItem,
// BlankItem.
type PatternItem interface {
	String() string
	patternItem()
}

// VariableItem matches any term and binds it to Name.
type VariableItem struct {
	Name string
}

func (VariableItem) patternItem()       {}
func (v VariableItem) String() string { return "?" + v.Name }

// ConstantItem matches exactly one term.
type ConstantItem struct {
	Value rdf.Node
}

func (ConstantItem) patternItem()       {}
func (c ConstantItem) String() string { return rdf.FormatTerm(c.Value) }

// BlankItem is a blank node label in a pattern.
//
// In a WHERE pattern it behaves as an undistinguished variable. In a
// template it mints one fresh blank node per instantiation.
type BlankItem struct {
	Label string
}

func (BlankItem) patternItem()       {}
func (b BlankItem) String() string { return "_:" + b.Label }

// blankPrefix marks the hidden variables that blank pattern items bind.
const blankPrefix = "_:"

// Var creates a variable item.
func Var(name string) VariableItem { return VariableItem{Name: name} }

// Const creates a constant item.
func Const(n rdf.Node) ConstantItem { return ConstantItem{Value: n} }

// ItemVariable returns the solution variable an item binds, if any.
// Blank items bind a hidden variable that projections never expose.
func ItemVariable(item PatternItem) (string, bool) {
	switch it := item.(type) {
	case VariableItem:
		return it.Name, true
	case BlankItem:
		return blankPrefix + it.Label, true
	}
	return "", false
}

// IsHiddenVariable reports whether name was introduced for a blank item or
// by aggregate extraction.
func IsHiddenVariable(name string) bool {
	return strings.HasPrefix(name, blankPrefix) || strings.HasPrefix(name, aggregatePrefix)
}

// Resolve returns the term an item denotes under sol, or nil when the item
// is a variable that sol leaves unbound.
func Resolve(item PatternItem, sol *solution.Solution) rdf.Node {
	switch it := item.(type) {
	case ConstantItem:
		return it.Value
	case VariableItem:
		n, _ := sol.Get(it.Name)
		return n
	case BlankItem:
		n, _ := sol.Get(blankPrefix + it.Label)
		return n
	}
	return nil
}
