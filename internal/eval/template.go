package eval

import (
	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/solution"
)

// Instantiate produces the triples of a template under one solution.
//
// Each blank item label mints one fresh blank node per call. A template
// triple that is not fully bound, or that is not valid RDF, is skipped; the
// number of skipped triples is returned alongside.
func Instantiate(template []*algebra.Match, sol *solution.Solution, mint func() rdf.BlankNode) ([]rdf.Triple, int) {
	blanks := map[string]rdf.BlankNode{}
	term := func(it algebra.PatternItem) rdf.Node {
		if b, ok := it.(algebra.BlankItem); ok {
			n, seen := blanks[b.Label]
			if !seen {
				n = mint()
				blanks[b.Label] = n
			}
			return n
		}
		return algebra.Resolve(it, sol)
	}

	var (
		out     []rdf.Triple
		skipped int
	)
	for _, m := range template {
		t := rdf.NewTriple(term(m.Subject), term(m.Predicate), term(m.Object))
		if t.Validate() != nil {
			skipped++
			continue
		}
		out = append(out, t)
	}
	return out, skipped
}
