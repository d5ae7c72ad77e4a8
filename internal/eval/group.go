package eval

import (
	"strings"

	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/expr"
	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/solution"
)

type bucket struct {
	key     *solution.Solution
	members []*solution.Solution
}

// group partitions in by the group keys, in first-seen order, and computes
// the aggregates of each partition. A key that fails to evaluate groups as
// unbound. Without keys there is always exactly one group.
func (r *run) group(in *solution.Multiset, g *algebra.Group) *solution.Multiset {
	var buckets []*bucket
	index := map[string]*bucket{}

	for _, s := range in.Solutions() {
		key := solution.New()
		var parts []string
		for _, k := range g.Keys {
			v, err := k.Expr.Evaluate(r.exprCtx, s)
			if err != nil {
				v = nil
			}
			parts = append(parts, rdf.Key(v))
			if name, ok := k.KeyVariable(); ok && v != nil {
				_ = key.Set(name, v)
			}
		}
		id := strings.Join(parts, "\x00")
		b, ok := index[id]
		if !ok {
			b = &bucket{key: key}
			index[id] = b
			buckets = append(buckets, b)
		}
		b.members = append(b.members, s)
	}
	if len(g.Keys) == 0 && len(buckets) == 0 {
		buckets = append(buckets, &bucket{key: solution.New()})
	}

	out := solution.NewMultiset(g.Variables()...)
	for _, b := range buckets {
		sol := b.key.Clone()
		ctx := r.exprCtx.WithGroup(b.members)
		for _, a := range g.Aggregates {
			v, err := a.Agg.Apply(ctx, b.members)
			if err != nil {
				r.logger.Debug("aggregate left unbound", "var", a.Var, "error", err)
				continue
			}
			_ = sol.Set(a.Var, v)
		}
		out.Add(sol)
	}
	return out
}

// order sorts in by the conditions. Expressions that fail to evaluate sort
// as unbound.
func (r *run) order(in *solution.Multiset, conds []algebra.OrderCondition) *solution.Multiset {
	keys := make(map[*solution.Solution][]rdf.Node, in.Len())
	for _, s := range in.Solutions() {
		vals := make([]rdf.Node, len(conds))
		for i, c := range conds {
			if v, err := c.Expr.Evaluate(r.exprCtx, s); err == nil {
				vals[i] = v
			}
		}
		keys[s] = vals
	}
	return in.Sort(func(a, b *solution.Solution) bool {
		va, vb := keys[a], keys[b]
		for i, c := range conds {
			cmp := expr.OrderCompare(va[i], vb[i])
			if cmp == 0 {
				continue
			}
			if c.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}
