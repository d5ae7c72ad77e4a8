package solution

import (
	"sort"

	"github.com/roach88/quarry/internal/rdf"
)

// Kind distinguishes ordinary multisets from the Null and Identity states.
type Kind int

const (
	// KindRows is an ordinary bag of solutions (possibly empty).
	KindRows Kind = iota
	// KindNull has no solutions and absorbs any join.
	KindNull
	// KindIdentity has exactly one empty solution and is neutral for joins.
	KindIdentity
)

// Multiset is an ordered bag of solutions plus the variables they may bind.
type Multiset struct {
	kind   Kind
	vars   []string
	varSet map[string]bool
	rows   []*Solution
}

// Null returns a multiset with no solutions.
func Null() *Multiset {
	return &Multiset{kind: KindNull, varSet: map[string]bool{}}
}

// Identity returns a multiset holding one empty solution.
func Identity() *Multiset {
	return &Multiset{kind: KindIdentity, varSet: map[string]bool{}, rows: []*Solution{New()}}
}

// NewMultiset creates an empty row multiset declaring vars.
func NewMultiset(vars ...string) *Multiset {
	m := &Multiset{kind: KindRows, varSet: map[string]bool{}}
	for _, v := range vars {
		m.AddVariable(v)
	}
	return m
}

// FromSolutions creates a row multiset holding sols.
func FromSolutions(sols ...*Solution) *Multiset {
	m := NewMultiset()
	for _, s := range sols {
		m.Add(s)
	}
	return m
}

// Kind returns the multiset state.
func (m *Multiset) Kind() Kind { return m.kind }

// IsNull reports whether the multiset is the Null state.
func (m *Multiset) IsNull() bool { return m.kind == KindNull }

// IsIdentity reports whether the multiset is the Identity state.
func (m *Multiset) IsIdentity() bool { return m.kind == KindIdentity }

// IsEmpty reports whether there are no solutions.
func (m *Multiset) IsEmpty() bool { return len(m.rows) == 0 }

// Len returns the number of solutions.
func (m *Multiset) Len() int { return len(m.rows) }

// Solutions returns the solutions in order. The slice must not be modified.
func (m *Multiset) Solutions() []*Solution { return m.rows }

// Variables returns the declared variables in declaration order.
func (m *Multiset) Variables() []string { return m.vars }

// ContainsVariable reports whether name is declared.
func (m *Multiset) ContainsVariable(name string) bool { return m.varSet[name] }

// AddVariable declares a variable.
func (m *Multiset) AddVariable(name string) {
	if !m.varSet[name] {
		m.varSet[name] = true
		m.vars = append(m.vars, name)
	}
}

// Add appends a solution, declaring its variables. Adding to Null or
// Identity turns the multiset into an ordinary one (Identity keeps its
// empty solution).
func (m *Multiset) Add(s *Solution) {
	m.kind = KindRows
	for _, v := range s.Variables() {
		m.AddVariable(v)
	}
	m.rows = append(m.rows, s)
}

// Values returns the distinct values bound to name, in first-seen order.
func (m *Multiset) Values(name string) []rdf.Node {
	seen := map[string]bool{}
	var out []rdf.Node
	for _, s := range m.rows {
		if v, ok := s.Get(name); ok {
			k := rdf.Key(v)
			if !seen[k] {
				seen[k] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// Join combines compatible solutions pairwise.
// Null on either side yields Null; Identity on either side yields the other side.
func (m *Multiset) Join(other *Multiset) *Multiset {
	switch {
	case m.IsNull() || other.IsNull():
		return Null()
	case m.IsIdentity():
		return other
	case other.IsIdentity():
		return m
	}
	out := NewMultiset(append(append([]string{}, m.vars...), other.vars...)...)
	for _, l := range m.rows {
		for _, r := range other.rows {
			if l.Compatible(r) {
				out.Add(l.Merge(r))
			}
		}
	}
	return out
}

// LeftJoin keeps every left solution, extended by each compatible right
// solution whose merge satisfies keep. keep may be nil.
func (m *Multiset) LeftJoin(other *Multiset, keep func(*Solution) bool) *Multiset {
	if m.IsNull() {
		return Null()
	}
	if other.IsNull() || other.IsEmpty() {
		return m
	}
	out := NewMultiset(append(append([]string{}, m.vars...), other.vars...)...)
	for _, l := range m.rows {
		matched := false
		for _, r := range other.rows {
			if !l.Compatible(r) {
				continue
			}
			merged := l.Merge(r)
			if keep != nil && !keep(merged) {
				continue
			}
			out.Add(merged)
			matched = true
		}
		if !matched {
			out.Add(l)
		}
	}
	return out
}

// Union concatenates two multisets. A Null side yields the other side.
func (m *Multiset) Union(other *Multiset) *Multiset {
	switch {
	case m.IsNull():
		return other
	case other.IsNull():
		return m
	}
	out := NewMultiset(append(append([]string{}, m.vars...), other.vars...)...)
	for _, s := range m.rows {
		out.Add(s)
	}
	for _, s := range other.rows {
		out.Add(s)
	}
	return out
}

// Minus removes left solutions that are compatible with, and share at least
// one variable with, some right solution.
func (m *Multiset) Minus(other *Multiset) *Multiset {
	if m.IsNull() {
		return Null()
	}
	if other.IsNull() || other.IsIdentity() || other.IsEmpty() {
		return m
	}
	out := NewMultiset(m.vars...)
	for _, l := range m.rows {
		remove := false
		for _, r := range other.rows {
			if !l.Disjoint(r) && l.Compatible(r) {
				remove = true
				break
			}
		}
		if !remove {
			out.Add(l)
		}
	}
	return out
}

// Filter keeps the solutions for which keep returns true.
func (m *Multiset) Filter(keep func(*Solution) bool) *Multiset {
	if m.IsNull() {
		return m
	}
	out := NewMultiset(m.vars...)
	for _, s := range m.rows {
		if keep(s) {
			out.Add(s)
		}
	}
	return out
}

// Distinct removes exact duplicate solutions, keeping first occurrences.
func (m *Multiset) Distinct() *Multiset {
	if m.kind != KindRows {
		return m
	}
	seen := map[string]bool{}
	out := NewMultiset(m.vars...)
	for _, s := range m.rows {
		k := s.Key(nil)
		if !seen[k] {
			seen[k] = true
			out.Add(s)
		}
	}
	return out
}

// Reduced removes duplicates that are adjacent. It may leave duplicates
// that are not adjacent in the current order.
func (m *Multiset) Reduced() *Multiset {
	if m.kind != KindRows {
		return m
	}
	out := NewMultiset(m.vars...)
	prev := ""
	for i, s := range m.rows {
		k := s.Key(nil)
		if i > 0 && k == prev {
			continue
		}
		prev = k
		out.Add(s)
	}
	return out
}

// Slice applies offset, then limit. A negative value is unrestricted.
func (m *Multiset) Slice(offset, limit int) *Multiset {
	if m.IsNull() {
		return m
	}
	rows := m.rows
	if offset > 0 {
		if offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[offset:]
		}
	}
	if limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	out := NewMultiset(m.vars...)
	for _, s := range rows {
		out.Add(s)
	}
	return out
}

// Project restricts every solution to vars.
func (m *Multiset) Project(vars []string) *Multiset {
	if m.IsNull() {
		return m
	}
	out := NewMultiset(vars...)
	for _, s := range m.rows {
		out.Add(s.Project(vars))
	}
	return out
}

// Sort orders the solutions with a stable sort.
func (m *Multiset) Sort(less func(a, b *Solution) bool) *Multiset {
	out := NewMultiset(m.vars...)
	out.rows = append(out.rows, m.rows...)
	out.kind = m.kind
	sort.SliceStable(out.rows, func(i, j int) bool { return less(out.rows[i], out.rows[j]) })
	return out
}

// Clone returns a shallow copy with its own row slice.
func (m *Multiset) Clone() *Multiset {
	out := &Multiset{kind: m.kind, varSet: map[string]bool{}}
	for _, v := range m.vars {
		out.AddVariable(v)
	}
	out.rows = append(out.rows, m.rows...)
	return out
}
