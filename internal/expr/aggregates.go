package expr

import (
	"sort"
	"strings"

	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/solution"
)

// Aggregate function names. ALL, ANY and NONE are reachable only as
// extension functions.
const (
	AggCount       = "COUNT"
	AggSum         = "SUM"
	AggAvg         = "AVG"
	AggMin         = "MIN"
	AggMax         = "MAX"
	AggSample      = "SAMPLE"
	AggGroupConcat = "GROUP_CONCAT"
	AggMedian      = "MEDIAN"
	AggMode        = "MODE"
	AggNMax        = "NMAX"
	AggNMin        = "NMIN"
	AggAll         = "ALL"
	AggAny         = "ANY"
	AggNone        = "NONE"
)

// Aggregation is an aggregate call such as COUNT(DISTINCT ?x).
type Aggregation struct {
	Name string
	// Arg is nil for COUNT(*).
	Arg      Expression
	Distinct bool
	// Separator is the GROUP_CONCAT separator expression; nil means " ".
	Separator Expression
	// Label overrides the printed functor, for extension aggregates.
	Label string
}

// CountAll creates COUNT(*).
func CountAll(distinct bool) *Aggregation {
	return &Aggregation{Name: AggCount, Distinct: distinct}
}

// NewAggregation creates an aggregate over arg.
func NewAggregation(name string, arg Expression, distinct bool) *Aggregation {
	return &Aggregation{Name: name, Arg: arg, Distinct: distinct}
}

// IsCountAll reports whether the aggregate is COUNT(*) or COUNT(DISTINCT *).
func (a *Aggregation) IsCountAll() bool { return a.Name == AggCount && a.Arg == nil }

func (a *Aggregation) Evaluate(ctx *Context, _ *solution.Solution) (rdf.Node, error) {
	if ctx == nil || ctx.Group == nil {
		return nil, Errorf(CodeAggregateContext, "%s used outside a grouping", a.Functor())
	}
	return a.Apply(ctx, ctx.Group)
}

// Apply computes the aggregate over group.
func (a *Aggregation) Apply(ctx *Context, group []*solution.Solution) (rdf.Node, error) {
	inner := &Context{Now: ctx.Now, Exists: ctx.Exists}
	if a.IsCountAll() {
		if !a.Distinct {
			return NewInteger(int64(len(group))).Node(), nil
		}
		seen := map[string]bool{}
		for _, s := range group {
			seen[s.Key(nil)] = true
		}
		return NewInteger(int64(len(seen))).Node(), nil
	}

	vals, err := a.collect(inner, group)
	if err != nil {
		return nil, err
	}

	switch a.Name {
	case AggCount:
		return NewInteger(int64(len(vals))).Node(), nil
	case AggSum, AggAvg:
		sum := NewInteger(0)
		for _, v := range vals {
			n, err := toNumeric(v)
			if err != nil {
				return nil, err
			}
			if sum, err = Arithmetic('+', sum, n); err != nil {
				return nil, err
			}
		}
		if a.Name == AggSum {
			return sum.Node(), nil
		}
		if len(vals) == 0 {
			return NewInteger(0).Node(), nil
		}
		avg, err := Arithmetic('/', sum, NewInteger(int64(len(vals))))
		if err != nil {
			return nil, err
		}
		return avg.Node(), nil
	case AggMin, AggMax:
		if len(vals) == 0 {
			return nil, Errorf(CodeUnbound, "%s of an empty group", a.Name)
		}
		best := vals[0]
		for _, v := range vals[1:] {
			c := OrderCompare(v, best)
			if (a.Name == AggMin && c < 0) || (a.Name == AggMax && c > 0) {
				best = v
			}
		}
		return best, nil
	case AggNMin, AggNMax:
		var best *Numeric
		for _, v := range vals {
			n, ok := NumericOf(v)
			if !ok {
				continue
			}
			if best == nil {
				best = &n
				continue
			}
			c, err := CompareNumeric(n, *best)
			if err != nil {
				continue
			}
			if (a.Name == AggNMin && c < 0) || (a.Name == AggNMax && c > 0) {
				best = &n
			}
		}
		if best == nil {
			return nil, Errorf(CodeUnbound, "%s found no numeric values", a.Name)
		}
		return best.Node(), nil
	case AggSample:
		if len(vals) == 0 {
			return nil, Errorf(CodeUnbound, "SAMPLE of an empty group")
		}
		return vals[0], nil
	case AggMedian:
		if len(vals) == 0 {
			return nil, Errorf(CodeUnbound, "MEDIAN of an empty group")
		}
		sorted := append([]rdf.Node(nil), vals...)
		sort.SliceStable(sorted, func(i, j int) bool { return OrderCompare(sorted[i], sorted[j]) < 0 })
		return sorted[(len(sorted)-1)/2], nil
	case AggMode:
		if len(vals) == 0 {
			return nil, Errorf(CodeUnbound, "MODE of an empty group")
		}
		counts := map[string]int{}
		var best rdf.Node
		bestCount := 0
		for _, v := range vals {
			k := rdf.Key(v)
			counts[k]++
			if counts[k] > bestCount {
				best, bestCount = v, counts[k]
			}
		}
		return best, nil
	case AggGroupConcat:
		sep := " "
		if a.Separator != nil {
			sv, err := a.Separator.Evaluate(inner, solution.New())
			if err != nil {
				return nil, err
			}
			if sep, err = StringValue(sv); err != nil {
				return nil, err
			}
		}
		parts := make([]string, 0, len(vals))
		for _, v := range vals {
			s, err := StringValue(v)
			if err != nil {
				return nil, err
			}
			parts = append(parts, s)
		}
		return rdf.NewLiteral(strings.Join(parts, sep)), nil
	case AggAll, AggAny, AggNone:
		trues := 0
		for _, v := range vals {
			b, err := EffectiveBooleanValue(v)
			if err != nil {
				return nil, err
			}
			if b {
				trues++
			}
		}
		switch a.Name {
		case AggAll:
			return Boolean(trues == len(vals)), nil
		case AggAny:
			return Boolean(trues > 0), nil
		}
		return Boolean(trues == 0), nil
	}
	return nil, Errorf(CodeUnknownFunction, "unknown aggregate %s", a.Name)
}

// collect evaluates the argument for every member. Unbound results are
// skipped; so are errors, except for SUM and AVG where they propagate.
func (a *Aggregation) collect(ctx *Context, group []*solution.Solution) ([]rdf.Node, error) {
	var vals []rdf.Node
	seen := map[string]bool{}
	for _, s := range group {
		v, err := a.Arg.Evaluate(ctx, s)
		if err != nil {
			if (a.Name == AggSum || a.Name == AggAvg) && CodeOf(err) != CodeUnbound {
				return nil, err
			}
			continue
		}
		if a.Distinct {
			k := rdf.Key(v)
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func (a *Aggregation) Variables() []string { return collectVariables(a.Arg, a.Separator) }

func (a *Aggregation) Arguments() []Expression {
	var args []Expression
	if a.Arg != nil {
		args = append(args, a.Arg)
	}
	if a.Separator != nil {
		args = append(args, a.Separator)
	}
	return args
}

func (a *Aggregation) WithArguments(args []Expression) (Expression, error) {
	cp := *a
	i := 0
	if a.Arg != nil {
		if i >= len(args) {
			return nil, Errorf(CodeInvalidArgument, "%s lost its argument", a.Name)
		}
		cp.Arg = args[i]
		i++
	}
	if a.Separator != nil && i < len(args) {
		cp.Separator = args[i]
	}
	return &cp, nil
}

func (a *Aggregation) Functor() string {
	if a.Label != "" {
		return a.Label
	}
	return a.Name
}

func (a *Aggregation) String() string {
	var b strings.Builder
	b.WriteString(a.Functor())
	b.WriteByte('(')
	if a.Distinct {
		b.WriteString("DISTINCT ")
	}
	if a.Arg == nil {
		b.WriteByte('*')
	} else {
		b.WriteString(a.Arg.String())
	}
	if a.Separator != nil {
		b.WriteString(" ; SEPARATOR = ")
		b.WriteString(a.Separator.String())
	}
	b.WriteByte(')')
	return b.String()
}
