// Package algebra provides the operator tree that SPARQL queries and update
// WHERE clauses compile to.
//
// ARCHITECTURE:
//
// The algebra sits between the text parser and the evaluator:
//
//	[sparql text] → [sparql parser] → [algebra tree] → [optimizer] → [eval]
//
// A tree is built once per query and never mutated afterwards. Rewrites
// (see package optimizer) return new trees that share untouched subtrees
// with the original.
//
// SEALED INTERFACES:
//
// Node, TriplePattern, PatternItem and Path are sealed with marker methods.
// Only types in this package implement them, which keeps the type switches
// in the evaluator and optimizer exhaustive:
//
//	switch n := node.(type) {
//	case *Bgp:
//	    // match triple patterns
//	case *Graph:
//	    // scope the active graph
//	default:
//	    // unreachable for trees built by this package
//	}
//
// OPERATORS:
//
//   - Bgp: a sequence of triple patterns; the empty Bgp is the identity
//   - Join, LeftJoin, Union, Minus: binary combinators
//   - Graph: evaluates its inner pattern against a graph or set of graphs
//   - Filter, Extend: per-solution expression operators
//   - Group, OrderBy, Project, Distinct, Reduced, Slice: solution modifiers
//   - Service, SubQuery, Table: leaves with their own evaluation rules
//
// A Query carries the surface form (SELECT/ASK/CONSTRUCT, projection,
// grouping, ordering, dataset clauses) and compiles to a single Node with
// Algebra.
package algebra
