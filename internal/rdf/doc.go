// Package rdf provides the RDF term and triple model for quarry.
//
// This package is the foundational layer: every other internal package
// imports rdf, and rdf imports nothing internal.
//
// Key design constraints:
//   - Nodes are immutable values; constructors normalise literal forms (NFC)
//   - Blank node identity is (ID, Scope); nodes from different scopes never compare equal
//   - Triple ordering is total and deterministic (see Compare)
//   - The default graph is named by the empty IRI
package rdf
