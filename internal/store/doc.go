// Package store provides the graph stores the update processor writes to.
//
// Two implementations satisfy update.Store:
//   - Memory: graphs held in a dataset.InMemory
//   - SQLite: a persistent quad table, one row per (graph, triple)
//
// # SQLite layout
//
//   - graphs(name): every existing graph; the default graph is the row ''
//   - quads(graph, subject, predicate, object): terms in N-Triples syntax
//   - Deleting a graph row cascades to its quads
//   - Blank nodes are stored by label; their scope is not persisted
//
// All reads order rows by subject, predicate, object COLLATE BINARY so
// loaded graphs and match results are deterministic.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce the graphs/quads cascade
package store
