// Package engine ties the parser, optimiser, evaluator and update
// processor to a store.
//
// Every query gets an id and a sequence number, runs on its own dataset
// handle under the configured timeout, and is recorded in the statistics
// manager when recording is on.
//
// TIMEOUTS:
//
// A query that outlives query.timeout fails with QUERY_TIMEOUT. With
// query.partial_results set, a SELECT instead returns the last multiset
// the evaluator checkpointed, projected onto the selected variables, and
// the result is marked Partial.
//
// NAMED GRAPHS:
//
// A query without FROM NAMED ranges GRAPH ?g over the store's graphs that
// match query.named_graphs. No patterns select every graph.
package engine
