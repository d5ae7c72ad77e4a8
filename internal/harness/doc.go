// Package harness runs query and update scenarios against the engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: friends_of_friends
//	description: "What this scenario validates"
//	prefixes:
//	  ex: http://example.org/
//	data:
//	  - ../fixtures/people.yaml
//	config:
//	  best_effort: true
//	steps:
//	  - update: |
//	      INSERT { ?a ex:fof ?c } WHERE { ?a ex:knows/ex:knows ?c }
//	    expect:
//	      applied: 1
//	  - query: SELECT ?c WHERE { ex:a ex:fof ?c }
//	    expect:
//	      rows:
//	        - {c: ex:c}
//	assertions:
//	  - type: graph_size
//	    graph: ex:ages
//	    count: 3
//
// Data paths are relative to the scenario file. Expected terms are written
// in the syntax of rdf.ParseTerm and may use the scenario prefixes.
//
// # Assertion Types
//
//   - graph_size: the graph holds exactly count triples
//   - graph_contains: the graph holds the triple
//   - graph_excludes: the graph does not hold the triple
//   - ask: the ASK query answers boolean
//
// # Deterministic Testing
//
// Every run uses a fresh store, sequential ids named after the scenario and
// a testutil.DeterministicClock, so the trace of a scenario is stable and
// can be compared against a golden file.
package harness
