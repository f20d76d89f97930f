// Package harness replays editing sessions described in YAML against a
// real editor and checks the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	document: fixtures/doc.json        # optional, default testutil.SampleDocument
//	capabilities: fixtures/caps.json   # optional, default testutil.SampleCapabilities
//	history_limit: 10                  # optional
//	validate_after_each: true          # optional
//	steps:
//	  - op: addTag
//	    args: { id: "t:new", label: "New", parent: "t:root" }
//	  - op: connect
//	    args: { kind: service, from: "t:new", to: svc-nope }
//	    expect_error: UNKNOWN_SERVICE
//	  - op: transact
//	    label: bulk
//	    steps:
//	      - op: remove
//	        node: "f:note"
//	  - op: undo
//	    moved: true
//	assertions:
//	  - type: trace_contains
//	    event: editor:error
//	    code: command
//	  - type: final_state
//	    node: "t:new"
//	    expect: { parent_id: "t:root" }
//	  - type: history
//	    labels: [addTag]
//
// # Assertion Types
//
//   - trace_contains: an event matches every given filter (event, command, code, node)
//   - trace_order: commands appear in the specified order
//   - trace_count: exactly N events match the filters
//   - final_state: the node's JSON form contains the expected keys
//   - node_absent: the node no longer exists
//   - history: the undo history labels, oldest first
//   - valid: the final document has no invariant violations
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory SQLite store, sequential history and
// revision ids and a fresh editor clock, so the same scenario always
// produces the same trace. RunWithGolden compares that trace against
// testdata/golden/<name>.golden.
package harness
