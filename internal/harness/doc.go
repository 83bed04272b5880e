// Package harness provides conformance testing for the resolution pipeline.
//
// Scenarios are YAML files holding a program document. The harness decodes
// the program, validates it, resolves it, and compares the resolved
// document's canonical serialization against a golden file. Resolution is
// deterministic, so golden snapshots are byte-stable across runs.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario pins down"
//	program:
//	  type: Sequence
//	  items:
//	    - op_type: play
//	      channel: q0
//	      pulse: {type: SquarePulse, duration: {ns: 100}, amplitude: {mV: 50}}
//
// Golden files live in testdata/golden/{name}.golden. To regenerate them,
// run:
//
//	go test ./internal/harness -update
package harness
