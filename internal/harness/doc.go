// Package harness provides conformance testing for the compilation pipeline.
//
// A scenario names a source, the temporary register budget, and what the
// run must produce. The harness runs the real pipeline (CUE front end,
// resolver, header injection, emission) against an in-memory NFO sink and
// instrumented recording sinks, then checks the expectations.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	source: |
//	  blocks: [{kind: "raw", data: "0D"}]
//	# or: source_file: sources/example.cue (relative to the scenario file)
//	temp_slots: 4
//	sinks: 2
//	expect:
//	  status: success
//	  length: 1
//	  header: false
//	  kinds: [generic]
//	  labels: ["raw 1 byte(s)"]
//	  error_contains: ""
//
// # Checks
//
// Beyond the listed expectations every run verifies that all recording
// sinks received the identical record sequence, that successful runs
// committed every sink, and that failed runs left no sink with data.
//
// # Golden Files
//
// RunWithGolden compares the NFO listing with testdata/golden/<name>.golden
// through goldie. The nmlc test command uses CompareGolden, which keeps the
// files beside the scenarios.
package harness
