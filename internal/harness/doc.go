// Package harness provides a conformance testing framework for rewrite
// programs.
//
// A scenario is a YAML file naming a program (inline or by path), optional
// run guards, the expected outcome and assertions over the trace:
//
//	name: bakery
//	description: two cakes make a party
//	program: |
//	  :: flour sugar apples > apple-cake
//	  :: apple-cake^2 > party
//	  ;; flour^2 sugar^2 apples^2
//	expect:
//	  outcome: halted
//	  steps: 3
//	  final_state: [party]
//	assertions:
//	  - type: trace_count
//	    rule: 0
//	    count: 2
//
// Run evaluates the program for real through the engine, records the run in
// a fresh in-memory store and checks that the recorded log is complete, then
// evaluates the expect clause and assertions. RunWithGolden additionally
// compares the trace snapshot against testdata/golden/{name}.golden.
package harness
