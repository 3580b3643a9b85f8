// Package engine implements the fraction rewrite loop.
//
// The engine holds an ordered list of fractions and repeatedly rewrites a
// single prime-product accumulator: each step finds the first fraction whose
// denominator divides the accumulator, multiplies by the fraction, and
// continues. Evaluation halts at the first stuck state, where no denominator
// divides the accumulator.
//
// ARCHITECTURE:
//
// Step is a pure function of (accumulator, fractions). Engine.Walk drives it
// in a single goroutine and hands each applied step to a callback as a
// StepRecord; Engine.Run materializes the records into a trace. Formatting
// the trace is left to callers, so the engine never touches a console.
//
// Fractions are evaluated in declaration order. The first match wins and
// the ordering is load-bearing: reordering rules changes the computation.
//
// TERMINATION:
//
// A program may legitimately run forever. By default the engine enforces no
// bound. Two opt-in guards exist for callers that need one:
//   - WithMaxSteps: a step-count ceiling (StepsExceededError)
//   - WithCycleDetection: a revisited accumulator proves the run can never
//     halt, because Step is deterministic (RuntimeError CYCLE_DETECTED)
//
// Neither guard changes which rule applies at any step.
package engine
