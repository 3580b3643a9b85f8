// Package program turns a parsed program into something runnable and runs it.
//
// Compile derives the alphabet from the rules, encodes the initial state and
// compiles every rule to a fraction. Evaluate and Walk hand the result to the
// rewrite engine and translate accumulators back into symbolic states.
package program
