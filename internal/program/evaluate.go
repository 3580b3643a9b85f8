package program

import (
	"context"
	"log/slog"

	"github.com/roach88/fracmul/internal/engine"
	"github.com/roach88/fracmul/internal/ir"
)

// Evaluation is the outcome of running a Compiled program.
type Evaluation struct {
	engine.Outcome
	FinalState ir.Multiset
	Trace      []engine.StepRecord // nil when produced by Walk
	TraceHash  string              // set by WalkHashed only
}

// Evaluate runs the program to completion and materializes the trace.
//
// On a run failure (step ceiling, cycle, cancellation) the partial
// Evaluation is returned with the error.
func (c *Compiled) Evaluate(ctx context.Context, opts ...engine.Option) (*Evaluation, error) {
	var trace []engine.StepRecord
	ev, err := c.Walk(ctx, func(rec engine.StepRecord) error {
		trace = append(trace, rec)
		return nil
	}, opts...)
	if ev != nil {
		ev.Trace = trace
	}
	return ev, err
}

// Walk runs the program, calling fn for each applied step without keeping
// the trace in memory. fn may be nil.
func (c *Compiled) Walk(ctx context.Context, fn func(engine.StepRecord) error, opts ...engine.Option) (*Evaluation, error) {
	return c.walk(ctx, fn, nil, opts)
}

// WalkHashed is Walk that also fills Evaluation.TraceHash. Use it when the
// run is recorded or compared against a recording.
func (c *Compiled) WalkHashed(ctx context.Context, fn func(engine.StepRecord) error, opts ...engine.Option) (*Evaluation, error) {
	return c.walk(ctx, fn, NewTraceHasher(c.Hash), opts)
}

func (c *Compiled) walk(ctx context.Context, fn func(engine.StepRecord) error, hasher *TraceHasher, opts []engine.Option) (*Evaluation, error) {
	eng, err := engine.New(c.Fractions, opts...)
	if err != nil {
		return nil, err
	}

	visit := fn
	if hasher != nil {
		visit = func(rec engine.StepRecord) error {
			hasher.Add(rec)
			if fn != nil {
				return fn(rec)
			}
			return nil
		}
	}
	out, runErr := eng.Walk(ctx, c.Initial, visit)

	ev := &Evaluation{
		Outcome:    out,
		FinalState: c.Alphabet.Decode(out.Final),
	}
	if hasher != nil {
		sum, hashErr := hasher.Sum(out)
		if runErr == nil && hashErr != nil {
			return ev, hashErr
		}
		ev.TraceHash = sum
	}
	if runErr != nil {
		return ev, runErr
	}

	slog.Info("evaluation finished",
		"steps", out.Steps,
		"final", out.Final,
		"state", ev.FinalState.Succinct(),
	)
	return ev, nil
}
