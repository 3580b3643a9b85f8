package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/roach88/fracmul/internal/ir"
)

// StepRecord describes one applied rewrite.
type StepRecord struct {
	Seq      int64       // 1-based step number
	Before   *big.Int    // accumulator before the step
	Rule     int         // index of the applied fraction
	Fraction ir.Fraction // the applied fraction
	After    *big.Int    // accumulator after the step
}

// Outcome summarizes a finished (or interrupted) walk.
type Outcome struct {
	Final  *big.Int // last accumulator reached
	Steps  int      // number of applied steps
	Halted bool     // true iff the walk stopped at a stuck state
}

// Result is an Outcome plus the materialized trace.
type Result struct {
	Outcome
	Trace []StepRecord
}

// Engine drives the rewrite loop over a fixed, ordered fraction list.
//
// INVARIANTS:
//   - fracs order NEVER changes after construction
//   - every denominator and numerator is positive
//   - evaluation is single-threaded; Engine holds no per-run state, so one
//     Engine may serve several sequential or concurrent Walks
type Engine struct {
	fracs        []ir.Fraction
	maxSteps     int  // 0 = unbounded
	detectCycles bool // record visited accumulators
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSteps sets a step-count ceiling. Zero or negative means unbounded,
// which is the default.
func WithMaxSteps(maxSteps int) Option {
	return func(e *Engine) {
		e.maxSteps = maxSteps
	}
}

// WithCycleDetection makes the engine fail a run as soon as an accumulator
// value repeats.
func WithCycleDetection() Option {
	return func(e *Engine) {
		e.detectCycles = true
	}
}

// New creates an Engine over fracs in declaration order.
//
// The slice is copied so later mutation by the caller cannot reorder rules.
// Returns a RuntimeError with ErrCodeInvalidFraction if any term is not
// positive.
func New(fracs []ir.Fraction, opts ...Option) (*Engine, error) {
	for i, f := range fracs {
		if f.Num == nil || f.Den == nil || f.Num.Sign() <= 0 || f.Den.Sign() <= 0 {
			return nil, &RuntimeError{
				Code:    ErrCodeInvalidFraction,
				Message: fmt.Sprintf("fraction %d has a non-positive term", i),
				Details: map[string]string{"index": fmt.Sprintf("%d", i)},
			}
		}
	}

	fracsCopy := make([]ir.Fraction, len(fracs))
	copy(fracsCopy, fracs)

	e := &Engine{fracs: fracsCopy}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Walk rewrites acc until no fraction applies, calling fn for every applied
// step in order. It returns the final accumulator with Halted set.
//
// Walk stops early, with Halted false, when:
//   - ctx is cancelled (checked between steps): ctx.Err() is returned
//   - fn returns an error: that error is returned unwrapped
//   - the step ceiling would be exceeded: *StepsExceededError
//   - cycle detection sees a repeated accumulator: *RuntimeError
//
// Without a ceiling or cancellation Walk may never return; that is the
// modeled language's semantics, not a defect.
func (e *Engine) Walk(ctx context.Context, acc *big.Int, fn func(StepRecord) error) (Outcome, error) {
	clock := NewClock()

	var quota *QuotaEnforcer
	if e.maxSteps > 0 {
		quota = NewQuotaEnforcer(e.maxSteps)
	}

	var cycles *CycleDetector
	if e.detectCycles {
		cycles = NewCycleDetector()
		cycles.Record(acc, 0)
	}

	slog.Info("engine starting",
		"fractions", len(e.fracs),
		"max_steps", e.maxSteps,
		"detect_cycles", e.detectCycles,
	)

	cur := acc
	for {
		if err := ctx.Err(); err != nil {
			slog.Info("engine stopping: context cancelled", "steps", clock.Current())
			return Outcome{Final: cur, Steps: int(clock.Current())}, err
		}

		next, applied := Step(cur, e.fracs)
		if applied == NoRule {
			slog.Info("engine halted", "steps", clock.Current(), "final", cur)
			return Outcome{Final: cur, Steps: int(clock.Current()), Halted: true}, nil
		}

		if quota != nil {
			if err := quota.Check(); err != nil {
				slog.Error("max steps quota exceeded",
					"steps", clock.Current(),
					"limit", e.maxSteps,
					"event", "quota_exceeded",
				)
				return Outcome{Final: cur, Steps: int(clock.Current())}, err
			}
		}

		rec := StepRecord{
			Seq:      clock.Next(),
			Before:   cur,
			Rule:     applied,
			Fraction: e.fracs[applied],
			After:    next,
		}

		slog.Debug("rule applied",
			"seq", rec.Seq,
			"rule", rec.Rule,
			"before", rec.Before,
			"after", rec.After,
		)

		if fn != nil {
			if err := fn(rec); err != nil {
				return Outcome{Final: next, Steps: int(rec.Seq)}, err
			}
		}

		if cycles != nil {
			if first, seen := cycles.Record(next, rec.Seq); seen {
				slog.Error("cycle detected",
					"seq", rec.Seq,
					"first_seq", first,
					"event", "cycle_detected",
				)
				return Outcome{Final: next, Steps: int(rec.Seq)}, NewCycleError(first, rec.Seq)
			}
		}

		cur = next
	}
}

// Run is Walk with the trace materialized. The partial Result is returned
// alongside any error so callers can inspect how far the run got.
func (e *Engine) Run(ctx context.Context, acc *big.Int) (*Result, error) {
	res := &Result{}
	out, err := e.Walk(ctx, acc, func(rec StepRecord) error {
		res.Trace = append(res.Trace, rec)
		return nil
	})
	res.Outcome = out
	return res, err
}
