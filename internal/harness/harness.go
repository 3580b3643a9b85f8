package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/fracmul/internal/engine"
	"github.com/roach88/fracmul/internal/ir"
	"github.com/roach88/fracmul/internal/program"
	"github.com/roach88/fracmul/internal/store"
)

// stepBatch is how many steps are buffered before a store write.
const stepBatch = 256

// Harness is the test execution engine.
// It runs one scenario against a fresh store with a fixed run id.
type Harness struct {
	store    *store.Store
	compiled *program.Compiled
	runID    string
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Load and compile the program
// 2. Record a run and evaluate it step by step through the engine
// 3. Verify the recorded log is complete and chained
// 4. Evaluate the expect clause and assertions
//
// A returned error means the scenario could not be executed (bad program,
// store failure). Outcome mismatches are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context for cancellation.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	prog, err := scenario.LoadProgram()
	if err != nil {
		return nil, fmt.Errorf("failed to load program: %w", err)
	}

	compiled, err := program.Compile(prog)
	if err != nil {
		return nil, fmt.Errorf("failed to compile program: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	runID := scenario.RunID
	if runID == "" {
		runID = "test-run-default"
	}

	h := &Harness{
		store:    st,
		compiled: compiled,
		runID:    store.NewFixedGenerator(runID).Generate(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	result := NewResult()
	if err := h.execute(ctx, scenario, result); err != nil {
		return nil, err
	}

	if err := h.verifyLog(ctx, result); err != nil {
		return nil, err
	}

	checkExpect(scenario.Expect, result)
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// execute records and evaluates the run, filling in the trace and outcome.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) error {
	c := h.compiled

	err := h.store.CreateRun(ctx, store.Run{
		ID:            h.runID,
		ProgramHash:   c.Hash,
		Program:       c.Program,
		Initial:       c.Initial,
		MaxSteps:      scenario.MaxSteps,
		DetectCycles:  scenario.DetectCycles,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	opts := []engine.Option{engine.WithMaxSteps(scenario.MaxSteps)}
	if scenario.DetectCycles {
		opts = append(opts, engine.WithCycleDetection())
	}

	result.States = append(result.States, c.Program.State)

	var pending []store.Step
	flush := func() error {
		err := h.store.WriteSteps(ctx, pending)
		pending = pending[:0]
		return err
	}

	ev, runErr := c.WalkHashed(ctx, func(rec engine.StepRecord) error {
		result.AddStep(rec.Seq, rec.Rule, rec.After.String(), c.Alphabet.Decode(rec.After))
		pending = append(pending, store.Step{
			RunID:  h.runID,
			Seq:    rec.Seq,
			Rule:   rec.Rule,
			Before: rec.Before,
			After:  rec.After,
		})
		if len(pending) >= stepBatch {
			return flush()
		}
		return nil
	}, opts...)
	if ev == nil {
		return fmt.Errorf("failed to evaluate program: %w", runErr)
	}
	if err := flush(); err != nil {
		return fmt.Errorf("failed to record steps: %w", err)
	}

	status := store.StatusOf(runErr)
	if status == store.StatusFailed || status == store.StatusInterrupted {
		return fmt.Errorf("failed to evaluate program: %w", runErr)
	}

	result.Outcome = string(status)
	result.Steps = ev.Steps
	result.Final = ev.Final.String()
	result.FinalState = ev.FinalState
	result.TraceHash = ev.TraceHash

	h.logger.Info("scenario run finished",
		"run_id", h.runID,
		"outcome", result.Outcome,
		"steps", result.Steps,
	)

	err = h.store.FinishRun(ctx, h.runID, store.RunResult{
		Status:    status,
		Final:     ev.Final,
		Steps:     ev.Steps,
		TraceHash: ev.TraceHash,
	})
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// verifyLog reads the run back and flags a log that does not match what
// was evaluated.
func (h *Harness) verifyLog(ctx context.Context, result *Result) error {
	state, err := h.store.GetRunState(ctx, h.runID)
	if err != nil {
		return fmt.Errorf("failed to read run log: %w", err)
	}

	if !state.IsComplete {
		result.AddError(fmt.Sprintf("run log incomplete: %d of %d steps recorded", len(state.Steps), state.Run.Steps))
	}
	if !state.Chained {
		result.AddError("run log broken: a step does not start where the previous one ended")
	}
	return nil
}

// checkExpect compares the run outcome against the expect clause.
func checkExpect(expect Expect, result *Result) {
	want := expect.Outcome
	if want == "" {
		want = string(store.StatusHalted)
	}
	if result.Outcome != want {
		result.AddError(fmt.Sprintf("outcome: expected %s, got %s", want, result.Outcome))
	}

	if expect.Steps != nil && *expect.Steps != result.Steps {
		result.AddError(fmt.Sprintf("steps: expected %d, got %d", *expect.Steps, result.Steps))
	}

	if expect.FinalState != nil {
		wantState, err := parseTerms(expect.FinalState)
		if err != nil {
			result.AddError(fmt.Sprintf("expect.final_state: %v", err))
			return
		}
		if !wantState.Equal(result.FinalState) {
			result.AddError(fmt.Sprintf("final_state: expected %s, got %s",
				wantState.Succinct(), result.FinalState.Succinct()))
		}
	}
}
