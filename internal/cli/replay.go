package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fracmul/internal/engine"
	"github.com/roach88/fracmul/internal/program"
	"github.com/roach88/fracmul/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	Status        string `json:"status"`
	Steps         int    `json:"steps"`
	IsComplete    bool   `json:"is_complete"`
	PrefixOnly    bool   `json:"prefix_only"`
	Deterministic bool   `json:"deterministic"`
	Mismatch      string `json:"mismatch,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// errLogExhausted stops a replay once every recorded step was checked.
var errLogExhausted = errors.New("recorded log exhausted")

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run recorded programs and verify determinism",
		Long: `Re-evaluate recorded runs and compare them with the log.

Each run's stored program is compiled again and evaluated with the options it
was recorded with. Every replayed step must match the recorded step, and the
outcome, final accumulator and trace hash must match the recorded result.

Runs that never finished (interrupted, crashed) are checked up to the last
recorded step only, since evaluating them further might not terminate.

Exit codes:
  0 - All runs are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  fracmul replay --db ./runs.db
  fracmul replay --db ./runs.db --run 0191e0c2-...
  fracmul replay --db ./runs.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return outputStoreError(formatter, err)
	}
	defer st.Close()

	// Get runs to process
	var runs []store.Run
	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if err != nil {
			return outputStoreError(formatter, err)
		}
		runs = []store.Run{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return outputStoreError(formatter, err)
		}
	}

	if len(runs) == 0 {
		if formatter.JSON() {
			return outputReplayJSON(formatter, ReplayResult{
				Runs:             []ReplayRunResult{},
				AllDeterministic: true,
			})
		}
		fmt.Fprintln(formatter.Writer, "No runs found in database.")
		return nil
	}

	// Process each run
	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}

	for _, run := range runs {
		formatter.VerboseLog("Replaying run %s (%s, %d step(s))", run.ID, run.Status, run.Steps)
		runResult, err := replayAndVerifyRun(ctx, st, run)
		if err != nil {
			return outputCommandError(formatter, ErrCodeStoreFailed, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}

		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	// Output results
	if formatter.JSON() {
		return outputReplayJSON(formatter, result)
	}

	return outputReplayText(formatter, result)
}

// prefixOnly reports whether a run's log is only a prefix of its
// evaluation, so replay must stop at the last recorded step.
func prefixOnly(status store.RunStatus) bool {
	switch status {
	case store.StatusHalted, store.StatusStepsExceeded, store.StatusCycle:
		return false
	default:
		return true
	}
}

// replayAndVerifyRun re-evaluates one run and compares it with its log.
func replayAndVerifyRun(ctx context.Context, st *store.Store, run store.Run) (ReplayRunResult, error) {
	state, err := st.GetRunState(ctx, run.ID)
	if err != nil {
		return ReplayRunResult{}, err
	}

	res := ReplayRunResult{
		RunID:      run.ID,
		Status:     string(run.Status),
		Steps:      len(state.Steps),
		IsComplete: state.IsComplete,
		PrefixOnly: prefixOnly(run.Status),
	}

	mismatch, err := compareReplay(ctx, state, res.PrefixOnly)
	if err != nil {
		return ReplayRunResult{}, err
	}
	if mismatch == "" && !state.Chained {
		mismatch = "recorded log is broken: a step does not continue from the previous one"
	}

	res.Mismatch = mismatch
	res.Deterministic = mismatch == ""
	return res, nil
}

// compareReplay evaluates the recorded program again and returns a
// description of the first difference, or "" when the replay matches.
func compareReplay(ctx context.Context, state store.RunState, prefix bool) (string, error) {
	run := state.Run

	compiled, err := program.Compile(run.Program)
	if err != nil {
		return "", fmt.Errorf("compile recorded program: %w", err)
	}
	if compiled.Hash != run.ProgramHash {
		return fmt.Sprintf("program hash: recorded %s, recompiled %s", run.ProgramHash, compiled.Hash), nil
	}
	if compiled.Initial.Cmp(run.Initial) != 0 {
		return fmt.Sprintf("initial accumulator: recorded %s, recompiled %s", run.Initial, compiled.Initial), nil
	}

	opts := []engine.Option{engine.WithMaxSteps(run.MaxSteps)}
	if run.DetectCycles {
		opts = append(opts, engine.WithCycleDetection())
	}

	var mismatch string
	next := 0
	ev, runErr := compiled.WalkHashed(ctx, func(rec engine.StepRecord) error {
		if next >= len(state.Steps) {
			if !prefix {
				mismatch = fmt.Sprintf("step %d: replay continued past the %d recorded step(s)", rec.Seq, len(state.Steps))
			}
			return errLogExhausted
		}
		want := state.Steps[next]
		next++
		if want.Seq != rec.Seq || want.Rule != rec.Rule ||
			want.Before.Cmp(rec.Before) != 0 || want.After.Cmp(rec.After) != 0 {
			mismatch = fmt.Sprintf("step %d: recorded rule %d (%s -> %s), replayed rule %d (%s -> %s)",
				rec.Seq, want.Rule, want.Before, want.After, rec.Rule, rec.Before, rec.After)
			return errLogExhausted
		}
		return nil
	}, opts...)
	if ev == nil {
		return "", fmt.Errorf("replay: %w", runErr)
	}
	if mismatch != "" {
		return mismatch, nil
	}

	if next < len(state.Steps) {
		return fmt.Sprintf("replay stopped after %d step(s); log has %d", next, len(state.Steps)), nil
	}

	if prefix {
		return "", nil
	}

	if got := store.StatusOf(runErr); got != run.Status {
		return fmt.Sprintf("outcome: recorded %s, replayed %s", run.Status, got), nil
	}
	if ev.Steps != run.Steps {
		return fmt.Sprintf("steps: recorded %d, replayed %d", run.Steps, ev.Steps), nil
	}
	if run.Final == nil || ev.Final.Cmp(run.Final) != 0 {
		return fmt.Sprintf("final accumulator: recorded %v, replayed %s", run.Final, ev.Final), nil
	}
	if ev.TraceHash != run.TraceHash {
		return fmt.Sprintf("trace hash: recorded %s, replayed %s", run.TraceHash, ev.TraceHash), nil
	}
	return "", nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(f *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDeterminism,
			Message: "determinism verification failed",
		}
	}

	if err := f.Respond(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(f *OutputFormatter, result ReplayResult) error {
	w := f.Writer

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s\n", status, run.RunID)
		fmt.Fprintf(w, "  Status: %s, %d step(s)\n", run.Status, run.Steps)
		if f.Verbose {
			fmt.Fprintf(w, "  Complete: %v\n", run.IsComplete)
		}
		if run.PrefixOnly {
			fmt.Fprintln(w, "  Checked recorded prefix only")
		}
		if run.Mismatch != "" {
			fmt.Fprintf(w, "  Mismatch: %s\n", run.Mismatch)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
