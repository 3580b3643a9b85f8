package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/fracmul/internal/engine"
	"github.com/roach88/fracmul/internal/program"
	"github.com/roach88/fracmul/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Rule     int // optional - filter to one rule index; -1 = all
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID        string             `json:"run_id"`
	ProgramHash  string             `json:"program_hash"`
	Status       string             `json:"status"`
	Initial      string             `json:"initial"`
	InitialState string             `json:"initial_state"`
	Final        string             `json:"final,omitempty"`
	FinalState   string             `json:"final_state,omitempty"`
	Timeline     []program.StepView `json:"timeline"`
	Stats        TraceStats         `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalSteps int         `json:"total_steps"`
	RuleCounts map[int]int `json:"rule_counts"`
	IsComplete bool        `json:"is_complete"`
	Chained    bool        `json:"chained"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print a recorded run",
		Long: `Print the steps of a run recorded with run --db.

Each step is shown with its accumulators, the applied fraction and the
symbolic states and rule, recovered from the stored program. The log is
checked for gaps and for steps that do not continue from the previous one.

Examples:
  fracmul trace --db ./runs.db --run 0191e0c2-...
  fracmul trace --db ./runs.db --run 0191e0c2-... --rule 1
  fracmul trace --db ./runs.db --run 0191e0c2-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().IntVar(&opts.Rule, "rule", -1, "only show steps that applied this rule index")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
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

	state, err := st.GetRunState(ctx, opts.RunID)
	if err != nil {
		return outputStoreError(formatter, err)
	}

	compiled, err := program.Compile(state.Run.Program)
	if err != nil {
		return outputLoadError(formatter, "failed to compile recorded program", err)
	}

	timeline, err := buildTimeline(compiled, state.Steps, opts.Rule)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStoreFailed, "corrupt run log", err)
	}

	result := TraceResult{
		RunID:        state.Run.ID,
		ProgramHash:  state.Run.ProgramHash,
		Status:       string(state.Run.Status),
		Initial:      state.Run.Initial.String(),
		InitialState: compiled.Alphabet.Decode(state.Run.Initial).Succinct(),
		Timeline:     timeline,
		Stats: TraceStats{
			TotalSteps: len(state.Steps),
			RuleCounts: make(map[int]int),
			IsComplete: state.IsComplete,
			Chained:    state.Chained,
		},
	}
	for _, s := range state.Steps {
		result.Stats.RuleCounts[s.Rule]++
	}
	if state.Run.Final != nil {
		result.Final = state.Run.Final.String()
		result.FinalState = compiled.Alphabet.Decode(state.Run.Final).Succinct()
	}

	// Output results
	if formatter.JSON() {
		return formatter.Respond(CLIResponse{Status: "ok", Data: result, RunID: result.RunID})
	}

	return outputTraceText(formatter, result, len(compiled.Fractions))
}

// buildTimeline renders stored steps against the compiled program.
// When ruleFilter is non-negative only steps applying that rule are kept.
func buildTimeline(c *program.Compiled, steps []store.Step, ruleFilter int) ([]program.StepView, error) {
	timeline := []program.StepView{}
	for _, s := range steps {
		if s.Rule < 0 || s.Rule >= len(c.Fractions) {
			return nil, fmt.Errorf("step %d applies rule %d; program has %d rule(s)", s.Seq, s.Rule, len(c.Fractions))
		}
		if ruleFilter >= 0 && s.Rule != ruleFilter {
			continue
		}
		timeline = append(timeline, c.Describe(engine.StepRecord{
			Seq:      s.Seq,
			Before:   s.Before,
			Rule:     s.Rule,
			Fraction: c.Fractions[s.Rule],
			After:    s.After,
		}))
	}
	return timeline, nil
}

// outputTraceText outputs the trace in human-readable format.
func outputTraceText(f *OutputFormatter, result TraceResult, ruleCount int) error {
	w := f.Writer

	fmt.Fprintf(w, "Run: %s\n", result.RunID)
	fmt.Fprintf(w, "Program: %s (%d rule(s))\n", result.ProgramHash, ruleCount)
	fmt.Fprintf(w, "Status: %s (%d step(s))\n", result.Status, result.Stats.TotalSteps)
	fmt.Fprintf(w, "Initial: %s = %s\n", result.Initial, result.InitialState)
	fmt.Fprintln(w)

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "(no steps)")
	}
	for _, v := range result.Timeline {
		writeStepLine(w, v)
	}

	if result.Final != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Result: %s = %s\n", result.Final, result.FinalState)
	}

	if f.Verbose {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Rule usage:")
		for i := 0; i < ruleCount; i++ {
			fmt.Fprintf(w, "  #%d: %d\n", i, result.Stats.RuleCounts[i])
		}
	}

	if !result.Stats.IsComplete {
		fmt.Fprintln(w, "Warning: run log is incomplete")
	}
	if !result.Stats.Chained {
		fmt.Fprintln(w, "Warning: run log is broken; a step does not continue from the previous one")
	}
	return nil
}

// openExistingStore opens a database that must already exist. store.Open
// would otherwise create an empty one.
func openExistingStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("database not found: %s", path), Err: err}
		}
		return nil, &LoadError{Code: ErrCodeStoreFailed, Message: err.Error(), Err: err}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStoreFailed, Message: fmt.Sprintf("failed to open database: %v", err), Err: err}
	}
	return st, nil
}

// outputStoreError reports a database or lookup failure (exit 2).
func outputStoreError(f *OutputFormatter, err error) error {
	var le *LoadError
	if !errors.As(err, &le) {
		code := ErrCodeStoreFailed
		if errors.Is(err, sql.ErrNoRows) {
			code = ErrCodeRunNotFound
		}
		le = &LoadError{Code: code, Message: err.Error(), Err: err}
	}
	_ = f.Error(le.Code, le.Message, nil)
	return WrapExitError(ExitCommandError, le.Code, err)
}
