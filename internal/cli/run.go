package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/fracmul/internal/engine"
	"github.com/roach88/fracmul/internal/ir"
	"github.com/roach88/fracmul/internal/program"
	"github.com/roach88/fracmul/internal/store"
)

// recordBatch is how many steps are buffered before a store write.
const recordBatch = 256

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	MaxSteps     int
	Quiet        bool
	DetectCycles bool
	Database     string

	// IDGenerator allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator store.IDGenerator
}

// RunReport is the JSON payload of the run command.
type RunReport struct {
	Program    string             `json:"program"`
	Outcome    string             `json:"outcome"`
	Steps      int                `json:"steps"`
	Initial    string             `json:"initial"`
	Final      string             `json:"final"`
	FinalState string             `json:"final_state"`
	TraceHash  string             `json:"trace_hash,omitempty"`
	Trace      []program.StepView `json:"trace,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Evaluate a program and print its trace",
		Long: `Parse, compile and evaluate a program.

Every applied rule is printed as one line:

  [seq] before * num/den = after  | pre-state | rule | post-state

followed by the final accumulator and its symbolic state. Programs may not
halt; use --max-steps or --detect-cycles to bound a run, or Ctrl-C to stop it.

Exit codes:
  0 - Program halted
  1 - Run stopped early (step ceiling, cycle, interrupt)
  2 - Command error (unreadable program, parse error, database error)

Examples:
  fracmul run ./bakery.fm
  fracmul run ./doubling.fm --max-steps 100
  fracmul run ./bakery.cue --db ./runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "stop after this many steps (0 = unbounded)")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "print only the result, not each step")
	cmd.Flags().BoolVar(&opts.DetectCycles, "detect-cycles", false, "stop when an accumulator value repeats")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")

	return cmd
}

func runProgram(opts *RunOptions, path string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag. The trace is the run's
	// output, so routine logs stay quiet unless asked for.
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.MaxSteps < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--max-steps must not be negative, got %d", opts.MaxSteps))
	}

	compiled, err := LoadCompiled(path)
	if err != nil {
		return outputLoadError(formatter, "failed to load program", err)
	}
	slog.Info("program compiled", "path", path, "rules", len(compiled.Fractions), "hash", compiled.Hash)

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping run", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	// Store writes outlive a cancelled run so the log can be closed out.
	storeCtx := context.WithoutCancel(ctx)

	var rec *runRecorder
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return outputCommandError(formatter, ErrCodeStoreFailed, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		idGen := opts.IDGenerator
		if idGen == nil {
			idGen = store.UUIDv7Generator{}
		}
		rec = &runRecorder{st: st, runID: idGen.Generate()}
		if err := rec.start(storeCtx, compiled, opts); err != nil {
			return outputCommandError(formatter, ErrCodeStoreFailed, "failed to record run", err)
		}
		slog.Info("recording run", "db", opts.Database, "run_id", rec.runID)
	}

	engineOpts := []engine.Option{engine.WithMaxSteps(opts.MaxSteps)}
	if opts.DetectCycles {
		engineOpts = append(engineOpts, engine.WithCycleDetection())
	}

	report := RunReport{
		Program: path,
		Initial: compiled.Initial.String(),
	}
	w := cmd.OutOrStdout()

	// Only a recording or the JSON report carries the trace hash.
	walk := compiled.Walk
	if rec != nil || formatter.JSON() {
		walk = compiled.WalkHashed
	}

	ev, runErr := walk(ctx, func(step engine.StepRecord) error {
		if !opts.Quiet {
			view := compiled.Describe(step)
			if formatter.JSON() {
				report.Trace = append(report.Trace, view)
			} else {
				writeStepLine(w, view)
			}
		}
		return rec.add(storeCtx, step)
	}, engineOpts...)
	if ev == nil {
		return outputLoadError(formatter, "failed to evaluate program", runErr)
	}

	status := store.StatusOf(runErr)
	if status == store.StatusFailed && rec != nil && rec.err != nil {
		return outputCommandError(formatter, ErrCodeStoreFailed, "failed to record steps", runErr)
	}

	if err := rec.finish(storeCtx, status, ev); err != nil {
		return outputCommandError(formatter, ErrCodeStoreFailed, "failed to record run", err)
	}

	report.Outcome = string(status)
	report.Steps = ev.Steps
	report.Final = ev.Final.String()
	report.FinalState = ev.FinalState.Succinct()
	report.TraceHash = ev.TraceHash

	return outputRunResult(formatter, report, rec.id(), runErr)
}

// writeStepLine prints one step of the text trace.
func writeStepLine(w io.Writer, v program.StepView) {
	fmt.Fprintf(w, "[%d] %s * %s = %s  | %s | %s | %s\n",
		v.Seq, v.Before, v.Fraction, v.After, v.PreState, v.Rule, v.PostState)
}

func outputRunResult(f *OutputFormatter, report RunReport, runID string, runErr error) error {
	var cliErr *CLIError
	if runErr != nil {
		le := classifyError(runErr)
		cliErr = &CLIError{Code: le.Code, Message: le.Message}
	}

	if f.JSON() {
		resp := CLIResponse{Status: "ok", Data: report, RunID: runID}
		if cliErr != nil {
			resp.Status = "error"
			resp.Error = cliErr
		}
		if err := f.Respond(resp); err != nil {
			return err
		}
	} else {
		w := f.Writer
		if cliErr == nil {
			fmt.Fprintf(w, "Result: %s = %s\n", report.Final, report.FinalState)
		} else {
			fmt.Fprintf(w, "Stopped after %d step(s): %s = %s\n", report.Steps, report.Final, report.FinalState)
			fmt.Fprintf(w, "Error [%s]: %s\n", cliErr.Code, cliErr.Message)
		}
		if runID != "" {
			f.VerboseLog("Run recorded: %s", runID)
		}
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "run did not halt", runErr)
	}
	return nil
}

// outputLoadError reports a program that could not be loaded, compiled or
// started. These are command errors (exit 2).
func outputLoadError(f *OutputFormatter, message string, err error) error {
	le := classifyError(err)
	var details interface{}
	if le.Line > 0 {
		details = map[string]int{"line": le.Line, "column": le.Column}
	}
	if outErr := f.Error(le.Code, le.Message, details); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, message, err)
}

// outputCommandError reports an infrastructure failure (exit 2).
func outputCommandError(f *OutputFormatter, code, message string, err error) error {
	if outErr := f.Error(code, fmt.Sprintf("%s: %v", message, err), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, message, err)
}

// runRecorder writes one run and its steps to the store. A nil recorder
// records nothing.
type runRecorder struct {
	st      *store.Store
	runID   string
	pending []store.Step
	err     error // first write failure
}

func (r *runRecorder) id() string {
	if r == nil {
		return ""
	}
	return r.runID
}

func (r *runRecorder) start(ctx context.Context, c *program.Compiled, opts *RunOptions) error {
	return r.st.CreateRun(ctx, store.Run{
		ID:            r.runID,
		ProgramHash:   c.Hash,
		Program:       c.Program,
		Initial:       c.Initial,
		MaxSteps:      opts.MaxSteps,
		DetectCycles:  opts.DetectCycles,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	})
}

func (r *runRecorder) add(ctx context.Context, step engine.StepRecord) error {
	if r == nil {
		return nil
	}
	r.pending = append(r.pending, store.Step{
		RunID:  r.runID,
		Seq:    step.Seq,
		Rule:   step.Rule,
		Before: step.Before,
		After:  step.After,
	})
	if len(r.pending) >= recordBatch {
		return r.flush(ctx)
	}
	return nil
}

func (r *runRecorder) flush(ctx context.Context) error {
	err := r.st.WriteSteps(ctx, r.pending)
	r.pending = r.pending[:0]
	if err != nil && r.err == nil {
		r.err = err
	}
	return err
}

func (r *runRecorder) finish(ctx context.Context, status store.RunStatus, ev *program.Evaluation) error {
	if r == nil {
		return nil
	}
	if err := r.flush(ctx); err != nil {
		return err
	}
	return r.st.FinishRun(ctx, r.runID, store.RunResult{
		Status:    status,
		Final:     ev.Final,
		Steps:     ev.Steps,
		TraceHash: ev.TraceHash,
	})
}
