package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fracmul/internal/compiler"
	"github.com/roach88/fracmul/internal/program"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Rules    int                        `json:"rules"`
	Names    int                        `json:"names"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.ValidationError `json:"warnings,omitempty"`
	Cycles   []compiler.CycleWarning    `json:"cycles,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program>",
		Short: "Check a program without running it",
		Long: `Parse and compile a program without evaluating it.

Reports syntax errors with line and column, state names that no rule uses,
and warnings for rules that can never apply or that keep the program from
halting. Rules that feed each other are listed with --verbose.

Exit codes:
  0 - Program valid (warnings allowed)
  1 - Validation errors
  2 - Command error (unreadable program, syntax error)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	prog, err := LoadProgram(path)
	if err != nil {
		return outputValidateError(formatter, err)
	}
	formatter.VerboseLog("Parsed %s: %d rule(s)", path, len(prog.Rules))

	result := ValidationResult{
		Rules:  len(prog.Rules),
		Names:  len(prog.Names()),
		Cycles: compiler.AnalyzeCycles(prog.Rules),
	}
	for _, v := range compiler.Validate(prog) {
		if v.Severity == compiler.SeverityError {
			result.Errors = append(result.Errors, v)
		} else {
			result.Warnings = append(result.Warnings, v)
		}
	}

	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}

	// Static checks passed; the build itself must agree.
	if _, err := program.Compile(prog); err != nil {
		return outputValidateError(formatter, err)
	}

	result.Valid = true
	return outputValidateSuccess(formatter, path, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, path string, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ %s valid (%d rule(s), %d name(s))\n", path, result.Rules, result.Names)
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "  warning %s\n", warn.Error())
	}
	if formatter.Verbose {
		for _, c := range result.Cycles {
			fmt.Fprintf(w, "  info: %s\n", c.Message)
		}
	}
	return nil
}

// outputValidateError outputs a program that could not be loaded.
func outputValidateError(formatter *OutputFormatter, err error) error {
	le := classifyError(err)
	var details interface{}
	if le.Line > 0 {
		details = map[string]int{"line": le.Line, "column": le.Column}
	}
	_ = formatter.Error(le.Code, le.Message, details)
	if le.Line > 0 && !formatter.JSON() {
		fmt.Fprintf(formatter.Writer, "  at line %d, column %d\n", le.Line, le.Column)
	}
	// Load errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, le.Code, err)
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.JSON() {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.Respond(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}
	for _, warn := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  warning %s\n", warn.Error())
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
