package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/fracmul/internal/codec"
	"github.com/roach88/fracmul/internal/ir"
	"github.com/roach88/fracmul/internal/program"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledRule is one rule and the fraction it compiles to.
type CompiledRule struct {
	Index    int    `json:"index"`
	Rule     string `json:"rule"`
	Num      string `json:"num"`
	Den      string `json:"den"`
	Fraction string `json:"fraction"`
}

// CompilationResult holds the compiled form of a program.
type CompilationResult struct {
	Hash      string            `json:"hash"`
	Alphabet  []codec.Assignment `json:"alphabet"`
	State     string            `json:"state"`
	Initial   string            `json:"initial"`
	Fractions []CompiledRule    `json:"fractions"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <program>",
		Short: "Show the prime encoding of a program",
		Long: `Compile a program and print its numeric form.

Shows the prime assigned to each name, the initial accumulator and the
fraction every rule compiles to, in the order rules are tried.

With --output the parsed program is written as canonical JSON. JSON is
valid CUE, so a file named *.cue can be passed back to run.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the program as canonical JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	compiled, err := LoadCompiled(path)
	if err != nil {
		return outputCompileError(formatter, err)
	}
	formatter.VerboseLog("Compiled %s: %d name(s), %d rule(s)", path, compiled.Alphabet.Len(), len(compiled.Fractions))

	result := buildCompilationResult(compiled)

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeProgramToFile(compiled.Program, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func buildCompilationResult(c *program.Compiled) CompilationResult {
	result := CompilationResult{
		Hash:      c.Hash,
		Alphabet:  c.Alphabet.Assignments(),
		State:     c.Program.State.Succinct(),
		Initial:   c.Initial.String(),
		Fractions: make([]CompiledRule, len(c.Fractions)),
	}
	for i, f := range c.Fractions {
		result.Fractions[i] = CompiledRule{
			Index:    i,
			Rule:     c.Program.Rules[i].String(),
			Num:      f.Num.String(),
			Den:      f.Den.String(),
			Fraction: f.String(),
		}
	}
	return result
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result CompilationResult, outputFile string) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d rule(s) over %d name(s)\n\n", len(result.Fractions), len(result.Alphabet))

	if len(result.Alphabet) > 0 {
		fmt.Fprintln(w, "Primes:")
		for _, a := range result.Alphabet {
			fmt.Fprintf(w, "  %s = %d\n", a.Name, a.Prime)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Initial: %s = %s\n\n", result.Initial, result.State)

	if len(result.Fractions) > 0 {
		fmt.Fprintln(w, "Fractions:")
		for _, f := range result.Fractions {
			fmt.Fprintf(w, "  #%d  %s  %s\n", f.Index, f.Fraction, f.Rule)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Hash: %s\n", result.Hash)
	if outputFile != "" {
		fmt.Fprintf(w, "Wrote canonical program to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a program that could not be loaded or built.
func outputCompileError(formatter *OutputFormatter, err error) error {
	le := classifyError(err)
	var details interface{}
	if le.Line > 0 {
		details = map[string]int{"line": le.Line, "column": le.Column}
	}
	_ = formatter.Error(le.Code, le.Message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, le.Code, err)
}

// writeProgramToFile writes the program in canonical JSON form, the same
// bytes its hash is computed over.
func writeProgramToFile(p *ir.Program, filename string) error {
	data, err := ir.MarshalCanonical(p.CanonicalMap())
	if err != nil {
		return fmt.Errorf("marshaling program: %w", err)
	}

	if err := os.WriteFile(filename, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
