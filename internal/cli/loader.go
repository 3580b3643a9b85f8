package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/fracmul/internal/codec"
	"github.com/roach88/fracmul/internal/compiler"
	"github.com/roach88/fracmul/internal/engine"
	"github.com/roach88/fracmul/internal/grammar"
	"github.com/roach88/fracmul/internal/ir"
	"github.com/roach88/fracmul/internal/program"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Path not found
	ErrCodeReadFailed  = "E003" // File read error
	ErrCodeCUEFailed   = "E004" // CUE document did not compile
	ErrCodeStoreFailed = "E005" // Database open/read/write error
	ErrCodeRunNotFound = "E006" // No such recorded run
	ErrCodeWriteFailed = "E007" // File write error

	// E1xx are grammar.ParseError codes, passed through unchanged.

	// Build errors
	ErrCodeUnboundState  = "E201" // State names a symbol no rule uses
	ErrCodeUnknownSymbol = "E205" // Encoding hit a name outside the alphabet
	ErrCodeInvalidRule   = "E206" // Rule compiled to an unusable fraction

	// Runtime errors
	ErrCodeStepsExceeded = "E301" // Step ceiling reached before halting
	ErrCodeCycle         = "E302" // Accumulator repeated
	ErrCodeInterrupted   = "E303" // Run cancelled by signal

	ErrCodeTestFailed  = "E_TEST_FAILED"
	ErrCodeDeterminism = "E_DETERMINISM"
)

// LoadError describes a program that could not be loaded or built.
type LoadError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Err     error  `json:"-"`
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d:%d: %s", e.Code, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadProgram reads a program file. Files ending in .cue are compiled as
// CUE documents; anything else is parsed with the text grammar.
//
// All errors are *LoadError.
func LoadProgram(path string) (*ir.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("program not found: %s", path), Err: err}
		}
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading program: %v", err), Err: err}
	}

	var prog *ir.Program
	if filepath.Ext(path) == ".cue" {
		prog, err = compiler.CompileSource(path, src)
	} else {
		prog, err = grammar.Parse(string(src))
	}
	if err != nil {
		return nil, classifyError(err)
	}
	return prog, nil
}

// LoadCompiled reads a program file and compiles it for evaluation.
func LoadCompiled(path string) (*program.Compiled, error) {
	prog, err := LoadProgram(path)
	if err != nil {
		return nil, err
	}
	compiled, err := program.Compile(prog)
	if err != nil {
		return nil, classifyError(err)
	}
	return compiled, nil
}

// classifyError maps an error from any layer to a LoadError with the
// matching CLI error code and, where known, a source position.
func classifyError(err error) *LoadError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}

	var parseErr *grammar.ParseError
	if errors.As(err, &parseErr) {
		return &LoadError{
			Code:    parseErr.Code,
			Message: parseErr.Message,
			Line:    parseErr.Pos.Line,
			Column:  parseErr.Pos.Column,
			Err:     err,
		}
	}

	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		le := &LoadError{
			Code:    ErrCodeCUEFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Err:     err,
		}
		if compileErr.Pos.IsValid() {
			le.Line = compileErr.Pos.Line()
			le.Column = compileErr.Pos.Column()
		}
		return le
	}

	var unbound *program.UnboundStateSymbolError
	if errors.As(err, &unbound) {
		return &LoadError{Code: ErrCodeUnboundState, Message: unbound.Error(), Err: err}
	}

	var unknown *codec.UnknownSymbolError
	if errors.As(err, &unknown) {
		return &LoadError{Code: ErrCodeUnknownSymbol, Message: unknown.Error(), Err: err}
	}

	var runtimeErr *engine.RuntimeError
	if errors.As(err, &runtimeErr) {
		code := ErrCodeInvalidRule
		if runtimeErr.Code == engine.ErrCodeCycleDetected {
			code = ErrCodeCycle
		}
		return &LoadError{Code: code, Message: runtimeErr.Error(), Err: err}
	}

	if engine.IsStepsExceededError(err) {
		return &LoadError{Code: ErrCodeStepsExceeded, Message: err.Error(), Err: err}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &LoadError{Code: ErrCodeInterrupted, Message: "run interrupted", Err: err}
	}

	return &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Err: err}
}
