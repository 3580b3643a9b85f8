package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fracmul/internal/engine"
	"github.com/roach88/fracmul/internal/ir"
)

func TestLoadProgramText(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "bakery.fm", bakerySrc)

	prog, err := LoadProgram(path)
	require.NoError(t, err)
	require.Len(t, prog.Rules, 2)
	assert.Equal(t, "apple-cake^2 -> party", prog.Rules[1].String())
	assert.Equal(t, "flour^2 sugar^2 apples^2", prog.State.Succinct())
}

func TestLoadProgramCUEMatchesText(t *testing.T) {
	text, err := LoadCompiled(writeProgram(t, t.TempDir(), "bakery.fm", bakerySrc))
	require.NoError(t, err)

	cue, err := LoadCompiled(filepath.Join("..", "harness", "testdata", "programs", "bakery.cue"))
	require.NoError(t, err)

	assert.Equal(t, text.Hash, cue.Hash)
	assert.Equal(t, text.Initial.String(), cue.Initial.String())
}

func TestLoadProgramNotFound(t *testing.T) {
	_, err := LoadProgram(filepath.Join(t.TempDir(), "missing.fm"))
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeNotFound, le.Code)
	assert.Contains(t, le.Message, "program not found")
}

func TestLoadProgramParseErrorPosition(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "bad.fm", ":: a b\n;; a\n")

	_, err := LoadProgram(path)
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "E102", le.Code)
	assert.Equal(t, 2, le.Line)
	assert.Equal(t, 1, le.Column)
	assert.Contains(t, le.Error(), "line 2:1")
}

func TestLoadProgramCUEError(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "bad.cue", "rules: []\n")

	_, err := LoadProgram(path)
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeCUEFailed, le.Code)
	assert.Contains(t, le.Message, "state is required")
}

func TestLoadCompiledUnboundState(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "unbound.fm", ":: a > b\n;; c\n")

	_, err := LoadCompiled(path)
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeUnboundState, le.Code)
	assert.Contains(t, le.Message, `"c"`)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"steps exceeded", &engine.StepsExceededError{Steps: 3, Limit: 3}, ErrCodeStepsExceeded},
		{"cycle", engine.NewCycleError(0, 2), ErrCodeCycle},
		{"wrapped cycle", fmt.Errorf("run: %w", engine.NewCycleError(1, 4)), ErrCodeCycle},
		{"invalid fraction", &engine.RuntimeError{Code: engine.ErrCodeInvalidFraction, Message: "bad"}, ErrCodeInvalidRule},
		{"cancelled", context.Canceled, ErrCodeInterrupted},
		{"other", errors.New("disk on fire"), ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			le := classifyError(tt.err)
			assert.Equal(t, tt.code, le.Code)
			assert.ErrorIs(t, le, tt.err)
		})
	}
}

func TestClassifyErrorKeepsLoadError(t *testing.T) {
	orig := &LoadError{Code: ErrCodeReadFailed, Message: "permission denied"}
	assert.Same(t, orig, classifyError(fmt.Errorf("load: %w", orig)))
}

func TestLoadProgramEmptyState(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "empty.fm", ":: a > b\n;;\n")

	compiled, err := LoadCompiled(path)
	require.NoError(t, err)
	assert.Equal(t, ir.Multiset{}, compiled.Program.State)
	assert.Equal(t, "1", compiled.Initial.String())
}
