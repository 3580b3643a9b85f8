package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fracmul/internal/codec"
)

// compileResponse mirrors CLIResponse with a typed payload.
type compileResponse struct {
	Status string            `json:"status"`
	Data   CompilationResult `json:"data"`
	Error  *CLIError         `json:"error"`
}

func TestCompileText(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "bakery.fm", bakerySrc)

	stdout, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)

	assert.Contains(t, stdout, "✓ Compiled 2 rule(s) over 5 name(s)")
	assert.Contains(t, stdout, "  flour = 2\n  sugar = 3\n  apples = 5\n  apple-cake = 7\n  party = 11\n")
	assert.Contains(t, stdout, "Initial: 900 = flour^2 sugar^2 apples^2")
	assert.Contains(t, stdout, "  #0  7/30  flour sugar apples -> apple-cake\n")
	assert.Contains(t, stdout, "  #1  11/49  apple-cake^2 -> party\n")
	assert.Contains(t, stdout, "Hash: ")
}

func TestCompileJSON(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "bakery.fm", bakerySrc)

	stdout, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var resp compileResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)

	result := resp.Data
	assert.Len(t, result.Hash, 64)
	assert.Equal(t, "900", result.Initial)
	assert.Equal(t, "flour^2 sugar^2 apples^2", result.State)
	assert.Equal(t, []codec.Assignment{
		{Name: "flour", Prime: 2},
		{Name: "sugar", Prime: 3},
		{Name: "apples", Prime: 5},
		{Name: "apple-cake", Prime: 7},
		{Name: "party", Prime: 11},
	}, result.Alphabet)
	assert.Equal(t, []CompiledRule{
		{Index: 0, Rule: "flour sugar apples -> apple-cake", Num: "7", Den: "30", Fraction: "7/30"},
		{Index: 1, Rule: "apple-cake^2 -> party", Num: "11", Den: "49", Fraction: "11/49"},
	}, result.Fractions)
}

func TestCompileStateOnlyProgram(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "empty.fm", ";;\n")

	stdout, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Compiled 0 rule(s) over 0 name(s)")
	assert.Contains(t, stdout, "Initial: 1 = ()")
	assert.NotContains(t, stdout, "Primes:")
	assert.NotContains(t, stdout, "Fractions:")
}

func TestCompileOutputRoundTripsAsCUE(t *testing.T) {
	dir := t.TempDir()
	path := writeProgram(t, dir, "bakery.fm", bakerySrc)
	outPath := filepath.Join(dir, "bakery.json.cue")

	stdout, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), "-o", outPath, path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote canonical program to "+outPath)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t,
		`{"rules":[{"left":["flour","sugar","apples"],"right":["apple-cake"]},{"left":["apple-cake","apple-cake"],"right":["party"]}],"state":["flour","flour","sugar","sugar","apples","apples"]}`+"\n",
		string(data))

	original, err := LoadCompiled(path)
	require.NoError(t, err)
	reloaded, err := LoadCompiled(outPath)
	require.NoError(t, err)
	assert.Equal(t, original.Hash, reloaded.Hash)
}

func TestCompileParseError(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "bad.fm", ":: a > b\n")

	stdout, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E103]")
}

func TestCompileBadExponentJSON(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "bad.fm", ":: a^ > b\n;; a\n")

	stdout, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E104", resp.Error.Code)
}

func TestCompileUnwritableOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeProgram(t, dir, "bakery.fm", bakerySrc)

	stdout, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}),
		"-o", filepath.Join(dir, "missing", "out.cue"), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E007]")
}
