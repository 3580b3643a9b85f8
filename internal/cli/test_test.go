package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bakeryScenario = `name: bakery
description: two apple cakes make a party
program: |
  :: flour sugar apples > apple-cake
  :: apple-cake^2 > party
  ;; flour^2 sugar^2 apples^2
expect:
  outcome: halted
  steps: 3
  final_state: [party]
`

const bakeryGolden = `{"final":"11","final_state":["party"],"outcome":"halted","scenario_name":"bakery","steps":3,` +
	`"trace":[{"after":"210","rule":0,"seq":1,"state":"flour sugar apples apple-cake"},` +
	`{"after":"49","rule":0,"seq":2,"state":"apple-cake^2"},` +
	`{"after":"11","rule":1,"seq":3,"state":"party"}]}`

// testResponse mirrors CLIResponse with a typed payload.
type testResponse struct {
	Status string     `json:"status"`
	Data   TestResult `json:"data"`
	Error  *CLIError  `json:"error"`
}

func writeScenario(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestTestCommandPasses(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "bakery.yaml", bakeryScenario)

	stdout, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ bakery\n")
	assert.Contains(t, stdout, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, stdout, "✓ All scenarios passed")
}

func TestTestCommandUpdateWritesGolden(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "bakery.yaml", bakeryScenario)

	stdout, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ bakery (golden updated)")

	data, err := os.ReadFile(filepath.Join(dir, "golden", "bakery.golden"))
	require.NoError(t, err)
	assert.Equal(t, bakeryGolden, string(data))

	// The freshly written golden file must match on the next run.
	stdout, _, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "bakery.yaml", bakeryScenario)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "bakery.golden"), []byte(`{"steps":2}`), 0644))

	stdout, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ bakery")
	assert.Contains(t, stdout, "trace does not match golden file (run with --update to regenerate)")
	assert.Contains(t, stdout, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommandFailedExpectation(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "short.yaml", `name: short
description: expects one step too few
program: |
  :: flour sugar apples > apple-cake
  :: apple-cake^2 > party
  ;; flour^2 sugar^2 apples^2
expect:
  steps: 2
`)

	stdout, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ short")
	assert.Contains(t, stdout, "steps: expected 2, got 3")
}

func TestTestCommandInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\n")

	stdout, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, stdout, "✗ broken.yaml")
	assert.Contains(t, stdout, "failed to load scenario")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "bakery.yaml", bakeryScenario)
	writeScenario(t, dir, "broken.yaml", "name: broken\n")

	stdout, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--filter", "bak*")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.NotContains(t, stdout, "broken")
}

func TestTestCommandJSONFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "bakery.yaml", bakeryScenario)
	writeScenario(t, dir, "broken.yaml", "name: broken\n")

	stdout, _, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp testResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	assert.Equal(t, 2, resp.Data.Total)
}

func TestTestCommandNoScenarios(t *testing.T) {
	stdout, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", stdout)
}

func TestTestCommandMissingDir(t *testing.T) {
	stdout, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "none"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E002]")
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	stdout, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), filepath.Join("..", "harness", "testdata", "scenarios"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "Test Summary: 4 passed, 0 failed, 4 total")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("scen", "golden", "bakery.golden"), goldenFilePath(filepath.Join("scen", "bakery.yaml")))
}
