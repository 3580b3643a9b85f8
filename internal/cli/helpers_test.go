package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fracmul/internal/store"
)

const bakerySrc = `:: flour sugar apples > apple-cake
:: apple-cake^2 > party
;; flour^2 sugar^2 apples^2
`

const doublingSrc = `:: a > a a
;; a
`

// writeProgram writes src to dir/name and returns the path.
func writeProgram(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// recordRun runs path with --db through runProgram so the run id can be
// fixed.
func recordRun(t *testing.T, dbPath, path, runID string, maxSteps int) error {
	t.Helper()
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    dbPath,
		MaxSteps:    maxSteps,
		Quiet:       true,
		IDGenerator: store.NewFixedGenerator(runID),
	}
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return runProgram(opts, path, cmd)
}
