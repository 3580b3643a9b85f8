package store

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/roach88/fracmul/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run of `:: a > b ;; a` with minimal required fields.
func createTestRun(id string) Run {
	return Run{
		ID:          id,
		ProgramHash: "test-hash",
		Program: &ir.Program{
			Rules: []ir.Rule{{Left: ir.Multiset{"a"}, Right: ir.Multiset{"b"}}},
			State: ir.Multiset{"a"},
		},
		Initial:       big.NewInt(2),
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}

func step(runID string, seq int64, rule int, before, after int64) Step {
	return Step{
		RunID:  runID,
		Seq:    seq,
		Rule:   rule,
		Before: big.NewInt(before),
		After:  big.NewInt(after),
	}
}
