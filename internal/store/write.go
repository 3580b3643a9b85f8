package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/roach88/fracmul/internal/engine"
	"github.com/roach88/fracmul/internal/ir"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	StatusRunning       RunStatus = "running"
	StatusHalted        RunStatus = "halted"
	StatusStepsExceeded RunStatus = "steps_exceeded"
	StatusCycle         RunStatus = "cycle_detected"
	StatusInterrupted   RunStatus = "interrupted"
	StatusFailed        RunStatus = "failed"
)

// StatusOf maps the error a run ended with to its recorded status.
func StatusOf(err error) RunStatus {
	switch {
	case err == nil:
		return StatusHalted
	case engine.IsStepsExceededError(err):
		return StatusStepsExceeded
	case engine.IsCycleError(err):
		return StatusCycle
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusInterrupted
	default:
		return StatusFailed
	}
}

// Run is one recorded evaluation.
type Run struct {
	ID            string
	ProgramHash   string
	Program       *ir.Program
	Initial       *big.Int
	MaxSteps      int
	DetectCycles  bool
	Status        RunStatus
	Final         *big.Int // nil while running
	Steps         int
	TraceHash     string
	EngineVersion string
	IRVersion     string
}

// Step is one applied rewrite of a run.
type Step struct {
	RunID  string
	Seq    int64
	Rule   int
	Before *big.Int
	After  *big.Int
}

// RunResult is the outcome written by FinishRun.
type RunResult struct {
	Status    RunStatus
	Final     *big.Int
	Steps     int
	TraceHash string
}

// CreateRun inserts a run record in the running state.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
//
// The program is serialized to canonical JSON per RFC 8785 so it can be
// recompiled for replay.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	programJSON, err := marshalProgram(run.Program)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, program_hash, program, initial, max_steps, detect_cycles, status, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.ProgramHash,
		programJSON,
		formatInt(run.Initial),
		run.MaxSteps,
		boolToInt(run.DetectCycles),
		string(StatusRunning),
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}

	return nil
}

// WriteSteps inserts steps in a single transaction.
// Uses ON CONFLICT DO NOTHING so re-writing a step is a no-op.
//
// Note: The run referenced by each step must exist (foreign key constraint).
func (s *Store) WriteSteps(ctx context.Context, steps []Step) error {
	if len(steps) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write steps: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO steps (run_id, seq, rule, acc_before, acc_after)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write steps: prepare: %w", err)
	}
	defer stmt.Close()

	for _, st := range steps {
		if _, err := stmt.ExecContext(ctx,
			st.RunID,
			st.Seq,
			st.Rule,
			formatInt(st.Before),
			formatInt(st.After),
		); err != nil {
			return fmt.Errorf("write steps: seq %d: %w", st.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write steps: commit: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run.
// Returns an error wrapping sql.ErrNoRows if the run does not exist.
func (s *Store) FinishRun(ctx context.Context, id string, res RunResult) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, final = ?, steps = ?, trace_hash = ?
		WHERE id = ?
	`,
		string(res.Status),
		nullString(formatInt(res.Final)),
		res.Steps,
		nullString(res.TraceHash),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}
