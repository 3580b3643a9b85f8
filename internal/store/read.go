package store

import (
	"context"
	"database/sql"
	"fmt"
)

const runColumns = `id, program_hash, program, initial, max_steps, detect_cycles,
	status, final, steps, trace_hash, engine_version, ir_version`

// ReadRun retrieves a single run by ID.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run, oldest first.
// Ordering is by id COLLATE BINARY; UUIDv7 ids sort by creation.
//
// Returns an empty slice (not nil) if there are no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	return s.queryRuns(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
}

// ListRunsByProgram returns the runs of one program, oldest first.
func (s *Store) ListRunsByProgram(ctx context.Context, programHash string) ([]Run, error) {
	return s.queryRuns(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE program_hash = ?
		ORDER BY id COLLATE BINARY ASC
	`, programHash)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadSteps returns all steps of a run ordered by seq.
//
// Returns an empty slice (not nil) if the run has no steps.
func (s *Store) ReadSteps(ctx context.Context, runID string) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, rule, acc_before, acc_after
		FROM steps
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []Step{}
	for rows.Next() {
		var (
			st            Step
			before, after string
		)
		if err := rows.Scan(&st.RunID, &st.Seq, &st.Rule, &before, &after); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if st.Before, err = parseInt("acc_before", before); err != nil {
			return nil, err
		}
		if st.After, err = parseInt("acc_after", after); err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run          Run
		programJSON  string
		initial      string
		detectCycles int
		status       string
		final        sql.NullString
		traceHash    sql.NullString
	)

	err := sc.Scan(
		&run.ID,
		&run.ProgramHash,
		&programJSON,
		&initial,
		&run.MaxSteps,
		&detectCycles,
		&status,
		&final,
		&run.Steps,
		&traceHash,
		&run.EngineVersion,
		&run.IRVersion,
	)
	if err != nil {
		return Run{}, err
	}

	if run.Program, err = unmarshalProgram(programJSON); err != nil {
		return Run{}, err
	}
	if run.Initial, err = parseInt("initial", initial); err != nil {
		return Run{}, err
	}
	if run.Final, err = parseNullInt("final", final); err != nil {
		return Run{}, err
	}

	run.DetectCycles = detectCycles != 0
	run.Status = RunStatus(status)
	run.TraceHash = traceHash.String
	return run, nil
}
