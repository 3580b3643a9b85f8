package store

import (
	"context"
	"fmt"
)

// RunState is a run with its recorded steps, analysed for completeness.
type RunState struct {
	Run     Run
	Steps   []Step
	LastSeq int64

	// IsComplete is true when the run finished and every step it reported
	// is present in order with no gaps.
	IsComplete bool

	// Chained is true when each step starts from the accumulator the previous
	// one produced, and the first starts from the run's initial value.
	Chained bool
}

// GetRunState retrieves a run and its steps for replay or recovery analysis.
func (s *Store) GetRunState(ctx context.Context, id string) (RunState, error) {
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return RunState{}, fmt.Errorf("get run state: %w", err)
	}

	steps, err := s.ReadSteps(ctx, id)
	if err != nil {
		return RunState{}, fmt.Errorf("get run state: %w", err)
	}

	state := RunState{Run: run, Steps: steps, Chained: true}

	contiguous := true
	prev := run.Initial
	for i, st := range steps {
		if st.Seq != int64(i+1) {
			contiguous = false
		}
		if prev != nil && st.Before.Cmp(prev) != 0 {
			state.Chained = false
		}
		prev = st.After
		state.LastSeq = st.Seq
	}

	state.IsComplete = run.Status != StatusRunning &&
		contiguous &&
		len(steps) == run.Steps

	return state, nil
}

// FindIncompleteRuns returns runs still marked running, oldest first.
// These were interrupted before FinishRun (crash or kill) and their step
// log may be partial.
func (s *Store) FindIncompleteRuns(ctx context.Context) ([]Run, error) {
	runs, err := s.queryRuns(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE status = ?
		ORDER BY id COLLATE BINARY ASC
	`, string(StatusRunning))
	if err != nil {
		return nil, fmt.Errorf("find incomplete runs: %w", err)
	}
	return runs, nil
}
