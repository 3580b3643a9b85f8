package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/fracmul/internal/ir"
)

// Snapshot renders a result as canonical JSON for golden comparison.
// Hashes are left out so snapshots stay readable and reviewable by hand.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, event := range result.Trace {
		trace[i] = map[string]any{
			"seq":   event.Seq,
			"rule":  event.Rule,
			"after": event.After,
			"state": event.State,
		}
	}

	finalState := result.FinalState
	if finalState == nil {
		finalState = ir.Multiset{}
	}

	return ir.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"outcome":       result.Outcome,
		"steps":         result.Steps,
		"final":         result.Final,
		"final_state":   finalState,
		"trace":         trace,
	})
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
