package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fracmul/internal/program"
)

const bakeryProgram = `
:: flour sugar apples > apple-cake
:: apple-cake^2 > party
;; flour^2 sugar^2 apples^2
`

func intPtr(v int) *int { return &v }

func TestRun_Bakery(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "bakery",
		Description: "two apple cakes make a party",
		Program:     bakeryProgram,
		Expect: Expect{
			Steps:      intPtr(3),
			FinalState: []string{"party"},
		},
	})
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "halted", result.Outcome)
	assert.Equal(t, 3, result.Steps)
	assert.Equal(t, "11", result.Final)
	assert.Len(t, result.TraceHash, 64)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, "apple-cake^2", result.Trace[1].State)
	assert.Len(t, result.States, 4, "initial state plus one per step")
}

func TestRun_ExpectMismatch(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "wrong",
		Description: "every expectation is off",
		Program:     bakeryProgram,
		Expect: Expect{
			Outcome:    "steps_exceeded",
			Steps:      intPtr(4),
			FinalState: []string{"apple-cake"},
		},
	})
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "outcome: expected steps_exceeded, got halted")
	assert.Contains(t, result.Errors[1], "steps: expected 4, got 3")
	assert.Contains(t, result.Errors[2], "final_state: expected apple-cake, got party")
}

func TestRun_StepsExceeded(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "doubling",
		Description: "never halts",
		Program:     ":: a > a a\n;; a",
		MaxSteps:    10,
		Expect:      Expect{Outcome: "steps_exceeded", Steps: intPtr(10)},
	})
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "2048", result.Final)
}

func TestRun_LongRunSpansBatches(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "long",
		Description: "more steps than one store batch",
		Program:     ":: a > a a\n;; a",
		MaxSteps:    stepBatch*2 + 7,
		Expect:      Expect{Outcome: "steps_exceeded"},
	})
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, stepBatch*2+7, result.Steps)
}

func TestRun_CycleDetected(t *testing.T) {
	result, err := Run(&Scenario{
		Name:         "ping-pong",
		Description:  "two rules undo each other",
		Program:      ":: a > b\n:: b > a\n;; a",
		DetectCycles: true,
		Expect:       Expect{Outcome: "cycle_detected", Steps: intPtr(2)},
	})
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ParseError(t *testing.T) {
	_, err := Run(&Scenario{
		Name:        "broken",
		Description: "missing arrow",
		Program:     ":: a b\n;; a",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load program")
}

func TestRun_UnboundStateSymbol(t *testing.T) {
	_, err := Run(&Scenario{
		Name:        "unbound",
		Description: "state names an unknown symbol",
		Program:     ":: a > b\n;; c",
	})
	require.Error(t, err)
	assert.True(t, program.IsUnboundStateSymbol(err))
}

func TestRun_Assertions(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "assertions",
		Description: "mixed passing and failing assertions",
		Program:     bakeryProgram,
		Assertions: []Assertion{
			{Type: AssertTraceContains, Rule: intPtr(1)},
			{Type: AssertTraceCount, Rule: intPtr(1), Count: 2},
			{Type: AssertTraceOrder, Rules: []int{1, 0}},
			{Type: AssertStateVisited, State: []string{"flour^2", "sugar^2", "apples^2"}},
			{Type: AssertStateVisited, State: []string{"flour"}},
		},
	})
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "assertions[1]")
	assert.Contains(t, result.Errors[0], "2 applications of rule #1")
	assert.Contains(t, result.Errors[1], "assertions[2]")
	assert.Contains(t, result.Errors[1], "rule #1 (step 3) should be before rule #0 (step 1)")
	assert.Contains(t, result.Errors[2], "assertions[4]")
	assert.Contains(t, result.Errors[2], "state flour reached")
}

func TestRunWithGolden_Scenarios(t *testing.T) {
	for _, file := range []string{"bakery", "bakery_cue", "doubling"} {
		t.Run(file, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + file + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ProgramFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/bakery_file.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 3, result.Steps)
}

func TestSnapshot_EmptyRun(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "stuck",
		Description: "nothing applies",
		Program:     ":: a > b\n;;",
	})
	require.NoError(t, err)

	data, err := Snapshot("stuck", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"final":"1","final_state":[],"outcome":"halted","scenario_name":"stuck","steps":0,"trace":[]}`,
		string(data))
}
