package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fracmul/internal/compiler"
	"github.com/roach88/fracmul/internal/grammar"
	"github.com/roach88/fracmul/internal/ir"
	"github.com/roach88/fracmul/internal/store"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is inline program text in the rule grammar.
	// Exactly one of Program and ProgramFile must be set.
	Program string `yaml:"program,omitempty"`

	// ProgramFile is a path to a program file, relative to the scenario file.
	// Files ending in .cue are compiled as CUE documents.
	ProgramFile string `yaml:"program_file,omitempty"`

	// MaxSteps is the step ceiling; 0 means unbounded.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// DetectCycles fails the run when an accumulator repeats.
	DetectCycles bool `yaml:"detect_cycles,omitempty"`

	// Expect describes the run outcome.
	Expect Expect `yaml:"expect"`

	// Assertions validate the trace.
	// Supported types: trace_contains, trace_order, trace_count, state_visited
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// RunID is an optional fixed run id for the recorded log.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// Expect specifies the expected run outcome.
type Expect struct {
	// Outcome is the run status: halted (default), steps_exceeded or
	// cycle_detected.
	Outcome string `yaml:"outcome,omitempty"`

	// Steps is the exact number of applied steps, if set.
	Steps *int `yaml:"steps,omitempty"`

	// FinalState lists terms (name or name^k) of the final state, if set.
	// Compared as a multiset, so order does not matter.
	FinalState []string `yaml:"final_state,omitempty"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": rule applied at least once
	// - "trace_order": rules first applied in the given order
	// - "trace_count": rule applied exactly Count times
	// - "state_visited": State reached at some point (initial state included)
	Type string `yaml:"type"`

	// Rule is a rule index, 0-based in declaration order (trace_contains, trace_count).
	Rule *int `yaml:"rule,omitempty"`

	// Rules are rule indices (trace_order).
	Rules []int `yaml:"rules,omitempty"`

	// Count is the expected number of applications (trace_count).
	Count int `yaml:"count,omitempty"`

	// State lists terms of a state (state_visited).
	State []string `yaml:"state,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertStateVisited  = "state_visited"
)

// LoadScenario reads and parses a scenario YAML file.
// ProgramFile is resolved relative to the scenario file's directory.
//
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve program path BEFORE validation
	if scenario.ProgramFile != "" && !filepath.IsAbs(scenario.ProgramFile) {
		scenario.ProgramFile = filepath.Join(filepath.Dir(path), scenario.ProgramFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Program == "" && s.ProgramFile == "":
		return fmt.Errorf("one of program or program_file is required")
	case s.Program != "" && s.ProgramFile != "":
		return fmt.Errorf("program and program_file are mutually exclusive")
	}

	if s.ProgramFile != "" {
		if _, err := os.Stat(s.ProgramFile); os.IsNotExist(err) {
			return fmt.Errorf("program file not found: %s", s.ProgramFile)
		}
	}

	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}

	switch store.RunStatus(s.Expect.Outcome) {
	case "", store.StatusHalted, store.StatusStepsExceeded, store.StatusCycle:
	default:
		return fmt.Errorf("expect.outcome: unknown outcome %q", s.Expect.Outcome)
	}

	if s.Expect.Steps != nil && *s.Expect.Steps < 0 {
		return fmt.Errorf("expect.steps must be non-negative")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Rule == nil {
			return fmt.Errorf("assertions[%d]: rule is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Rules) == 0 {
			return fmt.Errorf("assertions[%d]: rules list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Rule == nil {
			return fmt.Errorf("assertions[%d]: rule is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertStateVisited:
		if a.State == nil {
			return fmt.Errorf("assertions[%d]: state is required for state_visited", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// LoadProgram returns the scenario's program, parsing inline text or
// reading ProgramFile.
func (s *Scenario) LoadProgram() (*ir.Program, error) {
	if s.Program != "" {
		return grammar.Parse(s.Program)
	}

	data, err := os.ReadFile(s.ProgramFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read program file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(s.ProgramFile), ".cue") {
		return compiler.CompileSource(s.ProgramFile, data)
	}
	return grammar.Parse(string(data))
}

// parseTerms expands a list of terms into a multiset.
func parseTerms(terms []string) (ir.Multiset, error) {
	out := ir.Multiset{}
	for _, term := range terms {
		names, err := grammar.ParseTerm(term)
		if err != nil {
			return nil, fmt.Errorf("term %q: %w", term, err)
		}
		out = append(out, names...)
	}
	return out, nil
}
