package harness

import (
	"github.com/roach88/fracmul/internal/ir"
)

// TraceEvent is one applied step as seen by assertions and golden files.
type TraceEvent struct {
	Seq   int64  `json:"seq"`
	Rule  int    `json:"rule"`
	After string `json:"after"`
	State string `json:"state"` // succinct post-state
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the expect clause and every assertion hold.
	Pass bool `json:"pass"`

	Outcome    string      `json:"outcome"`
	Steps      int         `json:"steps"`
	Final      string      `json:"final"`
	FinalState ir.Multiset `json:"final_state"`
	TraceHash  string      `json:"trace_hash"`

	// Trace contains all applied steps in order.
	Trace []TraceEvent `json:"trace"`

	// States holds every state reached, the initial state first.
	States []ir.Multiset `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends an applied step to the trace.
func (r *Result) AddStep(seq int64, rule int, after string, state ir.Multiset) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:   seq,
		Rule:  rule,
		After: after,
		State: state.Succinct(),
	})
	r.States = append(r.States, state)
}
