package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// maxTraceLines bounds the trace dump in AssertionError messages.
const maxTraceLines = 20

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		if i == maxTraceLines {
			fmt.Fprintf(&buf, "  ... %d more steps\n", len(e.Trace)-maxTraceLines)
			break
		}
		fmt.Fprintf(&buf, "  [%d] rule #%d -> %s\n", event.Seq, event.Rule, event.State)
	}

	return buf.String()
}

// assertTraceContains checks that the rule was applied at least once.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Rule == *assertion.Rule {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("rule #%d applied", *assertion.Rule),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the rules were first applied in the
// specified order. Other steps may come in between.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// Step 1: Find first position of each expected rule (1-indexed)
	positions := make(map[int]int)
	for i, event := range trace {
		if _, seen := positions[event.Rule]; !seen {
			positions[event.Rule] = i + 1
		}
	}

	// Step 2: Verify all rules found
	for _, rule := range assertion.Rules {
		if positions[rule] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all rules applied: %v", assertion.Rules),
				Actual:   fmt.Sprintf("rule #%d never applied", rule),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Rules); i++ {
		prev := assertion.Rules[i-1]
		curr := assertion.Rules[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("rules first applied in order: %v", assertion.Rules),
				Actual: fmt.Sprintf("rule #%d (step %d) should be before rule #%d (step %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that the rule was applied exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Rule == *assertion.Rule {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d applications of rule #%d", assertion.Count, *assertion.Rule),
			Actual:   fmt.Sprintf("%d applications", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertStateVisited checks that some reached state, the initial one
// included, equals the given multiset.
func assertStateVisited(result *Result, assertion Assertion) error {
	want, err := parseTerms(assertion.State)
	if err != nil {
		return fmt.Errorf("state_visited: %w", err)
	}

	for _, state := range result.States {
		if state.Equal(want) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertStateVisited,
		Expected: fmt.Sprintf("state %s reached", want.Succinct()),
		Actual:   "never reached",
		Trace:    result.Trace,
	}
}

// EvaluateAssertions runs every assertion and returns the failure messages.
// All assertions are evaluated (no fail-fast).
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertStateVisited:
			err = assertStateVisited(result, assertion)
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}

		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	return errs
}
