package compiler

import (
	"fmt"

	"github.com/roach88/fracmul/internal/ir"
)

// Validation codes (E200-E299).
const (
	ErrUnboundStateName = "E201" // state names a symbol no rule uses
	ErrShadowedRule     = "E202" // an earlier rule always matches first
	ErrEmptyLeftSide    = "E203" // rule always applies; program never halts
	ErrIdentityRule     = "E204" // rule leaves the state unchanged
)

// Severity levels for ValidationError.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a problem found by static checks.
type ValidationError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// HasErrors reports whether any entry has error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks a program without running it.
// Returns all problems found (does not fail-fast). Only unbound state names
// are errors; everything else is a warning about rules that can never fire
// or can never let the program halt.
func Validate(p *ir.Program) []ValidationError {
	var errs []ValidationError

	// E201: every state name must appear in some rule
	bound := make(map[ir.Name]bool)
	for _, n := range p.Names() {
		bound[n] = true
	}
	reported := make(map[ir.Name]bool)
	for i, n := range p.State {
		if bound[n] || reported[n] {
			continue
		}
		reported[n] = true
		errs = append(errs, ValidationError{
			Field:    fmt.Sprintf("state[%d]", i),
			Message:  fmt.Sprintf("name %q is not used by any rule", n),
			Code:     ErrUnboundStateName,
			Severity: SeverityError,
		})
	}

	lefts := make([]map[ir.Name]int, len(p.Rules))
	for i, r := range p.Rules {
		lefts[i] = r.Left.Counts()
	}

	for i, r := range p.Rules {
		field := fmt.Sprintf("rules[%d]", i)

		// E203: nothing to consume means the rule always matches
		if len(r.Left) == 0 {
			errs = append(errs, ValidationError{
				Field:    field,
				Message:  fmt.Sprintf("rule %q has an empty left side and always applies: the program can never halt", r),
				Code:     ErrEmptyLeftSide,
				Severity: SeverityWarning,
			})
		}

		// E204: same multiset on both sides
		if len(r.Left) > 0 && r.Left.Equal(r.Right) {
			errs = append(errs, ValidationError{
				Field:    field,
				Message:  fmt.Sprintf("rule %q does not change the state: once it applies the program never halts", r),
				Code:     ErrIdentityRule,
				Severity: SeverityWarning,
			})
		}

		// E202: first-match order means an earlier rule whose left side is
		// contained in this one always wins
		for j := 0; j < i; j++ {
			if contains(lefts[i], lefts[j]) {
				errs = append(errs, ValidationError{
					Field:    field,
					Message:  fmt.Sprintf("rule %q can never apply: rule %d (%q) matches whenever it would", r, j, p.Rules[j]),
					Code:     ErrShadowedRule,
					Severity: SeverityWarning,
				})
				break
			}
		}
	}

	return errs
}

// contains reports whether multiset sub is included in super.
func contains(super, sub map[ir.Name]int) bool {
	for n, k := range sub {
		if super[n] < k {
			return false
		}
	}
	return true
}
