package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts applied steps and enforces a maximum.
//
// The quota is checked before every step. It exists for callers that need a
// bounded run (tests, CLI --max-steps); the rewrite semantics themselves
// impose no limit.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check increments the step counter and validates it against the limit.
// The limit-th step is still allowed; the one after it is not.
func (q *QuotaEnforcer) Check() error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			Steps: q.current - 1,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// StepsExceededError is returned when a run would apply more steps than its
// ceiling allows. Steps is the number of steps actually applied.
type StepsExceededError struct {
	Steps int
	Limit int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("run exceeded max steps: %d steps applied, limit %d, next rule still applicable",
		e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
