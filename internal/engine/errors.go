package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while the engine is running.
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Seq is the step at which the error was detected (0 if before any step).
	Seq int64

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeCycleDetected indicates an accumulator value repeated.
	ErrCodeCycleDetected RuntimeErrorCode = "CYCLE_DETECTED"

	// ErrCodeInvalidFraction indicates a fraction with a non-positive term.
	ErrCodeInvalidFraction RuntimeErrorCode = "INVALID_FRACTION"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Seq > 0 {
		return fmt.Sprintf("%s: %s (step=%d)", e.Code, e.Message, e.Seq)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCycleError returns true if the error is a cycle detection error.
func IsCycleError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCycleDetected
	}
	return false
}

// NewCycleError creates a RuntimeError for a repeated accumulator.
func NewCycleError(firstSeq, seq int64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCycleDetected,
		Message: fmt.Sprintf("accumulator repeats the state reached at step %d; run cannot halt", firstSeq),
		Seq:     seq,
		Details: map[string]string{
			"first_seq": fmt.Sprintf("%d", firstSeq),
			"seq":       fmt.Sprintf("%d", seq),
		},
	}
}
