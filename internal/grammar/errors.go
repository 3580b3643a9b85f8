package grammar

import (
	"errors"
	"fmt"
)

// Parse error codes (E100-E109).
const (
	ErrUnexpectedChar  = "E101" // character outside the grammar
	ErrMissingArrow    = "E102" // rule line without '>'
	ErrMissingState    = "E103" // no ';;' state section
	ErrBadExponent     = "E104" // '^' not followed by a valid integer
	ErrUnexpectedToken = "E105" // valid token in the wrong place
)

// Pos is a location in program text. Line and Column are 1-based;
// Column counts bytes.
type Pos struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// ParseError reports malformed program text.
type ParseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Pos     Pos    `json:"pos"`
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Code, e.Message)
}

// IsParseError returns true if err wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func errorf(code string, pos Pos, format string, args ...any) *ParseError {
	return &ParseError{Code: code, Message: fmt.Sprintf(format, args...), Pos: pos}
}
