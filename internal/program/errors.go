package program

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/fracmul/internal/ir"
)

// UnboundStateSymbolError is returned when the initial state names symbols
// that no rule mentions. Such names have no prime, so the state could not be
// encoded.
type UnboundStateSymbolError struct {
	Names []ir.Name
}

func (e *UnboundStateSymbolError) Error() string {
	quoted := make([]string, len(e.Names))
	for i, n := range e.Names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return fmt.Sprintf("state names not used by any rule: %s", strings.Join(quoted, ", "))
}

// IsUnboundStateSymbol returns true if err wraps an UnboundStateSymbolError.
func IsUnboundStateSymbol(err error) bool {
	var ue *UnboundStateSymbolError
	return errors.As(err, &ue)
}
