package codec

import (
	"errors"
	"fmt"

	"github.com/roach88/fracmul/internal/ir"
)

// UnknownSymbolError is returned when a name has no prime in the alphabet.
type UnknownSymbolError struct {
	Name ir.Name
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown symbol %q: not in alphabet", e.Name)
}

// IsUnknownSymbol returns true if err wraps an UnknownSymbolError.
func IsUnknownSymbol(err error) bool {
	var ue *UnknownSymbolError
	return errors.As(err, &ue)
}
