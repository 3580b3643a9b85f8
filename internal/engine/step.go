package engine

import (
	"math/big"

	"github.com/roach88/fracmul/internal/ir"
)

// NoRule is the applied index Step reports when the accumulator is stuck.
const NoRule = -1

// Step performs one rewrite.
//
// Fractions are scanned in order; the first whose denominator evenly divides
// acc is applied and its index returned with acc / den * num. Division comes
// first only because divisibility has already been confirmed, so the result
// is exact.
//
// When no denominator divides acc, Step returns (acc, NoRule) and acc is
// unchanged. Step never modifies acc or the fractions.
//
// A fraction whose denominator is nil or not positive never applies, so
// Step is total over any input. New rejects such fractions up front.
func Step(acc *big.Int, fracs []ir.Fraction) (*big.Int, int) {
	q, r := new(big.Int), new(big.Int)
	for i, f := range fracs {
		if f.Den == nil || f.Den.Sign() <= 0 {
			continue
		}
		q.QuoRem(acc, f.Den, r)
		if r.Sign() == 0 {
			return q.Mul(q, f.Num), i
		}
	}
	return acc, NoRule
}
