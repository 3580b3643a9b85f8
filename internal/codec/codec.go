package codec

import (
	"math/big"

	"github.com/roach88/fracmul/internal/ir"
)

var one = big.NewInt(1)

// Encode multiplies together the primes of every name in m, starting from 1.
// Order does not matter; the empty multiset encodes to 1.
//
// Returns *UnknownSymbolError for the first name with no assigned prime.
func (a *Alphabet) Encode(m ir.Multiset) (*big.Int, error) {
	acc := new(big.Int).Set(one)
	for _, n := range m {
		p, err := a.Prime(n)
		if err != nil {
			return nil, err
		}
		acc.Mul(acc, p)
	}
	return acc, nil
}

// Decode factors v over the alphabet's primes.
//
// The (prime, name) pairs are walked in alphabet order; name is emitted once
// for every time its prime divides the remaining value. Any factor left over
// after the last prime has no name and is silently dropped.
//
// Values <= 0 decode to the empty multiset: zero is divisible by every prime
// and would never finish.
func (a *Alphabet) Decode(v *big.Int) ir.Multiset {
	out := ir.Multiset{}
	if v == nil || v.Sign() <= 0 {
		return out
	}

	rest := new(big.Int).Set(v)
	q, r := new(big.Int), new(big.Int)
	for i, p := range a.primes {
		for {
			q.QuoRem(rest, p, r)
			if r.Sign() != 0 {
				break
			}
			out = append(out, a.names[i])
			rest, q = q, rest
		}
	}
	return out
}

// Compile turns a rule into its fraction under this alphabet: the numerator
// encodes the right side and the denominator the left side.
func (a *Alphabet) Compile(r ir.Rule) (ir.Fraction, error) {
	num, err := a.Encode(r.Right)
	if err != nil {
		return ir.Fraction{}, err
	}
	den, err := a.Encode(r.Left)
	if err != nil {
		return ir.Fraction{}, err
	}
	return ir.Fraction{Num: num, Den: den}, nil
}

// Decompile recovers a rule from a fraction. Used for traces only.
func (a *Alphabet) Decompile(f ir.Fraction) ir.Rule {
	return ir.Rule{
		Left:  a.Decode(f.Den),
		Right: a.Decode(f.Num),
	}
}
