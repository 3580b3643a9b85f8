// Package codec converts between multisets of names and prime-product
// integers.
//
// An Alphabet assigns the i-th distinct name to the i-th prime. A multiset
// encodes to the product of its names' primes; the exponent of each prime is
// the multiplicity of its name. Decode is the structural inverse for every
// value Encode produces over the same alphabet.
package codec

import (
	"fmt"
	"math/big"

	"github.com/roach88/fracmul/internal/ir"
	"github.com/roach88/fracmul/internal/primes"
)

// Alphabet is an ordered, duplicate-free list of names fixing a
// name-to-prime assignment.
//
// INVARIANTS:
//   - names has no duplicates
//   - len(primes) == len(names)
//   - index[names[i]] == i
//
// An Alphabet is immutable once built and safe to share read-only.
type Alphabet struct {
	names  []ir.Name
	primes []*big.Int
	index  map[ir.Name]int
}

// NewAlphabet builds an alphabet from names in the given order.
// Returns an error if a name appears twice.
func NewAlphabet(names []ir.Name) (*Alphabet, error) {
	index := make(map[ir.Name]int, len(names))
	for i, n := range names {
		if _, dup := index[n]; dup {
			return nil, fmt.Errorf("duplicate name %q in alphabet", n)
		}
		index[n] = i
	}

	ps := primes.FirstN(len(names))
	bigPrimes := make([]*big.Int, len(ps))
	for i, p := range ps {
		bigPrimes[i] = big.NewInt(p)
	}

	own := make([]ir.Name, len(names))
	copy(own, names)

	return &Alphabet{
		names:  own,
		primes: bigPrimes,
		index:  index,
	}, nil
}

// FromRules builds the alphabet for a rule list by recording each name at
// its first appearance: rules in textual order, left side before right.
// Later duplicates are skipped.
func FromRules(rules []ir.Rule) *Alphabet {
	seen := make(map[ir.Name]bool)
	var names []ir.Name
	for _, r := range rules {
		for _, n := range r.Names() {
			if seen[n] {
				continue
			}
			seen[n] = true
			names = append(names, n)
		}
	}

	// Cannot fail: duplicates were filtered above.
	a, err := NewAlphabet(names)
	if err != nil {
		panic(err)
	}
	return a
}

// Len returns the number of names (and primes) in the alphabet.
func (a *Alphabet) Len() int {
	return len(a.names)
}

// Names returns a copy of the names in assignment order.
func (a *Alphabet) Names() []ir.Name {
	out := make([]ir.Name, len(a.names))
	copy(out, a.names)
	return out
}

// Contains reports whether name has a prime assigned.
func (a *Alphabet) Contains(name ir.Name) bool {
	_, ok := a.index[name]
	return ok
}

// Prime returns the prime assigned to name. The returned value must not
// be modified.
func (a *Alphabet) Prime(name ir.Name) (*big.Int, error) {
	i, ok := a.index[name]
	if !ok {
		return nil, &UnknownSymbolError{Name: name}
	}
	return a.primes[i], nil
}

// Assignment is one (name, prime) pair of an alphabet.
type Assignment struct {
	Name  ir.Name `json:"name"`
	Prime int64   `json:"prime"`
}

// Assignments lists every (name, prime) pair in alphabet order.
func (a *Alphabet) Assignments() []Assignment {
	out := make([]Assignment, len(a.names))
	for i, n := range a.names {
		out[i] = Assignment{Name: n, Prime: a.primes[i].Int64()}
	}
	return out
}
