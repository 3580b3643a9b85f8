package program

import (
	"fmt"
	"log/slog"
	"math/big"

	"github.com/roach88/fracmul/internal/codec"
	"github.com/roach88/fracmul/internal/grammar"
	"github.com/roach88/fracmul/internal/ir"
)

// Compiled is a program ready for evaluation. It is immutable; several
// evaluations may share it.
type Compiled struct {
	Program   *ir.Program
	Alphabet  *codec.Alphabet
	Initial   *big.Int      // encoded initial state
	Fractions []ir.Fraction // one per rule, declaration order
	Hash      string        // content hash of Program
}

// Load parses src and compiles it.
func Load(src string) (*Compiled, error) {
	prog, err := grammar.Parse(src)
	if err != nil {
		return nil, err
	}
	return Compile(prog)
}

// Compile builds the alphabet from the rules, encodes the initial state and
// compiles each rule to a fraction.
//
// Returns *UnboundStateSymbolError if the state names a symbol no rule uses.
func Compile(p *ir.Program) (*Compiled, error) {
	alphabet := codec.FromRules(p.Rules)

	if unbound := unboundNames(alphabet, p.State); len(unbound) > 0 {
		return nil, &UnboundStateSymbolError{Names: unbound}
	}

	initial, err := alphabet.Encode(p.State)
	if err != nil {
		return nil, fmt.Errorf("encode initial state: %w", err)
	}

	fracs := make([]ir.Fraction, len(p.Rules))
	for i, r := range p.Rules {
		f, err := alphabet.Compile(r)
		if err != nil {
			return nil, fmt.Errorf("compile rule %d: %w", i, err)
		}
		fracs[i] = f
	}

	hash, err := ir.ProgramHash(p)
	if err != nil {
		return nil, fmt.Errorf("hash program: %w", err)
	}

	slog.Debug("program compiled",
		"names", alphabet.Len(),
		"rules", len(fracs),
		"initial", initial,
		"hash", hash,
	)

	return &Compiled{
		Program:   p,
		Alphabet:  alphabet,
		Initial:   initial,
		Fractions: fracs,
		Hash:      hash,
	}, nil
}

// unboundNames lists distinct state names missing from the alphabet, in
// first-appearance order.
func unboundNames(alphabet *codec.Alphabet, state ir.Multiset) []ir.Name {
	var out []ir.Name
	seen := make(map[ir.Name]bool)
	for _, n := range state {
		if alphabet.Contains(n) || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
