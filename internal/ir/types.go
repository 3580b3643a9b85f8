package ir

import (
	"fmt"
	"math/big"
	"strings"
)

// Name is the atomic token of a program. Two names are equal iff their
// character sequences are equal.
type Name string

// Multiset is an unordered bag of names. Order is irrelevant to semantics
// but duplicates are significant.
type Multiset []Name

// NameCount is one group of a multiset: a distinct name and its multiplicity.
type NameCount struct {
	Name  Name `json:"name"`
	Count int  `json:"count"`
}

// Groups returns each distinct name with its multiplicity, in order of
// first appearance within the multiset.
func (m Multiset) Groups() []NameCount {
	var groups []NameCount
	index := make(map[Name]int, len(m))
	for _, n := range m {
		if i, ok := index[n]; ok {
			groups[i].Count++
			continue
		}
		index[n] = len(groups)
		groups = append(groups, NameCount{Name: n, Count: 1})
	}
	return groups
}

// Counts returns the multiplicity of every name in the multiset.
func (m Multiset) Counts() map[Name]int {
	counts := make(map[Name]int, len(m))
	for _, n := range m {
		counts[n]++
	}
	return counts
}

// Equal reports whether two multisets hold the same names with the same
// multiplicities, ignoring order.
func (m Multiset) Equal(other Multiset) bool {
	if len(m) != len(other) {
		return false
	}
	counts := m.Counts()
	for _, n := range other {
		counts[n]--
		if counts[n] < 0 {
			return false
		}
	}
	return true
}

// Succinct renders the multiset with repeated names grouped: each distinct
// name once, suffixed with ^k when it occurs k > 1 times.
//
// Example: [apples flour apples] renders as "apples^2 flour".
// The empty multiset renders as "()".
func (m Multiset) Succinct() string {
	if len(m) == 0 {
		return "()"
	}
	groups := m.Groups()
	parts := make([]string, len(groups))
	for i, g := range groups {
		if g.Count > 1 {
			parts[i] = fmt.Sprintf("%s^%d", g.Name, g.Count)
		} else {
			parts[i] = string(g.Name)
		}
	}
	return strings.Join(parts, " ")
}

// Strings returns the names as plain strings.
func (m Multiset) Strings() []string {
	out := make([]string, len(m))
	for i, n := range m {
		out[i] = string(n)
	}
	return out
}

// Rule rewrites the Left multiset into the Right multiset.
// Created by the parser; never mutated afterwards.
type Rule struct {
	Left  Multiset `json:"left"`
	Right Multiset `json:"right"`
}

// Names returns every name the rule mentions, left side first, duplicates
// included, in textual order.
func (r Rule) Names() []Name {
	out := make([]Name, 0, len(r.Left)+len(r.Right))
	out = append(out, r.Left...)
	return append(out, r.Right...)
}

// String renders the rule in succinct form: "left -> right".
func (r Rule) String() string {
	return r.Left.Succinct() + " -> " + r.Right.Succinct()
}

// Fraction is the compiled form of a Rule under one alphabet:
// Num encodes the right side, Den the left side.
type Fraction struct {
	Num *big.Int `json:"num"`
	Den *big.Int `json:"den"`
}

// String renders the fraction as "num/den".
func (f Fraction) String() string {
	return f.Num.String() + "/" + f.Den.String()
}

// Program is an initial state plus rules in declaration order.
// Immutable after parsing.
type Program struct {
	State Multiset `json:"state"`
	Rules []Rule   `json:"rules"`
}

// Names returns every name mentioned by the program's rules in textual
// order, duplicates included. State names are not part of the result.
func (p *Program) Names() []Name {
	var out []Name
	for _, r := range p.Rules {
		out = append(out, r.Names()...)
	}
	return out
}

// Repeat returns a multiset holding k copies of name.
func Repeat(name Name, k int) Multiset {
	out := make(Multiset, k)
	for i := range out {
		out[i] = name
	}
	return out
}
