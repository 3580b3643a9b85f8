package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainProgram = "fracmul/program/v1"
	DomainTrace   = "fracmul/trace/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash hashes the canonical JSON form of v under the given domain.
func ContentHash(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("content hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// ProgramHash computes the content-addressed identity of a parsed program.
// Two programs hash equal iff they have the same rules in the same order
// and the same initial state sequence.
func ProgramHash(p *Program) (string, error) {
	return ContentHash(DomainProgram, p.CanonicalMap())
}

// CanonicalMap converts the program to plain maps for canonical encoding.
func (p *Program) CanonicalMap() map[string]any {
	rules := make([]any, len(p.Rules))
	for i, r := range p.Rules {
		rules[i] = map[string]any{
			"left":  r.Left,
			"right": r.Right,
		}
	}
	return map[string]any{
		"rules": rules,
		"state": p.State,
	}
}

// MustProgramHash is like ProgramHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustProgramHash(p *Program) string {
	h, err := ProgramHash(p)
	if err != nil {
		panic(err)
	}
	return h
}
