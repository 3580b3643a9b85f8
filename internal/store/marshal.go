package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/roach88/fracmul/internal/ir"
)

// marshalProgram converts a program to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so equal programs store byte-identical text.
func marshalProgram(p *ir.Program) (string, error) {
	data, err := ir.MarshalCanonical(p.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("marshal program: %w", err)
	}
	return string(data), nil
}

// unmarshalProgram parses stored program JSON.
func unmarshalProgram(data string) (*ir.Program, error) {
	var p ir.Program
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("unmarshal program: %w", err)
	}
	if p.State == nil {
		p.State = ir.Multiset{}
	}
	return &p, nil
}

// formatInt renders an accumulator as decimal TEXT.
func formatInt(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// parseInt parses decimal TEXT back into an accumulator.
func parseInt(column, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("parse %s: invalid integer %q", column, s)
	}
	return v, nil
}

// parseNullInt parses a nullable decimal column. NULL yields nil.
func parseNullInt(column string, ns sql.NullString) (*big.Int, error) {
	if !ns.Valid {
		return nil, nil
	}
	return parseInt(column, ns.String)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
