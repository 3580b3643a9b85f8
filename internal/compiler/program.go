package compiler

import (
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/fracmul/internal/grammar"
	"github.com/roach88/fracmul/internal/ir"
)

// CompileSource compiles a CUE document into a program. filename is used
// for error positions only.
//
// Document shape:
//
//	rules: [
//		{left: ["flour", "sugar", "apples"], right: ["apple-cake"]},
//		{left: "apple-cake^2", right: "party"},
//	]
//	state: ["flour^2", "sugar^2", "apples^2"]
//
// A side is either a list of terms or one string of space-separated terms.
// Terms use the text grammar: name or name^k.
func CompileSource(filename string, src []byte) (*ir.Program, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileProgram(v)
}

// CompileProgram parses a CUE value into a Program.
// Uses CUE SDK's Go API directly (not CLI subprocess).
func CompileProgram(v cue.Value) (*ir.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	prog := &ir.Program{}

	// rules are optional: a program may be state only
	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if rulesVal.Exists() {
		iter, err := rulesVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			rule, err := parseRule(iter.Value(), i)
			if err != nil {
				return nil, err
			}
			prog.Rules = append(prog.Rules, rule)
		}
	}

	stateVal := v.LookupPath(cue.ParsePath("state"))
	if !stateVal.Exists() {
		return nil, &CompileError{
			Field:   "state",
			Message: "state is required",
			Pos:     v.Pos(),
		}
	}
	state, err := parseTerms(stateVal, "state")
	if err != nil {
		return nil, err
	}
	prog.State = state

	return prog, nil
}

// parseRule extracts one {left, right} entry. A missing side is empty.
func parseRule(v cue.Value, index int) (ir.Rule, error) {
	if v.IncompleteKind() != cue.StructKind {
		return ir.Rule{}, &CompileError{
			Field:   fmt.Sprintf("rules[%d]", index),
			Message: "rule must be a struct with left and right",
			Pos:     v.Pos(),
		}
	}

	rule := ir.Rule{Left: ir.Multiset{}, Right: ir.Multiset{}}
	for _, side := range []struct {
		label string
		dst   *ir.Multiset
	}{
		{"left", &rule.Left},
		{"right", &rule.Right},
	} {
		sideVal := v.LookupPath(cue.ParsePath(side.label))
		if !sideVal.Exists() {
			continue
		}
		terms, err := parseTerms(sideVal, fmt.Sprintf("rules[%d].%s", index, side.label))
		if err != nil {
			return ir.Rule{}, err
		}
		*side.dst = terms
	}
	return rule, nil
}

// parseTerms reads a list of term strings, or a single space-separated
// string, and expands every term.
func parseTerms(v cue.Value, field string) (ir.Multiset, error) {
	out := ir.Multiset{}

	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for _, term := range strings.Fields(s) {
			names, err := parseTerm(v, term, field)
			if err != nil {
				return nil, err
			}
			out = append(out, names...)
		}
		return out, nil

	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			elem := iter.Value()
			elemField := fmt.Sprintf("%s[%d]", field, i)
			s, err := elem.String()
			if err != nil {
				return nil, &CompileError{
					Field:   elemField,
					Message: "term must be a string",
					Pos:     elem.Pos(),
				}
			}
			names, err := parseTerm(elem, s, elemField)
			if err != nil {
				return nil, err
			}
			out = append(out, names...)
		}
		return out, nil

	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be a list of terms or a string, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func parseTerm(v cue.Value, term, field string) (ir.Multiset, error) {
	names, err := grammar.ParseTerm(term)
	if err != nil {
		msg := err.Error()
		var pe *grammar.ParseError
		if errors.As(err, &pe) {
			msg = fmt.Sprintf("%s: %s", pe.Code, pe.Message)
		}
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("invalid term %q: %s", term, msg),
			Pos:     v.Pos(),
		}
	}
	return names, nil
}
