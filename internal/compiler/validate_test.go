package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fracmul/internal/ir"
)

func rule(left, right ir.Multiset) ir.Rule {
	return ir.Rule{Left: left, Right: right}
}

func TestValidateClean(t *testing.T) {
	p := &ir.Program{
		Rules: []ir.Rule{
			rule(ir.Multiset{"flour", "sugar", "apples"}, ir.Multiset{"apple-cake"}),
			rule(ir.Multiset{"apple-cake", "apple-cake"}, ir.Multiset{"party"}),
		},
		State: ir.Multiset{"flour", "sugar", "apples"},
	}
	assert.Empty(t, Validate(p))
}

func TestValidateUnboundStateName(t *testing.T) {
	p := &ir.Program{
		Rules: []ir.Rule{rule(ir.Multiset{"a"}, ir.Multiset{"b"})},
		State: ir.Multiset{"a", "z", "z", "y"},
	}

	errs := Validate(p)
	require.Len(t, errs, 2)
	assert.True(t, HasErrors(errs))

	assert.Equal(t, ErrUnboundStateName, errs[0].Code)
	assert.Equal(t, "state[1]", errs[0].Field)
	assert.Equal(t, SeverityError, errs[0].Severity)
	assert.Equal(t, "state[3]", errs[1].Field)
}

func TestValidateShadowedRule(t *testing.T) {
	p := &ir.Program{
		Rules: []ir.Rule{
			rule(ir.Multiset{"a"}, ir.Multiset{"b"}),
			rule(ir.Multiset{"a", "a"}, ir.Multiset{"c"}),
			rule(ir.Multiset{"b", "c"}, ir.Multiset{"d"}),
		},
		State: ir.Multiset{"a"},
	}

	errs := Validate(p)
	require.Len(t, errs, 1)
	assert.False(t, HasErrors(errs))
	assert.Equal(t, ErrShadowedRule, errs[0].Code)
	assert.Equal(t, "rules[1]", errs[0].Field)
	assert.Equal(t, SeverityWarning, errs[0].Severity)
	assert.Contains(t, errs[0].Message, "rule 0")
}

func TestValidateEmptyLeftSide(t *testing.T) {
	p := &ir.Program{
		Rules: []ir.Rule{
			rule(ir.Multiset{}, ir.Multiset{"a"}),
			rule(ir.Multiset{"a"}, ir.Multiset{"b"}),
		},
		State: ir.Multiset{},
	}

	errs := Validate(p)
	codes := make([]string, len(errs))
	for i, e := range errs {
		codes[i] = e.Code
	}
	assert.Equal(t, []string{ErrEmptyLeftSide, ErrShadowedRule}, codes)
	assert.False(t, HasErrors(errs))
}

func TestValidateIdentityRule(t *testing.T) {
	p := &ir.Program{
		Rules: []ir.Rule{rule(ir.Multiset{"a", "b"}, ir.Multiset{"b", "a"})},
		State: ir.Multiset{"a"},
	}

	errs := Validate(p)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrIdentityRule, errs[0].Code)
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Field: "state[0]", Message: "boom", Code: ErrUnboundStateName}
	assert.Equal(t, "[E201] state[0]: boom", e.Error())
}
