package program

import (
	"github.com/roach88/fracmul/internal/engine"
)

// StepView is a step rendered for people: accumulators as decimal strings
// and states in succinct symbolic form.
type StepView struct {
	Seq       int64  `json:"seq"`
	Before    string `json:"before"`
	Fraction  string `json:"fraction"`
	After     string `json:"after"`
	PreState  string `json:"pre_state"`
	Rule      string `json:"rule"`
	RuleIndex int    `json:"rule_index"`
	PostState string `json:"post_state"`
}

// Describe renders rec against the program's alphabet. The rule text is
// recovered from the fraction, so it reflects exactly what was applied.
func (c *Compiled) Describe(rec engine.StepRecord) StepView {
	return StepView{
		Seq:       rec.Seq,
		Before:    rec.Before.String(),
		Fraction:  rec.Fraction.String(),
		After:     rec.After.String(),
		PreState:  c.Alphabet.Decode(rec.Before).Succinct(),
		Rule:      c.Alphabet.Decompile(rec.Fraction).String(),
		RuleIndex: rec.Rule,
		PostState: c.Alphabet.Decode(rec.After).Succinct(),
	}
}
