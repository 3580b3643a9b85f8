package grammar

import (
	"strings"

	"github.com/roach88/fracmul/internal/ir"
)

type parser struct {
	lex *lexer
	tok Token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

// Parse parses a complete program: rule lines in declaration order followed
// by one state section.
//
// Returns *ParseError on any malformed input.
func Parse(src string) (*ir.Program, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	prog := &ir.Program{State: ir.Multiset{}}
	for p.tok.Kind == TokenRuleMarker {
		rule, err := p.rule()
		if err != nil {
			return nil, err
		}
		prog.Rules = append(prog.Rules, rule)
	}

	switch p.tok.Kind {
	case TokenStateMarker:
	case TokenEOF:
		return nil, errorf(ErrMissingState, p.tok.Pos, `missing ";;" state section`)
	default:
		return nil, errorf(ErrUnexpectedToken, p.tok.Pos, `expected "::" or ";;", found %s`, p.tok.Kind)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	state, err := p.terms()
	if err != nil {
		return nil, err
	}
	prog.State = state

	if p.tok.Kind != TokenEOF {
		return nil, errorf(ErrUnexpectedToken, p.tok.Pos, "unexpected %s after state section", p.tok.Kind)
	}
	return prog, nil
}

// rule parses `:: terms > terms`. The current token is the "::" marker.
func (p *parser) rule() (ir.Rule, error) {
	if err := p.advance(); err != nil {
		return ir.Rule{}, err
	}

	left, err := p.terms()
	if err != nil {
		return ir.Rule{}, err
	}
	if p.tok.Kind != TokenArrow {
		return ir.Rule{}, errorf(ErrMissingArrow, p.tok.Pos, `missing ">" in rule, found %s`, p.tok.Kind)
	}
	if err := p.advance(); err != nil {
		return ir.Rule{}, err
	}

	right, err := p.terms()
	if err != nil {
		return ir.Rule{}, err
	}
	return ir.Rule{Left: left, Right: right}, nil
}

// terms consumes consecutive terms and concatenates their expansions.
func (p *parser) terms() (ir.Multiset, error) {
	out := ir.Multiset{}
	for p.tok.Kind == TokenTerm {
		out = append(out, p.tok.Expand()...)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ParseTerm parses a single term such as "cat" or "cat^3", ignoring
// surrounding whitespace, and returns its expansion.
func ParseTerm(s string) (ir.Multiset, error) {
	lex := newLexer(strings.TrimSpace(s))
	tok, err := lex.next()
	if err != nil {
		return nil, err
	}
	if tok.Kind != TokenTerm {
		return nil, errorf(ErrUnexpectedToken, tok.Pos, "expected name, found %s", tok.Kind)
	}

	end, err := lex.next()
	if err != nil {
		return nil, err
	}
	if end.Kind != TokenEOF {
		return nil, errorf(ErrUnexpectedToken, end.Pos, "unexpected %s after term %q", end.Kind, tok.Text)
	}
	return tok.Expand(), nil
}
