package grammar

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/roach88/fracmul/internal/ir"
)

// MaxExponent bounds k in name^k so a typo cannot expand into millions of
// tokens.
const MaxExponent = 1 << 20

// TokenKind identifies a lexical token.
type TokenKind int

const (
	TokenEOF         TokenKind = iota
	TokenRuleMarker            // "::"
	TokenStateMarker           // ";;"
	TokenArrow                 // ">"
	TokenTerm                  // name or name^k
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of input"
	case TokenRuleMarker:
		return `"::"`
	case TokenStateMarker:
		return `";;"`
	case TokenArrow:
		return `">"`
	case TokenTerm:
		return "name"
	default:
		return fmt.Sprintf("token(%d)", int(k))
	}
}

// Token is one lexical unit. Name and Count are set for TokenTerm only.
type Token struct {
	Kind  TokenKind
	Text  string
	Name  ir.Name
	Count int
	Pos   Pos
}

// Expand returns the Count copies of Name a term stands for.
func (t Token) Expand() ir.Multiset {
	return ir.Repeat(t.Name, t.Count)
}

type lexer struct {
	src  string
	off  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) pos() Pos {
	return Pos{Offset: l.off, Line: l.line, Column: l.col}
}

func (l *lexer) advance(n int) {
	for i := 0; i < n; i++ {
		if l.src[l.off] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.off++
	}
}

func (l *lexer) peek(ahead int) byte {
	if l.off+ahead >= len(l.src) {
		return 0
	}
	return l.src[l.off+ahead]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isNameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// next returns the next token, skipping whitespace.
func (l *lexer) next() (Token, error) {
	for l.off < len(l.src) && isSpace(l.src[l.off]) {
		l.advance(1)
	}

	start := l.pos()
	if l.off >= len(l.src) {
		return Token{Kind: TokenEOF, Pos: start}, nil
	}

	c := l.src[l.off]
	switch {
	case c == ':' && l.peek(1) == ':':
		l.advance(2)
		return Token{Kind: TokenRuleMarker, Text: "::", Pos: start}, nil
	case c == ';' && l.peek(1) == ';':
		l.advance(2)
		return Token{Kind: TokenStateMarker, Text: ";;", Pos: start}, nil
	case c == '>':
		l.advance(1)
		return Token{Kind: TokenArrow, Text: ">", Pos: start}, nil
	case isNameChar(c):
		return l.term(start)
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.off:])
	return Token{}, errorf(ErrUnexpectedChar, start, "unexpected character %q", r)
}

// term lexes name or name^k starting at the current offset.
func (l *lexer) term(start Pos) (Token, error) {
	for l.off < len(l.src) && isNameChar(l.src[l.off]) {
		l.advance(1)
	}
	name := l.src[start.Offset:l.off]

	if l.peek(0) != '^' {
		return Token{Kind: TokenTerm, Text: name, Name: ir.Name(name), Count: 1, Pos: start}, nil
	}

	caret := l.pos()
	l.advance(1)
	digitsStart := l.off
	for l.off < len(l.src) && isDigit(l.src[l.off]) {
		l.advance(1)
	}
	digits := l.src[digitsStart:l.off]
	if digits == "" {
		return Token{}, errorf(ErrBadExponent, caret, "exponent of %q must be a non-negative integer", name)
	}

	k, err := strconv.Atoi(digits)
	if err != nil || k > MaxExponent {
		return Token{}, errorf(ErrBadExponent, caret, "exponent %s of %q exceeds %d", digits, name, MaxExponent)
	}

	return Token{
		Kind:  TokenTerm,
		Text:  l.src[start.Offset:l.off],
		Name:  ir.Name(name),
		Count: k,
		Pos:   start,
	}, nil
}
