// Package grammar parses program text into rules and an initial state.
//
// A program is zero or more rule lines followed by exactly one state section:
//
//	:: flour sugar apples > apple-cake
//	:: apple-cake^2 > party
//	;; flour^2 sugar^2 apples^2
//
// A name is one or more of a-z, A-Z and '-'. A term is a name optionally
// followed, with no space, by ^k: it stands for k copies of the name
// (k = 0 means none). A rule line starts with "::", lists left-side terms,
// a ">" and right-side terms. The state section starts with ";;" and lists
// terms. Whitespace, newlines included, only separates tokens.
//
// Any malformed input fails the whole parse with a *ParseError; there is no
// partial program.
package grammar
