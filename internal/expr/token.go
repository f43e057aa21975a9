package expr

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

type tokenKind int

const (
	tokOperator tokenKind = iota
	tokIdent
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind  tokenKind
	value string
	pos   int
}

// tokenize splits a SID expression string into tokens. Identifier text is
// NFC-normalized so that visually identical atoms compare equal regardless
// of how the caller composed them.
func tokenize(text string) ([]token, error) {
	src := norm.NFC.String(text)
	var tokens []token
	pos := 0
	for pos < len(src) {
		r, size := utf8.DecodeRuneInString(src[pos:])
		if unicode.IsSpace(r) {
			pos += size
			continue
		}

		// Two-character operators (S+, S-) win over single-character ones.
		if op, n := matchOperator(src[pos:]); n > 0 {
			tokens = append(tokens, token{kind: tokOperator, value: string(op), pos: pos})
			pos += n
			continue
		}

		if r == '$' || r == '_' || unicode.IsLetter(r) {
			start := pos
			pos += size
			for pos < len(src) {
				r, size = utf8.DecodeRuneInString(src[pos:])
				if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
					break
				}
				pos += size
			}
			tokens = append(tokens, token{kind: tokIdent, value: src[start:pos], pos: start})
			continue
		}

		switch r {
		case '(':
			tokens = append(tokens, token{kind: tokLParen, value: "(", pos: pos})
		case ')':
			tokens = append(tokens, token{kind: tokRParen, value: ")", pos: pos})
		case ',':
			tokens = append(tokens, token{kind: tokComma, value: ",", pos: pos})
		default:
			return nil, &ParseError{Msg: "unexpected character " + string(r), Pos: pos}
		}
		pos += size
	}
	return tokens, nil
}

// matchOperator greedily matches an operator literal at the head of s,
// returning the operator and the number of bytes consumed (0 on no match).
// An operator followed by an identifier character is an identifier, not an
// operator (e.g. "Choice" starts with 'C' but is an atom).
func matchOperator(s string) (Operator, int) {
	for _, op := range Operators {
		lit := string(op)
		if len(s) < len(lit) || s[:len(lit)] != lit {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(s[len(lit):]); r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		return op, len(lit)
	}
	return "", 0
}
