package formula

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokComma
	tokEOF
)

type token struct {
	kind  tokenKind
	text  string
	pos   int
	value float64
}

// CompileError reports a rejected formula with the offending token and its
// byte position in the source, so the uploader can correct it.
type CompileError struct {
	Pos   int
	Token string
	Msg   string
}

func (e *CompileError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("formula compile error at position %d: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("formula compile error at position %d near %q: %s", e.Pos, e.Token, e.Msg)
}

func lex(src string) ([]token, error) {
	runes := []rune(src)
	out := make([]token, 0, len(runes)/2+1)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '+':
			out = append(out, token{kind: tokPlus, text: "+", pos: i})
			i++
		case r == '-':
			out = append(out, token{kind: tokMinus, text: "-", pos: i})
			i++
		case r == '*':
			out = append(out, token{kind: tokStar, text: "*", pos: i})
			i++
		case r == '/':
			out = append(out, token{kind: tokSlash, text: "/", pos: i})
			i++
		case r == '(':
			out = append(out, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			out = append(out, token{kind: tokRParen, text: ")", pos: i})
			i++
		case r == ',':
			out = append(out, token{kind: tokComma, text: ",", pos: i})
			i++
		case r >= '0' && r <= '9':
			start := i
			for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
				i++
			}
			if i < len(runes) && runes[i] == '.' {
				i++
				if i >= len(runes) || runes[i] < '0' || runes[i] > '9' {
					return nil, &CompileError{Pos: start, Token: string(runes[start:i]), Msg: "malformed number"}
				}
				for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
					i++
				}
			}
			text := string(runes[start:i])
			value, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &CompileError{Pos: start, Token: text, Msg: "malformed number"}
			}
			out = append(out, token{kind: tokNumber, text: text, pos: start, value: value})
		case isIdentStart(r):
			start := i
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			out = append(out, token{kind: tokIdent, text: string(runes[start:i]), pos: start})
		default:
			return nil, &CompileError{Pos: i, Token: string(r), Msg: "unrecognized token"}
		}
	}
	out = append(out, token{kind: tokEOF, pos: len(runes)})
	return out, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentRune(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

// IsEmptySource reports whether the formula source has no content to compile.
func IsEmptySource(src string) bool {
	return strings.TrimSpace(src) == ""
}
