package flexible

import (
	"strings"
)

// Kind identifies pseudo-function of a token.
type Kind int

const (
	KindDpr Kind = iota
	KindRem
	KindURL
)

var kindNames = []string{"dpr", "rem", "url"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return ""
	}
	return kindNames[k]
}

const unitPx = "px"

// Token is a single pseudo-function occurrence in a declaration value:
// "dpr(10px)", "rem(75px)" or "url(a@2x.png)".
type Token struct {
	Kind  Kind
	Start int    // offset of the keyword in scanned value
	End   int    // offset right after closing parenthesis
	Arg   string // argument, without unit marker for dpr and rem
	Unit  string // "px" when dpr or rem argument carried it
}

// Literal returns original text of the token.
func (t Token) Literal(value string) string {
	return value[t.Start:t.End]
}

// Scan returns all non overlapping pseudo-function tokens of value, left to
// right. Argument of a token is at least one character long and ends at the
// first closing parenthesis on the same line.
func Scan(value string) []Token {
	var tokens []Token
	for i := 0; i < len(value); {
		tok, ok := scanAt(value, i)
		if !ok {
			i++
			continue
		}
		tokens = append(tokens, tok)
		i = tok.End
	}
	return tokens
}

// HasTokens reports whether value contains at least one pseudo-function.
func HasTokens(value string) bool {
	for i := range len(value) {
		if _, ok := scanAt(value, i); ok {
			return true
		}
	}
	return false
}

func scanAt(value string, pos int) (Token, bool) {
	for k, name := range kindNames {
		if !strings.HasPrefix(value[pos:], name+"(") {
			continue
		}
		open := pos + len(name) + 1
		if open >= len(value) {
			return Token{}, false
		}
		// argument is never empty, so closing parenthesis is searched past its first character
		rest := value[open+1:]
		closing := strings.IndexAny(rest, ")\n\r")
		if closing < 0 || rest[closing] != ')' {
			return Token{}, false
		}
		if value[open] == '\n' || value[open] == '\r' {
			return Token{}, false
		}
		end := open + 1 + closing
		tok := Token{Kind: Kind(k), Start: pos, End: end + 1, Arg: value[open:end]}
		if tok.Kind != KindURL && len(tok.Arg) > len(unitPx) && strings.HasSuffix(tok.Arg, unitPx) {
			tok.Arg, tok.Unit = strings.TrimSuffix(tok.Arg, unitPx), unitPx
		}
		return tok, true
	}
	return Token{}, false
}

// hasDensityMarker reports whether url argument has "@1x", "@2x" or "@3x"
// inside a file name: with something other than whitespace on both sides.
func hasDensityMarker(arg string) bool {
	arg = strings.Trim(arg, `'"`)
	if strings.ContainsAny(arg, " \t\n\r\f") {
		return false
	}
	for i := 1; i+3 < len(arg); i++ {
		if isDensityMarker(arg, i) {
			return true
		}
	}
	return false
}

func isDensityMarker(s string, i int) bool {
	return i+2 < len(s) && s[i] == '@' && s[i+1] >= '1' && s[i+1] <= '3' && s[i+2] == 'x'
}

// dprDependent reports whether resolving tokens requires a device pixel ratio.
func dprDependent(tokens []Token) bool {
	for _, t := range tokens {
		switch t.Kind {
		case KindDpr:
			return true
		case KindURL:
			if hasDensityMarker(t.Arg) {
				return true
			}
		}
	}
	return false
}
