package index

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tokenize turns a file name into the ordered list of tokens the store
// indexes it under: Unicode NFC normalize, lowercase, split on any
// non-alphanumeric rune, drop empty runs. Deterministic and
// locale-independent.
func Tokenize(s string) []string {
	normalized := norm.NFC.String(s)
	lowered := strings.ToLower(normalized)

	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
