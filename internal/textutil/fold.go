// Package textutil holds the rune-level rules shared by term normalization,
// phrase matching and PDF text search.
package textutil

import (
	"strings"
	"unicode"
)

// Fold maps r to the canonical member of its simple case-folding orbit, so
// that Fold(a) == Fold(b) iff a and b are equal ignoring case.
func Fold(r rune) rune {
	if r < unicode.MaxASCII {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		// 'k' and 's' fold together with U+212A and U+017F; the ASCII
		// member is the smallest of both orbits.
		return r
	}
	lowest := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < lowest {
			lowest = f
		}
	}
	if 'A' <= lowest && lowest <= 'Z' {
		lowest += 'a' - 'A'
	}
	return lowest
}

// FoldString folds every rune of s.
func FoldString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(Fold(r))
	}
	return b.String()
}

// IsWordRune reports whether r counts as part of a word: a letter, a number
// or an underscore.
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
