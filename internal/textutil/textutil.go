// Package textutil holds the small string helpers shared by the HTML listing parsers.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Collapse trims s and folds every run of whitespace (including NBSP) into one space.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripAccents removes combining marks: "Séminaire" -> "Seminaire".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lowercases, strips accents and replaces punctuation with spaces.
// It is used to compare headers and venue names, never for display.
func Fold(s string) string {
	s = strings.ToLower(StripAccents(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return Collapse(b.String())
}
