// Package place turns a user-typed place name into a single verified map
// center. It generates spelling variants, issues a prioritized sequence of
// geocoding queries and accepts the first candidate that actually denotes the
// requested place.
package place

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// NormalizeText case-folds value and keeps only letters and digits, including
// non-Latin scripts. "New York" and "new-york" both normalize to "newyork".
func NormalizeText(value string) string {
	if value == "" {
		return ""
	}
	folded := cases.Fold().String(value)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// words splits value into case-folded alphanumeric tokens. Everything that is
// not a letter or digit acts as a separator.
func words(value string) []string {
	folded := cases.Fold().String(value)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
