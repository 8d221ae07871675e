// Package text holds the string helpers shared by the catalog, the favorites
// store and the card filter.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes and drops combining marks. The output stays in NFD so
// that characters without an ASCII base (ñ -> n + U+0303) lose their mark too.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Normalize removes accents, lowercases and trims s.
//
//	Normalize("  Pollo al Limón ") == "pollo al limon"
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	out, _, err := transform.String(stripMarks, lower)
	if err != nil {
		out = lower
	}
	return strings.TrimSpace(out)
}

// Slugify turns free text into a lookup key: normalized, runs of anything
// outside [a-z0-9] collapsed to one hyphen, no leading or trailing hyphen.
func Slugify(s string) string {
	n := Normalize(s)

	var b strings.Builder
	b.Grow(len(n))

	pendingDash := false
	for _, r := range n {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// Fold is the case fold used by the title search. Accents are kept.
func Fold(s string) string {
	return strings.ToLower(s)
}
