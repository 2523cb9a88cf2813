package enroll

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics strips combining marks so names compare across
// accent variants ("Müller" matches "Muller").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizePersonName produces the canonical comparison form of a
// person name: trimmed, single-spaced, accent-free, lower case.
func NormalizePersonName(name string) string {
	fields := strings.Fields(name)
	joined := strings.Join(fields, " ")
	return strings.ToLower(RemoveDiacritics(joined))
}
