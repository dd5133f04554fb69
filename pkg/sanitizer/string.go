package sanitizer

import (
	"strings"
	"unicode"
)

// TrimAndNormalize collapses every run of whitespace to a single space and
// drops control characters, so "Dana\t Levi\n" is stored as "Dana Levi".
func TrimAndNormalize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeName is the form patient, service and room names are stored in.
func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
