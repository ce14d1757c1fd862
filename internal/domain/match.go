package domain

import "strings"

// normalizeForMatch lower-cases text for the compliance checklist's
// case-insensitive substring match. Accented and unaccented spellings are
// both matched literally rather than pulling in a Unicode-folding library.
func normalizeForMatch(s string) string {
	return strings.ToLower(s)
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
