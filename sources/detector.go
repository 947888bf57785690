package sources

import (
	"strings"

	"hostel-analytics/models"
)

// DetectProperty infers which property a data blob belongs to. Configured
// identifiers (property id and extra identifiers) are tried first for every
// property, then display names as a case-insensitive substring.
func DetectProperty(blob string, props []models.Property) (models.Property, bool) {
	lower := strings.ToLower(blob)

	for _, p := range props {
		for _, ident := range append([]string{p.ID}, p.Identifiers...) {
			ident = strings.ToLower(strings.TrimSpace(ident))
			if ident != "" && containsToken(lower, ident) {
				return p, true
			}
		}
	}

	for _, p := range props {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name != "" && strings.Contains(lower, name) {
			return p, true
		}
	}
	return models.Property{}, false
}

// containsToken matches ident only when it is not embedded in a longer
// alphanumeric run, so id "12" does not match "4123"
func containsToken(s, ident string) bool {
	for from := 0; ; {
		i := strings.Index(s[from:], ident)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(ident)
		if (start == 0 || !isAlnum(s[start-1])) && (end == len(s) || !isAlnum(s[end])) {
			return true
		}
		from = start + 1
	}
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
