package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinValueLength is the shortest value the scanning tiers accept
const MinValueLength = 5

// boilerplateKeywords mark page chrome that is never a field value
var boilerplateKeywords = []string{
	"menu", "navigation", "header", "footer", "sidebar",
	"button", "click", "cancel", "submit", "search",
	"gst law", "amendment",
}

// IsValidCandidate applies the value filter used by the table and label
// tiers. minLen raises the floor for fields with longer values.
func IsValidCandidate(value string, minLen int) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	if minLen < MinValueLength {
		minLen = MinValueLength
	}
	if utf8.RuneCountInString(value) < minLen {
		return false
	}

	lower := strings.ToLower(value)
	if lower == "n/a" || lower == "na" {
		return false
	}
	for _, kw := range boilerplateKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return strings.IndexFunc(value, unicode.IsLetter) >= 0
}
