package utils

import (
	"regexp"
	"strings"
)

var gstinPattern = regexp.MustCompile(`^[0-9A-Z]{15}$`)

// NormalizeGSTIN trims whitespace and upper-cases the identifier
func NormalizeGSTIN(gstin string) string {
	return strings.ToUpper(strings.TrimSpace(gstin))
}

// IsValidGSTIN checks the 15 character alphanumeric format.
// The portal is the authority on whether the number exists.
func IsValidGSTIN(gstin string) bool {
	return gstinPattern.MatchString(gstin)
}

// StateCode returns the two digit state prefix of a GSTIN
func StateCode(gstin string) string {
	if len(gstin) < 2 {
		return ""
	}
	return gstin[:2]
}

// PAN returns the embedded PAN (characters 3 to 12)
func PAN(gstin string) string {
	if len(gstin) < 12 {
		return ""
	}
	return gstin[2:12]
}
