package flow

import (
	"regexp"
	"strings"
)

var (
	phonePattern = regexp.MustCompile(`^0[0-9]{8,9}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneStrip   = strings.NewReplacer("-", "", " ", "")
)

// NormalizePhone removes hyphens and spaces.
func NormalizePhone(s string) string {
	return phoneStrip.Replace(strings.TrimSpace(s))
}

// ValidPhone accepts Thai numbers: a leading 0 and 9-10 digits once separators are stripped.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(NormalizePhone(s))
}

// ValidEmail checks the local@domain.tld shape only.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}
