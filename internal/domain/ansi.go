package domain

import "regexp"

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes SGR escape sequences so persisted text stays plain.
func StripANSI(text string) string {
	return ansiPattern.ReplaceAllString(text, "")
}
