package utils

import (
	"strings"
	"unicode"
)

// SanitizeString sanitizes a string for safe use
func SanitizeString(s string) string {
	// Remove control characters
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// TruncateString truncates a string to max length in runes
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// MaskSensitive masks all but the last visibleChars characters
func MaskSensitive(s string, visibleChars int) string {
	if len(s) <= visibleChars {
		return strings.Repeat("*", len(s))
	}
	hidden := len(s) - visibleChars
	return strings.Repeat("*", hidden) + s[hidden:]
}

// MaskPhone keeps the leading '+' and the last four digits of a phone number
// so logs can tell recipients apart without recording them.
func MaskPhone(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return "+" + MaskSensitive(phone[1:], 4)
	}
	return MaskSensitive(phone, 4)
}
