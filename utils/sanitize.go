package utils

import (
	"strings"
	"unicode"
)

// SanitizeIdentifier normalizes a free-form label (department name, section
// title) into a comparable slug: lowercased, runs of whitespace collapsed to a
// single hyphen, and everything except ASCII letters, digits, Arabic letters
// and hyphens dropped.
func SanitizeIdentifier(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	lastHyphen := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		case r == '-':
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || isArabicLetter(r):
			b.WriteRune(r)
			lastHyphen = false
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func isArabicLetter(r rune) bool {
	return r >= 0x0600 && r <= 0x06FF
}

// NormalizePhone strips spaces, hyphens and parentheses from a phone number so
// two renderings of the same number compare equal. A leading plus survives.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
