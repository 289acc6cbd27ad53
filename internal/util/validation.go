package util

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// A single trailing newline is accepted before the end of the value.
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\n?$`)
	phonePattern = regexp.MustCompile(`^[\p{Nd}\p{Z}\t\n\v\f\r\x1c-\x1f\x{85}+()-]{10,}$`)
)

// textPunctuation lists the punctuation CleanText keeps.
const textPunctuation = ".,!?@-"

// IsEmail reports whether value has the shape local@domain.tld. The value is
// checked as given, without trimming.
func IsEmail(value string) bool {
	return emailPattern.MatchString(value)
}

// IsPhone reports whether value is at least ten characters made only of
// digits, whitespace, '+', '-', '(' and ')'.
func IsPhone(value string) bool {
	return phonePattern.MatchString(value)
}

// NormalizeEmail lowercases value and strips surrounding whitespace. It does
// not validate; see IsEmail.
func NormalizeEmail(value string) string {
	return strings.ToLower(strings.TrimFunc(value, IsSpace))
}

// NormalizePhone strips surrounding whitespace only.
func NormalizePhone(value string) string {
	return strings.TrimFunc(value, IsSpace)
}

// IsSpace reports whether r is whitespace. Besides unicode.IsSpace it counts
// the ASCII file, group, record and unit separators (0x1C-0x1F).
func IsSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// CleanText collapses whitespace runs into single spaces, drops every
// character that is not a letter, number, underscore, whitespace or one of
// ".,!?@-", and trims the result.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	collapsed := strings.Join(strings.FieldsFunc(text, IsSpace), " ")

	var b strings.Builder
	b.Grow(len(collapsed))
	for _, r := range collapsed {
		if keepTextRune(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimFunc(b.String(), IsSpace)
}

func keepTextRune(r rune) bool {
	switch {
	case unicode.IsLetter(r), unicode.IsNumber(r), r == '_':
		return true
	case IsSpace(r):
		return true
	default:
		return strings.ContainsRune(textPunctuation, r)
	}
}

// TruncateRunes trims value to at most limit characters. A non-positive
// limit yields an empty string.
func TruncateRunes(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit])
}

// EnsureMaxBytes checks that a byte slice does not exceed the specified size.
func EnsureMaxBytes(field string, b []byte, max int) error {
	if max <= 0 {
		return nil
	}
	if len(b) > max {
		return fmt.Errorf("%s exceeds maximum size of %d bytes", field, max)
	}
	return nil
}
