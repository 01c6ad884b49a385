package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tendant/healthcard-slim/pkg/domain"
)

// SanitizeName trims a person or plan name, drops control characters and
// collapses inner whitespace.
func SanitizeName(name string) string {
	return strings.Join(strings.Fields(removeControlChars(name)), " ")
}

// SanitizeText trims free text such as an address or description and drops
// control characters other than line breaks and tabs.
func SanitizeText(text string) string {
	return strings.TrimSpace(removeControlChars(text))
}

// ValidateStringLength checks that value has between min and max characters.
// A zero bound is not enforced.
func ValidateStringLength(field, value string, min, max int) error {
	length := utf8.RuneCountInString(value)

	if min > 0 && length < min {
		if min == 1 {
			return domain.BadRequest(fmt.Sprintf("%s is required", field))
		}
		return domain.BadRequest(fmt.Sprintf("%s must be at least %d characters long", field, min))
	}
	if max > 0 && length > max {
		return domain.BadRequest(fmt.Sprintf("%s must be at most %d characters long", field, max))
	}
	return nil
}

// removeControlChars removes control characters except newline and tab.
func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
