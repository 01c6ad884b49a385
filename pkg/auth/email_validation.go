package auth

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/tendant/healthcard-slim/pkg/domain"
)

// Email validation regex (stricter than RFC 5322 for practical use)
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

const maxEmailLength = 254 // RFC 5321

// ValidateEmail validates a staff email address. Display-name forms such as
// "Dana <dana@example.com>" are rejected.
func ValidateEmail(email string, strict bool) error {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return domain.BadRequest("email is required")
	}
	if len(normalized) > maxEmailLength {
		return domain.BadRequest(fmt.Sprintf("email is too long (max %d characters)", maxEmailLength))
	}

	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return domain.ErrInvalidEmail
	}
	if strict && !emailRegex.MatchString(addr.Address) {
		return domain.ErrInvalidEmail
	}
	return nil
}

// NormalizeEmail normalizes an email address by lowercasing and trimming.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
