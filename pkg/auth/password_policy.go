package auth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/tendant/healthcard-slim/internal/config"
	"github.com/tendant/healthcard-slim/pkg/domain"
)

// PasswordPolicy defines the complexity required of staff passwords set by
// an administrator.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// NewPasswordPolicy creates a PasswordPolicy from config.
func NewPasswordPolicy(cfg config.PasswordPolicyConfig) *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:        cfg.MinLength,
		RequireUppercase: cfg.RequireUppercase,
		RequireLowercase: cfg.RequireLowercase,
		RequireNumber:    cfg.RequireNumber,
		RequireSpecial:   cfg.RequireSpecial,
	}
}

// ValidatePassword checks a password against the policy. Violations are
// bad-request errors listing every unmet requirement.
func (p *PasswordPolicy) ValidatePassword(password string) error {
	var missing []string
	if p.MinLength > 0 && len(password) < p.MinLength {
		missing = append(missing, fmt.Sprintf("at least %d characters", p.MinLength))
	}
	if p.RequireUppercase && !containsFunc(password, unicode.IsUpper) {
		missing = append(missing, "one uppercase letter")
	}
	if p.RequireLowercase && !containsFunc(password, unicode.IsLower) {
		missing = append(missing, "one lowercase letter")
	}
	if p.RequireNumber && !containsFunc(password, unicode.IsDigit) {
		missing = append(missing, "one number")
	}
	if p.RequireSpecial && !containsFunc(password, isSpecial) {
		missing = append(missing, "one special character")
	}

	if len(missing) == 0 {
		return nil
	}
	return domain.BadRequest("password must contain " + strings.Join(missing, ", "))
}

// HasRequirements returns true if the policy has any requirements.
func (p *PasswordPolicy) HasRequirements() bool {
	return p.MinLength > 0 || p.RequireUppercase || p.RequireLowercase || p.RequireNumber || p.RequireSpecial
}

func containsFunc(s string, f func(rune) bool) bool {
	return strings.IndexFunc(s, f) >= 0
}

func isSpecial(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
}
