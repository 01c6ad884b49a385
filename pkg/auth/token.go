package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tendant/healthcard-slim/pkg/domain"
)

// TokenConfig holds access token validation settings.
type TokenConfig struct {
	JWTSecret []byte
	// Issuer, when set, must match the token's iss claim.
	Issuer string
	// Leeway tolerates clock skew with the identity provider.
	Leeway time.Duration
}

// AccessTokenClaims represents the claims in an access token issued by the
// identity provider.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// TokenValidator validates access tokens and resolves the acting user.
type TokenValidator struct {
	config TokenConfig
	parser *jwt.Parser
}

// NewTokenValidator creates a new token validator.
func NewTokenValidator(config TokenConfig) *TokenValidator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(config.Leeway),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	return &TokenValidator{config: config, parser: jwt.NewParser(opts...)}
}

// ValidateAccessToken validates an access token and returns the claims.
func (v *TokenValidator) ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	token, err := v.parser.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.config.JWTSecret, nil
	})
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessTokenClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

// Actor validates an access token and returns the user and role it carries.
func (v *TokenValidator) Actor(tokenString string) (*domain.Actor, error) {
	claims, err := v.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	return &domain.Actor{ID: id, Role: role}, nil
}

// IssueAccessToken signs an access token carrying user's identity and role.
func (v *TokenValidator) IssueAccessToken(user *domain.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    v.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:  string(user.Role),
		Name:  user.Name,
		Email: user.Email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.config.JWTSecret)
}
