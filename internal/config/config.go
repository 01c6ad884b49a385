package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/healthcard-slim/pkg/policy"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database
	DBHost            string
	DBPort            int
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBTxTimeout       time.Duration
	DBAutoMigrate     bool

	// Access tokens are issued by the identity provider and validated here.
	JWTSecret   string
	JWTIssuer   string
	JWTLeeway   time.Duration
	TokenCookie string

	// Logging
	LogLevel  string
	LogFormat string

	// Cards
	CardTransitionPolicy policy.TransitionMode
	PageDefaultLimit     int

	// HTTP hardening
	MaxRequestBodySize int64
	RateLimit          RateLimitConfig
	SecurityHeaders    SecurityHeadersConfig
	PasswordPolicy     PasswordPolicyConfig
	StrictEmail        bool
}

// RateLimitConfig configures the per-IP limiters of the HTTP surface.
type RateLimitConfig struct {
	Enabled bool

	APIRequestsPerWindow int
	APIWindow            time.Duration

	VerifyRequestsPerWindow int
	VerifyWindow            time.Duration
}

// SecurityHeadersConfig lists the response headers set on every request.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	ReferrerPolicy     string
}

// PasswordPolicyConfig defines complexity rules for staff passwords.
type PasswordPolicyConfig struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		// Database defaults (local Postgres on 25432)
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnvInt("DB_PORT", 25432),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "healthcard"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		DBMaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		DBTxTimeout:       getEnvDuration("DB_TX_TIMEOUT", 5*time.Second),
		DBAutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", false),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTIssuer:   getEnv("JWT_ISSUER", ""),
		JWTLeeway:   getEnvDuration("JWT_LEEWAY", 30*time.Second),
		TokenCookie: getEnv("TOKEN_COOKIE_NAME", "access_token"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		PageDefaultLimit: getEnvInt("PAGE_DEFAULT_LIMIT", 50),

		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),

		RateLimit: RateLimitConfig{
			Enabled:                 getEnvBool("RATE_LIMIT_ENABLED", true),
			APIRequestsPerWindow:    getEnvInt("RATE_LIMIT_API_REQUESTS", 300),
			APIWindow:               getEnvDuration("RATE_LIMIT_API_WINDOW", time.Minute),
			VerifyRequestsPerWindow: getEnvInt("RATE_LIMIT_VERIFY_REQUESTS", 60),
			VerifyWindow:            getEnvDuration("RATE_LIMIT_VERIFY_WINDOW", time.Minute),
		},

		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			CSP:                getEnv("SECURITY_HEADERS_CSP", "default-src 'none'; frame-ancestors 'none'"),
			HSTSMaxAge:         getEnvInt("SECURITY_HEADERS_HSTS_MAX_AGE", 0),
			FrameOptions:       getEnv("SECURITY_HEADERS_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: getEnv("SECURITY_HEADERS_CONTENT_TYPE_OPTIONS", "nosniff"),
			ReferrerPolicy:     getEnv("SECURITY_HEADERS_REFERRER_POLICY", "no-referrer"),
		},

		PasswordPolicy: PasswordPolicyConfig{
			MinLength:        getEnvInt("PASSWORD_MIN_LENGTH", 12),
			RequireUppercase: getEnvBool("PASSWORD_REQUIRE_UPPERCASE", true),
			RequireLowercase: getEnvBool("PASSWORD_REQUIRE_LOWERCASE", true),
			RequireNumber:    getEnvBool("PASSWORD_REQUIRE_NUMBER", true),
			RequireSpecial:   getEnvBool("PASSWORD_REQUIRE_SPECIAL", false),
		},
		StrictEmail: getEnvBool("EMAIL_STRICT", true),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	mode, err := policy.ParseTransitionMode(os.Getenv("CARD_TRANSITION_POLICY"))
	if err != nil {
		return nil, fmt.Errorf("CARD_TRANSITION_POLICY: %w", err)
	}
	cfg.CardTransitionPolicy = mode

	if cfg.PageDefaultLimit <= 0 || cfg.PageDefaultLimit > 500 {
		return nil, fmt.Errorf("PAGE_DEFAULT_LIMIT must be between 1 and 500, got %d", cfg.PageDefaultLimit)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
