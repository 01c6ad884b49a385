package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/tendant/healthcard-slim/internal/config"
	"github.com/tendant/healthcard-slim/internal/httputil"
)

// Limiter groups.
const (
	LimiterAPI    = "api"
	LimiterVerify = "verify"
)

// RateLimitConfig holds rate limiting configuration for a specific endpoint type.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   *zap.Logger
}

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					zap.String("ip", r.RemoteAddr),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.String("user_agent", r.UserAgent()),
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded. please try again later")
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// CreateRateLimiters creates the api and verify limiters based on configuration.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *zap.Logger) map[string]func(http.Handler) http.Handler {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return map[string]func(http.Handler) http.Handler{
			LimiterAPI:    noOp,
			LimiterVerify: noOp,
		}
	}

	return map[string]func(http.Handler) http.Handler{
		LimiterAPI: RateLimit(RateLimitConfig{
			Requests: cfg.APIRequestsPerWindow,
			Window:   cfg.APIWindow,
			Logger:   logger,
		}),
		LimiterVerify: RateLimit(RateLimitConfig{
			Requests: cfg.VerifyRequestsPerWindow,
			Window:   cfg.VerifyWindow,
			Logger:   logger,
		}),
	}
}
