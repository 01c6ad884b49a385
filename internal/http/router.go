package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tendant/healthcard-slim/internal/config"
	"github.com/tendant/healthcard-slim/internal/http/features/auditlogs"
	cardsapi "github.com/tendant/healthcard-slim/internal/http/features/cards"
	"github.com/tendant/healthcard-slim/internal/http/features/households"
	"github.com/tendant/healthcard-slim/internal/http/features/members"
	"github.com/tendant/healthcard-slim/internal/http/features/plans"
	"github.com/tendant/healthcard-slim/internal/http/features/users"
	"github.com/tendant/healthcard-slim/internal/http/middleware"
	"github.com/tendant/healthcard-slim/internal/httputil"
	"github.com/tendant/healthcard-slim/pkg/auth"
	"github.com/tendant/healthcard-slim/pkg/cards"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger *zap.Logger

	Engine   *cards.Engine
	Verifier *cards.Verifier

	Households households.Store
	Members    members.Store
	Plans      plans.Store
	Users      users.Store
	AuditLogs  auditlogs.Store

	Tokens         middleware.ActorResolver
	TokenCookie    string
	PasswordPolicy *auth.PasswordPolicy
	StrictEmail    bool

	// Gatherer backs /metrics. The endpoint is not mounted when nil.
	Gatherer prometheus.Gatherer

	PageDefaultLimit   int
	MaxRequestBodySize int64
	RateLimitConfig    config.RateLimitConfig
	SecurityHeaders    config.SecurityHeadersConfig
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := cfg.PageDefaultLimit
	if limit <= 0 {
		limit = cards.DefaultListLimit
	}

	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.BodyLimit(cfg.MaxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, logger)

	cardsHandler := cardsapi.NewHandler(logger, cfg.Engine, cfg.Verifier, limit)
	householdsHandler := households.NewHandler(logger, cfg.Households, cfg.Members, limit)
	membersHandler := members.NewHandler(logger, cfg.Members)
	plansHandler := plans.NewHandler(logger, cfg.Plans)
	usersHandler := users.NewHandler(logger, cfg.Users, cfg.PasswordPolicy, cfg.StrictEmail, limit)
	auditHandler := auditlogs.NewHandler(logger, cfg.AuditLogs, limit)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Tokens, cfg.TokenCookie))
		r.Use(rateLimiters[middleware.LimiterAPI])

		cardsHandler.RegisterRoutes(r, rateLimiters[middleware.LimiterVerify])
		householdsHandler.RegisterRoutes(r)
		membersHandler.RegisterRoutes(r)
		plansHandler.RegisterRoutes(r)
		usersHandler.RegisterRoutes(r)
		auditHandler.RegisterRoutes(r)
	})

	return r
}
