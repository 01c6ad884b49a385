package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/tendant/healthcard-slim/internal/config"
	httpserver "github.com/tendant/healthcard-slim/internal/http"
	"github.com/tendant/healthcard-slim/internal/logger"
	"github.com/tendant/healthcard-slim/internal/metrics"
	"github.com/tendant/healthcard-slim/pkg/auth"
	"github.com/tendant/healthcard-slim/pkg/cards"
	"github.com/tendant/healthcard-slim/pkg/repository"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "healthcard")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewDB(ctx, repository.Config{
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		DBName:          cfg.DBName,
		SSLMode:         cfg.DBSSLMode,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Info("connected to database", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))

	if cfg.DBAutoMigrate {
		applied, err := repository.Migrate(ctx, db)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations applied", zap.Strings("applied", applied))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, cfg.DBName),
	)

	opts := cards.Options{
		Transitions: cfg.CardTransitionPolicy,
		Metrics:     metrics.New(reg),
		Logger:      log.Named("cards"),
	}
	store := repository.NewStore(db, cfg.DBTxTimeout)
	membersRepo := repository.NewMembersRepository(db)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:   log,
		Engine:   cards.NewEngine(store, opts),
		Verifier: cards.NewVerifier(store, opts),

		Households: repository.NewHouseholdsRepository(db),
		Members:    membersRepo,
		Plans:      repository.NewPlansRepository(db),
		Users:      repository.NewUsersRepository(db),
		AuditLogs:  repository.NewAuditLogsRepository(db),

		Tokens: auth.NewTokenValidator(auth.TokenConfig{
			JWTSecret: []byte(cfg.JWTSecret),
			Issuer:    cfg.JWTIssuer,
			Leeway:    cfg.JWTLeeway,
		}),
		TokenCookie:    cfg.TokenCookie,
		PasswordPolicy: auth.NewPasswordPolicy(cfg.PasswordPolicy),
		StrictEmail:    cfg.StrictEmail,
		Gatherer:       reg,

		PageDefaultLimit:   cfg.PageDefaultLimit,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		RateLimitConfig:    cfg.RateLimit,
		SecurityHeaders:    cfg.SecurityHeaders,
	})

	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.String("addr", addr),
			zap.String("transition_policy", string(cfg.CardTransitionPolicy)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
