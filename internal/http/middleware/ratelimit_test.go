package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tendant/healthcard-slim/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func TestRateLimit(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	cfg := RateLimitConfig{
		Requests: 2,
		Window:   time.Minute,
		Logger:   zap.New(core),
	}

	handler := RateLimit(cfg)(okHandler())

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i, status := range want {
		req := httptest.NewRequest(http.MethodGet, "/cards/verify", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != status {
			t.Errorf("Request %d: got status %d, want %d", i+1, w.Code, status)
		}
	}

	if logs.FilterMessage("rate limit exceeded").Len() != 1 {
		t.Errorf("expected one rate limit log entry, got %d", logs.Len())
	}

	// Another client keeps its own budget.
	req := httptest.NewRequest(http.MethodGet, "/cards/verify", nil)
	req.RemoteAddr = "192.168.1.2:12345"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Other client: got status %d, want %d", w.Code, http.StatusOK)
	}
}

func TestNoRateLimit(t *testing.T) {
	handler := NoRateLimit()(okHandler())

	// All requests should succeed
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Request %d: got status %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

func TestCreateRateLimiters_Disabled(t *testing.T) {
	limiters := CreateRateLimiters(config.RateLimitConfig{Enabled: false}, zap.NewNop())

	// All limiters should be no-op
	handler := limiters[LimiterVerify](okHandler())

	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Request %d: got status %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

func TestCreateRateLimiters_Enabled(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:                 true,
		APIRequestsPerWindow:    5,
		APIWindow:               time.Minute,
		VerifyRequestsPerWindow: 1,
		VerifyWindow:            time.Minute,
	}

	limiters := CreateRateLimiters(cfg, zap.NewNop())

	if limiters[LimiterAPI] == nil {
		t.Fatal("api limiter should not be nil")
	}
	if limiters[LimiterVerify] == nil {
		t.Fatal("verify limiter should not be nil")
	}

	verify := limiters[LimiterVerify](okHandler())
	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/cards/verify", nil)
		req.RemoteAddr = "10.0.0.1:1000"
		w := httptest.NewRecorder()
		verify.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("verify limiter codes = %v, want [200 429]", codes)
	}
}
