// Package auditlogs serves the read-only card audit trail.
package auditlogs

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tendant/healthcard-slim/internal/http/features/common"
	"github.com/tendant/healthcard-slim/internal/http/middleware"
	"github.com/tendant/healthcard-slim/internal/httputil"
	"github.com/tendant/healthcard-slim/pkg/domain"
	"github.com/tendant/healthcard-slim/pkg/policy"
)

// Store lists audit entries.
type Store interface {
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLog, error)
}

// Handler handles audit log endpoints.
type Handler struct {
	logger       *zap.Logger
	logs         Store
	defaultLimit int
}

// NewHandler creates a new audit log handler.
func NewHandler(logger *zap.Logger, logs Store, defaultLimit int) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logger: logger, logs: logs, defaultLimit: defaultLimit}
}

// RegisterRoutes registers audit log routes on an authenticated router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.Authorize(policy.ResourceAuditLogs, policy.ActionList, h.logger)).
		Get("/audit-logs", h.List)
}

// List returns audit entries, newest first.
// GET /audit-logs?cardId=&userId=&action=&limit=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	cardID, ok := common.OptionalIDPtr(w, "cardId", q.Get("cardId"))
	if !ok {
		return
	}
	userID, ok := common.OptionalIDPtr(w, "userId", q.Get("userId"))
	if !ok {
		return
	}
	limit, ok := common.ListLimit(w, r, h.defaultLimit)
	if !ok {
		return
	}

	filter := domain.AuditFilter{CardID: cardID, UserID: userID, Limit: limit}
	if raw := strings.TrimSpace(q.Get("action")); raw != "" {
		action := domain.AuditAction(strings.ToUpper(raw))
		switch action {
		case domain.AuditCardCreated, domain.AuditCardUpdated, domain.AuditCardDeleted:
			filter.Action = action
		default:
			httputil.Error(w, http.StatusBadRequest, "invalid action")
			return
		}
	}

	logs, err := h.logs.List(r.Context(), filter)
	if err != nil {
		common.LogFailure(h.logger, r, "auditlogs.list", uuid.Nil, err)
		httputil.WriteError(w, err)
		return
	}
	if logs == nil {
		logs = []domain.AuditLog{}
	}
	httputil.JSON(w, http.StatusOK, logs)
}
