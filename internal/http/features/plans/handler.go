// Package plans serves coverage plan endpoints.
package plans

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tendant/healthcard-slim/internal/http/features/common"
	"github.com/tendant/healthcard-slim/internal/http/middleware"
	"github.com/tendant/healthcard-slim/internal/httputil"
	"github.com/tendant/healthcard-slim/pkg/auth"
	"github.com/tendant/healthcard-slim/pkg/domain"
	"github.com/tendant/healthcard-slim/pkg/policy"
)

// maxDurationDays bounds plan duration to ten years.
const maxDurationDays = 3660

// Store persists plans.
type Store interface {
	Create(ctx context.Context, p *domain.Plan) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error)
	List(ctx context.Context) ([]domain.Plan, error)
	Update(ctx context.Context, p *domain.Plan) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Handler handles plan endpoints.
type Handler struct {
	logger *zap.Logger
	plans  Store
}

// NewHandler creates a new plans handler.
func NewHandler(logger *zap.Logger, plans Store) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logger: logger, plans: plans}
}

// Request is the body of create and update requests. On update, omitted
// fields are left unchanged. Changing DurationDays does not move the expiry
// of cards already issued on the plan.
type Request struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price"`
	DurationDays *int     `json:"durationDays"`
}

func (req Request) apply(p *domain.Plan) error {
	if req.Name != nil {
		p.Name = auth.SanitizeName(*req.Name)
	}
	if req.Description != nil {
		p.Description = auth.SanitizeText(*req.Description)
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.DurationDays != nil {
		p.DurationDays = *req.DurationDays
	}

	if err := auth.ValidateStringLength("name", p.Name, 1, 100); err != nil {
		return err
	}
	if err := auth.ValidateStringLength("description", p.Description, 0, 1000); err != nil {
		return err
	}
	if p.Price < 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		return domain.BadRequest("price must be zero or greater")
	}
	if p.DurationDays <= 0 || p.DurationDays > maxDurationDays {
		return domain.BadRequest("durationDays must be between 1 and 3660")
	}
	return nil
}

// RegisterRoutes registers plan routes on an authenticated router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	gate := func(action policy.Action) func(http.Handler) http.Handler {
		return middleware.Authorize(policy.ResourcePlans, action, h.logger)
	}

	r.Route("/plans", func(r chi.Router) {
		r.With(gate(policy.ActionList)).Get("/", h.List)
		r.With(gate(policy.ActionCreate)).Post("/", h.Create)
		r.With(gate(policy.ActionRead)).Get("/{id}", h.Get)
		r.With(gate(policy.ActionUpdate)).Put("/{id}", h.Update)
		r.With(gate(policy.ActionDelete)).Delete("/{id}", h.Delete)
	})
}

// List returns all plans.
// GET /plans
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.List(r.Context())
	if err != nil {
		h.fail(w, r, "list", uuid.Nil, err)
		return
	}
	if plans == nil {
		plans = []domain.Plan{}
	}
	httputil.JSON(w, http.StatusOK, plans)
}

// Get returns one plan.
// GET /plans/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := common.PathID(w, r, domain.ErrPlanNotFound)
	if !ok {
		return
	}

	plan, err := h.plans.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get", id, err)
		return
	}
	httputil.JSON(w, http.StatusOK, plan)
}

// Create adds a plan.
// POST /plans
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req Request
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	plan := &domain.Plan{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	if err := req.apply(plan); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.plans.Create(r.Context(), plan); err != nil {
		h.fail(w, r, "create", plan.ID, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, plan)
}

// Update changes a plan.
// PUT /plans/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := common.PathID(w, r, domain.ErrPlanNotFound)
	if !ok {
		return
	}

	var req Request
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	plan, err := h.plans.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, "update", id, err)
		return
	}
	if err := req.apply(plan); err != nil {
		httputil.WriteError(w, err)
		return
	}
	plan.UpdatedAt = time.Now().UTC()

	if err := h.plans.Update(r.Context(), plan); err != nil {
		h.fail(w, r, "update", id, err)
		return
	}
	httputil.JSON(w, http.StatusOK, plan)
}

// Delete removes a plan that no card references.
// DELETE /plans/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := common.PathID(w, r, domain.ErrPlanNotFound)
	if !ok {
		return
	}

	if err := h.plans.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "delete", id, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, id uuid.UUID, err error) {
	common.LogFailure(h.logger, r, "plans."+op, id, err)
	httputil.WriteError(w, err)
}
