// Package households serves household management endpoints.
package households

import (
	"context"
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

// Store persists households.
type Store interface {
	Create(ctx context.Context, h *domain.Household) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Household, error)
	List(ctx context.Context, limit int) ([]domain.Household, error)
	Update(ctx context.Context, h *domain.Household) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// MemberLister lists the members of a household.
type MemberLister interface {
	ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]domain.Member, error)
}

// Handler handles household endpoints.
type Handler struct {
	logger       *zap.Logger
	households   Store
	members      MemberLister
	defaultLimit int
}

// NewHandler creates a new households handler.
func NewHandler(logger *zap.Logger, households Store, members MemberLister, defaultLimit int) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logger: logger, households: households, members: members, defaultLimit: defaultLimit}
}

// Request is the body of create and update requests. On update, omitted
// fields are left unchanged.
type Request struct {
	HeadName *string `json:"headName"`
	Address  *string `json:"address"`
	Phone    *string `json:"phone"`
}

// apply validates req and copies it onto h.
func (req Request) apply(h *domain.Household) error {
	if req.HeadName != nil {
		h.HeadName = auth.SanitizeName(*req.HeadName)
	}
	if req.Address != nil {
		h.Address = auth.SanitizeText(*req.Address)
	}
	if req.Phone != nil {
		h.Phone = auth.SanitizeName(*req.Phone)
	}

	if err := auth.ValidateStringLength("headName", h.HeadName, 1, 100); err != nil {
		return err
	}
	if err := auth.ValidateStringLength("address", h.Address, 0, 255); err != nil {
		return err
	}
	return auth.ValidateStringLength("phone", h.Phone, 0, 32)
}

// RegisterRoutes registers household routes on an authenticated router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	gate := func(action policy.Action) func(http.Handler) http.Handler {
		return middleware.Authorize(policy.ResourceHouseholds, action, h.logger)
	}

	r.Route("/households", func(r chi.Router) {
		r.With(gate(policy.ActionList)).Get("/", h.List)
		r.With(gate(policy.ActionCreate)).Post("/", h.Create)
		r.With(gate(policy.ActionRead)).Get("/{id}", h.Get)
		r.With(gate(policy.ActionUpdate)).Put("/{id}", h.Update)
		r.With(gate(policy.ActionDelete)).Delete("/{id}", h.Delete)
	})
}

// List returns households ordered by head name.
// GET /households?limit=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := common.ListLimit(w, r, h.defaultLimit)
	if !ok {
		return
	}

	households, err := h.households.List(r.Context(), limit)
	if err != nil {
		h.fail(w, r, "list", uuid.Nil, err)
		return
	}
	httputil.JSON(w, http.StatusOK, households)
}

// Get returns a household with its members.
// GET /households/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := common.PathID(w, r, domain.ErrHouseholdNotFound)
	if !ok {
		return
	}

	household, err := h.households.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get", id, err)
		return
	}
	members, err := h.members.ListByHousehold(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get", id, err)
		return
	}
	if members == nil {
		members = []domain.Member{}
	}

	httputil.JSON(w, http.StatusOK, domain.HouseholdWithMembers{Household: *household, Members: members})
}

// Create registers a household.
// POST /households
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req Request
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	household := &domain.Household{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	if err := req.apply(household); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.households.Create(r.Context(), household); err != nil {
		h.fail(w, r, "create", household.ID, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, household)
}

// Update changes a household's contact details.
// PUT /households/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := common.PathID(w, r, domain.ErrHouseholdNotFound)
	if !ok {
		return
	}

	var req Request
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	household, err := h.households.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, "update", id, err)
		return
	}
	if err := req.apply(household); err != nil {
		httputil.WriteError(w, err)
		return
	}
	household.UpdatedAt = time.Now().UTC()

	if err := h.households.Update(r.Context(), household); err != nil {
		h.fail(w, r, "update", id, err)
		return
	}
	httputil.JSON(w, http.StatusOK, household)
}

// Delete removes a household that has no members and no card.
// DELETE /households/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := common.PathID(w, r, domain.ErrHouseholdNotFound)
	if !ok {
		return
	}

	if err := h.households.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "delete", id, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, id uuid.UUID, err error) {
	common.LogFailure(h.logger, r, "households."+op, id, err)
	httputil.WriteError(w, err)
}
