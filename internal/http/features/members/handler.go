// Package members serves household member endpoints.
package members

import (
	"context"
	"net/http"
	"strings"
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

// Store persists members.
type Store interface {
	Create(ctx context.Context, m *domain.Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]domain.Member, error)
	Update(ctx context.Context, m *domain.Member) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Handler handles member endpoints.
type Handler struct {
	logger  *zap.Logger
	members Store
}

// NewHandler creates a new members handler.
func NewHandler(logger *zap.Logger, members Store) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logger: logger, members: members}
}

// Request is the body of create and update requests. On update, omitted
// fields are left unchanged.
type Request struct {
	HouseholdID *string `json:"householdId"`
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	DOB         *string `json:"dob"`
	Relation    *string `json:"relation"`
}

func (req Request) apply(m *domain.Member) error {
	if req.HouseholdID != nil {
		id, err := uuid.Parse(strings.TrimSpace(*req.HouseholdID))
		if err != nil {
			return domain.BadRequest("invalid householdId")
		}
		m.HouseholdID = id
	}
	if req.FirstName != nil {
		m.FirstName = auth.SanitizeName(*req.FirstName)
	}
	if req.LastName != nil {
		m.LastName = auth.SanitizeName(*req.LastName)
	}
	if req.DOB != nil {
		dob, err := time.Parse(domain.DateLayout, strings.TrimSpace(*req.DOB))
		if err != nil {
			return domain.BadRequest("dob must be a date in YYYY-MM-DD format")
		}
		m.DOB = dob
	}
	if req.Relation != nil {
		relation, err := domain.ParseRelation(*req.Relation)
		if err != nil {
			return err
		}
		m.Relation = relation
	}

	if m.HouseholdID == uuid.Nil {
		return domain.BadRequest("householdId is required")
	}
	if err := auth.ValidateStringLength("firstName", m.FirstName, 1, 100); err != nil {
		return err
	}
	if err := auth.ValidateStringLength("lastName", m.LastName, 1, 100); err != nil {
		return err
	}
	if m.DOB.IsZero() {
		return domain.BadRequest("dob is required")
	}
	if m.DOB.After(time.Now()) {
		return domain.BadRequest("dob cannot be in the future")
	}
	if m.Relation == "" {
		return domain.BadRequest("relation is required")
	}
	return nil
}

// RegisterRoutes registers member routes on an authenticated router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	gate := func(action policy.Action) func(http.Handler) http.Handler {
		return middleware.Authorize(policy.ResourceMembers, action, h.logger)
	}

	r.Route("/members", func(r chi.Router) {
		r.With(gate(policy.ActionList)).Get("/", h.List)
		r.With(gate(policy.ActionCreate)).Post("/", h.Create)
		r.With(gate(policy.ActionRead)).Get("/{id}", h.Get)
		r.With(gate(policy.ActionUpdate)).Put("/{id}", h.Update)
		r.With(gate(policy.ActionDelete)).Delete("/{id}", h.Delete)
	})
}

// List returns the members of one household.
// GET /members?householdId=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	householdID, ok := common.RequiredID(w, "householdId", r.URL.Query().Get("householdId"))
	if !ok {
		return
	}

	members, err := h.members.ListByHousehold(r.Context(), householdID)
	if err != nil {
		h.fail(w, r, "list", householdID, err)
		return
	}
	if members == nil {
		members = []domain.Member{}
	}
	httputil.JSON(w, http.StatusOK, members)
}

// Get returns one member.
// GET /members/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := common.PathID(w, r, domain.ErrMemberNotFound)
	if !ok {
		return
	}

	member, err := h.members.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get", id, err)
		return
	}
	httputil.JSON(w, http.StatusOK, member)
}

// Create adds a member to a household.
// POST /members
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req Request
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	member := &domain.Member{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	if err := req.apply(member); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.members.Create(r.Context(), member); err != nil {
		h.fail(w, r, "create", member.ID, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, member)
}

// Update changes a member, possibly moving it to another household.
// PUT /members/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := common.PathID(w, r, domain.ErrMemberNotFound)
	if !ok {
		return
	}

	var req Request
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	member, err := h.members.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, "update", id, err)
		return
	}
	if err := req.apply(member); err != nil {
		httputil.WriteError(w, err)
		return
	}
	member.UpdatedAt = time.Now().UTC()

	if err := h.members.Update(r.Context(), member); err != nil {
		h.fail(w, r, "update", id, err)
		return
	}
	httputil.JSON(w, http.StatusOK, member)
}

// Delete removes a member.
// DELETE /members/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := common.PathID(w, r, domain.ErrMemberNotFound)
	if !ok {
		return
	}

	if err := h.members.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "delete", id, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, id uuid.UUID, err error) {
	common.LogFailure(h.logger, r, "members."+op, id, err)
	httputil.WriteError(w, err)
}
