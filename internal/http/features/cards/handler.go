// Package cards serves the card lifecycle and verification endpoints.
package cards

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tendant/healthcard-slim/internal/http/features/common"
	"github.com/tendant/healthcard-slim/internal/http/middleware"
	"github.com/tendant/healthcard-slim/internal/httputil"
	engine "github.com/tendant/healthcard-slim/pkg/cards"
	"github.com/tendant/healthcard-slim/pkg/domain"
)

// Handler handles card endpoints.
type Handler struct {
	logger       *zap.Logger
	engine       *engine.Engine
	verifier     *engine.Verifier
	defaultLimit int
}

// NewHandler creates a new cards handler. defaultLimit applies when a list
// request carries no limit.
func NewHandler(logger *zap.Logger, e *engine.Engine, v *engine.Verifier, defaultLimit int) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		logger:       logger,
		engine:       e,
		verifier:     v,
		defaultLimit: defaultLimit,
	}
}

// CreateRequest represents a card issuance request.
type CreateRequest struct {
	HouseholdID string `json:"householdId"`
	PlanID      string `json:"planId"`
	Status      string `json:"status,omitempty"`
}

// UpdateRequest represents a card update. Omitted fields are left unchanged.
type UpdateRequest struct {
	Status *string `json:"status,omitempty"`
	PlanID *string `json:"planId,omitempty"`
}

// List returns cards with their relations.
// GET /cards?householdId=&status=&limit=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	q := r.URL.Query()
	var filter domain.CardFilter

	householdID, ok := common.OptionalIDPtr(w, "householdId", q.Get("householdId"))
	if !ok {
		return
	}
	filter.HouseholdID = householdID
	if raw := q.Get("status"); raw != "" {
		status, err := domain.ParseCardStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Status = status
	}
	limit, ok := common.ListLimit(w, r, h.defaultLimit)
	if !ok {
		return
	}
	filter.Limit = limit

	cards, err := h.engine.List(r.Context(), actor, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, cards)
}

// Get returns one card with its relations.
// GET /cards/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	id, ok := common.PathID(w, r, domain.ErrCardNotFound)
	if !ok {
		return
	}

	card, err := h.engine.Get(r.Context(), actor, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, card)
}

// Create issues a card to a household.
// POST /cards
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	var req CreateRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	householdID, ok := common.RequiredID(w, "householdId", req.HouseholdID)
	if !ok {
		return
	}
	planID, ok := common.RequiredID(w, "planId", req.PlanID)
	if !ok {
		return
	}

	in := engine.CreateInput{HouseholdID: householdID, PlanID: planID}
	if req.Status != "" {
		status, err := domain.ParseCardStatus(req.Status)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		in.Status = status
	}

	card, err := h.engine.Create(r.Context(), actor, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.Info("card created",
		zap.String("card_id", card.ID.String()),
		zap.String("household_id", card.HouseholdID.String()),
		zap.String("actor_id", actor.ID.String()),
	)
	httputil.JSON(w, http.StatusCreated, card)
}

// Update changes a card's status and/or plan.
// PUT /cards/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	id, ok := common.PathID(w, r, domain.ErrCardNotFound)
	if !ok {
		return
	}

	var req UpdateRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	var in engine.UpdateInput
	if req.Status != nil {
		status, err := domain.ParseCardStatus(*req.Status)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		in.Status = &status
	}
	if req.PlanID != nil {
		planID, ok := common.RequiredID(w, "planId", *req.PlanID)
		if !ok {
			return
		}
		in.PlanID = &planID
	}

	card, err := h.engine.Update(r.Context(), actor, id, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, card)
}

// Delete removes a card.
// DELETE /cards/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	id, ok := common.PathID(w, r, domain.ErrCardNotFound)
	if !ok {
		return
	}

	if err := h.engine.Delete(r.Context(), actor, id); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.Info("card deleted",
		zap.String("card_id", id.String()),
		zap.String("actor_id", actor.ID.String()),
	)
	httputil.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Verify reports whether a household's card grants coverage right now.
// GET /cards/verify?householdId= or ?memberId=
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())

	q := r.URL.Query()
	var query engine.VerifyQuery
	var ok bool
	if query.HouseholdID, ok = common.OptionalID(w, "householdId", q.Get("householdId")); !ok {
		return
	}
	if query.MemberID, ok = common.OptionalID(w, "memberId", q.Get("memberId")); !ok {
		return
	}

	result, err := h.verifier.Verify(r.Context(), actor, query)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}
