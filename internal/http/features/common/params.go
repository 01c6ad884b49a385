// Package common holds request parsing shared by the feature handlers.
package common

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tendant/healthcard-slim/internal/httputil"
	"github.com/tendant/healthcard-slim/pkg/cards"
)

// PathID parses the {id} URL parameter. A malformed id cannot name an
// existing record, so it is answered with notFound.
func PathID(w http.ResponseWriter, r *http.Request, notFound error) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, notFound)
		return uuid.Nil, false
	}
	return id, true
}

// RequiredID parses a mandatory id field.
func RequiredID(w http.ResponseWriter, field, raw string) (uuid.UUID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		httputil.Error(w, http.StatusBadRequest, field+" is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid "+field)
		return uuid.Nil, false
	}
	return id, true
}

// OptionalID parses an id that may be absent. Absent ids are uuid.Nil.
func OptionalID(w http.ResponseWriter, field, raw string) (uuid.UUID, bool) {
	if strings.TrimSpace(raw) == "" {
		return uuid.Nil, true
	}
	return RequiredID(w, field, raw)
}

// OptionalIDPtr is OptionalID for filters, returning nil when absent.
func OptionalIDPtr(w http.ResponseWriter, field, raw string) (*uuid.UUID, bool) {
	id, ok := OptionalID(w, field, raw)
	if !ok || id == uuid.Nil {
		return nil, ok
	}
	return &id, true
}

// ListLimit reads the limit query parameter, falling back to def and
// clamping to cards.MaxListLimit.
func ListLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	limit := def
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid limit")
			return 0, false
		}
		limit = n
	}
	if limit <= 0 {
		limit = def
	}
	return cards.NormalizeLimit(limit), true
}
