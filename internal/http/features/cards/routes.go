package cards

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/healthcard-slim/internal/http/middleware"
	"github.com/tendant/healthcard-slim/pkg/policy"
)

// RegisterRoutes registers card routes on an authenticated router.
// verifyLimiter applies to the verification endpoint only.
func (h *Handler) RegisterRoutes(r chi.Router, verifyLimiter func(http.Handler) http.Handler) {
	gate := func(action policy.Action) func(http.Handler) http.Handler {
		return middleware.Authorize(policy.ResourceCards, action, h.logger)
	}

	r.Route("/cards", func(r chi.Router) {
		r.With(verifyLimiter, gate(policy.ActionVerify)).Get("/verify", h.Verify)
		r.With(gate(policy.ActionList)).Get("/", h.List)
		r.With(gate(policy.ActionCreate)).Post("/", h.Create)
		r.With(gate(policy.ActionRead)).Get("/{id}", h.Get)
		r.With(gate(policy.ActionUpdate)).Put("/{id}", h.Update)
		r.With(gate(policy.ActionDelete)).Delete("/{id}", h.Delete)
	})
}
