package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tendant/healthcard-slim/internal/httputil"
	"github.com/tendant/healthcard-slim/pkg/policy"
)

// Authorize rejects requests whose actor may not perform action on resource.
// It must run after Auth.
func Authorize(resource policy.Resource, action policy.Action, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, _ := GetActor(r.Context())
			if err := policy.Check(actor, resource, action); err != nil {
				if actor != nil && logger != nil {
					logger.Info("access denied",
						zap.String("actor_id", actor.ID.String()),
						zap.String("role", string(actor.Role)),
						zap.String("resource", string(resource)),
						zap.String("action", string(action)),
					)
				}
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
