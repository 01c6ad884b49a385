package middleware

import (
	"context"
	"net/http"

	"github.com/tendant/healthcard-slim/internal/httputil"
	"github.com/tendant/healthcard-slim/pkg/domain"
)

type contextKey string

// ActorKey is the context key for the authenticated actor.
const ActorKey contextKey = "actor"

const actorSlotKey contextKey = "actor_slot"

// actorSlot lets middleware running before Auth read the actor afterwards.
type actorSlot struct {
	actor *domain.Actor
}

// ActorResolver turns an access token into the acting user.
type ActorResolver interface {
	Actor(token string) (*domain.Actor, error)
}

// Auth creates middleware that validates access tokens and stamps the actor
// on the request context. Checks the Authorization header first, then falls
// back to the named cookie for the web client.
func Auth(resolver ActorResolver, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := httputil.GetBearerToken(r)
			if !ok {
				tokenString, ok = httputil.GetAccessTokenFromCookie(r, cookieName)
			}
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "missing authorization")
				return
			}

			actor, err := resolver.Actor(tokenString)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor *domain.Actor) context.Context {
	if slot, ok := ctx.Value(actorSlotKey).(*actorSlot); ok {
		slot.actor = actor
	}
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor extracts the authenticated actor from the request context.
func GetActor(ctx context.Context) (*domain.Actor, bool) {
	actor, ok := ctx.Value(ActorKey).(*domain.Actor)
	return actor, ok && actor != nil
}
