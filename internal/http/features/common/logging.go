package common

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tendant/healthcard-slim/internal/http/middleware"
	"github.com/tendant/healthcard-slim/pkg/domain"
)

// LogFailure logs store failures of a handler. Client errors are not logged.
func LogFailure(logger *zap.Logger, r *http.Request, op string, entityID uuid.UUID, err error) {
	switch domain.CodeOf(err) {
	case domain.CodeInternal, domain.CodeUnavailable:
	default:
		return
	}

	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("code", string(domain.CodeOf(err))),
		zap.Error(err),
	}
	if entityID != uuid.Nil {
		fields = append(fields, zap.String("entity_id", entityID.String()))
	}
	if actor, ok := middleware.GetActor(r.Context()); ok {
		fields = append(fields,
			zap.String("actor_id", actor.ID.String()),
			zap.String("actor_role", string(actor.Role)),
		)
	}
	logger.Error("request failed", fields...)
}
