// Package cards implements the card lifecycle: issuance, updates and removal
// with their audit trail, and the read-only eligibility verification used by
// hospital staff.
package cards

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tendant/healthcard-slim/internal/metrics"
	"github.com/tendant/healthcard-slim/pkg/domain"
	"github.com/tendant/healthcard-slim/pkg/policy"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Options configures an Engine or a Verifier.
type Options struct {
	// Clock returns the current time (default time.Now).
	Clock func() time.Time
	// Transitions validates status changes (default permissive).
	Transitions policy.TransitionMode
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Transitions == "" {
		o.Transitions = policy.TransitionsPermissive
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Engine applies card mutations. Each mutation and its audit log entry are
// written in one store transaction.
type Engine struct {
	store       Store
	now         func() time.Time
	transitions policy.TransitionMode
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewEngine creates a card engine on top of store.
func NewEngine(store Store, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		store:       store,
		now:         opts.Clock,
		transitions: opts.Transitions,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
	}
}

// CreateInput describes a card to issue. An empty Status means ACTIVE.
type CreateInput struct {
	HouseholdID uuid.UUID
	PlanID      uuid.UUID
	Status      domain.CardStatus
}

// UpdateInput holds the optional fields of a card update.
type UpdateInput struct {
	Status *domain.CardStatus
	PlanID *uuid.UUID
}

type createdMetadata struct {
	Status      domain.CardStatus `json:"status"`
	HouseholdID uuid.UUID         `json:"householdId"`
	PlanID      uuid.UUID         `json:"planId"`
	IssueDate   time.Time         `json:"issueDate"`
	ExpiryDate  time.Time         `json:"expiryDate"`
}

type updatedMetadata struct {
	PreviousStatus     domain.CardStatus `json:"previousStatus"`
	NewStatus          domain.CardStatus `json:"newStatus"`
	PreviousPlanID     uuid.UUID         `json:"previousPlanId"`
	NewPlanID          uuid.UUID         `json:"newPlanId"`
	PreviousExpiryDate time.Time         `json:"previousExpiryDate"`
	NewExpiryDate      time.Time         `json:"newExpiryDate"`
}

type deletedMetadata struct {
	CardID      uuid.UUID         `json:"cardId"`
	HouseholdID uuid.UUID         `json:"householdId"`
	Status      domain.CardStatus `json:"status"`
	PlanID      uuid.UUID         `json:"planId"`
	IssueDate   time.Time         `json:"issueDate"`
	ExpiryDate  time.Time         `json:"expiryDate"`
}

// Create issues a card to a household. The household must exist and must not
// already hold a card; the expiry date is the issue date plus the plan duration.
func (e *Engine) Create(ctx context.Context, actor *domain.Actor, in CreateInput) (*domain.Card, error) {
	card, err := e.create(ctx, actor, in)
	e.record("create", actor, in.HouseholdID, err)
	return card, err
}

func (e *Engine) create(ctx context.Context, actor *domain.Actor, in CreateInput) (*domain.Card, error) {
	if err := policy.Check(actor, policy.ResourceCards, policy.ActionCreate); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = domain.CardStatusActive
	}
	if !status.Valid() {
		return nil, domain.ErrInvalidCardStatus
	}

	var card *domain.Card
	err := e.runInTx(ctx, "create", func(tx Tx) error {
		if _, err := tx.GetHousehold(ctx, in.HouseholdID); err != nil {
			return err
		}

		// Fast path only; InsertCard enforces uniqueness for concurrent creators.
		_, err := tx.GetCardByHousehold(ctx, in.HouseholdID)
		if err == nil {
			return domain.ErrHouseholdAlreadyCarded
		}
		if !errors.Is(err, domain.ErrNoCardForHousehold) {
			return err
		}

		plan, err := tx.GetPlan(ctx, in.PlanID)
		if err != nil {
			return err
		}

		now := e.now().UTC()
		c := &domain.Card{
			ID:          uuid.New(),
			Status:      status,
			IssueDate:   now,
			ExpiryDate:  domain.ExpiryFrom(now, plan.DurationDays),
			HouseholdID: in.HouseholdID,
			PlanID:      plan.ID,
			CreatedByID: actor.ID,
			UpdatedByID: actor.ID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.InsertCard(ctx, c); err != nil {
			return err
		}

		entry, err := newAuditLog(actor, c.ID, domain.AuditCardCreated, now, createdMetadata{
			Status:      c.Status,
			HouseholdID: c.HouseholdID,
			PlanID:      c.PlanID,
			IssueDate:   c.IssueDate,
			ExpiryDate:  c.ExpiryDate,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertAuditLog(ctx, entry); err != nil {
			return err
		}

		card = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// Update changes a card's status and/or plan. A plan change restarts the
// coverage period: the new expiry is now plus the new plan's duration.
func (e *Engine) Update(ctx context.Context, actor *domain.Actor, cardID uuid.UUID, in UpdateInput) (*domain.Card, error) {
	card, err := e.update(ctx, actor, cardID, in)
	e.record("update", actor, cardID, err)
	return card, err
}

func (e *Engine) update(ctx context.Context, actor *domain.Actor, cardID uuid.UUID, in UpdateInput) (*domain.Card, error) {
	if err := policy.Check(actor, policy.ResourceCards, policy.ActionUpdate); err != nil {
		return nil, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, domain.ErrInvalidCardStatus
	}

	var card *domain.Card
	err := e.runInTx(ctx, "update", func(tx Tx) error {
		current, err := tx.GetCardForUpdate(ctx, cardID)
		if err != nil {
			return err
		}

		now := e.now().UTC()
		next := *current

		if in.PlanID != nil && *in.PlanID != current.PlanID {
			plan, err := tx.GetPlan(ctx, *in.PlanID)
			if err != nil {
				return err
			}
			next.PlanID = plan.ID
			next.ExpiryDate = domain.ExpiryFrom(now, plan.DurationDays)
		}

		if in.Status != nil {
			if !e.transitions.CanTransition(current.Status, *in.Status) {
				return domain.TransitionError(current.Status, *in.Status)
			}
			next.Status = *in.Status
		}

		next.UpdatedByID = actor.ID
		next.UpdatedAt = now
		if err := tx.UpdateCard(ctx, &next); err != nil {
			return err
		}

		entry, err := newAuditLog(actor, next.ID, domain.AuditCardUpdated, now, updatedMetadata{
			PreviousStatus:     current.Status,
			NewStatus:          next.Status,
			PreviousPlanID:     current.PlanID,
			NewPlanID:          next.PlanID,
			PreviousExpiryDate: current.ExpiryDate,
			NewExpiryDate:      next.ExpiryDate,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertAuditLog(ctx, entry); err != nil {
			return err
		}

		card = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// Delete removes a card. The audit entry is written before the row is removed.
func (e *Engine) Delete(ctx context.Context, actor *domain.Actor, cardID uuid.UUID) error {
	err := e.delete(ctx, actor, cardID)
	e.record("delete", actor, cardID, err)
	return err
}

func (e *Engine) delete(ctx context.Context, actor *domain.Actor, cardID uuid.UUID) error {
	if err := policy.Check(actor, policy.ResourceCards, policy.ActionDelete); err != nil {
		return err
	}

	return e.runInTx(ctx, "delete", func(tx Tx) error {
		current, err := tx.GetCardForUpdate(ctx, cardID)
		if err != nil {
			return err
		}

		entry, err := newAuditLog(actor, current.ID, domain.AuditCardDeleted, e.now().UTC(), deletedMetadata{
			CardID:      current.ID,
			HouseholdID: current.HouseholdID,
			Status:      current.Status,
			PlanID:      current.PlanID,
			IssueDate:   current.IssueDate,
			ExpiryDate:  current.ExpiryDate,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertAuditLog(ctx, entry); err != nil {
			return err
		}

		return tx.DeleteCard(ctx, current.ID)
	})
}

// List returns cards with their household, members, plan and editors,
// most recently updated first.
func (e *Engine) List(ctx context.Context, actor *domain.Actor, filter domain.CardFilter) ([]domain.CardDetails, error) {
	if err := policy.Check(actor, policy.ResourceCards, policy.ActionList); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.ErrInvalidCardStatus
	}
	filter.Limit = NormalizeLimit(filter.Limit)

	var out []domain.CardDetails
	err := e.runInTx(ctx, "list", func(tx Tx) error {
		cards, err := tx.ListCards(ctx, filter)
		if err != nil {
			return err
		}
		out = cards
		return nil
	})
	if err != nil {
		logFailure(e.logger, "list", actor, uuid.Nil, err)
		return nil, err
	}
	if out == nil {
		out = []domain.CardDetails{}
	}
	return out, nil
}

// Get returns one card with its relations.
func (e *Engine) Get(ctx context.Context, actor *domain.Actor, cardID uuid.UUID) (*domain.CardDetails, error) {
	if err := policy.Check(actor, policy.ResourceCards, policy.ActionRead); err != nil {
		return nil, err
	}

	var out *domain.CardDetails
	err := e.runInTx(ctx, "get", func(tx Tx) error {
		card, err := tx.GetCard(ctx, cardID)
		if err != nil {
			return err
		}
		// A household holds at most one card.
		list, err := tx.ListCards(ctx, domain.CardFilter{HouseholdID: &card.HouseholdID, Limit: 1})
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return domain.ErrCardNotFound
		}
		out = &list[0]
		return nil
	})
	if err != nil {
		logFailure(e.logger, "get", actor, cardID, err)
		return nil, err
	}
	return out, nil
}

// NormalizeLimit clamps a requested page size to (0, MaxListLimit],
// substituting DefaultListLimit for non-positive values.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func (e *Engine) runInTx(ctx context.Context, op string, fn func(tx Tx) error) error {
	start := time.Now()
	err := e.store.RunInTx(ctx, fn)
	e.metrics.ObserveTx(op, time.Since(start))
	return err
}

func (e *Engine) record(op string, actor *domain.Actor, entityID uuid.UUID, err error) {
	if err == nil {
		e.metrics.IncrementMutation(op, "ok")
		return
	}
	e.metrics.IncrementMutation(op, string(domain.CodeOf(err)))
	logFailure(e.logger, op, actor, entityID, err)
}

// logFailure logs store and unexpected failures; client errors are not logged.
func logFailure(logger *zap.Logger, op string, actor *domain.Actor, entityID uuid.UUID, err error) {
	code := domain.CodeOf(err)
	if code != domain.CodeInternal && code != domain.CodeUnavailable {
		return
	}
	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("code", string(code)),
		zap.Error(err),
	}
	if entityID != uuid.Nil {
		fields = append(fields, zap.String("entity_id", entityID.String()))
	}
	if actor != nil {
		fields = append(fields,
			zap.String("actor_id", actor.ID.String()),
			zap.String("actor_role", string(actor.Role)),
		)
	}
	logger.Error("card operation failed", fields...)
}

func newAuditLog(actor *domain.Actor, cardID uuid.UUID, action domain.AuditAction, at time.Time, metadata any) (*domain.AuditLog, error) {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	return &domain.AuditLog{
		ID:        uuid.New(),
		UserID:    actor.ID,
		CardID:    &cardID,
		Action:    action,
		Metadata:  raw,
		CreatedAt: at,
	}, nil
}
