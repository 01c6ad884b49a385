package cards

import (
	"context"

	"github.com/google/uuid"

	"github.com/tendant/healthcard-slim/pkg/domain"
)

// Store runs work against the transactional store. Every call to fn sees a
// consistent view and its writes commit together or not at all; when fn
// returns an error nothing it wrote is visible to any other reader.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of store operations available inside a transaction.
//
// Lookups return the matching domain.Err*NotFound error when the row is
// absent. InsertCard returns domain.ErrHouseholdAlreadyCarded when the
// household already has a card, whatever the caller checked beforehand.
type Tx interface {
	GetHousehold(ctx context.Context, id uuid.UUID) (*domain.Household, error)
	GetMember(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	ListMembersByHousehold(ctx context.Context, householdID uuid.UUID) ([]domain.Member, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*domain.Plan, error)

	GetCard(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	// GetCardForUpdate reads a card and holds it against concurrent writers
	// until the transaction ends.
	GetCardForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	GetCardByHousehold(ctx context.Context, householdID uuid.UUID) (*domain.Card, error)
	ListCards(ctx context.Context, filter domain.CardFilter) ([]domain.CardDetails, error)
	InsertCard(ctx context.Context, card *domain.Card) error
	UpdateCard(ctx context.Context, card *domain.Card) error
	DeleteCard(ctx context.Context, id uuid.UUID) error

	InsertAuditLog(ctx context.Context, entry *domain.AuditLog) error
}
