package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/healthcard-slim/pkg/cards"
	"github.com/tendant/healthcard-slim/pkg/domain"
)

// DefaultTxTimeout bounds a store transaction when no timeout is configured.
const DefaultTxTimeout = 5 * time.Second

// Store runs card engine work in Postgres transactions.
type Store struct {
	db      *sql.DB
	timeout time.Duration

	households *HouseholdsRepository
	members    *MembersRepository
	plans      *PlansRepository
	cards      *CardsRepository
	audit      *AuditLogsRepository
}

var _ cards.Store = (*Store)(nil)

// NewStore creates a transactional store. A non-positive timeout means DefaultTxTimeout.
func NewStore(db *sql.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTxTimeout
	}
	return &Store{
		db:         db,
		timeout:    timeout,
		households: NewHouseholdsRepository(db),
		members:    NewMembersRepository(db),
		plans:      NewPlansRepository(db),
		cards:      NewCardsRepository(),
		audit:      NewAuditLogsRepository(db),
	}
}

// RunInTx runs fn in a transaction, committing only if fn returns nil.
func (s *Store) RunInTx(ctx context.Context, fn func(tx cards.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateError(err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{store: s, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translateError(err)
	}
	return nil
}

// txStore binds the repositories to one transaction.
type txStore struct {
	store *Store
	tx    *sql.Tx
}

func (t *txStore) GetHousehold(ctx context.Context, id uuid.UUID) (*domain.Household, error) {
	return t.store.households.GetByIDTx(ctx, t.tx, id)
}

func (t *txStore) GetMember(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	return t.store.members.GetByIDTx(ctx, t.tx, id)
}

func (t *txStore) ListMembersByHousehold(ctx context.Context, householdID uuid.UUID) ([]domain.Member, error) {
	return t.store.members.ListByHouseholdTx(ctx, t.tx, householdID)
}

func (t *txStore) GetPlan(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	return t.store.plans.GetByIDTx(ctx, t.tx, id)
}

func (t *txStore) GetCard(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return t.store.cards.GetByIDTx(ctx, t.tx, id)
}

func (t *txStore) GetCardForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return t.store.cards.GetForUpdateTx(ctx, t.tx, id)
}

func (t *txStore) GetCardByHousehold(ctx context.Context, householdID uuid.UUID) (*domain.Card, error) {
	return t.store.cards.GetByHouseholdTx(ctx, t.tx, householdID)
}

func (t *txStore) ListCards(ctx context.Context, filter domain.CardFilter) ([]domain.CardDetails, error) {
	details, err := t.store.cards.ListTx(ctx, t.tx, filter)
	if err != nil || len(details) == 0 {
		return details, err
	}

	ids := make([]uuid.UUID, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.HouseholdID)
	}
	members, err := t.store.members.ListByHouseholdsTx(ctx, t.tx, ids)
	if err != nil {
		return nil, err
	}
	for i := range details {
		if m, ok := members[details[i].HouseholdID]; ok {
			details[i].Household.Members = m
		}
	}
	return details, nil
}

func (t *txStore) InsertCard(ctx context.Context, card *domain.Card) error {
	return t.store.cards.InsertTx(ctx, t.tx, card)
}

func (t *txStore) UpdateCard(ctx context.Context, card *domain.Card) error {
	return t.store.cards.UpdateTx(ctx, t.tx, card)
}

func (t *txStore) DeleteCard(ctx context.Context, id uuid.UUID) error {
	return t.store.cards.DeleteTx(ctx, t.tx, id)
}

func (t *txStore) InsertAuditLog(ctx context.Context, entry *domain.AuditLog) error {
	return t.store.audit.InsertTx(ctx, t.tx, entry)
}
