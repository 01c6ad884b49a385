package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/tendant/healthcard-slim/pkg/domain"
)

// CardsRepository handles card persistence. Every method takes the Querier it
// runs on; card mutations always run inside a store transaction.
type CardsRepository struct{}

// NewCardsRepository creates a new cards repository.
func NewCardsRepository() *CardsRepository {
	return &CardsRepository{}
}

const cardColumns = `id, status, issue_date, expiry_date, household_id, plan_id, created_by_id, updated_by_id, created_at, updated_at`

func scanCard(row interface{ Scan(...any) error }, c *domain.Card) error {
	return row.Scan(
		&c.ID, &c.Status, &c.IssueDate, &c.ExpiryDate, &c.HouseholdID, &c.PlanID,
		&c.CreatedByID, &c.UpdatedByID, &c.CreatedAt, &c.UpdatedAt,
	)
}

func (r *CardsRepository) getOne(ctx context.Context, q Querier, query string, arg any, notFound error) (*domain.Card, error) {
	var c domain.Card
	err := scanCard(q.QueryRowContext(ctx, query, arg), &c)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

// GetByIDTx retrieves a card by ID.
func (r *CardsRepository) GetByIDTx(ctx context.Context, q Querier, id uuid.UUID) (*domain.Card, error) {
	return r.getOne(ctx, q, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, id, domain.ErrCardNotFound)
}

// GetForUpdateTx retrieves a card by ID and locks its row until the
// transaction ends.
func (r *CardsRepository) GetForUpdateTx(ctx context.Context, q Querier, id uuid.UUID) (*domain.Card, error) {
	return r.getOne(ctx, q, `SELECT `+cardColumns+` FROM cards WHERE id = $1 FOR UPDATE`, id, domain.ErrCardNotFound)
}

// GetByHouseholdTx retrieves the card of a household.
func (r *CardsRepository) GetByHouseholdTx(ctx context.Context, q Querier, householdID uuid.UUID) (*domain.Card, error) {
	return r.getOne(ctx, q, `SELECT `+cardColumns+` FROM cards WHERE household_id = $1`, householdID, domain.ErrNoCardForHousehold)
}

// ListTx returns cards joined with their household, plan and editors, most
// recently updated first. Household members are not loaded.
func (r *CardsRepository) ListTx(ctx context.Context, q Querier, filter domain.CardFilter) ([]domain.CardDetails, error) {
	query := `
		SELECT c.id, c.status, c.issue_date, c.expiry_date, c.household_id, c.plan_id,
		       c.created_by_id, c.updated_by_id, c.created_at, c.updated_at,
		       h.id, h.head_name, h.address, h.phone, h.created_at, h.updated_at,
		       p.id, p.name, p.description, p.price, p.duration_days, p.created_at, p.updated_at,
		       cu.id, cu.name, cu.email,
		       uu.id, uu.name, uu.email
		FROM cards c
		JOIN households h ON h.id = c.household_id
		JOIN plans p ON p.id = c.plan_id
		JOIN users cu ON cu.id = c.created_by_id
		JOIN users uu ON uu.id = c.updated_by_id
		WHERE ($1::uuid IS NULL OR c.household_id = $1)
		  AND ($2::text = '' OR c.status = $2)
		ORDER BY c.updated_at DESC, c.id
		LIMIT $3
	`
	var householdID uuid.NullUUID
	if filter.HouseholdID != nil {
		householdID = uuid.NullUUID{UUID: *filter.HouseholdID, Valid: true}
	}

	rows, err := q.QueryContext(ctx, query, householdID, string(filter.Status), filter.Limit)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	out := []domain.CardDetails{}
	for rows.Next() {
		var d domain.CardDetails
		h := &d.Household.Household
		p := &d.Plan
		if err := rows.Scan(
			&d.ID, &d.Status, &d.IssueDate, &d.ExpiryDate, &d.HouseholdID, &d.PlanID,
			&d.CreatedByID, &d.UpdatedByID, &d.CreatedAt, &d.UpdatedAt,
			&h.ID, &h.HeadName, &h.Address, &h.Phone, &h.CreatedAt, &h.UpdatedAt,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.DurationDays, &p.CreatedAt, &p.UpdatedAt,
			&d.CreatedBy.ID, &d.CreatedBy.Name, &d.CreatedBy.Email,
			&d.UpdatedBy.ID, &d.UpdatedBy.Name, &d.UpdatedBy.Email,
		); err != nil {
			return nil, translateError(err)
		}
		d.Household.Members = []domain.Member{}
		out = append(out, d)
	}
	return out, translateError(rows.Err())
}

// InsertTx inserts a card. A second card for the same household fails with
// domain.ErrHouseholdAlreadyCarded.
func (r *CardsRepository) InsertTx(ctx context.Context, q Querier, c *domain.Card) error {
	query := `
		INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.ExecContext(ctx, query,
		c.ID, c.Status, c.IssueDate, c.ExpiryDate, c.HouseholdID, c.PlanID,
		c.CreatedByID, c.UpdatedByID, c.CreatedAt, c.UpdatedAt,
	)
	return translateError(err)
}

// UpdateTx writes a card's mutable fields.
func (r *CardsRepository) UpdateTx(ctx context.Context, q Querier, c *domain.Card) error {
	query := `
		UPDATE cards
		SET status = $2, expiry_date = $3, plan_id = $4, updated_by_id = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := q.ExecContext(ctx, query, c.ID, c.Status, c.ExpiryDate, c.PlanID, c.UpdatedByID, c.UpdatedAt)
	if err != nil {
		return translateError(err)
	}
	return rowsAffected(result, domain.ErrCardNotFound)
}

// DeleteTx removes a card.
func (r *CardsRepository) DeleteTx(ctx context.Context, q Querier, id uuid.UUID) error {
	result, err := q.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return translateError(err)
	}
	return rowsAffected(result, domain.ErrCardNotFound)
}
