package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/tendant/healthcard-slim/pkg/domain"
)

// HouseholdsRepository handles household persistence.
type HouseholdsRepository struct {
	db *sql.DB
}

// NewHouseholdsRepository creates a new households repository.
func NewHouseholdsRepository(db *sql.DB) *HouseholdsRepository {
	return &HouseholdsRepository{db: db}
}

const householdColumns = `id, head_name, address, phone, created_at, updated_at`

func scanHousehold(row interface{ Scan(...any) error }, h *domain.Household) error {
	return row.Scan(&h.ID, &h.HeadName, &h.Address, &h.Phone, &h.CreatedAt, &h.UpdatedAt)
}

// Create inserts a household.
func (r *HouseholdsRepository) Create(ctx context.Context, h *domain.Household) error {
	query := `
		INSERT INTO households (id, head_name, address, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, h.ID, h.HeadName, h.Address, h.Phone, h.CreatedAt, h.UpdatedAt)
	return translateError(err)
}

// GetByID retrieves a household by ID.
func (r *HouseholdsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Household, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

// GetByIDTx retrieves a household by ID within a transaction.
func (r *HouseholdsRepository) GetByIDTx(ctx context.Context, q Querier, id uuid.UUID) (*domain.Household, error) {
	query := `SELECT ` + householdColumns + ` FROM households WHERE id = $1`

	var h domain.Household
	err := scanHousehold(q.QueryRowContext(ctx, query, id), &h)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrHouseholdNotFound
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &h, nil
}

// List returns households ordered by head name.
func (r *HouseholdsRepository) List(ctx context.Context, limit int) ([]domain.Household, error) {
	query := `SELECT ` + householdColumns + ` FROM households ORDER BY head_name, id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	households := []domain.Household{}
	for rows.Next() {
		var h domain.Household
		if err := scanHousehold(rows, &h); err != nil {
			return nil, translateError(err)
		}
		households = append(households, h)
	}
	return households, translateError(rows.Err())
}

// Update updates a household's contact details.
func (r *HouseholdsRepository) Update(ctx context.Context, h *domain.Household) error {
	query := `
		UPDATE households
		SET head_name = $2, address = $3, phone = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, h.ID, h.HeadName, h.Address, h.Phone, h.UpdatedAt)
	if err != nil {
		return translateError(err)
	}
	return rowsAffected(result, domain.ErrHouseholdNotFound)
}

// Delete removes a household. Households that still have members or a card
// are rejected by the foreign keys.
func (r *HouseholdsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM households WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return domain.ErrHouseholdInUse
	}
	if err != nil {
		return translateError(err)
	}
	return rowsAffected(result, domain.ErrHouseholdNotFound)
}
