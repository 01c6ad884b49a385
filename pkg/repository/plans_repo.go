package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/tendant/healthcard-slim/pkg/domain"
)

// PlansRepository handles plan persistence.
type PlansRepository struct {
	db *sql.DB
}

// NewPlansRepository creates a new plans repository.
func NewPlansRepository(db *sql.DB) *PlansRepository {
	return &PlansRepository{db: db}
}

const planColumns = `id, name, description, price, duration_days, created_at, updated_at`

func scanPlan(row interface{ Scan(...any) error }, p *domain.Plan) error {
	return row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.DurationDays, &p.CreatedAt, &p.UpdatedAt)
}

// Create inserts a plan.
func (r *PlansRepository) Create(ctx context.Context, p *domain.Plan) error {
	query := `
		INSERT INTO plans (id, name, description, price, duration_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.Description, p.Price, p.DurationDays, p.CreatedAt, p.UpdatedAt)
	return translateError(err)
}

// GetByID retrieves a plan by ID.
func (r *PlansRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

// GetByIDTx retrieves a plan by ID within a transaction.
func (r *PlansRepository) GetByIDTx(ctx context.Context, q Querier, id uuid.UUID) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`

	var p domain.Plan
	err := scanPlan(q.QueryRowContext(ctx, query, id), &p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

// List returns all plans ordered by name.
func (r *PlansRepository) List(ctx context.Context) ([]domain.Plan, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+planColumns+` FROM plans ORDER BY name, id`)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	plans := []domain.Plan{}
	for rows.Next() {
		var p domain.Plan
		if err := scanPlan(rows, &p); err != nil {
			return nil, translateError(err)
		}
		plans = append(plans, p)
	}
	return plans, translateError(rows.Err())
}

// Update updates a plan. Existing cards keep their expiry dates.
func (r *PlansRepository) Update(ctx context.Context, p *domain.Plan) error {
	query := `
		UPDATE plans
		SET name = $2, description = $3, price = $4, duration_days = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.Description, p.Price, p.DurationDays, p.UpdatedAt)
	if err != nil {
		return translateError(err)
	}
	return rowsAffected(result, domain.ErrPlanNotFound)
}

// Delete removes a plan that no card references.
func (r *PlansRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return domain.ErrPlanInUse
	}
	if err != nil {
		return translateError(err)
	}
	return rowsAffected(result, domain.ErrPlanNotFound)
}
