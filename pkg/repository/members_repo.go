package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tendant/healthcard-slim/pkg/domain"
)

// MembersRepository handles household member persistence.
type MembersRepository struct {
	db *sql.DB
}

// NewMembersRepository creates a new members repository.
func NewMembersRepository(db *sql.DB) *MembersRepository {
	return &MembersRepository{db: db}
}

const memberColumns = `id, household_id, first_name, last_name, dob, relation, created_at, updated_at`

func scanMember(row interface{ Scan(...any) error }, m *domain.Member) error {
	return row.Scan(&m.ID, &m.HouseholdID, &m.FirstName, &m.LastName, &m.DOB, &m.Relation, &m.CreatedAt, &m.UpdatedAt)
}

// Create inserts a member. The household must exist.
func (r *MembersRepository) Create(ctx context.Context, m *domain.Member) error {
	query := `
		INSERT INTO members (id, household_id, first_name, last_name, dob, relation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.HouseholdID, m.FirstName, m.LastName, m.DOB, m.Relation, m.CreatedAt, m.UpdatedAt,
	)
	if isForeignKeyViolation(err) {
		return domain.ErrHouseholdNotFound
	}
	return translateError(err)
}

// GetByID retrieves a member by ID.
func (r *MembersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

// GetByIDTx retrieves a member by ID within a transaction.
func (r *MembersRepository) GetByIDTx(ctx context.Context, q Querier, id uuid.UUID) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`

	var m domain.Member
	err := scanMember(q.QueryRowContext(ctx, query, id), &m)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMemberNotFound
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &m, nil
}

// ListByHousehold returns the members of one household.
func (r *MembersRepository) ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]domain.Member, error) {
	return r.ListByHouseholdTx(ctx, r.db, householdID)
}

// ListByHouseholdTx returns the members of one household within a transaction.
func (r *MembersRepository) ListByHouseholdTx(ctx context.Context, q Querier, householdID uuid.UUID) ([]domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE household_id = $1 ORDER BY created_at, id`
	return r.query(ctx, q, query, householdID)
}

// ListByHouseholdsTx returns the members of several households keyed by household ID.
func (r *MembersRepository) ListByHouseholdsTx(ctx context.Context, q Querier, householdIDs []uuid.UUID) (map[uuid.UUID][]domain.Member, error) {
	out := make(map[uuid.UUID][]domain.Member, len(householdIDs))
	if len(householdIDs) == 0 {
		return out, nil
	}

	ids := make([]string, len(householdIDs))
	for i, id := range householdIDs {
		ids[i] = id.String()
	}

	query := `SELECT ` + memberColumns + ` FROM members WHERE household_id = ANY($1::uuid[]) ORDER BY created_at, id`
	members, err := r.query(ctx, q, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		out[m.HouseholdID] = append(out[m.HouseholdID], m)
	}
	return out, nil
}

func (r *MembersRepository) query(ctx context.Context, q Querier, query string, args ...any) ([]domain.Member, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	members := []domain.Member{}
	for rows.Next() {
		var m domain.Member
		if err := scanMember(rows, &m); err != nil {
			return nil, translateError(err)
		}
		members = append(members, m)
	}
	return members, translateError(rows.Err())
}

// Update updates a member. Moving a member to an unknown household fails.
func (r *MembersRepository) Update(ctx context.Context, m *domain.Member) error {
	query := `
		UPDATE members
		SET household_id = $2, first_name = $3, last_name = $4, dob = $5, relation = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		m.ID, m.HouseholdID, m.FirstName, m.LastName, m.DOB, m.Relation, m.UpdatedAt,
	)
	if isForeignKeyViolation(err) {
		return domain.ErrHouseholdNotFound
	}
	if err != nil {
		return translateError(err)
	}
	return rowsAffected(result, domain.ErrMemberNotFound)
}

// Delete removes a member.
func (r *MembersRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return translateError(err)
	}
	return rowsAffected(result, domain.ErrMemberNotFound)
}
