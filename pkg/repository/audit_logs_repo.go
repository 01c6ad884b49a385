package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/tendant/healthcard-slim/pkg/domain"
)

// AuditLogsRepository handles the append-only card audit trail.
type AuditLogsRepository struct {
	db *sql.DB
}

// NewAuditLogsRepository creates a new audit logs repository.
func NewAuditLogsRepository(db *sql.DB) *AuditLogsRepository {
	return &AuditLogsRepository{db: db}
}

// InsertTx appends an audit entry within the transaction of the mutation it records.
func (r *AuditLogsRepository) InsertTx(ctx context.Context, q Querier, entry *domain.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, user_id, card_id, action, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	var cardID uuid.NullUUID
	if entry.CardID != nil {
		cardID = uuid.NullUUID{UUID: *entry.CardID, Valid: true}
	}
	metadata := "{}"
	if len(entry.Metadata) > 0 {
		metadata = string(entry.Metadata)
	}
	_, err := q.ExecContext(ctx, query, entry.ID, entry.UserID, cardID, entry.Action, metadata, entry.CreatedAt)
	return translateError(err)
}

// List returns audit entries, newest first.
func (r *AuditLogsRepository) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLog, error) {
	query := `
		SELECT id, user_id, card_id, action, metadata, created_at
		FROM audit_logs
		WHERE ($1::uuid IS NULL OR card_id = $1)
		  AND ($2::uuid IS NULL OR user_id = $2)
		  AND ($3::text = '' OR action = $3)
		ORDER BY created_at DESC, id
		LIMIT $4
	`
	var cardID, userID uuid.NullUUID
	if filter.CardID != nil {
		cardID = uuid.NullUUID{UUID: *filter.CardID, Valid: true}
	}
	if filter.UserID != nil {
		userID = uuid.NullUUID{UUID: *filter.UserID, Valid: true}
	}

	rows, err := r.db.QueryContext(ctx, query, cardID, userID, string(filter.Action), filter.Limit)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	logs := []domain.AuditLog{}
	for rows.Next() {
		var (
			entry    domain.AuditLog
			card     uuid.NullUUID
			metadata []byte
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &card, &entry.Action, &metadata, &entry.CreatedAt); err != nil {
			return nil, translateError(err)
		}
		if card.Valid {
			entry.CardID = &card.UUID
		}
		entry.Metadata = metadata
		logs = append(logs, entry)
	}
	return logs, translateError(rows.Err())
}
