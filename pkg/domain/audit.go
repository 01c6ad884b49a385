package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction names a recorded card mutation.
type AuditAction string

const (
	AuditCardCreated AuditAction = "CARD_CREATED"
	AuditCardUpdated AuditAction = "CARD_UPDATED"
	AuditCardDeleted AuditAction = "CARD_DELETED"
)

// AuditLog is an append-only record of a card mutation, written in the
// same transaction as the mutation itself.
type AuditLog struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	CardID    *uuid.UUID      `json:"cardId,omitempty"`
	Action    AuditAction     `json:"action"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt time.Time       `json:"createdAt"`
}

// AuditFilter narrows an audit log listing.
type AuditFilter struct {
	CardID *uuid.UUID
	UserID *uuid.UUID
	Action AuditAction
	Limit  int
}
