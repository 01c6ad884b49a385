package domain

import (
	"time"

	"github.com/google/uuid"
)

// Household is the unit of coverage; it owns its members and at most one card.
type Household struct {
	ID        uuid.UUID `json:"id"`
	HeadName  string    `json:"headName"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HouseholdWithMembers is a household together with its members.
type HouseholdWithMembers struct {
	Household
	Members []Member `json:"members"`
}
