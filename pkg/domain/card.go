package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CardStatus is the persisted lifecycle status of a card.
// Expiry is not a stored transition; see Card.IsExpired.
type CardStatus string

const (
	CardStatusActive    CardStatus = "ACTIVE"
	CardStatusSuspended CardStatus = "SUSPENDED"
	CardStatusExpired   CardStatus = "EXPIRED"
	CardStatusCancelled CardStatus = "CANCELLED"
)

// CardStatuses lists every status in declaration order.
var CardStatuses = []CardStatus{
	CardStatusActive,
	CardStatusSuspended,
	CardStatusExpired,
	CardStatusCancelled,
}

// Valid reports whether s is a known status.
func (s CardStatus) Valid() bool {
	switch s {
	case CardStatusActive, CardStatusSuspended, CardStatusExpired, CardStatusCancelled:
		return true
	}
	return false
}

// ParseCardStatus parses a status name, case-insensitively.
func ParseCardStatus(s string) (CardStatus, error) {
	st := CardStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidCardStatus
	}
	return st, nil
}

// Card is the health card issued to a household.
type Card struct {
	ID          uuid.UUID  `json:"id"`
	Status      CardStatus `json:"status"`
	IssueDate   time.Time  `json:"issueDate"`
	ExpiryDate  time.Time  `json:"expiryDate"`
	HouseholdID uuid.UUID  `json:"householdId"`
	PlanID      uuid.UUID  `json:"planId"`
	CreatedByID uuid.UUID  `json:"createdById"`
	UpdatedByID uuid.UUID  `json:"updatedById"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ExpiryFrom returns the expiry of a card starting at start on a plan of the given duration.
func ExpiryFrom(start time.Time, durationDays int) time.Time {
	return start.AddDate(0, 0, durationDays)
}

// IsExpired reports whether the card's expiry date lies before now.
func (c *Card) IsExpired(now time.Time) bool {
	return c.ExpiryDate.Before(now)
}

// IsEligible reports whether the card grants coverage at now:
// the stored status must be ACTIVE and the expiry date not passed.
func (c *Card) IsEligible(now time.Time) bool {
	return c.Status == CardStatusActive && !c.IsExpired(now)
}

// CardFilter narrows a card listing.
type CardFilter struct {
	HouseholdID *uuid.UUID
	Status      CardStatus
	Limit       int
}

// CardDetails is a card with its related records.
type CardDetails struct {
	Card
	Household HouseholdWithMembers `json:"household"`
	Plan      Plan                 `json:"plan"`
	CreatedBy UserSummary          `json:"createdBy"`
	UpdatedBy UserSummary          `json:"updatedBy"`
}
