package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MemberRelation is a member's relation to the household head.
type MemberRelation string

const (
	RelationHead   MemberRelation = "HEAD"
	RelationSpouse MemberRelation = "SPOUSE"
	RelationChild  MemberRelation = "CHILD"
	RelationParent MemberRelation = "PARENT"
	RelationOther  MemberRelation = "OTHER"
)

// Valid reports whether r is a known relation.
func (r MemberRelation) Valid() bool {
	switch r {
	case RelationHead, RelationSpouse, RelationChild, RelationParent, RelationOther:
		return true
	}
	return false
}

// ParseRelation parses a relation name, case-insensitively.
func ParseRelation(s string) (MemberRelation, error) {
	r := MemberRelation(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRelation
	}
	return r, nil
}

// DateLayout is the wire format of calendar dates such as a date of birth.
const DateLayout = "2006-01-02"

// Member is a person covered through a household.
type Member struct {
	ID          uuid.UUID      `json:"id"`
	HouseholdID uuid.UUID      `json:"householdId"`
	FirstName   string         `json:"firstName"`
	LastName    string         `json:"lastName"`
	DOB         time.Time      `json:"dob"`
	Relation    MemberRelation `json:"relation"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
