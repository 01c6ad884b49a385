package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the access role of a staff account.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleOfficeAgent  Role = "OFFICE_AGENT"
	RoleHospitalUser Role = "HOSPITAL_USER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOfficeAgent, RoleHospitalUser:
		return true
	}
	return false
}

// ParseRole parses a role name, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// User represents a staff account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSummary is the public projection of a user attached to other records.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Summary returns the public projection of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}
