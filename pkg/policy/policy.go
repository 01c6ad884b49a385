// Package policy holds the authorization table of the service.
// Both the HTTP gate and the card engine consult Allowed.
package policy

import "github.com/tendant/healthcard-slim/pkg/domain"

// Resource is a protected collection.
type Resource string

const (
	ResourceCards      Resource = "cards"
	ResourceHouseholds Resource = "households"
	ResourceMembers    Resource = "members"
	ResourcePlans      Resource = "plans"
	ResourceUsers      Resource = "users"
	ResourceAuditLogs  Resource = "audit-logs"
)

// Action is an operation on a resource.
type Action string

const (
	ActionList   Action = "list"
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionVerify Action = "verify"
)

var (
	staff    = []domain.Role{domain.RoleAdmin, domain.RoleOfficeAgent}
	admins   = []domain.Role{domain.RoleAdmin}
	everyone = []domain.Role{domain.RoleAdmin, domain.RoleOfficeAgent, domain.RoleHospitalUser}
)

var table = map[Resource]map[Action][]domain.Role{
	ResourceCards: {
		ActionList:   staff,
		ActionRead:   staff,
		ActionCreate: staff,
		ActionUpdate: staff,
		ActionDelete: admins,
		ActionVerify: everyone,
	},
	ResourceHouseholds: {
		ActionList:   staff,
		ActionRead:   staff,
		ActionCreate: staff,
		ActionUpdate: staff,
		ActionDelete: admins,
	},
	ResourceMembers: {
		ActionList:   staff,
		ActionRead:   staff,
		ActionCreate: staff,
		ActionUpdate: staff,
		ActionDelete: staff,
	},
	ResourcePlans: {
		ActionList:   staff,
		ActionRead:   staff,
		ActionCreate: admins,
		ActionUpdate: admins,
		ActionDelete: admins,
	},
	ResourceUsers: {
		ActionList:   admins,
		ActionRead:   admins,
		ActionCreate: admins,
	},
	ResourceAuditLogs: {
		ActionList: admins,
	},
}

// Allowed reports whether role may perform action on resource.
// Unknown roles, resources and actions are denied.
func Allowed(role domain.Role, resource Resource, action Action) bool {
	for _, r := range table[resource][action] {
		if r == role {
			return true
		}
	}
	return false
}

// Check returns domain.ErrUnauthenticated when actor is nil and
// domain.ErrForbidden when the actor's role is not allowed.
func Check(actor *domain.Actor, resource Resource, action Action) error {
	if actor == nil {
		return domain.ErrUnauthenticated
	}
	if !Allowed(actor.Role, resource, action) {
		return domain.ErrForbidden
	}
	return nil
}
