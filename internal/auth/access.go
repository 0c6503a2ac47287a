package auth

import (
	"slices"

	"github.com/iliyamo/ecommerce-backend/internal/model"
)

// Principal is the authenticated caller as recovered from a session token.
type Principal struct {
	ID    string
	Email string
	Roles []string
}

// HasRole reports whether the principal holds the role.  Names compare
// case-sensitively; roles are stored upper-case.
func (p Principal) HasRole(role string) bool { return slices.Contains(p.Roles, role) }

// IsAdmin is shorthand for HasRole(model.RoleAdmin).
func (p Principal) IsAdmin() bool { return p.HasRole(model.RoleAdmin) }

// CanMutate decides whether caller may change or delete a resource owned
// by ownerID: admins may touch anything, everyone else only their own.
func CanMutate(caller Principal, ownerID string) bool {
	return caller.IsAdmin() || caller.ID == ownerID
}
