package auth

import "errors"

// Role represents an authorisation tier for API clients.
type Role string

const (
	// RoleViewer can read blueprints, audit history, and system state.
	RoleViewer Role = "viewer"

	// RoleEditor can additionally mutate the blueprint tree: add, remove,
	// import, and reset caches.
	RoleEditor Role = "editor"
)

// ValidRoles is the set of roles a token may carry.
var ValidRoles = []Role{RoleViewer, RoleEditor}

// IsValidRole returns true if the role is recognised.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// CanMutate returns true if the role permits write operations.
func (r Role) CanMutate() bool {
	return r == RoleEditor
}

// Sentinel errors for token validation. ParseToken wraps one of these
// so callers can distinguish an expired token from a bad one.
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)
