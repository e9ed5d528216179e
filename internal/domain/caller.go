package domain

import "strings"

// Role is the caller's platform role.
type Role string

const (
	RoleUser     Role = "USER"
	RoleBusiness Role = "BUSINESS"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole normalizes a role claim. Unknown roles are kept as-is (upper
// cased) and carry no privileges.
func ParseRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	ID   string
	Role Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}
