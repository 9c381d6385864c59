package models

// Role represents the privilege level of an authenticated caller.
// Roles form a total order: viewer < auditor < admin.
type Role string

const (
	RoleViewer  Role = "viewer"
	RoleAuditor Role = "auditor"
	RoleAdmin   Role = "admin"
)

// User represents an authenticated caller with a role. JWT-backed users are
// reconstructed from token claims per request and never persisted; API-key
// users live in the key registry.
type User struct {
	ID       string            `json:"id"`
	Username string            `json:"username"`
	Role     Role              `json:"role"`
	Email    string            `json:"email,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IsAdmin returns true if the user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanRead returns true for every role
func (u *User) CanRead() bool {
	return true
}

// CanWrite returns true if the user can create or mutate records
func (u *User) CanWrite() bool {
	return u.Role == RoleAdmin || u.Role == RoleAuditor
}

// CanManage returns true if the user can perform administrative operations
func (u *User) CanManage() bool {
	return u.Role == RoleAdmin
}
