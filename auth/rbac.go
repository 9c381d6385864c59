package auth

import "github.com/pipelineatlas/atlas-api/models"

// roleLevels orders roles by privilege. Unknown roles fall through to the
// zero value, i.e. least privilege.
var roleLevels = map[models.Role]int{
	models.RoleViewer:  0,
	models.RoleAuditor: 1,
	models.RoleAdmin:   2,
}

// RoleLevel returns the privilege level of a role. Unknown roles are level 0.
func RoleLevel(role models.Role) int {
	return roleLevels[role]
}

// Authorize checks that the user holds at least the required role, returning
// ErrInsufficientPermissions otherwise. Pure function, no side effects.
func Authorize(user *models.User, required models.Role) error {
	if RoleLevel(user.Role) < RoleLevel(required) {
		return ErrInsufficientPermissions
	}
	return nil
}
