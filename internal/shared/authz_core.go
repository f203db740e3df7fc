package shared

// Platform role names. Matching is case-insensitive.
const (
	RoleUser       = "user"
	RoleCJ         = "cj"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// AdminRoles lists roles allowed to operate administrative endpoints.
func AdminRoles() []string {
	return []string{RoleAdmin, RoleSuperAdmin}
}

// CoreRoles lists every built-in role.
func CoreRoles() []string {
	return []string{
		RoleUser,
		RoleCJ,
		RoleAdmin,
		RoleSuperAdmin,
	}
}
