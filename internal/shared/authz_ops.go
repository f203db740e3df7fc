package shared

// Operation identifiers carried by protected endpoints. Each maps to a role
// requirement in the application policy.
const (
	OpAuthMe = "auth.me"

	OpUsersList        = "users.list"
	OpUsersView        = "users.view"
	OpUsersUpdate      = "users.update"
	OpUsersDelete      = "users.delete"
	OpUsersReplaceRole = "users.roles.replace"

	OpRolesList   = "roles.list"
	OpRolesCreate = "roles.create"
	OpRolesUpdate = "roles.update"
	OpRolesDelete = "roles.delete"
	OpRolesAssign = "roles.assign"
	OpRolesRemove = "roles.remove"

	OpSettingsView   = "settings.view"
	OpSettingsUpdate = "settings.update"

	OpJobsHealth = "jobs.health"

	OpAuditList   = "audit.list"
	OpAuditView   = "audit.view"
	OpAuditExport = "audit.export"
)

// AuditOperations lists operations on the audit trail.
func AuditOperations() []string {
	return []string{OpAuditList, OpAuditView, OpAuditExport}
}
