package app

import (
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/rbac"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/shared"
)

// NewPolicy registers the role requirement of every protected operation.
func NewPolicy() *rbac.Policy {
	admins := shared.AdminRoles()
	p := rbac.NewPolicy()

	p.Register(shared.OpAuthMe, shared.CoreRoles()...)

	p.Register(shared.OpUsersList, admins...).
		Register(shared.OpUsersView, admins...).
		Register(shared.OpUsersUpdate, admins...).
		Register(shared.OpUsersDelete, admins...).
		Register(shared.OpUsersReplaceRole, shared.RoleSuperAdmin)

	p.Register(shared.OpRolesList, admins...).
		Register(shared.OpRolesAssign, admins...).
		Register(shared.OpRolesRemove, admins...).
		Register(shared.OpRolesCreate, shared.RoleSuperAdmin).
		Register(shared.OpRolesUpdate, shared.RoleSuperAdmin).
		Register(shared.OpRolesDelete, shared.RoleSuperAdmin)

	p.Register(shared.OpSettingsView, admins...).
		Register(shared.OpSettingsUpdate, shared.RoleSuperAdmin).
		Register(shared.OpJobsHealth, admins...)

	for _, op := range shared.AuditOperations() {
		p.Register(op, admins...)
	}
	return p
}
