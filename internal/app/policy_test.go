package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/shared"
)

func TestNewPolicyRequirements(t *testing.T) {
	p := NewPolicy()

	cases := map[string][]string{
		shared.OpAuthMe:           {"user", "cj", "admin", "superadmin"},
		shared.OpUsersList:        {"admin", "superadmin"},
		shared.OpUsersDelete:      {"admin", "superadmin"},
		shared.OpUsersReplaceRole: {"superadmin"},
		shared.OpRolesAssign:      {"admin", "superadmin"},
		shared.OpRolesCreate:      {"superadmin"},
		shared.OpSettingsView:     {"admin", "superadmin"},
		shared.OpSettingsUpdate:   {"superadmin"},
		shared.OpJobsHealth:       {"admin", "superadmin"},
		shared.OpAuditExport:      {"admin", "superadmin"},
	}
	for op, want := range cases {
		t.Run(op, func(t *testing.T) {
			require.True(t, p.Registered(op))
			assert.ElementsMatch(t, want, p.Requirement(op).Roles())
		})
	}
}

func TestNewPolicyCoversAuditOperations(t *testing.T) {
	p := NewPolicy()
	for _, op := range shared.AuditOperations() {
		assert.True(t, p.Registered(op), op)
		assert.Empty(t, p.Requirement(op).Match([]string{"user", "cj"}), op)
	}
	assert.Len(t, p.Operations(), 18)
}
