package audit

import "strings"

// Recommendation is the suggested severity and category for a stored record.
type Recommendation struct {
	Severity Severity `json:"severity"`
	Category string   `json:"category"`
}

// Categories produced by Recommend.
const (
	CategoryAuthentication = "authentication"
	CategoryUserManagement = "user_management"
	CategoryRoleManagement = "role_management"
	CategorySystem         = "system"
	CategorySecurity       = "security"
	CategoryReports        = "reports"
	CategoryDisasters      = "disasters"
	CategoryAudit          = "audit"
	CategoryGeneral        = "general"
)

// Recommend maps an action code and target type to the severity and category
// a stored record should carry. It is independent of Classify, which only
// ever emits info or error for live requests.
func Recommend(action, targetType string) Recommendation {
	action = strings.ToUpper(strings.TrimSpace(action))
	target := strings.ToLower(strings.TrimSpace(targetType))
	category := categoryFor(action, target)

	switch {
	case strings.HasSuffix(action, "_FAILED"), strings.HasSuffix(action, "_DENIED"):
		return Recommendation{Severity: SeverityWarning, Category: CategorySecurity}
	case isDeletion(action):
		if target == "user" || target == "users" || target == "role" || target == "roles" || strings.HasPrefix(action, "AUDIT_") {
			return Recommendation{Severity: SeverityCritical, Category: category}
		}
		return Recommendation{Severity: SeverityWarning, Category: category}
	case action == "ROLE_ASSIGN", action == "ROLE_REMOVE", action == "USER_ROLES_UPDATE":
		return Recommendation{Severity: SeverityWarning, Category: CategoryRoleManagement}
	case action == "SYSTEM_SETTINGS_UPDATE":
		return Recommendation{Severity: SeverityWarning, Category: CategorySystem}
	case strings.HasSuffix(action, "_ERROR"):
		return Recommendation{Severity: SeverityError, Category: category}
	}
	return Recommendation{Severity: SeverityInfo, Category: category}
}

func isDeletion(action string) bool {
	return strings.HasSuffix(action, "_DELETE") || action == "RESOURCE_DELETED"
}

func categoryFor(action, target string) string {
	switch {
	case strings.HasPrefix(action, "USER_LOGIN"), strings.HasPrefix(action, "USER_LOGOUT"), strings.HasPrefix(action, "USER_REGISTER"):
		return CategoryAuthentication
	case strings.HasPrefix(action, "ROLE_"):
		return CategoryRoleManagement
	case strings.HasPrefix(action, "USER_"):
		return CategoryUserManagement
	case strings.HasPrefix(action, "SYSTEM_"), strings.HasPrefix(action, "ADMIN_"):
		return CategorySystem
	case strings.HasPrefix(action, "AUDIT_"):
		return CategoryAudit
	case strings.HasPrefix(action, "REPORT_"):
		return CategoryReports
	}
	switch strings.TrimSuffix(target, "s") {
	case "user":
		return CategoryUserManagement
	case "role":
		return CategoryRoleManagement
	case "report":
		return CategoryReports
	case "disaster":
		return CategoryDisasters
	}
	return CategoryGeneral
}
