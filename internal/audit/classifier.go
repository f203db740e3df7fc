package audit

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	maxBodyInDetails = 500
	ellipsis         = "..."
)

// Classification is the semantic reading of one request.
type Classification struct {
	Action   string
	Resource string
	Severity Severity
}

type rule struct {
	match  func(path string) bool
	action func(method, path string) string
}

// rules are evaluated top to bottom; the first match wins. Paths are
// lower-cased before matching.
var rules = []rule{
	{match: contains("/auth/login"), action: fixed("USER_LOGIN")},
	{match: contains("/auth/logout"), action: fixed("USER_LOGOUT")},
	{match: contains("/auth/register"), action: fixed("USER_REGISTER")},
	{match: contains("/users", "/usermanagement"), action: userAction},
	{match: isRolePath, action: roleAction},
	{match: contains("/reports"), action: prefixed("REPORT_")},
	{match: contains("/admin/settings"), action: fixed("SYSTEM_SETTINGS_UPDATE")},
	{match: contains("/admin"), action: prefixed("ADMIN_")},
	{match: contains("/audit-logs"), action: prefixed("AUDIT_")},
}

// Classify derives action, resource and severity for a request. It is total:
// every input yields a non-empty action.
func Classify(method, path string, status int, failure error) Classification {
	method = normalizeMethod(method)
	severity := SeverityInfo
	if failure != nil {
		severity = SeverityError
	}
	return Classification{
		Action:   classifyAction(method, path),
		Resource: ResourceCategory(path),
		Severity: severity,
	}
}

func classifyAction(method, path string) string {
	lower := strings.ToLower(path)
	for _, r := range rules {
		if r.match(lower) {
			return r.action(method, lower)
		}
	}
	if segments := pathSegments(path); len(segments) >= 2 && strings.EqualFold(segments[0], "api") {
		resource := strings.ToUpper(segments[1])
		if method == "DELETE" {
			return resource + "_DELETE"
		}
		return method + "_" + resource
	}
	if method == "DELETE" {
		return "RESOURCE_DELETED"
	}
	return method + "_UNKNOWN"
}

func userAction(method, path string) string {
	switch method {
	case "POST":
		return "USER_CREATE"
	case "PUT":
		if strings.Contains(path, "/roles") {
			return "USER_ROLES_UPDATE"
		}
		return "USER_UPDATE"
	case "DELETE":
		return "USER_DELETE"
	case "GET":
		return "USER_ACCESS"
	}
	return "USER_" + method
}

func isRolePath(path string) bool {
	return strings.Contains(path, "/role") && !strings.Contains(path, "/roleuser")
}

func roleAction(method, path string) string {
	switch {
	case strings.Contains(path, "/role/assign"), strings.Contains(path, "/roles/assign"):
		return "ROLE_ASSIGN"
	case strings.Contains(path, "/role/remove"), strings.Contains(path, "/roles/remove"):
		return "ROLE_REMOVE"
	}
	switch method {
	case "POST":
		return "ROLE_CREATE"
	case "PUT":
		return "ROLE_UPDATE"
	case "DELETE":
		return "ROLE_DELETE"
	case "GET":
		return "ROLE_ACCESS"
	}
	return "ROLE_" + method
}

// ResourceCategory is the coarse resource bucket used to filter audit queries.
func ResourceCategory(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "/auth"):
		return "authentication"
	case strings.Contains(lower, "/users"), strings.Contains(lower, "/usermanagement"):
		return "user_management"
	case strings.Contains(lower, "/role"):
		return "role_management"
	case strings.Contains(lower, "/reports"):
		return "reports"
	case strings.Contains(lower, "/admin"):
		return "admin"
	case strings.Contains(lower, "/disaster"):
		return "disasters"
	}
	return "api"
}

// Details renders the human readable summary of a request. The body is
// omitted for authentication endpoints.
func Details(method, path string, status int, failure error, body string) string {
	method = normalizeMethod(method)
	var b strings.Builder
	b.WriteString(method)
	b.WriteByte(' ')
	b.WriteString(path)
	if failure != nil {
		b.WriteString(" failed with error: ")
		b.WriteString(failure.Error())
	} else {
		b.WriteString(" completed successfully (Status: ")
		b.WriteString(strconv.Itoa(status))
		b.WriteByte(')')
	}
	if body != "" && !IsAuthPath(path) {
		b.WriteString(" | Request Body: ")
		b.WriteString(truncate(body, maxBodyInDetails))
	}
	return b.String()
}

// IsAuthPath reports whether path belongs to an authentication endpoint.
func IsAuthPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.Contains(lower, "/auth/") || strings.HasSuffix(lower, "/auth")
}

// Entity infers the entity type and id from an /api/{type}/{id} path.
func Entity(path string) (string, string) {
	segments := pathSegments(path)
	if len(segments) < 2 || !strings.EqualFold(segments[0], "api") {
		return "", ""
	}
	if len(segments) >= 3 {
		return segments[1], segments[2]
	}
	return segments[1], ""
}

func contains(needles ...string) func(string) bool {
	return func(path string) bool {
		for _, n := range needles {
			if strings.Contains(path, n) {
				return true
			}
		}
		return false
	}
}

func fixed(action string) func(string, string) string {
	return func(string, string) string { return action }
}

func prefixed(prefix string) func(string, string) string {
	return func(method, _ string) string { return prefix + method }
}

func normalizeMethod(method string) string {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return "UNKNOWN"
	}
	return method
}

func pathSegments(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + ellipsis
}
