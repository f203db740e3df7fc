package audit

import (
	"net/http"
	"strings"
)

// excludedPaths are never audited.
var excludedPaths = []string{
	"/health",
	"/healthz",
	"/api/health",
	"/api/auth/refresh",
	"/metrics",
}

// readOnlyExcludedPaths are not audited for safe methods; reading the audit
// trail must not grow it.
var readOnlyExcludedPaths = []string{
	"/api/audit-logs",
}

var adminPrefixes = []string{
	"/api/admin",
	"/admin",
}

var loggedMethods = map[string]struct{}{
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodDelete: {},
	http.MethodPatch:  {},
}

// ShouldLog reports whether a request is audit-worthy: every state-changing
// request plus any request under an administrative prefix, minus exclusions.
func ShouldLog(method, path string) bool {
	method = normalizeMethod(method)
	lower := strings.ToLower(path)
	if hasAnyPrefix(lower, excludedPaths) {
		return false
	}
	if (method == http.MethodGet || method == http.MethodHead) && hasAnyPrefix(lower, readOnlyExcludedPaths) {
		return false
	}
	if _, ok := loggedMethods[method]; ok {
		return true
	}
	return hasAnyPrefix(lower, adminPrefixes)
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
