package rbac

import (
	"strings"

	"golang.org/x/text/cases"
)

// Requirement is the immutable set of roles an operation accepts. The zero
// value accepts nobody.
type Requirement struct {
	roles []string
}

// NewRequirement builds a requirement from role names. Names are trimmed,
// case-folded and deduplicated; blanks are dropped. Order is preserved.
func NewRequirement(roles ...string) Requirement {
	seen := make(map[string]struct{}, len(roles))
	normalized := make([]string, 0, len(roles))
	for _, role := range roles {
		key := normalizeRole(role)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		normalized = append(normalized, key)
	}
	return Requirement{roles: normalized}
}

// Roles returns a copy of the normalized allowed roles.
func (r Requirement) Roles() []string {
	out := make([]string, len(r.roles))
	copy(out, r.roles)
	return out
}

// Empty reports whether no role is accepted.
func (r Requirement) Empty() bool {
	return len(r.roles) == 0
}

// Match returns the allowed roles present in granted, in requirement order.
func (r Requirement) Match(granted []string) []string {
	if len(r.roles) == 0 || len(granted) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(granted))
	for _, role := range granted {
		set[normalizeRole(role)] = struct{}{}
	}
	var matched []string
	for _, role := range r.roles {
		if _, ok := set[role]; ok {
			matched = append(matched, role)
		}
	}
	return matched
}

func (r Requirement) String() string {
	return "[" + strings.Join(r.roles, ",") + "]"
}

func normalizeRole(role string) string {
	return cases.Fold().String(strings.TrimSpace(role))
}

func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		if key := normalizeRole(role); key != "" {
			out = append(out, key)
		}
	}
	return out
}
