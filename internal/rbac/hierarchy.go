package rbac

import "sort"

// Hierarchy ranks roles so a minimum role can be expanded into the literal
// roles that satisfy it. The engine never consults it; callers expand first
// and hand the result to NewRequirement.
type Hierarchy struct {
	levels map[string]int
}

// NewHierarchy builds a hierarchy from role name to level. Higher levels
// imply lower ones.
func NewHierarchy(levels map[string]int) Hierarchy {
	normalized := make(map[string]int, len(levels))
	for role, level := range levels {
		if key := normalizeRole(role); key != "" {
			normalized[key] = level
		}
	}
	return Hierarchy{levels: normalized}
}

// DefaultHierarchy is the built-in ranking of platform roles.
func DefaultHierarchy() Hierarchy {
	return NewHierarchy(map[string]int{
		"user":       1,
		"cj":         2,
		"admin":      3,
		"superadmin": 4,
	})
}

// Level returns the role's rank, or 0 when the role is unknown.
func (h Hierarchy) Level(role string) int {
	return h.levels[normalizeRole(role)]
}

// AtLeast lists every role ranked at or above min, lowest first. An unknown
// minimum yields nil.
func (h Hierarchy) AtLeast(min string) []string {
	floor := h.Level(min)
	if floor == 0 {
		return nil
	}
	var roles []string
	for role, level := range h.levels {
		if level >= floor {
			roles = append(roles, role)
		}
	}
	sort.Slice(roles, func(i, j int) bool {
		li, lj := h.levels[roles[i]], h.levels[roles[j]]
		if li != lj {
			return li < lj
		}
		return roles[i] < roles[j]
	})
	return roles
}

// HasMinimum reports whether any of roles ranks at or above min.
func (h Hierarchy) HasMinimum(roles []string, min string) bool {
	floor := h.Level(min)
	if floor == 0 {
		return false
	}
	for _, role := range roles {
		if h.Level(role) >= floor {
			return true
		}
	}
	return false
}
