package rbac

import (
	"fmt"
	"sort"
	"strings"
)

// Policy maps operation identifiers to their role requirements. It is filled
// by explicit Register calls during startup and read concurrently afterwards;
// Register must not be called once requests are being served.
type Policy struct {
	requirements map[string]Requirement
}

// NewPolicy returns an empty policy.
func NewPolicy() *Policy {
	return &Policy{requirements: make(map[string]Requirement)}
}

// Register attaches the allowed roles to operation. Registering the same
// operation twice or a blank operation panics, mirroring http.ServeMux.
func (p *Policy) Register(operation string, roles ...string) *Policy {
	operation = strings.TrimSpace(operation)
	if operation == "" {
		panic("rbac: blank operation")
	}
	if _, exists := p.requirements[operation]; exists {
		panic(fmt.Sprintf("rbac: operation %q registered twice", operation))
	}
	p.requirements[operation] = NewRequirement(roles...)
	return p
}

// Requirement returns the requirement for operation. Unknown operations get
// the zero requirement, which denies everyone.
func (p *Policy) Requirement(operation string) Requirement {
	if p == nil {
		return Requirement{}
	}
	return p.requirements[strings.TrimSpace(operation)]
}

// Registered reports whether operation has an explicit requirement.
func (p *Policy) Registered(operation string) bool {
	if p == nil {
		return false
	}
	_, ok := p.requirements[strings.TrimSpace(operation)]
	return ok
}

// Operations lists registered operations in sorted order.
func (p *Policy) Operations() []string {
	if p == nil {
		return nil
	}
	ops := make([]string, 0, len(p.requirements))
	for op := range p.requirements {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}
