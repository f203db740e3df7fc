package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Decision is the externally visible result of an authorization check.
type Decision int

const (
	// Deny refuses access.
	Deny Decision = iota
	// Allow grants access.
	Allow
)

// Allowed reports whether the decision grants access.
func (d Decision) Allowed() bool {
	return d == Allow
}

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Outcome labels reported to a DecisionObserver. Callers only ever see the
// Decision; outcomes exist for logs and metrics.
const (
	OutcomeGranted      = "granted"
	OutcomeNoPrincipal  = "no_principal"
	OutcomeNoMatch      = "no_match"
	OutcomeLookupFailed = "lookup_failed"
)

// RoleLookup resolves the roles currently granted to a user.
type RoleLookup interface {
	GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// RoleLookupFunc adapts a function to RoleLookup.
type RoleLookupFunc func(ctx context.Context, userID uuid.UUID) ([]string, error)

// GetUserRoles calls f.
func (f RoleLookupFunc) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return f(ctx, userID)
}

// DecisionObserver receives one outcome per decision.
type DecisionObserver interface {
	ObserveAuthzDecision(outcome string)
}

var errNoLookup = errors.New("rbac: role lookup not configured")

// Engine decides whether a principal satisfies a role requirement.
type Engine struct {
	lookup   RoleLookup
	logger   *slog.Logger
	observer DecisionObserver
}

// NewEngine constructs an Engine. observer may be nil.
func NewEngine(lookup RoleLookup, logger *slog.Logger, observer DecisionObserver) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{lookup: lookup, logger: logger, observer: observer}
}

// Decide allows the principal iff it carries a valid user identifier, its
// roles resolve without error, and at least one of them is in req. Every
// failure path denies.
func (e *Engine) Decide(ctx context.Context, p Principal, req Requirement) Decision {
	userID, ok := p.ID()
	if !ok {
		e.logger.Warn("authorization denied: no principal",
			slog.String("user_id", p.UserID),
			slog.String("required", req.String()))
		e.observe(OutcomeNoPrincipal)
		return Deny
	}
	if req.Empty() {
		e.logger.Warn("authorization denied: empty requirement", slog.String("user_id", userID.String()))
		e.observe(OutcomeNoMatch)
		return Deny
	}

	granted, err := e.lookupRoles(ctx, userID)
	if err != nil {
		e.logger.Error("authorization denied: role lookup failed",
			slog.String("user_id", userID.String()),
			slog.String("required", req.String()),
			slog.Any("error", err))
		e.observe(OutcomeLookupFailed)
		return Deny
	}

	matched := req.Match(granted)
	if len(matched) == 0 {
		e.logger.Warn("authorization denied: no matching role",
			slog.String("user_id", userID.String()),
			slog.Any("required", req.Roles()),
			slog.Any("granted", normalizeRoles(granted)))
		e.observe(OutcomeNoMatch)
		return Deny
	}

	e.logger.Debug("authorization granted",
		slog.String("user_id", userID.String()),
		slog.Any("matched", matched))
	e.observe(OutcomeGranted)
	return Allow
}

// lookupRoles converts a panicking provider into an error so the decision
// stays fail-closed.
func (e *Engine) lookupRoles(ctx context.Context, userID uuid.UUID) (roles []string, err error) {
	if e.lookup == nil {
		return nil, errNoLookup
	}
	defer func() {
		if p := recover(); p != nil {
			roles = nil
			err = fmt.Errorf("rbac: role lookup panic: %v", p)
		}
	}()
	return e.lookup.GetUserRoles(ctx, userID)
}

func (e *Engine) observe(outcome string) {
	if e.observer != nil {
		e.observer.ObserveAuthzDecision(outcome)
	}
}
