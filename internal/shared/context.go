package shared

import (
	"context"
	"sync"
)

type sessionContextKey struct{}

type failureContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

type failureSlot struct {
	mu  sync.Mutex
	err error
}

// ContextWithFailureSlot installs a slot handlers can report failures into.
// The returned function yields the first reported failure, if any.
func ContextWithFailureSlot(ctx context.Context) (context.Context, func() error) {
	slot := &failureSlot{}
	return context.WithValue(ctx, failureContextKey{}, slot), func() error {
		slot.mu.Lock()
		defer slot.mu.Unlock()
		return slot.err
	}
}

// ReportFailure records err in the request's failure slot. Only the first
// failure is kept; reports without an installed slot are dropped.
func ReportFailure(ctx context.Context, err error) {
	if err == nil {
		return
	}
	slot, _ := ctx.Value(failureContextKey{}).(*failureSlot)
	if slot == nil {
		return
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.err == nil {
		slot.err = err
	}
}
