package rbac

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubLookup struct {
	mu    sync.Mutex
	roles map[uuid.UUID][]string
	err   error
	panic any
	calls int
}

func (s *stubLookup) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.panic != nil {
		panic(s.panic)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.roles[userID], nil
}

func (s *stubLookup) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingObserver struct {
	outcomes []string
}

func (o *recordingObserver) ObserveAuthzDecision(outcome string) {
	o.outcomes = append(o.outcomes, outcome)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testUser = uuid.MustParse("3b241101-e2bb-4255-8caf-4136c566a962")

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		principal Principal
		required  []string
		granted   []string
		want      Decision
		outcome   string
		lookups   int
	}{
		{
			name:      "case insensitive match",
			principal: Principal{UserID: testUser.String()},
			required:  []string{"admin", "cj"},
			granted:   []string{"CJ"},
			want:      Allow,
			outcome:   OutcomeGranted,
			lookups:   1,
		},
		{
			name:      "upper case grant satisfies lower case requirement",
			principal: Principal{UserID: testUser.String()},
			required:  []string{"admin"},
			granted:   []string{"ADMIN"},
			want:      Allow,
			outcome:   OutcomeGranted,
			lookups:   1,
		},
		{
			name:      "no intersection",
			principal: Principal{UserID: testUser.String()},
			required:  []string{"admin"},
			granted:   []string{"user", "cj"},
			want:      Deny,
			outcome:   OutcomeNoMatch,
			lookups:   1,
		},
		{
			name:      "user without roles",
			principal: Principal{UserID: testUser.String()},
			required:  []string{"admin"},
			want:      Deny,
			outcome:   OutcomeNoMatch,
			lookups:   1,
		},
		{
			name:      "anonymous never reaches lookup",
			principal: Principal{},
			required:  []string{"admin"},
			granted:   []string{"admin"},
			want:      Deny,
			outcome:   OutcomeNoPrincipal,
		},
		{
			name:      "malformed identifier never reaches lookup",
			principal: Principal{UserID: "42"},
			required:  []string{"admin"},
			granted:   []string{"admin"},
			want:      Deny,
			outcome:   OutcomeNoPrincipal,
		},
		{
			name:      "nil uuid is not an identity",
			principal: Principal{UserID: uuid.Nil.String()},
			required:  []string{"admin"},
			want:      Deny,
			outcome:   OutcomeNoPrincipal,
		},
		{
			name:      "empty requirement denies even superadmin",
			principal: Principal{UserID: testUser.String()},
			granted:   []string{"superadmin", "admin"},
			want:      Deny,
			outcome:   OutcomeNoMatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &stubLookup{roles: map[uuid.UUID][]string{testUser: tt.granted}}
			observer := &recordingObserver{}
			engine := NewEngine(lookup, discardLogger(), observer)

			got := engine.Decide(context.Background(), tt.principal, NewRequirement(tt.required...))

			assert.Equal(t, tt.want, got)
			assert.Equal(t, []string{tt.outcome}, observer.outcomes)
			assert.Equal(t, tt.lookups, lookup.callCount())
		})
	}
}

func TestDecideFailsClosedOnLookupError(t *testing.T) {
	lookup := &stubLookup{err: errors.New("connection refused")}
	observer := &recordingObserver{}
	engine := NewEngine(lookup, discardLogger(), observer)

	got := engine.Decide(context.Background(), Principal{UserID: testUser.String()}, NewRequirement("admin"))

	assert.Equal(t, Deny, got)
	assert.Equal(t, []string{OutcomeLookupFailed}, observer.outcomes)
}

func TestDecideFailsClosedOnLookupPanic(t *testing.T) {
	lookup := &stubLookup{panic: "nil map"}
	engine := NewEngine(lookup, discardLogger(), nil)

	assert.NotPanics(t, func() {
		got := engine.Decide(context.Background(), Principal{UserID: testUser.String()}, NewRequirement("admin"))
		assert.Equal(t, Deny, got)
	})
}

func TestDecideWithoutLookupDenies(t *testing.T) {
	engine := NewEngine(nil, discardLogger(), nil)
	got := engine.Decide(context.Background(), Principal{UserID: testUser.String()}, NewRequirement("admin"))
	assert.Equal(t, Deny, got)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny", Deny.String())
	assert.True(t, Allow.Allowed())
	assert.False(t, Deny.Allowed())
}
