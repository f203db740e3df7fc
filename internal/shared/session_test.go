package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "test_session", "secret", time.Hour, false), mr
}

func TestSessionRoundTripViaBearerToken(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	require.NoError(t, err)
	assert.True(t, sess.IsNew())
	sess.SetUser("8d1f6f3e-5b0a-4c39-9a55-0b1a5b9b7c11", "Aye Chan")

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	require.Len(t, rec.Result().Cookies(), 1)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+sm.Token(sess))
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "8d1f6f3e-5b0a-4c39-9a55-0b1a5b9b7c11", loaded.User())
	assert.Equal(t, "Aye Chan", loaded.UserName())
}

func TestSessionRejectsTamperedToken(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodPost, "/", nil))
	require.NoError(t, err)
	sess.SetUser("8d1f6f3e-5b0a-4c39-9a55-0b1a5b9b7c11", "Aye Chan")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID + ".forged"})
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, loaded.ID)
	assert.Empty(t, loaded.User())
}

func TestAnonymousSessionIsNotPersisted(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))

	assert.Empty(t, mr.Keys())
	assert.Empty(t, rec.Result().Cookies())
}

func TestDestroyedSessionIsDeleted(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("8d1f6f3e-5b0a-4c39-9a55-0b1a5b9b7c11", "Aye Chan")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	require.Len(t, mr.Keys(), 1)

	sm.Destroy(sess)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	assert.Empty(t, mr.Keys())
}

func TestReportFailureKeepsFirstError(t *testing.T) {
	ctx, failure := ContextWithFailureSlot(context.Background())
	assert.NoError(t, failure())

	first := assert.AnError
	ReportFailure(ctx, first)
	ReportFailure(ctx, context.Canceled)
	assert.Same(t, first, failure())

	// Without a slot the report is dropped silently.
	ReportFailure(context.Background(), first)
}

func TestSessionRenewRetiresPreviousID(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodPost, "/", nil))
	require.NoError(t, err)
	sess.Set("locale", "my")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	oldToken := sm.Token(sess)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set("Authorization", "Bearer "+oldToken)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	oldID := loaded.ID

	sm.Renew(loaded)
	loaded.SetUser("8d1f6f3e-5b0a-4c39-9a55-0b1a5b9b7c11", "Aye Chan")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), loaded))

	assert.NotEqual(t, oldID, loaded.ID)
	assert.False(t, mr.Exists("session:"+oldID))
	assert.True(t, mr.Exists("session:"+loaded.ID))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+oldToken)
	stale, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, stale.User())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sm.Token(loaded))
	fresh, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "8d1f6f3e-5b0a-4c39-9a55-0b1a5b9b7c11", fresh.User())
	assert.Equal(t, "my", fresh.Get("locale"))
}
