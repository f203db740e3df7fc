package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/auth"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/rbac"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/shared"
	_ "github.com/kaungthantlinn-coding/DisasterAppApi-sub002/testing"
)

type stubRepo struct {
	mu       sync.Mutex
	users    map[string]*auth.User
	sessions map[string]uuid.UUID
}

func newStubRepo(users ...*auth.User) *stubRepo {
	repo := &stubRepo{users: map[string]*auth.User{}, sessions: map[string]uuid.UUID{}}
	for _, u := range users {
		repo.users[u.Email] = u
	}
	return repo
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubRepo) CreateUser(ctx context.Context, user auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return auth.ErrEmailTaken
	}
	s.users[user.Email] = &user
	return nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

type stubRoles struct {
	mu     sync.Mutex
	grants map[uuid.UUID][]string
}

func (s *stubRoles) AssignRole(ctx context.Context, userID uuid.UUID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[userID] = append(s.grants[userID], role)
	return nil
}

func (s *stubRoles) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.grants[userID]...), nil
}

type fixture struct {
	router   http.Handler
	sessions *shared.SessionManager
	repo     *stubRepo
	roles    *stubRoles
	user     *auth.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &auth.User{ID: uuid.New(), Name: "Aye Chan", Email: "aye@example.org", PasswordHash: string(hash), IsActive: true}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newStubRepo(user)
	roles := &stubRoles{grants: map[uuid.UUID][]string{user.ID: {"cj"}}}
	handler := auth.NewHandler(logger, auth.NewService(repo, roles, logger), sessions, roles)

	policy := rbac.NewPolicy().Register(shared.OpAuthMe, shared.CoreRoles()...)
	authz := rbac.Middleware{Engine: rbac.NewEngine(roles, logger, nil), Policy: policy}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(req.Context(), sess)
			next.ServeHTTP(w, req.WithContext(ctx))
			require.NoError(t, sessions.Commit(ctx, w, sess))
		})
	})
	r.Route("/api/auth", func(r chi.Router) { handler.MountRoutes(r, authz, nil) })
	return &fixture{router: r, sessions: sessions, repo: repo, roles: roles, user: user}
}

func (f *fixture) do(method, target, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, f *fixture) string {
	t.Helper()
	rr := f.do(http.MethodPost, "/api/auth/login", `{"email":"aye@example.org","password":"correct-horse"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body struct {
		Token string       `json:"token"`
		User  auth.Profile `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	assert.Equal(t, f.user.ID, body.User.ID)
	assert.Equal(t, []string{"cj"}, body.User.Roles)
	return body.Token
}

func TestLoginIssuesSessionToken(t *testing.T) {
	f := newFixture(t)
	token := login(t, f)

	rr := f.do(http.MethodGet, "/api/auth/me", "", token)
	require.Equal(t, http.StatusOK, rr.Code)
	var me auth.Profile
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&me))
	assert.Equal(t, f.user.ID, me.ID)
	assert.Equal(t, "Aye Chan", me.Name)
	assert.Len(t, f.repo.sessions, 1)
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{
		`{"email":"aye@example.org","password":"wrong-password"}`,
		`{"email":"nobody@example.org","password":"correct-horse"}`,
	} {
		rr := f.do(http.MethodPost, "/api/auth/login", body, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, body)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	f := newFixture(t)
	f.user.IsActive = false
	rr := f.do(http.MethodPost, "/api/auth/login", `{"email":"aye@example.org","password":"correct-horse"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginValidation(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodPost, "/api/auth/login", `{"email":"not-an-email","password":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMeRequiresSession(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	f := newFixture(t)
	token := login(t, f)

	rr := f.do(http.MethodPost, "/api/auth/logout", "", token)
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, f.repo.sessions)

	rr = f.do(http.MethodGet, "/api/auth/me", "", token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRegisterGrantsDefaultRole(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodPost, "/api/auth/register", `{"name":"Min Thu","email":"Min@Example.org","password":"long-enough"}`, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var profile auth.Profile
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&profile))
	assert.Equal(t, "min@example.org", profile.Email)
	assert.Equal(t, []string{shared.RoleUser}, profile.Roles)

	rr = f.do(http.MethodPost, "/api/auth/register", `{"name":"Again","email":"min@example.org","password":"long-enough"}`, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestLoginRotatesSessionID(t *testing.T) {
	f := newFixture(t)
	first := login(t, f)

	rr := f.do(http.MethodPost, "/api/auth/login", `{"email":"aye@example.org","password":"correct-horse"}`, first)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.NotEqual(t, first, body.Token)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/auth/me", "", first).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/auth/me", "", body.Token).Code)
	assert.Len(t, f.repo.sessions, 1)
}
