package users

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/rbac"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/shared"
)

type stubRepo struct {
	users      map[uuid.UUID]User
	lastSearch string
	lastLimit  int
	lastOffset int
}

func (s *stubRepo) ListUsers(ctx context.Context, search string, limit, offset int) ([]User, int, error) {
	s.lastSearch, s.lastLimit, s.lastOffset = search, limit, offset
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (s *stubRepo) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *stubRepo) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateInput) (User, error) {
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	s.users[id] = u
	return u, nil
}

func (s *stubRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

type stubRoles struct {
	grants map[uuid.UUID][]string
}

func (s *stubRoles) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return s.grants[userID], nil
}

func (s *stubRoles) ReplaceUserRoles(ctx context.Context, userID uuid.UUID, roles []string) error {
	s.grants[userID] = roles
	return nil
}

var (
	adminID = uuid.MustParse("a0000000-0000-4000-8000-000000000001")
	userID1 = uuid.MustParse("a0000000-0000-4000-8000-000000000002")
	superID = uuid.MustParse("a0000000-0000-4000-8000-000000000003")
)

type fixture struct {
	router http.Handler
	repo   *stubRepo
	roles  *stubRoles
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := &stubRepo{users: map[uuid.UUID]User{
		adminID: {ID: adminID, Name: "Admin", Email: "admin@example.org", IsActive: true},
		userID1: {ID: userID1, Name: "Field Reporter", Email: "field@example.org", IsActive: true},
		superID: {ID: superID, Name: "Root", Email: "root@example.org", IsActive: true},
	}}
	roles := &stubRoles{grants: map[uuid.UUID][]string{
		adminID: {"admin"},
		userID1: {"user"},
		superID: {"SuperAdmin"},
	}}
	policy := rbac.NewPolicy().
		Register(shared.OpUsersList, shared.AdminRoles()...).
		Register(shared.OpUsersView, shared.AdminRoles()...).
		Register(shared.OpUsersUpdate, shared.AdminRoles()...).
		Register(shared.OpUsersDelete, shared.AdminRoles()...).
		Register(shared.OpUsersReplaceRole, shared.RoleSuperAdmin)
	authz := rbac.Middleware{Engine: rbac.NewEngine(roles, logger, nil), Policy: policy}

	r := chi.NewRouter()
	r.Route("/api/users", NewHandler(logger, NewService(repo, roles, logger), authz).MountRoutes)
	return &fixture{router: r, repo: repo, roles: roles}
}

func (f *fixture) do(method, target, body string, actor uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if actor != uuid.Nil {
		sess := &shared.Session{}
		sess.SetUser(actor.String(), "actor")
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestListUsersRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/users", "", uuid.Nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/users", "", userID1).Code)

	rr := f.do(http.MethodGet, "/api/users?q=field&page=2&per_page=2", "", adminID)
	require.Equal(t, http.StatusOK, rr.Code)
	var page Page
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
	assert.Len(t, page.Users, 3)
	assert.Equal(t, 3, page.Pagination.Total)
	assert.Equal(t, "field", f.repo.lastSearch)
	assert.Equal(t, 2, f.repo.lastLimit)
	assert.Equal(t, 2, f.repo.lastOffset)
}

func TestGetUserIncludesRoles(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodGet, "/api/users/"+userID1.String(), "", adminID)
	require.Equal(t, http.StatusOK, rr.Code)
	var user User
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
	assert.Equal(t, []string{"user"}, user.Roles)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/users/"+uuid.NewString(), "", adminID).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/users/9", "", adminID).Code)
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodPut, "/api/users/"+userID1.String(), `{"name":"Reporter","is_active":false}`, adminID)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Reporter", f.repo.users[userID1].Name)
	assert.False(t, f.repo.users[userID1].IsActive)

	rr = f.do(http.MethodPut, "/api/users/"+userID1.String(), `{"name":"`+strings.Repeat("x", 101)+`"}`, adminID)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodDelete, "/api/users/"+adminID.String(), "", adminID).Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/users/"+userID1.String(), "", adminID).Code)
	assert.NotContains(t, f.repo.users, userID1)
}

func TestReplaceRolesRequiresSuperAdmin(t *testing.T) {
	f := newFixture(t)
	body := `{"roles":["cj","user"]}`
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPut, "/api/users/"+userID1.String()+"/roles", body, adminID).Code)

	rr := f.do(http.MethodPut, "/api/users/"+userID1.String()+"/roles", body, superID)
	require.Equal(t, http.StatusOK, rr.Code)
	var user User
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
	assert.Equal(t, []string{"cj", "user"}, user.Roles)

	rr = f.do(http.MethodPut, "/api/users/"+userID1.String()+"/roles", `{"roles":[""]}`, superID)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
