package roles

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

type grant struct {
	user uuid.UUID
	role string
}

type stubRoleService struct {
	roles    map[int64]rbac.Role
	nextID   int64
	assigned []grant
	removed  []grant
	deleted  []int64
}

func newStubRoleService() *stubRoleService {
	return &stubRoleService{
		roles: map[int64]rbac.Role{
			1: {ID: 1, Name: "admin"},
			2: {ID: 2, Name: "volunteer-lead"},
		},
		nextID: 3,
	}
}

func (s *stubRoleService) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	return []rbac.Role{s.roles[1], s.roles[2]}, nil
}

func (s *stubRoleService) GetRole(ctx context.Context, id int64) (rbac.Role, error) {
	role, ok := s.roles[id]
	if !ok {
		return rbac.Role{}, rbac.ErrNotFound
	}
	return role, nil
}

func (s *stubRoleService) CreateRole(ctx context.Context, name, description string) (rbac.Role, error) {
	for _, role := range s.roles {
		if strings.EqualFold(role.Name, name) {
			return rbac.Role{}, rbac.ErrDuplicate
		}
	}
	role := rbac.Role{ID: s.nextID, Name: name, Description: description}
	s.roles[role.ID] = role
	s.nextID++
	return role, nil
}

func (s *stubRoleService) UpdateRole(ctx context.Context, id int64, name, description string) (rbac.Role, error) {
	role := s.roles[id]
	role.Name, role.Description = name, description
	s.roles[id] = role
	return role, nil
}

func (s *stubRoleService) DeleteRole(ctx context.Context, id int64) error {
	s.deleted = append(s.deleted, id)
	delete(s.roles, id)
	return nil
}

func (s *stubRoleService) AssignRole(ctx context.Context, userID uuid.UUID, role string) error {
	s.assigned = append(s.assigned, grant{userID, role})
	return nil
}

func (s *stubRoleService) RemoveRole(ctx context.Context, userID uuid.UUID, role string) error {
	s.removed = append(s.removed, grant{userID, role})
	return nil
}

var (
	superID = uuid.MustParse("b0000000-0000-4000-8000-000000000001")
	adminID = uuid.MustParse("b0000000-0000-4000-8000-000000000002")
	cjID    = uuid.MustParse("b0000000-0000-4000-8000-000000000003")
)

func newRouter(t *testing.T, svc *stubRoleService) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lookup := rbac.RoleLookupFunc(func(ctx context.Context, id uuid.UUID) ([]string, error) {
		switch id {
		case superID:
			return []string{"superadmin"}, nil
		case adminID:
			return []string{"admin"}, nil
		}
		return []string{"cj"}, nil
	})
	policy := rbac.NewPolicy().
		Register(shared.OpRolesList, shared.AdminRoles()...).
		Register(shared.OpRolesCreate, shared.RoleSuperAdmin).
		Register(shared.OpRolesUpdate, shared.RoleSuperAdmin).
		Register(shared.OpRolesDelete, shared.RoleSuperAdmin).
		Register(shared.OpRolesAssign, shared.AdminRoles()...).
		Register(shared.OpRolesRemove, shared.AdminRoles()...)
	authz := rbac.Middleware{Engine: rbac.NewEngine(lookup, logger, nil), Policy: policy}

	r := chi.NewRouter()
	r.Route("/api/roles", NewHandler(logger, NewService(svc, lookup, logger), authz).MountRoutes)
	return r
}

func do(router http.Handler, method, target, body string, actor uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	sess := &shared.Session{}
	sess.SetUser(actor.String(), "actor")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestListRoles(t *testing.T) {
	router := newRouter(t, newStubRoleService())
	assert.Equal(t, http.StatusForbidden, do(router, http.MethodGet, "/api/roles", "", cjID).Code)

	rr := do(router, http.MethodGet, "/api/roles", "", adminID)
	require.Equal(t, http.StatusOK, rr.Code)
	var roles []rbac.Role
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&roles))
	assert.Len(t, roles, 2)
}

func TestCreateRoleRequiresSuperAdmin(t *testing.T) {
	svc := newStubRoleService()
	router := newRouter(t, svc)
	body := `{"name":"logistics","description":"Supply coordination"}`

	assert.Equal(t, http.StatusForbidden, do(router, http.MethodPost, "/api/roles", body, adminID).Code)
	assert.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/roles", body, superID).Code)
	assert.Equal(t, http.StatusConflict, do(router, http.MethodPost, "/api/roles", body, superID).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodPost, "/api/roles", `{"name":""}`, superID).Code)
}

func TestBuiltInRolesAreProtected(t *testing.T) {
	svc := newStubRoleService()
	router := newRouter(t, svc)

	assert.Equal(t, http.StatusForbidden, do(router, http.MethodDelete, "/api/roles/1", "", superID).Code)
	assert.Equal(t, http.StatusForbidden, do(router, http.MethodPut, "/api/roles/1", `{"name":"root"}`, superID).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPut, "/api/roles/1", `{"name":"Admin","description":"Operators"}`, superID).Code)
	assert.Empty(t, svc.deleted)

	assert.Equal(t, http.StatusNoContent, do(router, http.MethodDelete, "/api/roles/2", "", superID).Code)
	assert.Equal(t, []int64{2}, svc.deleted)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodDelete, "/api/roles/99", "", superID).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodDelete, "/api/roles/abc", "", superID).Code)
}

func TestAssignAndRemoveRole(t *testing.T) {
	svc := newStubRoleService()
	router := newRouter(t, svc)
	body := `{"user_id":"` + cjID.String() + `","role":"volunteer-lead"}`

	assert.Equal(t, http.StatusForbidden, do(router, http.MethodPost, "/api/roles/assign", body, cjID).Code)
	assert.Equal(t, http.StatusNoContent, do(router, http.MethodPost, "/api/roles/assign", body, adminID).Code)
	assert.Equal(t, http.StatusNoContent, do(router, http.MethodPost, "/api/roles/remove", body, adminID).Code)
	assert.Equal(t, []grant{{cjID, "volunteer-lead"}}, svc.assigned)
	assert.Equal(t, []grant{{cjID, "volunteer-lead"}}, svc.removed)

	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodPost, "/api/roles/assign", `{"user_id":"nope","role":"admin"}`, adminID).Code)
}

func TestGrantChangesRequireOutranking(t *testing.T) {
	svc := newStubRoleService()
	router := newRouter(t, svc)
	grantBody := func(user uuid.UUID, role string) string {
		return `{"user_id":"` + user.String() + `","role":"` + role + `"}`
	}

	denied := []struct {
		name   string
		target string
		body   string
	}{
		{"self promotion to superadmin", "/api/roles/assign", grantBody(adminID, "superadmin")},
		{"grant admin", "/api/roles/assign", grantBody(cjID, "admin")},
		{"grant superadmin to another user", "/api/roles/assign", grantBody(cjID, "superadmin")},
		{"revoke superadmin", "/api/roles/remove", grantBody(superID, "superadmin")},
		{"revoke from higher ranked user", "/api/roles/remove", grantBody(superID, "cj")},
		{"grant to higher ranked user", "/api/roles/assign", grantBody(superID, "volunteer-lead")},
	}
	for _, tc := range denied {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, http.StatusForbidden, do(router, http.MethodPost, tc.target, tc.body, adminID).Code)
		})
	}
	assert.Empty(t, svc.assigned)
	assert.Empty(t, svc.removed)

	assert.Equal(t, http.StatusNoContent, do(router, http.MethodPost, "/api/roles/assign", grantBody(cjID, "admin"), superID).Code)
	assert.Equal(t, http.StatusNoContent, do(router, http.MethodPost, "/api/roles/remove", grantBody(adminID, "admin"), superID).Code)
	assert.Equal(t, []grant{{cjID, "admin"}}, svc.assigned)
	assert.Equal(t, []grant{{adminID, "admin"}}, svc.removed)
}

func TestGrantChangesFailClosedWithoutLookup(t *testing.T) {
	svc := newStubRoleService()
	service := NewService(svc, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := service.Assign(context.Background(), superID, cjID, "volunteer-lead")
	assert.ErrorIs(t, err, ErrOutranked)
	assert.Empty(t, svc.assigned)
}
