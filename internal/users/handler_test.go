package users

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muniadmin/muniadmin/internal/rbac"
)

type mockRepo struct {
	users   []User
	updated map[int64]rbac.Role
	err     error
}

func (m *mockRepo) ListUsers(context.Context) ([]User, error) {
	return m.users, m.err
}

func (m *mockRepo) CurrentRole(_ context.Context, id int64) (rbac.Role, error) {
	if m.err != nil {
		return "", m.err
	}
	for _, u := range m.users {
		if u.ID == id {
			return u.Role, nil
		}
	}
	return "", ErrNotFound
}

func (m *mockRepo) UpdateRole(_ context.Context, id int64, role rbac.Role) error {
	if m.err != nil {
		return m.err
	}
	for _, u := range m.users {
		if u.ID == id {
			if m.updated == nil {
				m.updated = map[int64]rbac.Role{}
			}
			m.updated[id] = role
			return nil
		}
	}
	return ErrNotFound
}

type mockInvalidator struct {
	ids []int64
	err error
}

func (m *mockInvalidator) Invalidate(_ context.Context, id int64) error {
	m.ids = append(m.ids, id)
	return m.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// asPrincipal injects a resolver the way the session middleware would.
func asPrincipal(p *rbac.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(rbac.ContextWithResolver(r.Context(), rbac.NewResolver(p))))
		})
	}
}

func newTestRouter(repo *mockRepo, inv *mockInvalidator, p *rbac.Principal) http.Handler {
	svc := NewService(repo, inv, quietLogger())
	h := NewHandler(quietLogger(), svc, rbac.Middleware{Logger: quietLogger()})
	r := chi.NewRouter()
	r.Use(asPrincipal(p))
	r.Route("/users", h.MountRoutes)
	return r
}

func principal(role rbac.Role, s rbac.Snapshot) *rbac.Principal {
	return &rbac.Principal{UserID: 1, Role: role, Capabilities: rbac.NewCapabilities(s)}
}

func TestListUsersRequiresRead(t *testing.T) {
	repo := &mockRepo{users: []User{{ID: 1, Email: "ana@muni.gob", Role: rbac.RoleAdmin}}}

	denied := newTestRouter(repo, nil, principal(rbac.RoleEmpleado, rbac.Snapshot{"projects": {"read"}}))
	rr := httptest.NewRecorder()
	denied.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	allowed := newTestRouter(repo, nil, principal(rbac.RoleDirector, rbac.Snapshot{"users": {"read"}}))
	rr = httptest.NewRecorder()
	allowed.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got []User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "ana@muni.gob", got[0].Email)
}

func TestListUsersStorageFailure(t *testing.T) {
	repo := &mockRepo{err: errors.New("db down")}
	router := newTestRouter(repo, nil, principal(rbac.RoleSuperAdmin, nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestAssignRole(t *testing.T) {
	admin := principal(rbac.RoleAdmin, rbac.Snapshot{"users": {"update"}, "roles": {"manage"}})

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{name: "assigns lower role", target: "/users/2/role", body: `{"role":"director"}`, want: http.StatusNoContent},
		{name: "rejects peer role", target: "/users/2/role", body: `{"role":"ADMIN"}`, want: http.StatusForbidden},
		{name: "unknown role", target: "/users/2/role", body: `{"role":"ALCALDE"}`, want: http.StatusBadRequest},
		{name: "missing role", target: "/users/2/role", body: `{}`, want: http.StatusBadRequest},
		{name: "unknown field", target: "/users/2/role", body: `{"role":"EMPLEADO","x":1}`, want: http.StatusBadRequest},
		{name: "bad id", target: "/users/abc/role", body: `{"role":"EMPLEADO"}`, want: http.StatusBadRequest},
		{name: "missing user", target: "/users/99/role", body: `{"role":"EMPLEADO"}`, want: http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockRepo{users: []User{{ID: 2, Role: rbac.RoleEmpleado}}}
			inv := &mockInvalidator{}
			router := newTestRouter(repo, inv, admin)

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, tc.target, strings.NewReader(tc.body))
			router.ServeHTTP(rr, req)
			assert.Equal(t, tc.want, rr.Code, rr.Body.String())
			if tc.want == http.StatusNoContent {
				assert.Equal(t, rbac.RoleDirector, repo.updated[2])
				assert.Equal(t, []int64{2}, inv.ids)
			} else {
				assert.Empty(t, inv.ids)
			}
		})
	}
}

func TestAssignRoleSuperAdminMayGrantAnyTier(t *testing.T) {
	repo := &mockRepo{users: []User{{ID: 2, Role: rbac.RoleEmpleado}}}
	router := newTestRouter(repo, &mockInvalidator{}, principal(rbac.RoleSuperAdmin, nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/users/2/role", strings.NewReader(`{"role":"SUPER_ADMIN"}`)))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, rbac.RoleSuperAdmin, repo.updated[2])
}

func TestAssignRoleGuardsTargetsAtOrAboveCallerTier(t *testing.T) {
	admin := principal(rbac.RoleAdmin, rbac.Snapshot{"users": {"update"}, "roles": {"manage"}})

	tests := []struct {
		name    string
		current rbac.Role
		want    int
	}{
		{name: "admin cannot demote super admin", current: rbac.RoleSuperAdmin, want: http.StatusForbidden},
		{name: "admin cannot demote peer admin", current: rbac.RoleAdmin, want: http.StatusForbidden},
		{name: "admin may demote director", current: rbac.RoleDirector, want: http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockRepo{users: []User{{ID: 7, Role: tc.current}}}
			inv := &mockInvalidator{}
			router := newTestRouter(repo, inv, admin)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/users/7/role", strings.NewReader(`{"role":"CIUDADANO"}`)))
			assert.Equal(t, tc.want, rr.Code, rr.Body.String())
			if tc.want == http.StatusForbidden {
				assert.Empty(t, repo.updated)
				assert.Empty(t, inv.ids)
			} else {
				assert.Equal(t, rbac.RoleCiudadano, repo.updated[7])
			}
		})
	}
}

func TestAssignRoleSuperAdminMayDemoteSuperAdmin(t *testing.T) {
	repo := &mockRepo{users: []User{{ID: 3, Role: rbac.RoleSuperAdmin}}}
	router := newTestRouter(repo, &mockInvalidator{}, principal(rbac.RoleSuperAdmin, nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/users/3/role", strings.NewReader(`{"role":"ADMIN"}`)))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, rbac.RoleAdmin, repo.updated[3])
}

func TestAssignRoleInvalidationFailureIsTolerated(t *testing.T) {
	repo := &mockRepo{users: []User{{ID: 2}}}
	svc := NewService(repo, &mockInvalidator{err: errors.New("redis down")}, quietLogger())
	require.NoError(t, svc.AssignRole(context.Background(), 2, rbac.RoleCiudadano))
	assert.Equal(t, rbac.RoleCiudadano, repo.updated[2])
}
