package roles

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muniadmin/muniadmin/internal/rbac"
)

type fakeSource struct {
	counts map[rbac.Role]int64
	err    error
}

func (f fakeSource) GrantCounts(context.Context) (map[rbac.Role]int64, error) {
	return f.counts, f.err
}

func (f fakeSource) SnapshotForRole(_ context.Context, role rbac.Role) (rbac.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return rbac.Snapshot{"projects": {"read"}}, nil
}

func newRouter(source GrantSource, snapshot rbac.Snapshot) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := &rbac.Principal{UserID: 5, Role: rbac.RoleDirector, Capabilities: rbac.NewCapabilities(snapshot)}
	h := NewHandler(logger, NewService(source), rbac.Middleware{Logger: logger})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(rbac.ContextWithResolver(req.Context(), rbac.NewResolver(p))))
		})
	})
	r.Route("/roles", h.MountRoutes)
	return r
}

func TestListRolesInRankOrder(t *testing.T) {
	source := fakeSource{counts: map[rbac.Role]int64{rbac.RoleSuperAdmin: 153, rbac.RoleEmpleado: 30}}
	router := newRouter(source, rbac.Snapshot{"roles": {"read"}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/roles/", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got []Role
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, len(rbac.Roles))
	for i, r := range got {
		assert.Equal(t, rbac.Roles[i], r.Name)
		assert.Equal(t, i, r.Rank)
	}
	assert.True(t, got[0].CanDelegate)
	assert.True(t, got[1].CanDelegate)
	assert.False(t, got[2].CanDelegate)
	assert.Equal(t, int64(153), got[0].GrantCount)
	assert.Equal(t, int64(30), got[4].GrantCount)
	assert.Zero(t, got[5].GrantCount)
}

func TestListRolesDeniedWithoutRoleAccess(t *testing.T) {
	router := newRouter(fakeSource{}, rbac.Snapshot{"projects": {"read"}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/roles/", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRoleSnapshot(t *testing.T) {
	router := newRouter(fakeSource{}, rbac.Snapshot{"roles": {"manage"}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/roles/empleado/snapshot", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"role":"EMPLEADO","modules":{"projects":["read"]}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/roles/ALCALDE/snapshot", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListRolesStorageFailure(t *testing.T) {
	router := newRouter(fakeSource{err: errors.New("db down")}, rbac.Snapshot{"roles": {"read"}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/roles/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
