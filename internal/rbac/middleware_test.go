package rbac

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muniadmin/muniadmin/internal/shared"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type brokenDirectory struct{}

func (brokenDirectory) RoleOf(context.Context, int64) (Role, error) {
	return "", errors.New("connection refused")
}

func withUser(r *http.Request, userID string) *http.Request {
	sess := &shared.Session{ID: "test"}
	if userID != "" {
		sess.SetUser(userID)
	}
	return r.WithContext(shared.ContextWithSession(r.Context(), sess))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if ResolverFromContext(r.Context()).Principal() == nil {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.WriteHeader(http.StatusOK)
})

func newMiddleware(t *testing.T, dir Directory, rec Recorder) Middleware {
	t.Helper()
	return Middleware{
		Service:  NewService(seededStore(t), dir, quietLogger()),
		Logger:   quietLogger(),
		Recorder: rec,
	}
}

func TestAuthenticate(t *testing.T) {
	mw := newMiddleware(t, staticDirectory{1: RoleEmpleado}, nil)
	tests := []struct {
		name   string
		userID string
		want   int
	}{
		{name: "known user", userID: "1", want: http.StatusOK},
		{name: "anonymous", userID: "", want: http.StatusUnauthorized},
		{name: "garbage id", userID: "abc", want: http.StatusUnauthorized},
		{name: "deleted user", userID: "2", want: http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			mw.Authenticate(okHandler).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/", nil), tc.userID))
			assert.Equal(t, tc.want, rr.Code)
		})
	}

	rr := httptest.NewRecorder()
	mw.Authenticate(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthenticateDirectoryFailure(t *testing.T) {
	mw := newMiddleware(t, brokenDirectory{}, nil)
	rr := httptest.NewRecorder()
	mw.Authenticate(okHandler).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/", nil), "1"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRequireChecks(t *testing.T) {
	dir := staticDirectory{1: RoleEmpleado, 2: RoleSuperAdmin, 3: RoleDirector}
	rec := newCountingRecorder()
	mw := newMiddleware(t, dir, rec)

	tests := []struct {
		name   string
		guard  func(http.Handler) http.Handler
		userID string
		want   int
	}{
		{name: "module allowed", guard: mw.RequireModule(ModuleProjects, ActionCreate), userID: "1", want: http.StatusOK},
		{name: "module denied", guard: mw.RequireModule(ModuleUsers, ActionRead), userID: "1", want: http.StatusForbidden},
		{name: "super admin bypass", guard: mw.RequireModule(Module("cementerio"), ActionDelete), userID: "2", want: http.StatusOK},
		{name: "any granular", guard: mw.RequireAny("users:delete", PermCajasChicasAprobar), userID: "3", want: http.StatusOK},
		{name: "any none held", guard: mw.RequireAny("users:delete", "settings:manage"), userID: "3", want: http.StatusForbidden},
		{name: "any empty list", guard: mw.RequireAny(" ", ""), userID: "1", want: http.StatusOK},
		{name: "all held", guard: mw.RequireAll("reports:read", "reports:export", "finanzas"), userID: "3", want: http.StatusOK},
		{name: "all partially held", guard: mw.RequireAll("reports:read", "settings:read"), userID: "3", want: http.StatusForbidden},
		{name: "anonymous", guard: mw.RequireAny("projects:read"), userID: "", want: http.StatusUnauthorized},
		{name: "anonymous module guard", guard: mw.RequireModule(ModuleProjects, ActionRead), userID: "", want: http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tc.guard(okHandler).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/", nil), tc.userID))
			assert.Equal(t, tc.want, rr.Code)
		})
	}
	assert.Equal(t, 5, rec.decisions[true])
	assert.Equal(t, 5, rec.decisions[false])
}

func TestRequireReusesResolverFromContext(t *testing.T) {
	mw := Middleware{Logger: quietLogger()}
	p := &Principal{UserID: 5, Role: RoleCoordinador, Capabilities: NewCapabilities(Snapshot{ModuleFleet: {"read"}})}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithResolver(req.Context(), NewResolver(p)))

	rr := httptest.NewRecorder()
	mw.RequireModule(ModuleFleet, ActionRead)(okHandler).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNormalizePermissions(t *testing.T) {
	assert.Equal(t, []string{"users:read", "roles:read"}, normalizePermissions([]string{" users:read", "", "roles:read", "users:read "}))
	assert.Empty(t, normalizePermissions(nil))
}

func TestResolverFromContextDefaultsToDenyAll(t *testing.T) {
	r := ResolverFromContext(context.Background())
	require.NotNil(t, r)
	assert.False(t, r.CanAny("users:read"))
}
