package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/muniadmin/muniadmin/internal/platform/httpx"
	"github.com/muniadmin/muniadmin/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service  *Service
	Logger   *slog.Logger
	Recorder Recorder
}

// Authenticate resolves the session principal and stores its resolver in the
// request context. Requests without a principal get 401.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolver, status := m.resolve(r)
		if status != 0 {
			httpx.Problem(w, status, http.StatusText(status), "")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithResolver(r.Context(), resolver)))
	})
}

// RequireAny ensures the current user holds at least one of the permissions.
// Like every guard it answers 401 without a principal and 403 on a failed check.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.require(func(res *Resolver) bool {
		return len(normalized) == 0 || res.CanAny(normalized...)
	})
}

// RequireAll ensures the current user holds every permission.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.require(func(res *Resolver) bool {
		return res.CanAll(normalized...)
	})
}

// RequireModule ensures the current user may perform action on module.
func (m Middleware) RequireModule(module Module, action Action) func(http.Handler) http.Handler {
	return m.require(func(res *Resolver) bool {
		return res.Can(module, action)
	})
}

func (m Middleware) require(check func(*Resolver) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resolver, status := m.resolve(r)
			if status != 0 {
				m.observe(false)
				httpx.Problem(w, status, http.StatusText(status), "")
				return
			}
			allowed := check(resolver)
			m.observe(allowed)
			if !allowed {
				httpx.Problem(w, http.StatusForbidden, http.StatusText(http.StatusForbidden), "")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithResolver(r.Context(), resolver)))
		})
	}
}

// resolve returns the request resolver, reusing one already in context. A
// non-zero status reports why no principal is available.
func (m Middleware) resolve(r *http.Request) (*Resolver, int) {
	if existing := ResolverFromContext(r.Context()); existing.Principal() != nil {
		return existing, 0
	}
	userID, ok := m.currentUserID(r)
	if !ok {
		return nil, http.StatusUnauthorized
	}
	principal, err := m.Service.Principal(r.Context(), userID)
	if errors.Is(err, ErrNotFound) {
		// Session outlived its user (deleted or deactivated).
		return nil, http.StatusUnauthorized
	}
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac resolve principal", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return nil, http.StatusInternalServerError
	}
	return NewResolver(principal), 0
}

func (m Middleware) observe(allowed bool) {
	if m.Recorder != nil {
		m.Recorder.ObserveDecision(allowed)
	}
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	id, err := shared.SessionUserID(shared.SessionFromContext(r.Context()))
	if err != nil {
		// Anonymous requests are routine; only a malformed ID is worth logging.
		if m.Logger != nil && err != shared.ErrNoSessionUser {
			m.Logger.Error("rbac session user", slog.Any("error", err))
		}
		return 0, false
	}
	return id, true
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := unique[p]; dup {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
