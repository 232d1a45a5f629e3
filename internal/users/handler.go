package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/muniadmin/muniadmin/internal/platform/httpx"
	"github.com/muniadmin/muniadmin/internal/rbac"
)

// Handler manages user management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireModule(rbac.ModuleUsers, rbac.ActionRead))
		r.Get("/", h.listUsers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("users:update", "roles:manage"))
		r.Put("/{id}/role", h.assignRole)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if users == nil {
		users = []User{}
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid User ID", chi.URLParam(r, "id"))
		return
	}
	var req AssignRoleRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Unknown Role", req.Role)
		return
	}
	// Below SUPER_ADMIN, both the granted role and the target's current role
	// must rank strictly under the caller.
	caller := rbac.ResolverFromContext(r.Context())
	p := caller.Principal()
	if p == nil || (!caller.IsSuperAdmin() && role.Rank() <= p.Role.Rank()) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	current, err := h.service.CurrentRole(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("load current role failed", slog.Int64("user_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !caller.IsSuperAdmin() && current.Rank() <= p.Role.Rank() {
		h.logger.Warn("role change above caller tier",
			slog.Int64("user_id", id),
			slog.String("current", string(current)),
			slog.String("caller", string(p.Role)))
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	if err := h.service.AssignRole(r.Context(), id, role); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("assign role failed", slog.Int64("user_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("role assigned", slog.Int64("user_id", id), slog.String("role", string(role)))
	w.WriteHeader(http.StatusNoContent)
}
