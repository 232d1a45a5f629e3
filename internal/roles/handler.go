package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/muniadmin/muniadmin/internal/platform/httpx"
	"github.com/muniadmin/muniadmin/internal/rbac"
)

// Handler manages role management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("roles:read", "roles:manage"))
		r.Get("/", h.listRoles)
		r.Get("/{role}/snapshot", h.roleSnapshot)
	})
}

type snapshotResponse struct {
	Role    rbac.Role     `json:"role"`
	Modules rbac.Snapshot `json:"modules"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *Handler) roleSnapshot(w http.ResponseWriter, r *http.Request) {
	role, err := rbac.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Unknown Role", chi.URLParam(r, "role"))
		return
	}
	snapshot, err := h.service.Snapshot(r.Context(), role)
	if err != nil {
		h.logger.Error("role snapshot failed", slog.String("role", string(role)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snapshotResponse{Role: role, Modules: snapshot})
}
