package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/muniadmin/muniadmin/internal/platform/httpx"
)

// Handler exposes permission listings and the caller's capability snapshot.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Authenticate)
		r.Get("/me", h.mySnapshot)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireModule(ModulePermissions, ActionRead))
		r.Get("/", h.listPermissions)
		r.Get("/roles/{role}", h.listRolePermissions)
	})
}

// SnapshotResponse is the body of GET /permissions/me.
type SnapshotResponse struct {
	UserID  int64    `json:"user_id"`
	Role    Role     `json:"role"`
	Modules Snapshot `json:"modules"`
}

type rolePermissionsResponse struct {
	Role        Role             `json:"role"`
	CanDelegate bool             `json:"can_delegate"`
	Grants      []RolePermission `json:"grants"`
}

func (h *Handler) mySnapshot(w http.ResponseWriter, r *http.Request) {
	p := ResolverFromContext(r.Context()).Principal()
	if p == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, SnapshotResponse{
		UserID:  p.UserID,
		Role:    p.Role,
		Modules: p.Capabilities.Snapshot(),
	})
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if r.URL.Query().Get("sort") == "description" {
		sortByDescription(perms)
	}
	if perms == nil {
		perms = []Permission{}
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) listRolePermissions(w http.ResponseWriter, r *http.Request) {
	role, err := ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Unknown Role", chi.URLParam(r, "role"))
		return
	}
	grants, err := h.service.RoleGrants(r.Context(), role)
	if err != nil {
		if errors.Is(err, ErrUnknownRole) {
			httpx.Problem(w, http.StatusBadRequest, "Unknown Role", string(role))
			return
		}
		h.logger.Error("list role permissions", slog.String("role", string(role)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if grants == nil {
		grants = []RolePermission{}
	}
	httpx.JSON(w, http.StatusOK, rolePermissionsResponse{Role: role, CanDelegate: role.CanDelegate(), Grants: grants})
}

// sortByDescription orders permissions by description using Spanish collation,
// so accented labels such as "nómina" sort next to their unaccented neighbours.
func sortByDescription(perms []Permission) {
	c := collate.New(language.Spanish, collate.IgnoreCase)
	slices.SortStableFunc(perms, func(a, b Permission) int {
		return c.CompareString(a.Description, b.Description)
	})
}
