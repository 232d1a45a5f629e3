package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/muniadmin/muniadmin/internal/platform/httpx"
	"github.com/muniadmin/muniadmin/internal/shared"
)

// Invalidator drops a user's cached capability snapshot.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	invalidator    Invalidator
}

// NewHandler constructs a Handler instance. invalidator may be nil.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, invalidator Invalidator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		invalidator:    invalidator,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.issueCSRF)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

func (h *Handler) issueCSRF(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrfManager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		h.logger.Error("issue csrf token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, csrfResponse{Token: token})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.RespondError(w, errors.New("session missing"))
		return
	}

	var req LoginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrUnassignableRole) {
			h.logger.Warn("login blocked by stored role", slog.String("email", req.Email), slog.Any("error", err))
		} else {
			h.logger.Info("login rejected", slog.String("email", req.Email))
		}
		httpx.Problem(w, http.StatusUnauthorized, "Invalid Credentials", "")
		return
	}

	if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
		h.logger.Error("renew session", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	// A fresh login always starts from current grants.
	h.invalidate(r, user.ID)

	httpx.JSON(w, http.StatusOK, LoginResponse{UserID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		if id, err := shared.SessionUserID(sess); err == nil {
			h.invalidate(r, id)
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invalidate(r *http.Request, userID int64) {
	if h.invalidator == nil {
		return
	}
	if err := h.invalidator.Invalidate(r.Context(), userID); err != nil {
		h.logger.Warn("invalidate snapshot", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}
