package users

import (
	"context"
	"log/slog"

	"github.com/muniadmin/muniadmin/internal/rbac"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	CurrentRole(ctx context.Context, userID int64) (rbac.Role, error)
	UpdateRole(ctx context.Context, userID int64, role rbac.Role) error
}

// Invalidator drops cached capability snapshots.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// Service handles user business logic.
type Service struct {
	repo        RepositoryPort
	invalidator Invalidator
	logger      *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, invalidator Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, invalidator: invalidator, logger: logger}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// CurrentRole returns the role a user holds now.
func (s *Service) CurrentRole(ctx context.Context, userID int64) (rbac.Role, error) {
	return s.repo.CurrentRole(ctx, userID)
}

// AssignRole changes a user's role and drops the user's cached snapshot so
// the next request sees the new grants.
func (s *Service) AssignRole(ctx context.Context, userID int64, role rbac.Role) error {
	if err := s.repo.UpdateRole(ctx, userID, role); err != nil {
		return err
	}
	if s.invalidator == nil {
		return nil
	}
	if err := s.invalidator.Invalidate(ctx, userID); err != nil {
		// The entry still expires with its TTL.
		s.logger.Warn("invalidate snapshot", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	return nil
}
