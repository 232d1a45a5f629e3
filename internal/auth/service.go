package auth

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/muniadmin/muniadmin/internal/rbac"
	"github.com/muniadmin/muniadmin/internal/shared"
)

// ErrUnassignableRole rejects an account whose stored role is outside the
// role set. It matches shared.ErrInvalidCredentials.
var ErrUnassignableRole = fmt.Errorf("%w: unknown stored role", shared.ErrInvalidCredentials)

// Service checks credentials and records login sessions.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate returns the active account matching email and password, with
// its role normalized. Unknown emails, inactive accounts and wrong passwords
// all report shared.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil || !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	// A session for an account without a known role would resolve to
	// nothing on every request.
	role, err := rbac.ParseRole(string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("%w: user %d: %q", ErrUnassignableRole, user.ID, user.Role)
	}
	user.Role = role
	return user, nil
}

// RegisterSession records the login session for auditing.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes the session record.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
