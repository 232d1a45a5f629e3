package roles

import (
	"context"

	"github.com/muniadmin/muniadmin/internal/rbac"
)

// GrantSource exposes the role data held by the RBAC service.
type GrantSource interface {
	GrantCounts(ctx context.Context) (map[rbac.Role]int64, error)
	SnapshotForRole(ctx context.Context, role rbac.Role) (rbac.Snapshot, error)
}

// Service handles role business logic.
type Service struct {
	source GrantSource
}

// NewService builds Service instance.
func NewService(source GrantSource) *Service {
	return &Service{source: source}
}

// ListRoles returns every role in rank order with its grant count. Roles
// without grants are listed with a zero count.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	counts, err := s.source.GrantCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Role, 0, len(rbac.Roles))
	for _, r := range rbac.Roles {
		out = append(out, Role{
			Name:        r,
			Rank:        r.Rank(),
			CanDelegate: r.CanDelegate(),
			GrantCount:  counts[r],
		})
	}
	return out, nil
}

// Snapshot returns the capability snapshot a user of role would receive
// without per-user overrides.
func (s *Service) Snapshot(ctx context.Context, role rbac.Role) (rbac.Snapshot, error) {
	return s.source.SnapshotForRole(ctx, role)
}
