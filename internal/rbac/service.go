package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// Directory resolves the role assigned to a user.
type Directory interface {
	RoleOf(ctx context.Context, userID int64) (Role, error)
}

// Recorder receives authorization telemetry. A nil Recorder is ignored.
type Recorder interface {
	ObserveDecision(allowed bool)
	ObserveSnapshotCache(outcome string)
}

// Service orchestrates RBAC reads and principal resolution.
type Service struct {
	store     Store
	directory Directory
	cache     SnapshotCache
	recorder  Recorder
	logger    *slog.Logger
	group     singleflight.Group
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithCache enables snapshot caching.
func WithCache(cache SnapshotCache) ServiceOption {
	return func(s *Service) { s.cache = cache }
}

// WithRecorder attaches a telemetry recorder.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

// NewService constructs a Service.
func NewService(store Store, directory Directory, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, directory: directory, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPermissions returns every seeded permission.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// RoleGrants returns the grants held by role.
func (s *Service) RoleGrants(ctx context.Context, role Role) ([]RolePermission, error) {
	if role.Rank() == len(Roles) {
		return nil, ErrUnknownRole
	}
	return s.store.ListRolePermissions(ctx, role)
}

// GrantCounts returns the number of grants per role.
func (s *Service) GrantCounts(ctx context.Context) (map[Role]int64, error) {
	return s.store.CountGrantsByRole(ctx)
}

// SnapshotForRole returns the role-default snapshot, without user overrides.
func (s *Service) SnapshotForRole(ctx context.Context, role Role) (Snapshot, error) {
	grants, err := s.RoleGrants(ctx, role)
	if err != nil {
		return nil, err
	}
	return BuildSnapshot(grants, nil), nil
}

// Principal resolves the user's role and merged capabilities, served from the
// cache while fresh. Concurrent misses for one user share a single load.
func (s *Service) Principal(ctx context.Context, userID int64) (*Principal, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, userID)
		switch {
		case err != nil:
			s.logger.Warn("rbac snapshot cache get", slog.Int64("user_id", userID), slog.Any("error", err))
			s.observeCache("error")
		case ok:
			s.observeCache("hit")
			return cached.Principal(), nil
		default:
			s.observeCache("miss")
		}
	}
	v, err, _ := s.group.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		return s.loadPrincipal(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	cached := v.(CachedPrincipal)
	return cached.Principal(), nil
}

// Invalidate drops the cached snapshot of a user.
func (s *Service) Invalidate(ctx context.Context, userID int64) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, userID)
}

func (s *Service) loadPrincipal(ctx context.Context, userID int64) (CachedPrincipal, error) {
	role, err := s.directory.RoleOf(ctx, userID)
	if err != nil {
		return CachedPrincipal{}, fmt.Errorf("rbac: resolve role: %w", err)
	}
	grants, err := s.store.ListRolePermissions(ctx, role)
	if err != nil {
		return CachedPrincipal{}, err
	}
	overrides, err := s.store.ListUserOverrides(ctx, userID)
	if err != nil {
		return CachedPrincipal{}, err
	}
	cached := CachedPrincipal{UserID: userID, Role: role, Modules: BuildSnapshot(grants, overrides)}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cached); err != nil {
			s.logger.Warn("rbac snapshot cache set", slog.Int64("user_id", userID), slog.Any("error", err))
		}
	}
	return cached, nil
}

func (s *Service) observeCache(outcome string) {
	if s.recorder != nil {
		s.recorder.ObserveSnapshotCache(outcome)
	}
}

// BuildSnapshot merges role grants with user overrides. Granted overrides add
// active permissions; revoked overrides remove the entry. Entries keep grant order.
func BuildSnapshot(grants []RolePermission, overrides []UserOverride) Snapshot {
	out := Snapshot{}
	for _, g := range grants {
		if !g.Permission.IsActive {
			continue
		}
		addEntry(out, g.Permission)
	}
	for _, o := range overrides {
		if o.Granted {
			if o.Permission.IsActive {
				addEntry(out, o.Permission)
			}
			continue
		}
		removeEntry(out, o.Permission)
	}
	return out
}

func addEntry(s Snapshot, p Permission) {
	entry := p.SnapshotEntry()
	if slices.Contains(s[p.Module], entry) {
		return
	}
	s[p.Module] = append(s[p.Module], entry)
}

func removeEntry(s Snapshot, p Permission) {
	entries, ok := s[p.Module]
	if !ok {
		return
	}
	entry := p.SnapshotEntry()
	entries = slices.DeleteFunc(entries, func(e string) bool { return e == entry })
	if len(entries) == 0 {
		delete(s, p.Module)
		return
	}
	s[p.Module] = entries
}
