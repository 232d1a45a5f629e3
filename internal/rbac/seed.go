package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// SeedOptions controls a seed run.
type SeedOptions struct {
	// Clean deletes overrides, grants and permissions before seeding.
	Clean bool
}

// SeedResult summarises a seed run.
type SeedResult struct {
	PermissionsInserted int64
	GrantsInserted      int64
	// GrantsSkipped counts matrix entries whose permission was never seeded.
	GrantsSkipped int
	GrantsByRole  map[Role]int64
}

// Seeder materialises the permission catalog and the role matrix into a Store.
type Seeder struct {
	store    Store
	logger   *slog.Logger
	catalog  []PermissionSeed
	matrix   Matrix
	granular GranularMatrix
}

// SeederOption customises a Seeder.
type SeederOption func(*Seeder)

// WithCatalog replaces the default catalog.
func WithCatalog(seeds []PermissionSeed) SeederOption {
	return func(s *Seeder) { s.catalog = seeds }
}

// WithMatrix replaces the default role matrices.
func WithMatrix(m Matrix, g GranularMatrix) SeederOption {
	return func(s *Seeder) {
		s.matrix = m
		s.granular = g
	}
}

// NewSeeder builds a Seeder using DefaultCatalog and DefaultMatrix unless overridden.
func NewSeeder(store Store, logger *slog.Logger, opts ...SeederOption) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Seeder{
		store:    store,
		logger:   logger,
		catalog:  DefaultCatalog(),
		matrix:   DefaultMatrix(),
		granular: DefaultGranularMatrix(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes clean (optional), catalog seeding, matrix application and the report.
func (s *Seeder) Run(ctx context.Context, opts SeedOptions) (SeedResult, error) {
	var result SeedResult
	if opts.Clean {
		if err := s.Clean(ctx); err != nil {
			return result, err
		}
	}
	inserted, err := s.SeedPermissions(ctx)
	if err != nil {
		return result, err
	}
	result.PermissionsInserted = inserted

	grants, skipped, err := s.ApplyMatrix(ctx)
	if err != nil {
		return result, err
	}
	result.GrantsInserted = grants
	result.GrantsSkipped = skipped

	counts, err := s.Report(ctx)
	if err != nil {
		return result, err
	}
	result.GrantsByRole = counts
	return result, nil
}

// Clean removes user overrides, role grants and permissions, in that order.
func (s *Seeder) Clean(ctx context.Context) error {
	if err := s.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("rbac: clean: %w", err)
	}
	s.logger.Info("rbac tables cleaned")
	return nil
}

// SeedPermissions inserts the catalog, skipping pairs that already exist.
func (s *Seeder) SeedPermissions(ctx context.Context) (int64, error) {
	inserted, err := s.store.InsertPermissions(ctx, s.catalog)
	if err != nil {
		return 0, fmt.Errorf("rbac: seed permissions: %w", err)
	}
	s.logger.Info("permissions seeded", slog.Int("candidates", len(s.catalog)), slog.Int64("inserted", inserted))
	return inserted, nil
}

// ApplyMatrix converts the matrices into role grants and inserts them,
// skipping existing grants. Matrix entries without a seeded permission are
// skipped silently and only counted.
func (s *Seeder) ApplyMatrix(ctx context.Context) (int64, int, error) {
	perms, err := s.store.ListPermissions(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("rbac: apply matrix: %w", err)
	}
	grants, skipped := BuildGrants(perms, s.matrix, s.granular)
	inserted, err := s.store.InsertRoleGrants(ctx, grants)
	if err != nil {
		return 0, skipped, fmt.Errorf("rbac: apply matrix: %w", err)
	}
	s.logger.Info("role grants applied",
		slog.Int("candidates", len(grants)),
		slog.Int64("inserted", inserted),
		slog.Int("unresolved", skipped))
	return inserted, skipped, nil
}

// Report counts grants per role and logs them in role order.
func (s *Seeder) Report(ctx context.Context) (map[Role]int64, error) {
	counts, err := s.store.CountGrantsByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("rbac: report: %w", err)
	}
	for _, role := range Roles {
		s.logger.Info("role grants", slog.String("role", string(role)), slog.Int64("count", counts[role]))
	}
	return counts, nil
}

// BuildGrants resolves matrix triples against persisted permissions. The walk
// order is modules, then roles, then actions, then the granular matrix by role.
func BuildGrants(perms []Permission, m Matrix, g GranularMatrix) ([]RoleGrant, int) {
	index := make(map[string]int64, len(perms))
	for _, p := range perms {
		index[p.Key()] = p.ID
	}
	var grants []RoleGrant
	skipped := 0
	add := func(role Role, key string) {
		id, ok := index[key]
		if !ok {
			skipped++
			return
		}
		grants = append(grants, RoleGrant{Role: role, PermissionID: id, CanDelegate: role.CanDelegate()})
	}
	for _, module := range matrixModules(m) {
		for _, role := range Roles {
			for _, action := range m.Actions(module, role) {
				add(role, permissionKey(module, action))
			}
		}
	}
	for _, role := range Roles {
		for _, path := range g[role] {
			seed, ok := GranularSeed(path)
			if !ok {
				skipped++
				continue
			}
			add(role, permissionKey(seed.Module, seed.Action))
		}
	}
	return grants, skipped
}

// matrixModules returns the catalog modules present in m followed by any
// modules outside the catalog, so drifted entries are still visited.
func matrixModules(m Matrix) []Module {
	seen := make(map[Module]struct{}, len(m))
	out := make([]Module, 0, len(m))
	for _, module := range Modules {
		if _, ok := m[module]; ok {
			out = append(out, module)
			seen[module] = struct{}{}
		}
	}
	var extra []Module
	for module := range m {
		if _, ok := seen[module]; !ok {
			extra = append(extra, module)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}
