package rbac

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with the same duplicate-skipping
// semantics as PostgresStore. It backs tests and dry runs.
type MemoryStore struct {
	mu        sync.Mutex
	nextID    int64
	perms     []Permission
	byKey     map[string]int64
	grants    []RoleGrant
	grantKeys map[grantKey]struct{}
	overrides []UserOverride

	// Err, when set, is returned by every operation.
	Err error
}

type grantKey struct {
	role Role
	id   int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byKey:     make(map[string]int64),
		grantKeys: make(map[grantKey]struct{}),
	}
}

// InsertPermissions implements Store.
func (m *MemoryStore) InsertPermissions(_ context.Context, seeds []PermissionSeed) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var inserted int64
	for _, seed := range seeds {
		key := permissionKey(seed.Module, seed.Action)
		if _, exists := m.byKey[key]; exists {
			continue
		}
		m.nextID++
		m.byKey[key] = m.nextID
		m.perms = append(m.perms, Permission{
			ID:          m.nextID,
			Name:        seed.Name,
			Module:      seed.Module,
			Action:      seed.Action,
			Description: seed.Description,
			IsActive:    seed.IsActive,
			CreatedAt:   time.Now().UTC(),
		})
		inserted++
	}
	return inserted, nil
}

// ListPermissions implements Store.
func (m *MemoryStore) ListPermissions(context.Context) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]Permission, len(m.perms))
	copy(out, m.perms)
	return out, nil
}

// InsertRoleGrants implements Store. Grants referencing unknown permissions fail
// with ErrConstraint and nothing is inserted.
func (m *MemoryStore) InsertRoleGrants(_ context.Context, grants []RoleGrant) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	for _, g := range grants {
		if m.permissionByID(g.PermissionID) == nil {
			return 0, ErrConstraint
		}
	}
	var inserted int64
	for _, g := range grants {
		key := grantKey{role: g.Role, id: g.PermissionID}
		if _, exists := m.grantKeys[key]; exists {
			continue
		}
		m.grantKeys[key] = struct{}{}
		m.grants = append(m.grants, g)
		inserted++
	}
	return inserted, nil
}

// CountGrantsByRole implements Store.
func (m *MemoryStore) CountGrantsByRole(context.Context) (map[Role]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	counts := make(map[Role]int64)
	for _, g := range m.grants {
		counts[g.Role]++
	}
	return counts, nil
}

// ListRolePermissions implements Store.
func (m *MemoryStore) ListRolePermissions(_ context.Context, role Role) ([]RolePermission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []RolePermission
	for _, g := range m.grants {
		if g.Role != role {
			continue
		}
		p := m.permissionByID(g.PermissionID)
		if p == nil || !p.IsActive {
			continue
		}
		out = append(out, RolePermission{RoleGrant: g, Permission: *p})
	}
	return out, nil
}

// ListUserOverrides implements Store.
func (m *MemoryStore) ListUserOverrides(_ context.Context, userID int64) ([]UserOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []UserOverride
	for _, o := range m.overrides {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

// SetUserOverride records a per-user grant or revocation of the permission
// identified by module and action.
func (m *MemoryStore) SetUserOverride(userID int64, module Module, action Action, granted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byKey[permissionKey(module, action)]
	if !ok {
		return ErrNotFound
	}
	p := m.permissionByID(id)
	for i, o := range m.overrides {
		if o.UserID == userID && o.Permission.ID == id {
			m.overrides[i].Granted = granted
			return nil
		}
	}
	m.overrides = append(m.overrides, UserOverride{UserID: userID, Permission: *p, Granted: granted})
	return nil
}

// DeleteAll implements Store.
func (m *MemoryStore) DeleteAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.overrides = nil
	m.grants = nil
	m.grantKeys = make(map[grantKey]struct{})
	m.perms = nil
	m.byKey = make(map[string]int64)
	return nil
}

func (m *MemoryStore) permissionByID(id int64) *Permission {
	for i := range m.perms {
		if m.perms[i].ID == id {
			return &m.perms[i]
		}
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
