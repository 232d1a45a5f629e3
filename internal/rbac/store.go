package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/muniadmin/muniadmin/internal/platform/db"
)

// Store persists permissions, role grants and user overrides.
type Store interface {
	// InsertPermissions inserts every seed absent by (module, action) and
	// reports how many rows were new.
	InsertPermissions(ctx context.Context, seeds []PermissionSeed) (int64, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	// InsertRoleGrants inserts every grant absent by (role, permission) and
	// reports how many rows were new. Existing grants are never altered.
	InsertRoleGrants(ctx context.Context, grants []RoleGrant) (int64, error)
	CountGrantsByRole(ctx context.Context) (map[Role]int64, error)
	ListRolePermissions(ctx context.Context, role Role) ([]RolePermission, error)
	ListUserOverrides(ctx context.Context, userID int64) ([]UserOverride, error)
	// DeleteAll removes user overrides, then role grants, then permissions.
	DeleteAll(ctx context.Context) error
}

// insertChunk bounds the rows of one INSERT so the bind parameters stay well
// below the PostgreSQL limit of 65535.
const insertChunk = 1000

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore constructs a Store backed by the provided pool.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// InsertPermissions implements Store. All chunks share one transaction.
func (s *PostgresStore) InsertPermissions(ctx context.Context, seeds []PermissionSeed) (int64, error) {
	if len(seeds) == 0 {
		return 0, nil
	}
	var inserted int64
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		for start := 0; start < len(seeds); start += insertChunk {
			end := min(start+insertChunk, len(seeds))
			chunk := seeds[start:end]
			args := make([]any, 0, len(chunk)*5)
			for _, seed := range chunk {
				args = append(args, seed.Name, string(seed.Module), string(seed.Action), seed.Description, seed.IsActive)
			}
			query := `INSERT INTO permissions (name, module, action, description, is_active) VALUES ` +
				valuesList(len(chunk), 5) +
				` ON CONFLICT (module, action) DO NOTHING`
			tag, err := tx.Exec(ctx, query, args...)
			if err != nil {
				return classify("insert permissions", err)
			}
			inserted += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListPermissions implements Store.
func (s *PostgresStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, module, action, description, is_active, created_at FROM permissions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("rbac: list permissions: %w", err)
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		var module, action string
		if err := rows.Scan(&p.ID, &p.Name, &module, &action, &p.Description, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("rbac: scan permission: %w", err)
		}
		p.Module, p.Action = Module(module), Action(action)
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rbac: iterate permissions: %w", err)
	}
	return perms, nil
}

// InsertRoleGrants implements Store. All chunks share one transaction.
func (s *PostgresStore) InsertRoleGrants(ctx context.Context, grants []RoleGrant) (int64, error) {
	if len(grants) == 0 {
		return 0, nil
	}
	var inserted int64
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		for start := 0; start < len(grants); start += insertChunk {
			end := min(start+insertChunk, len(grants))
			chunk := grants[start:end]
			args := make([]any, 0, len(chunk)*3)
			for _, g := range chunk {
				args = append(args, string(g.Role), g.PermissionID, g.CanDelegate)
			}
			query := `INSERT INTO role_permissions (role, permission_id, can_delegate) VALUES ` +
				valuesList(len(chunk), 3) +
				` ON CONFLICT (role, permission_id) DO NOTHING`
			tag, err := tx.Exec(ctx, query, args...)
			if err != nil {
				return classify("insert role grants", err)
			}
			inserted += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// CountGrantsByRole implements Store.
func (s *PostgresStore) CountGrantsByRole(ctx context.Context) (map[Role]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT role, COUNT(*) FROM role_permissions GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("rbac: count grants: %w", err)
	}
	defer rows.Close()
	counts := make(map[Role]int64)
	for rows.Next() {
		var role string
		var n int64
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("rbac: scan grant count: %w", err)
		}
		counts[Role(role)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rbac: iterate grant counts: %w", err)
	}
	return counts, nil
}

// ListRolePermissions implements Store. Inactive permissions are excluded.
func (s *PostgresStore) ListRolePermissions(ctx context.Context, role Role) ([]RolePermission, error) {
	const query = `
SELECT rp.role, rp.permission_id, rp.can_delegate,
       p.name, p.module, p.action, p.description, p.is_active, p.created_at
FROM role_permissions rp
JOIN permissions p ON p.id = rp.permission_id
WHERE rp.role = $1 AND p.is_active
ORDER BY p.id`
	rows, err := s.pool.Query(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("rbac: list role permissions: %w", err)
	}
	defer rows.Close()
	var out []RolePermission
	for rows.Next() {
		var rp RolePermission
		var roleName, module, action string
		if err := rows.Scan(&roleName, &rp.PermissionID, &rp.CanDelegate,
			&rp.Permission.Name, &module, &action, &rp.Permission.Description, &rp.Permission.IsActive, &rp.Permission.CreatedAt); err != nil {
			return nil, fmt.Errorf("rbac: scan role permission: %w", err)
		}
		rp.Role = Role(roleName)
		rp.Permission.ID = rp.PermissionID
		rp.Permission.Module, rp.Permission.Action = Module(module), Action(action)
		out = append(out, rp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rbac: iterate role permissions: %w", err)
	}
	return out, nil
}

// ListUserOverrides implements Store.
func (s *PostgresStore) ListUserOverrides(ctx context.Context, userID int64) ([]UserOverride, error) {
	const query = `
SELECT up.permission_id, up.granted, p.name, p.module, p.action, p.description, p.is_active
FROM user_permissions up
JOIN permissions p ON p.id = up.permission_id
WHERE up.user_id = $1
ORDER BY up.id`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: list user overrides: %w", err)
	}
	defer rows.Close()
	var out []UserOverride
	for rows.Next() {
		o := UserOverride{UserID: userID}
		var module, action string
		if err := rows.Scan(&o.Permission.ID, &o.Granted, &o.Permission.Name, &module, &action, &o.Permission.Description, &o.Permission.IsActive); err != nil {
			return nil, fmt.Errorf("rbac: scan user override: %w", err)
		}
		o.Permission.Module, o.Permission.Action = Module(module), Action(action)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rbac: iterate user overrides: %w", err)
	}
	return out, nil
}

// DeleteAll implements Store.
func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, table := range []string{"user_permissions", "role_permissions", "permissions"} {
			if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
				return classify("delete "+table, err)
			}
		}
		return nil
	})
}

func valuesList(rows, cols int) string {
	var b strings.Builder
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation, pgerrcode.ForeignKeyViolation, pgerrcode.NotNullViolation, pgerrcode.CheckViolation:
			return fmt.Errorf("rbac: %s: %w: %w", op, ErrConstraint, err)
		}
	}
	return fmt.Errorf("rbac: %s: %w", op, err)
}

var _ Store = (*PostgresStore)(nil)
