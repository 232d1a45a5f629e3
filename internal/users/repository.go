package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/muniadmin/muniadmin/internal/platform/db"
	"github.com/muniadmin/muniadmin/internal/rbac"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// ListUsers returns all users.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.q.Query(ctx, `SELECT id, email, name, role, is_active, created_at, updated_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var user User
		var role string
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("users: list scan: %w", err)
		}
		user.Role = rbac.Role(role)
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	return users, nil
}

// RoleOf returns the role of an active user. Missing and inactive users
// yield an error matching both ErrNotFound and rbac.ErrNotFound.
func (r *Repository) RoleOf(ctx context.Context, userID int64) (rbac.Role, error) {
	return r.scanRole(ctx, `SELECT role FROM users WHERE id = $1 AND is_active`, userID)
}

// CurrentRole returns the stored role of a user, active or not.
func (r *Repository) CurrentRole(ctx context.Context, userID int64) (rbac.Role, error) {
	return r.scanRole(ctx, `SELECT role FROM users WHERE id = $1`, userID)
}

func (r *Repository) scanRole(ctx context.Context, query string, userID int64) (rbac.Role, error) {
	var raw string
	err := r.q.QueryRow(ctx, query, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("users: role of %d: %w: %w", userID, ErrNotFound, rbac.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("users: role of %d: %w", userID, err)
	}
	role, err := rbac.ParseRole(raw)
	if err != nil {
		return "", fmt.Errorf("users: role of %d: %q: %w", userID, raw, err)
	}
	return role, nil
}

// UpdateRole assigns role to the user.
func (r *Repository) UpdateRole(ctx context.Context, userID int64, role rbac.Role) error {
	tag, err := r.q.Exec(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, userID, string(role))
	if err != nil {
		return fmt.Errorf("users: update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureUser inserts an active account unless the email is already taken and
// reports whether a row was created. Existing accounts keep their role and password.
func (r *Repository) EnsureUser(ctx context.Context, email, name, passwordHash string, role rbac.Role) (bool, error) {
	tag, err := r.q.Exec(ctx, `INSERT INTO users (email, name, password_hash, role, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
ON CONFLICT (email) DO NOTHING`, email, name, passwordHash, string(role))
	if err != nil {
		return false, fmt.Errorf("users: ensure %s: %w", email, err)
	}
	return tag.RowsAffected() == 1, nil
}
