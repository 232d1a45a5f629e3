package users

import (
	"errors"
	"time"

	"github.com/muniadmin/muniadmin/internal/rbac"
)

// ErrNotFound is returned when the user does not exist or is inactive.
var ErrNotFound = errors.New("users: not found")

// User represents a back-office account and its assigned role.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      rbac.Role `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssignRoleRequest is the body of PUT /users/{id}/role.
type AssignRoleRequest struct {
	Role string `json:"role" validate:"required"`
}
