package rbac

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("rbac: not found")
	// ErrUnknownRole is returned when a role name is outside the closed role set.
	ErrUnknownRole = errors.New("rbac: unknown role")
	// ErrConstraint wraps storage constraint violations other than the tolerated duplicates.
	ErrConstraint = errors.New("rbac: constraint violation")
)

// Module names a functional area of the application.
type Module string

// Action names an operation performable within a module.
type Action string

// Role is a privilege tier assigned to a user.
type Role string

const (
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RoleAdmin       Role = "ADMIN"
	RoleDirector    Role = "DIRECTOR"
	RoleCoordinador Role = "COORDINADOR"
	RoleEmpleado    Role = "EMPLEADO"
	RoleCiudadano   Role = "CIUDADANO"
)

// Roles lists every role from the broadest to the narrowest privilege set.
var Roles = []Role{
	RoleSuperAdmin,
	RoleAdmin,
	RoleDirector,
	RoleCoordinador,
	RoleEmpleado,
	RoleCiudadano,
}

// ParseRole validates a role name, accepting any letter case.
func ParseRole(raw string) (Role, error) {
	candidate := Role(strings.ToUpper(strings.TrimSpace(raw)))
	for _, r := range Roles {
		if r == candidate {
			return r, nil
		}
	}
	return "", ErrUnknownRole
}

// Rank orders roles by privilege breadth; 0 is the broadest. Unknown roles rank last.
func (r Role) Rank() int {
	for i, candidate := range Roles {
		if candidate == r {
			return i
		}
	}
	return len(Roles)
}

// CanDelegate reports whether grants held by the role may be re-granted to others.
func (r Role) CanDelegate() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// Permission is a persisted module/action pair.
type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Module      Module    `json:"module"`
	Action      Action    `json:"action"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Key returns the "<module>:<action>" lookup key used by the matrix applier.
func (p Permission) Key() string {
	return permissionKey(p.Module, p.Action)
}

// IsGranular reports whether the permission is a dotted granular permission.
func (p Permission) IsGranular() bool {
	return strings.Contains(string(p.Action), ".")
}

// SnapshotEntry returns the string placed in the module bucket of a capability
// snapshot: the bare action keyword, or the full dotted path for granular permissions.
func (p Permission) SnapshotEntry() string {
	if p.IsGranular() {
		return string(p.Module) + "." + string(p.Action)
	}
	return string(p.Action)
}

// PermissionSeed is a permission candidate produced by the catalog builder.
type PermissionSeed struct {
	Name        string
	Module      Module
	Action      Action
	Description string
	IsActive    bool
}

// RoleGrant ties a permission to a role.
type RoleGrant struct {
	Role         Role  `json:"role"`
	PermissionID int64 `json:"permission_id"`
	CanDelegate  bool  `json:"can_delegate"`
}

// RolePermission is a grant joined with its permission, as listed for a role.
type RolePermission struct {
	RoleGrant
	Permission Permission `json:"permission"`
}

// UserOverride grants (Granted) or revokes (!Granted) a permission for one user
// on top of the role defaults.
type UserOverride struct {
	UserID     int64
	Permission Permission
	Granted    bool
}

func permissionKey(module Module, action Action) string {
	return string(module) + ":" + string(action)
}
