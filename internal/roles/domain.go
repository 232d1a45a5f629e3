package roles

import "github.com/muniadmin/muniadmin/internal/rbac"

// Role summarises a role tier for the management API.
type Role struct {
	Name        rbac.Role `json:"name"`
	Rank        int       `json:"rank"`
	CanDelegate bool      `json:"can_delegate"`
	GrantCount  int64     `json:"grant_count"`
}
