package rbac

import (
	"context"
	"slices"
)

// Drift describes how the persisted grants of a role differ from the matrix.
type Drift struct {
	Role Role `json:"role"`
	// Missing holds matrix entries with no persisted grant.
	Missing Snapshot `json:"missing"`
	// Extra holds persisted grants the matrix does not list.
	Extra Snapshot `json:"extra"`
}

// Empty reports whether the role matches the matrix exactly.
func (d Drift) Empty() bool {
	return len(d.Missing) == 0 && len(d.Extra) == 0
}

// DiffSnapshots returns the entries of want absent from got, and of got absent from want.
func DiffSnapshots(want, got Snapshot) (missing, extra Snapshot) {
	return subtract(want, got), subtract(got, want)
}

func subtract(a, b Snapshot) Snapshot {
	out := Snapshot{}
	for module, entries := range a {
		for _, e := range entries {
			if slices.Contains(b[module], e) || slices.Contains(out[module], e) {
				continue
			}
			out[module] = append(out[module], e)
		}
	}
	return out
}

// AuditMatrix compares every role's persisted grants with m and g and returns
// the roles that drifted, in role order.
func (s *Service) AuditMatrix(ctx context.Context, m Matrix, g GranularMatrix) ([]Drift, error) {
	var out []Drift
	for _, role := range Roles {
		got, err := s.SnapshotForRole(ctx, role)
		if err != nil {
			return nil, err
		}
		missing, extra := DiffSnapshots(Expected(m, g, role), got)
		d := Drift{Role: role, Missing: missing, Extra: extra}
		if !d.Empty() {
			out = append(out, d)
		}
	}
	return out, nil
}
