package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffSnapshots(t *testing.T) {
	want := Snapshot{ModuleUsers: {"read", "update"}, ModuleFinanzas: {PermPagosAutorizar}}
	got := Snapshot{ModuleUsers: {"read", "delete"}, ModuleFleet: {"read"}}

	missing, extra := DiffSnapshots(want, got)
	assert.Equal(t, Snapshot{ModuleUsers: {"update"}, ModuleFinanzas: {PermPagosAutorizar}}, missing)
	assert.Equal(t, Snapshot{ModuleUsers: {"delete"}, ModuleFleet: {"read"}}, extra)

	missing, extra = DiffSnapshots(want, want)
	assert.Empty(t, missing)
	assert.Empty(t, extra)
}

func TestAuditMatrixCleanSeed(t *testing.T) {
	svc := NewService(seededStore(t), staticDirectory{}, nil)
	drift, err := svc.AuditMatrix(context.Background(), DefaultMatrix(), DefaultGranularMatrix())
	require.NoError(t, err)
	assert.Empty(t, drift)
}

func TestAuditMatrixReportsChangedRoles(t *testing.T) {
	svc := NewService(seededStore(t), staticDirectory{}, nil)

	m := DefaultMatrix()
	m[ModuleSettings][RoleDirector] = []Action{ActionRead}
	m[ModuleUsers][RoleCoordinador] = nil

	drift, err := svc.AuditMatrix(context.Background(), m, DefaultGranularMatrix())
	require.NoError(t, err)
	require.Len(t, drift, 2)

	assert.Equal(t, RoleDirector, drift[0].Role)
	assert.Equal(t, Snapshot{ModuleSettings: {"read"}}, drift[0].Missing)
	assert.Empty(t, drift[0].Extra)

	assert.Equal(t, RoleCoordinador, drift[1].Role)
	assert.Empty(t, drift[1].Missing)
	assert.Equal(t, Snapshot{ModuleUsers: {"read"}}, drift[1].Extra)
}

func TestAuditMatrixStorageError(t *testing.T) {
	store := seededStore(t)
	store.Err = assert.AnError
	_, err := NewService(store, staticDirectory{}, nil).AuditMatrix(context.Background(), DefaultMatrix(), DefaultGranularMatrix())
	assert.ErrorIs(t, err, assert.AnError)
}
