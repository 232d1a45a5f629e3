package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// matrixSize counts the grants a full seed of the default matrices produces.
func matrixSize(m Matrix, g GranularMatrix) (int64, map[Role]int64) {
	byRole := make(map[Role]int64)
	var total int64
	for _, role := range Roles {
		for _, module := range Modules {
			byRole[role] += int64(len(m.Actions(module, role)))
		}
		byRole[role] += int64(len(g[role]))
		total += byRole[role]
	}
	return total, byRole
}

func TestSeederRunFreshStore(t *testing.T) {
	store := NewMemoryStore()
	result, err := NewSeeder(store, nil).Run(context.Background(), SeedOptions{})
	require.NoError(t, err)

	total, byRole := matrixSize(DefaultMatrix(), DefaultGranularMatrix())
	assert.Equal(t, int64(len(DefaultCatalog())), result.PermissionsInserted)
	assert.Equal(t, total, result.GrantsInserted)
	assert.Zero(t, result.GrantsSkipped)
	for _, role := range Roles {
		assert.Equal(t, byRole[role], result.GrantsByRole[role], role)
	}
	assert.Equal(t, int64(len(Modules)*len(Actions)+len(GranularPaths)), byRole[RoleSuperAdmin])
	assert.Zero(t, result.GrantsByRole[Role("INVITADO")])
}

func TestSeederRunIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	seeder := NewSeeder(store, nil)
	first, err := seeder.Run(context.Background(), SeedOptions{})
	require.NoError(t, err)

	second, err := seeder.Run(context.Background(), SeedOptions{})
	require.NoError(t, err)
	assert.Zero(t, second.PermissionsInserted)
	assert.Zero(t, second.GrantsInserted)
	assert.Equal(t, first.GrantsByRole, second.GrantsByRole)

	perms, err := store.ListPermissions(context.Background())
	require.NoError(t, err)
	assert.Len(t, perms, len(DefaultCatalog()))
}

func TestSeederCleanResetsState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seeder := NewSeeder(store, nil)
	_, err := seeder.Run(ctx, SeedOptions{})
	require.NoError(t, err)
	require.NoError(t, store.SetUserOverride(9, ModuleUsers, ActionDelete, true))

	result, err := seeder.Run(ctx, SeedOptions{Clean: true})
	require.NoError(t, err)
	total, _ := matrixSize(DefaultMatrix(), DefaultGranularMatrix())
	assert.Equal(t, int64(len(DefaultCatalog())), result.PermissionsInserted)
	assert.Equal(t, total, result.GrantsInserted)

	overrides, err := store.ListUserOverrides(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func TestSeederKeepsExistingGrantFlags(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.InsertPermissions(ctx, DefaultCatalog())
	require.NoError(t, err)
	perms, err := store.ListPermissions(ctx)
	require.NoError(t, err)
	var usersRead int64
	for _, p := range perms {
		if p.Key() == "users:read" {
			usersRead = p.ID
		}
	}
	require.NotZero(t, usersRead)
	_, err = store.InsertRoleGrants(ctx, []RoleGrant{{Role: RoleAdmin, PermissionID: usersRead, CanDelegate: false}})
	require.NoError(t, err)

	_, err = NewSeeder(store, nil).Run(ctx, SeedOptions{})
	require.NoError(t, err)

	grants, err := store.ListRolePermissions(ctx, RoleAdmin)
	require.NoError(t, err)
	for _, g := range grants {
		if g.PermissionID == usersRead {
			assert.False(t, g.CanDelegate)
			continue
		}
		assert.True(t, g.CanDelegate, g.Permission.Name)
	}
}

func TestBuildGrantsDelegation(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.InsertPermissions(context.Background(), DefaultCatalog())
	require.NoError(t, err)
	perms, err := store.ListPermissions(context.Background())
	require.NoError(t, err)

	grants, skipped := BuildGrants(perms, DefaultMatrix(), DefaultGranularMatrix())
	assert.Zero(t, skipped)
	for _, g := range grants {
		want := g.Role == RoleSuperAdmin || g.Role == RoleAdmin
		assert.Equal(t, want, g.CanDelegate, "%s/%d", g.Role, g.PermissionID)
	}
}

func TestBuildGrantsSkipsDrift(t *testing.T) {
	perms := []Permission{
		{ID: 1, Module: ModuleUsers, Action: ActionRead, IsActive: true},
		{ID: 2, Module: ModuleFinanzas, Action: "cajas_chicas.aprobar", IsActive: true},
	}
	m := Matrix{
		ModuleUsers:         {RoleAdmin: {ActionRead, Action("archive")}},
		Module("cementerio"): {RoleAdmin: {ActionRead}},
	}
	g := GranularMatrix{
		RoleDirector: {PermCajasChicasAprobar, "finanzas.inexistente", "sinpunto"},
	}

	grants, skipped := BuildGrants(perms, m, g)
	assert.Equal(t, 4, skipped)
	assert.Equal(t, []RoleGrant{
		{Role: RoleAdmin, PermissionID: 1, CanDelegate: true},
		{Role: RoleDirector, PermissionID: 2, CanDelegate: false},
	}, grants)
}

func TestSeederDriftedMatrixStillSeeds(t *testing.T) {
	store := NewMemoryStore()
	m := DefaultMatrix()
	m[Module("cementerio")] = map[Role][]Action{RoleAdmin: {ActionRead}}
	result, err := NewSeeder(store, nil, WithMatrix(m, DefaultGranularMatrix())).Run(context.Background(), SeedOptions{})
	require.NoError(t, err)

	total, _ := matrixSize(DefaultMatrix(), DefaultGranularMatrix())
	assert.Equal(t, 1, result.GrantsSkipped)
	assert.Equal(t, total, result.GrantsInserted)
}

func TestSeederCustomCatalog(t *testing.T) {
	store := NewMemoryStore()
	catalog := BuildCatalog([]Module{ModuleUsers}, []Action{ActionRead})
	result, err := NewSeeder(store, nil, WithCatalog(catalog)).Run(context.Background(), SeedOptions{})
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.PermissionsInserted)
	// users:read is held by four roles in the default matrix.
	assert.Equal(t, int64(4), result.GrantsInserted)
	assert.Positive(t, result.GrantsSkipped)
}

func TestSeederPropagatesStorageErrors(t *testing.T) {
	boom := errors.New("storage unavailable")
	store := NewMemoryStore()
	store.Err = boom

	_, err := NewSeeder(store, nil).Run(context.Background(), SeedOptions{Clean: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "rbac: clean")

	_, err = NewSeeder(store, nil).Run(context.Background(), SeedOptions{})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "rbac: seed permissions")
}

func TestSeedCleanThenSnapshotMatchesMatrix(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seeder := NewSeeder(store, nil)
	_, err := seeder.Run(ctx, SeedOptions{})
	require.NoError(t, err)
	_, err = seeder.Run(ctx, SeedOptions{Clean: true})
	require.NoError(t, err)

	dir := staticDirectory{42: RoleEmpleado}
	p, err := NewService(store, dir, nil).Principal(ctx, 42)
	require.NoError(t, err)

	got := p.Capabilities.Snapshot()
	want := Expected(DefaultMatrix(), DefaultGranularMatrix(), RoleEmpleado)
	require.Len(t, got, len(want))
	for module, entries := range want {
		assert.ElementsMatch(t, entries, got[module], module)
	}
	assert.Contains(t, got[ModuleFinanzas], PermCajasChicasRendir)
	assert.Contains(t, got[ModulePayroll], PermPrestamosRegistrar)
}
