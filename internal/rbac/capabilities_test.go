package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilitiesLookupIsTotal(t *testing.T) {
	caps := NewCapabilities(Snapshot{ModuleUsers: {"read", "create"}})

	assert.Equal(t, []string{"read", "create"}, caps.Lookup(ModuleUsers))
	got := caps.Lookup(Module("cementerio"))
	require.NotNil(t, got)
	assert.Empty(t, got)

	var zero Capabilities
	assert.Empty(t, zero.Lookup(ModuleUsers))
	assert.False(t, zero.Any(ModuleUsers))
	assert.False(t, zero.Has(ModuleUsers, "read"))
}

func TestCapabilitiesLookupReturnsCopy(t *testing.T) {
	caps := NewCapabilities(Snapshot{ModuleUsers: {"read"}})
	entries := caps.Lookup(ModuleUsers)
	entries[0] = "delete"

	assert.True(t, caps.Has(ModuleUsers, "read"))
	assert.False(t, caps.Has(ModuleUsers, "delete"))
	assert.Equal(t, []string{"read"}, caps.Lookup(ModuleUsers))
}

func TestNewCapabilitiesNormalizes(t *testing.T) {
	source := Snapshot{
		ModuleUsers:    {"read", "", "read", "update"},
		ModuleFleet:    {""},
		ModuleFinanzas: {},
	}
	caps := NewCapabilities(source)

	assert.Equal(t, []string{"read", "update"}, caps.Lookup(ModuleUsers))
	assert.False(t, caps.Any(ModuleFleet))
	assert.False(t, caps.Any(ModuleFinanzas))
	assert.Equal(t, Snapshot{ModuleUsers: {"read", "update"}}, caps.Snapshot())

	source[ModuleUsers][0] = "delete"
	assert.True(t, caps.Has(ModuleUsers, "read"))
}

func TestCapabilitiesMixedBucket(t *testing.T) {
	caps := NewCapabilities(Snapshot{ModuleFinanzas: {"read", PermCajasChicasAprobar}})

	assert.True(t, caps.Has(ModuleFinanzas, "read"))
	assert.True(t, caps.Has(ModuleFinanzas, PermCajasChicasAprobar))
	assert.False(t, caps.Has(ModuleFinanzas, "cajas_chicas.aprobar"))
	assert.True(t, caps.match(lookupKey{module: ModuleFinanzas}))
}
