package world_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/npcmod/internal/game/world"
)

const validWorldYAML = `
world:
  id: hyland_point
  name: Hyland Point
  starting_cash: 500
  buildings:
    - id: north_apartments
      name: North Apartments
      region: northtown
      entrance: [-30.0, 1.065, 60.0]
  vending_machines:
    - id: vm_northtown_1
      name: Northtown Vending
      position: [-25.5, 1.065, 64.0]
    - id: vm_docks
      position: [10, 0, 10]
  parking_lots:
    - id: manor_parking
      name: Manor Parking
      position: [120.0, 1.0, -40.0]
      capacity: 6
  npcs: [kyle_cooley, ludwig_meyer]
`

func loadValid(t *testing.T) *world.Manager {
	t.Helper()
	w, err := world.LoadFromBytes([]byte(validWorldYAML))
	require.NoError(t, err)
	m, err := world.NewManager(w)
	require.NoError(t, err)
	return m
}

func TestLoadFromBytes_Valid(t *testing.T) {
	w, err := world.LoadFromBytes([]byte(validWorldYAML))
	require.NoError(t, err)
	assert.Equal(t, "hyland_point", w.ID)
	assert.Equal(t, 500.0, w.StartingCash)
	require.Len(t, w.Buildings, 1)
	assert.Equal(t, world.Vec3{X: -30.0, Y: 1.065, Z: 60.0}, w.Buildings[0].Entrance)
	assert.Equal(t, []string{"kyle_cooley", "ludwig_meyer"}, w.NPCs)
}

func TestLoadFromBytes_MissingWorldKey(t *testing.T) {
	_, err := world.LoadFromBytes([]byte("zone: {}\n"))
	assert.Error(t, err)
}

func TestLoadFromBytes_BadPosition(t *testing.T) {
	_, err := world.LoadFromBytes([]byte(`
world:
  id: w
  buildings:
    - id: b
      entrance: [1, 2]
`))
	assert.Error(t, err)
}

func TestWorld_Validate_CollectsAllViolations(t *testing.T) {
	w := &world.World{
		Buildings:   []*world.Building{{ID: "a"}, {ID: "A"}},
		ParkingLots: []*world.ParkingLot{{ID: "lot", Capacity: 0}},
	}
	err := w.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id must not be empty")
	assert.Contains(t, err.Error(), "duplicate building")
	assert.Contains(t, err.Error(), "capacity must be >= 1")
}

func TestManager_ResolveBuilding_ByIDAndName(t *testing.T) {
	m := loadValid(t)
	for _, name := range []string{"north_apartments", "North Apartments", "NORTH-APARTMENTS"} {
		ref, err := m.ResolveBuilding(name)
		require.NoError(t, err, name)
		assert.Equal(t, world.RefBuilding, ref.Kind)
		assert.Equal(t, "north_apartments", ref.ID)
	}
}

func TestManager_ResolveBuilding_Unknown(t *testing.T) {
	m := loadValid(t)
	_, err := m.ResolveBuilding("south_apartments")
	require.Error(t, err)
	assert.True(t, errors.Is(err, world.ErrNotFound))
}

func TestManager_ResolveVendingMachine_EmptyNameSelectsFirst(t *testing.T) {
	m := loadValid(t)
	ref, err := m.ResolveVendingMachine("")
	require.NoError(t, err)
	assert.Equal(t, "vm_northtown_1", ref.ID)

	ref, err = m.ResolveVendingMachine("vm_docks")
	require.NoError(t, err)
	assert.Equal(t, "vm_docks", ref.ID)
}

func TestManager_ResolveVendingMachine_NoneRegistered(t *testing.T) {
	m, err := world.NewManager(&world.World{ID: "empty"})
	require.NoError(t, err)
	_, err = m.ResolveVendingMachine("")
	assert.ErrorIs(t, err, world.ErrNotFound)
}

func TestManager_ResolveParkingLot(t *testing.T) {
	m := loadValid(t)
	ref, err := m.ResolveParkingLot("Manor Parking")
	require.NoError(t, err)
	assert.Equal(t, world.RefParkingLot, ref.Kind)
	assert.Equal(t, 120.0, ref.Position.X)
}

func TestManager_KnownNPC(t *testing.T) {
	m := loadValid(t)
	assert.True(t, m.KnownNPC("kyle_cooley"))
	assert.False(t, m.KnownNPC("austin_steiner"))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "world.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validWorldYAML), 0644))
	w, err := world.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Hyland Point", w.Name)

	_, err = world.LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
