package world

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when a registry lookup has no match.
var ErrNotFound = errors.New("world object not found")

// Manager provides read-only, thread-safe lookups over a loaded World.
// Objects are indexed by both ID and display name.
type Manager struct {
	mu        sync.RWMutex
	world     *World
	buildings map[string]*Building
	machines  map[string]*VendingMachine
	lots      map[string]*ParkingLot
	npcs      map[string]bool
}

// NewManager indexes w.
//
// Precondition: w must be non-nil and valid.
// Postcondition: Returns a Manager with every object reachable by ID and name.
func NewManager(w *World) (*Manager, error) {
	if w == nil {
		return nil, errors.New("world.NewManager: world must not be nil")
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		world:     w,
		buildings: make(map[string]*Building, 2*len(w.Buildings)),
		machines:  make(map[string]*VendingMachine, 2*len(w.VendingMachines)),
		lots:      make(map[string]*ParkingLot, 2*len(w.ParkingLots)),
		npcs:      make(map[string]bool, len(w.NPCs)),
	}
	for _, b := range w.Buildings {
		m.buildings[normalize(b.ID)] = b
		if b.Name != "" {
			m.buildings[normalize(b.Name)] = b
		}
	}
	for _, vm := range w.VendingMachines {
		m.machines[normalize(vm.ID)] = vm
		if vm.Name != "" {
			m.machines[normalize(vm.Name)] = vm
		}
	}
	for _, p := range w.ParkingLots {
		m.lots[normalize(p.ID)] = p
		if p.Name != "" {
			m.lots[normalize(p.Name)] = p
		}
	}
	for _, id := range w.NPCs {
		m.npcs[id] = true
	}
	return m, nil
}

// World returns the underlying world definition.
func (m *Manager) World() *World {
	return m.world
}

// ResolveBuilding looks up a building by ID or name.
//
// Postcondition: Returns a RefBuilding Ref, or an error wrapping ErrNotFound.
func (m *Manager) ResolveBuilding(name string) (Ref, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.buildings[normalize(name)]
	if !ok {
		return Ref{}, fmt.Errorf("building %q: %w", name, ErrNotFound)
	}
	return Ref{Kind: RefBuilding, ID: b.ID, Name: b.Name, Position: b.Entrance}, nil
}

// ResolveVendingMachine looks up a vending machine by ID or name. An empty
// name selects the first declared machine.
//
// Postcondition: Returns a RefVendingMachine Ref, or an error wrapping ErrNotFound.
func (m *Manager) ResolveVendingMachine(name string) (Ref, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var vm *VendingMachine
	if name == "" {
		if len(m.world.VendingMachines) > 0 {
			vm = m.world.VendingMachines[0]
		}
	} else {
		vm = m.machines[normalize(name)]
	}
	if vm == nil {
		return Ref{}, fmt.Errorf("vending machine %q: %w", name, ErrNotFound)
	}
	return Ref{Kind: RefVendingMachine, ID: vm.ID, Name: vm.Name, Position: vm.Position}, nil
}

// ResolveParkingLot looks up a parking lot by ID or name.
//
// Postcondition: Returns a RefParkingLot Ref, or an error wrapping ErrNotFound.
func (m *Manager) ResolveParkingLot(name string) (Ref, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.lots[normalize(name)]
	if !ok {
		return Ref{}, fmt.Errorf("parking lot %q: %w", name, ErrNotFound)
	}
	return Ref{Kind: RefParkingLot, ID: p.ID, Name: p.Name, Position: p.Position}, nil
}

// KnownNPC reports whether id names a base-game NPC declared in the world file.
func (m *Manager) KnownNPC(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.npcs[id]
}

// BuildingCount returns the number of distinct buildings.
func (m *Manager) BuildingCount() int {
	return len(m.world.Buildings)
}
