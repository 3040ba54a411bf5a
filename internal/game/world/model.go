// Package world provides the host's spatial registries: buildings, vending
// machines, and parking lots that NPC schedules refer to by name, plus the
// base-game NPC identifiers that relationship declarations may reference.
package world

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vec3 is a world-space position.
type Vec3 struct {
	X, Y, Z float64
}

// UnmarshalYAML decodes a Vec3 from a three element sequence: [x, y, z].
func (v *Vec3) UnmarshalYAML(node *yaml.Node) error {
	var xyz []float64
	if err := node.Decode(&xyz); err != nil {
		return fmt.Errorf("line %d: position must be a sequence of numbers: %w", node.Line, err)
	}
	if len(xyz) != 3 {
		return fmt.Errorf("line %d: position must have exactly 3 components, got %d", node.Line, len(xyz))
	}
	*v = Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	return nil
}

// String renders v as "(x, y, z)".
func (v Vec3) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

// RefKind identifies which registry a Ref was resolved from.
type RefKind string

const (
	RefBuilding       RefKind = "building"
	RefVendingMachine RefKind = "vending_machine"
	RefParkingLot     RefKind = "parking_lot"
)

// Ref is a resolved handle to a registered world object.
type Ref struct {
	Kind     RefKind
	ID       string
	Name     string
	Position Vec3
}

// Building is an enterable structure NPCs can stay inside.
type Building struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Region   string `yaml:"region"`
	Entrance Vec3   `yaml:"entrance"`
}

// VendingMachine is a usable device placed in the world.
type VendingMachine struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Position Vec3   `yaml:"position"`
}

// ParkingLot is a destination for NPCs that drive.
type ParkingLot struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Position Vec3   `yaml:"position"`
	Capacity int    `yaml:"capacity"`
}

// World is the full set of registries loaded from a world file.
type World struct {
	ID              string            `yaml:"id"`
	Name            string            `yaml:"name"`
	StartingCash    float64           `yaml:"starting_cash"`
	Buildings       []*Building       `yaml:"buildings"`
	VendingMachines []*VendingMachine `yaml:"vending_machines"`
	ParkingLots     []*ParkingLot     `yaml:"parking_lots"`
	// NPCs lists base-game NPC IDs that custom NPCs may declare connections to.
	NPCs []string `yaml:"npcs"`
}

// Validate checks identifiers and cross-registry uniqueness.
//
// Postcondition: Returns nil iff ID is non-empty, every object has a non-empty
// ID, no two objects of the same kind share an ID or name, and every parking
// lot has a positive capacity. All violations are joined.
func (w *World) Validate() error {
	var errs []error
	if w.ID == "" {
		errs = append(errs, errors.New("world: id must not be empty"))
	}
	if w.StartingCash < 0 {
		errs = append(errs, fmt.Errorf("world %q: starting_cash must be >= 0", w.ID))
	}

	check := func(kind RefKind, id, name string, seen map[string]bool) {
		if id == "" {
			errs = append(errs, fmt.Errorf("world %q: %s has empty id", w.ID, kind))
			return
		}
		keys := []string{normalize(id)}
		if n := normalize(name); n != "" && n != keys[0] {
			keys = append(keys, n)
		}
		for _, key := range keys {
			if seen[key] {
				errs = append(errs, fmt.Errorf("world %q: duplicate %s %q", w.ID, kind, key))
			}
			seen[key] = true
		}
	}

	seen := make(map[string]bool)
	for _, b := range w.Buildings {
		check(RefBuilding, b.ID, b.Name, seen)
	}
	seen = make(map[string]bool)
	for _, vm := range w.VendingMachines {
		check(RefVendingMachine, vm.ID, vm.Name, seen)
	}
	seen = make(map[string]bool)
	for _, p := range w.ParkingLots {
		check(RefParkingLot, p.ID, p.Name, seen)
		if p.Capacity < 1 {
			errs = append(errs, fmt.Errorf("world %q: parking lot %q capacity must be >= 1", w.ID, p.ID))
		}
	}
	return errors.Join(errs...)
}

// normalize folds a registry key so "North Apartments" and
// "north_apartments" address the same object.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
