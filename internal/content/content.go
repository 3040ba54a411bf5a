// Package content loads a world file and its NPC definitions from disk and
// checks them against each other before anything is spawned.
package content

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/npcmod/internal/game/npc"
	"github.com/cory-johannsen/npcmod/internal/game/world"
)

// Bundle is a loaded world with the NPC definitions that live in it.
type Bundle struct {
	World       *world.Manager
	Definitions []*npc.Definition
}

// Load reads the world file and every definition in npcDir.
//
// Postcondition: Returns a Bundle whose world and definitions are each
// individually valid, or the first load error.
func Load(worldFile, npcDir string) (*Bundle, error) {
	w, err := world.LoadFromFile(worldFile)
	if err != nil {
		return nil, err
	}
	wm, err := world.NewManager(w)
	if err != nil {
		return nil, err
	}
	defs, err := npc.LoadDefinitions(npcDir)
	if err != nil {
		return nil, err
	}
	return &Bundle{World: wm, Definitions: defs}, nil
}

// Check resolves every cross reference a definition makes into the world:
// schedule destinations, dealer homes and relationship connections. It
// reports the problems Spawn would otherwise hit one NPC at a time.
//
// Postcondition: Returns nil iff every reference resolves; all failures are
// joined.
func (b *Bundle) Check() error {
	ids := make(map[string]bool, len(b.Definitions))
	for _, d := range b.Definitions {
		ids[d.ID] = true
	}
	var errs []error
	for _, d := range b.Definitions {
		for _, ref := range d.Schedule.References() {
			if _, err := b.resolve(ref.Kind, ref.Name); err != nil {
				errs = append(errs, fmt.Errorf("npc %q: schedule: %w", d.ID, err))
			}
		}
		if d.Dealer != nil && d.Dealer.Home != "" {
			if _, err := b.World.ResolveBuilding(d.Dealer.Home); err != nil {
				errs = append(errs, fmt.Errorf("npc %q: dealer home: %w", d.ID, err))
			}
		}
		for _, c := range d.Relationship.Connections {
			if !ids[c] && !b.World.KnownNPC(c) {
				errs = append(errs, fmt.Errorf("npc %q: %w %q", d.ID, npc.ErrUnknownConnection, c))
			}
		}
	}
	return errors.Join(errs...)
}

func (b *Bundle) resolve(kind world.RefKind, name string) (world.Ref, error) {
	switch kind {
	case world.RefBuilding:
		return b.World.ResolveBuilding(name)
	case world.RefVendingMachine:
		return b.World.ResolveVendingMachine(name)
	case world.RefParkingLot:
		return b.World.ResolveParkingLot(name)
	}
	return world.Ref{}, fmt.Errorf("unknown reference kind %q", kind)
}

// Register adds every definition to m.
func (b *Bundle) Register(m *npc.Manager) error {
	var errs []error
	for _, d := range b.Definitions {
		if err := m.Register(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
