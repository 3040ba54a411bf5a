package npc

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/cory-johannsen/npcmod/internal/game/role"
)

// Inventory is what the NPC carries when spawned.
type Inventory struct {
	StartupItems []string   `yaml:"startup_items"`
	RandomCash   role.Range `yaml:"random_cash"`
	// ClearEachNight regenerates the stock when the game day rolls over.
	ClearEachNight bool `yaml:"clear_each_night"`
}

// Validate checks the item list and cash range.
//
// Postcondition: Returns nil iff every item ID is non-empty and
// 0 <= RandomCash.Min <= RandomCash.Max.
func (inv Inventory) Validate() error {
	var errs []error
	if inv.RandomCash.Min < 0 || inv.RandomCash.Min > inv.RandomCash.Max {
		errs = append(errs, fmt.Errorf("inventory.random_cash: need 0 <= min <= max, got [%.2f, %.2f]",
			inv.RandomCash.Min, inv.RandomCash.Max))
	}
	for i, item := range inv.StartupItems {
		if item == "" {
			errs = append(errs, fmt.Errorf("inventory.startup_items[%d] is empty", i))
		}
	}
	return errors.Join(errs...)
}

// Item is one carried item instance.
type Item struct {
	ItemDefID  string
	InstanceID string
}

// Stock is an NPC's generated inventory.
type Stock struct {
	Cash  float64
	Items []Item
}

// GenerateStock rolls a stock from inv. Cash is whole dollars.
//
// Precondition: inv must have passed Validate; rng must be non-nil.
// Postcondition: Cash is in [RandomCash.Min, RandomCash.Max] rounded to a
// whole number within that range; Items holds one fresh instance per startup
// item in declaration order.
func GenerateStock(inv Inventory, rng *rand.Rand) Stock {
	var s Stock
	lo := math.Ceil(inv.RandomCash.Min)
	hi := math.Floor(inv.RandomCash.Max)
	switch {
	case hi < lo:
		// No whole number in range.
		s.Cash = inv.RandomCash.Min
	case hi == lo:
		s.Cash = lo
	default:
		s.Cash = lo + float64(rng.IntN(int(hi-lo)+1))
	}
	for _, id := range inv.StartupItems {
		s.Items = append(s.Items, Item{
			ItemDefID:  id,
			InstanceID: uuid.New().String(),
		})
	}
	return s
}
