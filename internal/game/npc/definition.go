// Package npc defines custom NPCs (identity, appearance, roles, schedule,
// dialogue and event bindings) and runs their spawned entities.
package npc

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cory-johannsen/npcmod/internal/game/appearance"
	"github.com/cory-johannsen/npcmod/internal/game/dialogue"
	"github.com/cory-johannsen/npcmod/internal/game/role"
	"github.com/cory-johannsen/npcmod/internal/game/schedule"
	"github.com/cory-johannsen/npcmod/internal/game/world"
)

// MaxAggressiveness and MaxRelationshipDelta bound the matching fields.
const (
	MaxAggressiveness    = 10
	MaxRelationshipDelta = 5
)

// UnlockType is how the player first gains access to an NPC.
type UnlockType string

const (
	UnlockDirectApproach UnlockType = "direct_approach"
	UnlockRecommendation UnlockType = "recommendation"
)

// Relationship holds the NPC's starting relationship with the player and its
// connections to other NPCs, by ID.
type Relationship struct {
	Delta       float64    `yaml:"delta"`
	Unlocked    bool       `yaml:"unlocked"`
	UnlockType  UnlockType `yaml:"unlock_type"`
	Connections []string   `yaml:"connections"`
}

// EventSpec is the reaction bound to one role event. Any combination of the
// three effects may be set; Hook names a function in the NPC's script.
type EventSpec struct {
	Log     string `yaml:"log"`
	Message string `yaml:"message"`
	Hook    string `yaml:"hook"`
}

func (s EventSpec) empty() bool {
	return s.Log == "" && s.Message == "" && s.Hook == ""
}

// Events binds role events to reactions.
type Events struct {
	Dealer   map[role.Event]EventSpec `yaml:"dealer"`
	Customer map[role.Event]EventSpec `yaml:"customer"`
}

// CreatorHooks name the script functions run when a character creator opened
// by this NPC completes or closes.
type CreatorHooks struct {
	Completed string `yaml:"completed"`
	Closed    string `yaml:"closed"`
}

// Definition is the full static description of a custom NPC. A Definition
// returned by Build or the loaders is validated and must not be mutated.
type Definition struct {
	ID        string `yaml:"id"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Icon      string `yaml:"icon"`

	// Physical NPCs have a body in the world; others exist only as a
	// messaging contact.
	Physical       bool       `yaml:"physical"`
	Aggressiveness float64    `yaml:"aggressiveness"`
	Region         string     `yaml:"region"`
	SpawnPosition  world.Vec3 `yaml:"spawn_position"`

	Appearance   appearance.Spec        `yaml:"appearance"`
	Relationship Relationship           `yaml:"relationship"`
	Customer     *role.CustomerDefaults `yaml:"customer"`
	Dealer       *role.DealerDefaults   `yaml:"dealer"`
	Inventory    *Inventory             `yaml:"inventory"`
	Schedule     schedule.Spec          `yaml:"schedule"`
	Dialogue     dialogue.Spec          `yaml:"dialogue"`
	Events       Events                 `yaml:"events"`
	Creator      CreatorHooks           `yaml:"creator"`

	// Script is the Lua file, relative to the script directory, holding the
	// functions named by dialogue, event and creator bindings.
	Script   string `yaml:"script"`
	Greeting string `yaml:"greeting"`
	// Unique NPCs have at most one live instance process-wide.
	Unique bool `yaml:"unique"`
}

// FullName returns "First Last", or whichever part is set.
func (d *Definition) FullName() string {
	switch {
	case d.LastName == "":
		return d.FirstName
	case d.FirstName == "":
		return d.LastName
	}
	return d.FirstName + " " + d.LastName
}

// Hooks returns every script function name the definition binds, keyed by
// a description of the binding.
func (d *Definition) Hooks() map[string]string {
	hooks := make(map[string]string)
	for id, fn := range d.Dialogue.OnChoice {
		hooks["on_choice "+id] = fn
	}
	for id, fn := range d.Dialogue.OnNode {
		hooks["on_node "+id] = fn
	}
	for ev, s := range d.Events.Dealer {
		if s.Hook != "" {
			hooks["dealer "+string(ev)] = s.Hook
		}
	}
	for ev, s := range d.Events.Customer {
		if s.Hook != "" {
			hooks["customer "+string(ev)] = s.Hook
		}
	}
	if d.Creator.Completed != "" {
		hooks["creator completed"] = d.Creator.Completed
	}
	if d.Creator.Closed != "" {
		hooks["creator closed"] = d.Creator.Closed
	}
	return hooks
}

// Validate checks identity, numeric ranges, role defaults, the schedule
// plan, the dialogue graph and event bindings.
//
// Postcondition: Returns nil iff the definition is usable; all violations
// are joined and prefixed with the NPC ID.
func (d *Definition) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if d.ID == "" {
		add(errors.New("id must not be empty"))
	}
	if d.FirstName == "" && d.LastName == "" {
		add(errors.New("first_name or last_name must be set"))
	}
	if d.Aggressiveness < 0 || d.Aggressiveness > MaxAggressiveness {
		add(fmt.Errorf("aggressiveness %.2f outside [0, %d]", d.Aggressiveness, MaxAggressiveness))
	}
	add(d.validateRelationship())

	if d.Customer != nil {
		if err := d.Customer.Validate(); err != nil {
			add(fmt.Errorf("customer: %w", err))
		}
	}
	if d.Dealer != nil {
		if err := d.Dealer.Validate(); err != nil {
			add(fmt.Errorf("dealer: %w", err))
		}
	}
	if d.Inventory != nil {
		add(d.Inventory.Validate())
	}

	if d.Physical {
		add(validateAppearance(d.Appearance))
	} else if len(d.Schedule.Actions) > 0 || len(d.Schedule.Signals) > 0 {
		add(errors.New("schedule requires a physical NPC"))
	}
	if plan, err := d.Schedule.Plan(); err != nil {
		add(fmt.Errorf("schedule: %w", err))
	} else if _, err := plan.Build(); err != nil {
		add(fmt.Errorf("schedule: %w", err))
	}

	if err := d.Dialogue.Validate(); err != nil {
		add(fmt.Errorf("dialogue: %w", err))
	}
	add(validateEvents(role.KindDealer, d.Events.Dealer))
	add(validateEvents(role.KindCustomer, d.Events.Customer))
	if d.Script == "" {
		for binding, fn := range d.Hooks() {
			add(fmt.Errorf("%s binds script function %q but no script is set", binding, fn))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("npc %q: %w", d.ID, errors.Join(errs...))
	}
	return nil
}

func (d *Definition) validateRelationship() error {
	r := d.Relationship
	var errs []error
	if r.Delta < 0 || r.Delta > MaxRelationshipDelta {
		errs = append(errs, fmt.Errorf("relationship.delta %.2f outside [0, %d]", r.Delta, MaxRelationshipDelta))
	}
	switch r.UnlockType {
	case "", UnlockDirectApproach, UnlockRecommendation:
	default:
		errs = append(errs, fmt.Errorf("relationship.unlock_type %q is not direct_approach or recommendation", r.UnlockType))
	}
	seen := make(map[string]bool)
	for _, c := range r.Connections {
		switch {
		case c == "":
			errs = append(errs, errors.New("relationship.connections contains an empty id"))
		case c == d.ID:
			errs = append(errs, errors.New("relationship.connections must not include the NPC itself"))
		case seen[c]:
			errs = append(errs, fmt.Errorf("relationship.connections lists %q twice", c))
		}
		seen[c] = true
	}
	return errors.Join(errs...)
}

func validateAppearance(s appearance.Spec) error {
	b, err := s.Builder()
	if err != nil {
		return fmt.Errorf("appearance: %w", err)
	}
	if _, err := b.Build(); err != nil {
		return fmt.Errorf("appearance: %w", err)
	}
	return nil
}

func validateEvents(k role.Kind, specs map[role.Event]EventSpec) error {
	var errs []error
	raised := role.Events(k)
	for ev, s := range specs {
		if !slices.Contains(raised, ev) {
			errs = append(errs, fmt.Errorf("events.%s: %w: %q", k, role.ErrUnsupportedEvent, ev))
		}
		if s.empty() {
			errs = append(errs, fmt.Errorf("events.%s.%s: needs log, message or hook", k, ev))
		}
	}
	return errors.Join(errs...)
}

// UnlockKind returns the unlock type, defaulting to direct approach.
func (r Relationship) UnlockKind() UnlockType {
	if r.UnlockType == "" {
		return UnlockDirectApproach
	}
	return r.UnlockType
}
