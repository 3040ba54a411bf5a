package npc

import (
	"maps"
	"slices"

	"github.com/cory-johannsen/npcmod/internal/game/appearance"
	"github.com/cory-johannsen/npcmod/internal/game/dialogue"
	"github.com/cory-johannsen/npcmod/internal/game/role"
	"github.com/cory-johannsen/npcmod/internal/game/schedule"
	"github.com/cory-johannsen/npcmod/internal/game/world"
)

// Builder assembles a Definition. Every method returns a new Builder; the
// receiver is never modified, so partially configured builders can be
// shared and extended independently.
type Builder struct {
	def Definition
}

// NewBuilder starts a physical NPC definition.
func NewBuilder() Builder {
	return Builder{def: Definition{Physical: true}}
}

// WithIdentity sets the stable ID and display name.
func (b Builder) WithIdentity(id, firstName, lastName string) Builder {
	b.def.ID, b.def.FirstName, b.def.LastName = id, firstName, lastName
	return b
}

// WithIcon sets the contact icon path.
func (b Builder) WithIcon(path string) Builder {
	b.def.Icon = path
	return b
}

// NonPhysical marks the NPC as a messaging-only contact.
func (b Builder) NonPhysical() Builder {
	b.def.Physical = false
	return b
}

// WithAggressiveness sets aggressiveness in [0, 10].
func (b Builder) WithAggressiveness(v float64) Builder {
	b.def.Aggressiveness = v
	return b
}

// WithRegion sets the home region.
func (b Builder) WithRegion(region string) Builder {
	b.def.Region = region
	return b
}

// WithAppearance sets the appearance defaults.
func (b Builder) WithAppearance(spec appearance.Spec) Builder {
	spec.Layers = append([]appearance.LayerSpec(nil), spec.Layers...)
	b.def.Appearance = spec
	return b
}

// WithSpawnPosition sets where the NPC first appears.
func (b Builder) WithSpawnPosition(pos world.Vec3) Builder {
	b.def.SpawnPosition = pos
	return b
}

// EnsureCustomer gives the NPC a customer role with zero defaults unless it
// already has one.
func (b Builder) EnsureCustomer() Builder {
	if b.def.Customer == nil {
		b.def.Customer = &role.CustomerDefaults{}
	}
	return b
}

// WithCustomer gives the NPC a customer role with the given defaults.
func (b Builder) WithCustomer(d role.CustomerDefaults) Builder {
	d.Affinities = maps.Clone(d.Affinities)
	d.PreferredProperties = append([]string(nil), d.PreferredProperties...)
	b.def.Customer = &d
	return b
}

// EnsureDealer gives the NPC a dealer role with zero defaults unless it
// already has one.
func (b Builder) EnsureDealer() Builder {
	if b.def.Dealer == nil {
		b.def.Dealer = &role.DealerDefaults{}
	}
	return b
}

// WithDealer gives the NPC a dealer role with the given defaults.
func (b Builder) WithDealer(d role.DealerDefaults) Builder {
	b.def.Dealer = &d
	return b
}

// WithRelationship sets relationship defaults.
func (b Builder) WithRelationship(r Relationship) Builder {
	r.Connections = append([]string(nil), r.Connections...)
	b.def.Relationship = r
	return b
}

// WithSchedule sets the daily plan.
func (b Builder) WithSchedule(s schedule.Spec) Builder {
	s.Signals = append([]string(nil), s.Signals...)
	s.Actions = append([]schedule.ActionSpec(nil), s.Actions...)
	b.def.Schedule = s
	return b
}

// WithInventory sets inventory defaults.
func (b Builder) WithInventory(inv Inventory) Builder {
	inv.StartupItems = append([]string(nil), inv.StartupItems...)
	b.def.Inventory = &inv
	return b
}

// WithDialogue sets the dialogue database, containers and handler bindings.
func (b Builder) WithDialogue(d dialogue.Spec) Builder {
	d.Containers = append([]dialogue.ContainerSpec(nil), d.Containers...)
	d.OnChoice = maps.Clone(d.OnChoice)
	d.OnNode = maps.Clone(d.OnNode)
	b.def.Dialogue = d
	return b
}

// OnDealerEvent binds a reaction to a dealer event, replacing any previous one.
func (b Builder) OnDealerEvent(ev role.Event, s EventSpec) Builder {
	m := maps.Clone(b.def.Events.Dealer)
	if m == nil {
		m = make(map[role.Event]EventSpec)
	}
	m[ev] = s
	b.def.Events.Dealer = m
	return b
}

// OnCustomerEvent binds a reaction to a customer event, replacing any
// previous one.
func (b Builder) OnCustomerEvent(ev role.Event, s EventSpec) Builder {
	m := maps.Clone(b.def.Events.Customer)
	if m == nil {
		m = make(map[role.Event]EventSpec)
	}
	m[ev] = s
	b.def.Events.Customer = m
	return b
}

// WithCreatorHooks names the functions run when a character creator opened
// by this NPC finishes.
func (b Builder) WithCreatorHooks(h CreatorHooks) Builder {
	b.def.Creator = h
	return b
}

// WithScript sets the Lua script file.
func (b Builder) WithScript(file string) Builder {
	b.def.Script = file
	return b
}

// WithGreeting sets the text message sent when the NPC is created.
func (b Builder) WithGreeting(text string) Builder {
	b.def.Greeting = text
	return b
}

// Unique limits the NPC to one live instance.
func (b Builder) Unique() Builder {
	b.def.Unique = true
	return b
}

// Build validates and returns the definition.
//
// Postcondition: Returns a validated *Definition that shares no mutable
// state with b, or the joined validation error.
func (b Builder) Build() (*Definition, error) {
	def := b.def
	def.Relationship.Connections = slices.Clone(def.Relationship.Connections)
	def.Appearance.Layers = slices.Clone(def.Appearance.Layers)
	def.Schedule.Signals = slices.Clone(def.Schedule.Signals)
	def.Schedule.Actions = slices.Clone(def.Schedule.Actions)
	def.Dialogue.Containers = slices.Clone(def.Dialogue.Containers)
	def.Dialogue.OnChoice = maps.Clone(def.Dialogue.OnChoice)
	def.Dialogue.OnNode = maps.Clone(def.Dialogue.OnNode)
	def.Events.Dealer = maps.Clone(def.Events.Dealer)
	def.Events.Customer = maps.Clone(def.Events.Customer)
	if def.Customer != nil {
		c := *def.Customer
		c.Affinities = maps.Clone(c.Affinities)
		c.PreferredProperties = slices.Clone(c.PreferredProperties)
		def.Customer = &c
	}
	if def.Dealer != nil {
		d := *def.Dealer
		def.Dealer = &d
	}
	if def.Inventory != nil {
		inv := *def.Inventory
		inv.StartupItems = slices.Clone(inv.StartupItems)
		def.Inventory = &inv
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}
