package npc

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/npcmod/internal/game/clock"
	"github.com/cory-johannsen/npcmod/internal/game/role"
	"github.com/cory-johannsen/npcmod/internal/game/schedule"
	"github.com/cory-johannsen/npcmod/internal/host"
	"github.com/cory-johannsen/npcmod/internal/scripting"
)

var (
	// ErrDuplicateDefinition is returned when two definitions share an ID.
	ErrDuplicateDefinition = errors.New("duplicate npc definition")
	// ErrUnknownDefinition is returned for an unregistered definition ID.
	ErrUnknownDefinition = errors.New("unknown npc definition")
	// ErrUniqueExists is returned when spawning a second unique instance.
	ErrUniqueExists = errors.New("unique npc already spawned")
	// ErrUnknownInstance is returned for an unknown instance ID.
	ErrUnknownInstance = errors.New("unknown npc instance")
	// ErrUnknownConnection is returned by ResolveConnections.
	ErrUnknownConnection = errors.New("unknown relationship connection")
)

// Transition reports a schedule entry that started on a tick.
type Transition struct {
	InstanceID string
	NPC        string
	Entry      schedule.Entry
	Until      clock.MilitaryTime
}

// Option configures a Manager.
type Option func(*Manager)

// WithScripts sets the script manager used for hooks and LoadScripts.
func WithScripts(s *scripting.Manager) Option {
	return func(m *Manager) { m.scripts = s }
}

// WithRand seeds inventory rolls. Each entity draws its own source from r
// at spawn.
func WithRand(r *rand.Rand) Option {
	return func(m *Manager) { m.rng = r }
}

// WithIDGenerator overrides instance ID generation.
func WithIDGenerator(next func() string) Option {
	return func(m *Manager) { m.newID = next }
}

// Manager registers definitions and tracks spawned entities.
// All methods are safe for concurrent use; entity callbacks run without the
// manager lock held.
type Manager struct {
	ports   host.Ports
	logger  *zap.Logger
	scripts *scripting.Manager
	rng     *rand.Rand
	newID   func() string

	mu       sync.RWMutex
	defs     map[string]*Definition
	entities map[string]*Entity // instanceID → Entity
	unique   map[string]*Entity // definition ID → Entity
}

// NewManager creates a Manager over the given host ports.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a Manager or the ports validation error.
func NewManager(ports host.Ports, logger *zap.Logger, opts ...Option) (*Manager, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		ports:    ports,
		logger:   logger,
		newID:    uuid.NewString,
		defs:     make(map[string]*Definition),
		entities: make(map[string]*Entity),
		unique:   make(map[string]*Entity),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return m, nil
}

// Register adds a validated definition.
//
// Postcondition: Returns ErrDuplicateDefinition if def.ID is taken.
func (m *Manager) Register(def *Definition) error {
	if def == nil {
		return errors.New("npc.Manager.Register: def must not be nil")
	}
	if err := def.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.defs[def.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateDefinition, def.ID)
	}
	m.defs[def.ID] = def
	return nil
}

// Definition returns the definition registered under id.
func (m *Manager) Definition(id string) (*Definition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.defs[id]
	return def, ok
}

// Definitions returns every registered definition sorted by ID.
func (m *Manager) Definitions() []*Definition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Definition, 0, len(m.defs))
	for _, d := range m.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ResolveConnections checks every relationship connection against the
// registered definitions and known(id), which reports base-game NPCs.
//
// Postcondition: Returns nil iff every connection resolves; otherwise all
// unresolved connections are joined, each wrapping ErrUnknownConnection.
func (m *Manager) ResolveConnections(known func(id string) bool) error {
	var errs []error
	for _, def := range m.Definitions() {
		for _, c := range def.Relationship.Connections {
			if _, ok := m.Definition(c); ok {
				continue
			}
			if known != nil && known(c) {
				continue
			}
			errs = append(errs, fmt.Errorf("npc %q: %w %q", def.ID, ErrUnknownConnection, c))
		}
	}
	return errors.Join(errs...)
}

// LoadScripts loads each definition's script into its own VM keyed by the
// definition ID.
//
// Precondition: the manager was created WithScripts.
func (m *Manager) LoadScripts(dir string, instLimit int) error {
	if m.scripts == nil {
		return errors.New("npc.Manager.LoadScripts: no script manager configured")
	}
	var errs []error
	for _, def := range m.Definitions() {
		if def.Script == "" {
			continue
		}
		if err := m.scripts.LoadFile(def.ID, filepath.Join(dir, def.Script), instLimit); err != nil {
			errs = append(errs, fmt.Errorf("npc %q: %w", def.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) scriptsPort() Scripts {
	if m.scripts == nil {
		return nil
	}
	return m.scripts
}

// Spawn creates an entity for defID and runs its OnCreated. A setup failure
// leaves the inert entity registered, so it can still be despawned, and is
// returned alongside it. A unique definition's slot is held during setup and
// released if setup fails.
//
// Postcondition: Returns ErrUnknownDefinition or ErrUniqueExists without
// creating anything; otherwise the entity is registered and the returned
// error is nil or wraps ErrSetup.
func (m *Manager) Spawn(defID string) (*Entity, error) {
	m.mu.Lock()
	def, ok := m.defs[defID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrUnknownDefinition, defID)
	}
	if def.Unique {
		if _, taken := m.unique[defID]; taken {
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: %q", ErrUniqueExists, defID)
		}
	}
	rng := rand.New(rand.NewPCG(m.rng.Uint64(), m.rng.Uint64()))
	e := newEntity(m.newID(), def, m.ports, m.scriptsPort(), rng, m.logger)
	m.entities[e.ID()] = e
	if def.Unique {
		m.unique[defID] = e
	}
	m.mu.Unlock()

	if err := e.OnCreated(); err != nil {
		if def.Unique {
			m.mu.Lock()
			if m.unique[defID] == e {
				delete(m.unique, defID)
			}
			m.mu.Unlock()
		}
		return e, err
	}
	return e, nil
}

// SpawnAll spawns every registered definition once, in ID order. Setup
// failures are isolated per NPC and joined.
func (m *Manager) SpawnAll() ([]*Entity, error) {
	var out []*Entity
	var errs []error
	for _, def := range m.Definitions() {
		e, err := m.Spawn(def.ID)
		if e != nil {
			out = append(out, e)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return out, errors.Join(errs...)
}

// Despawn runs OnDestroyed and forgets the entity.
//
// Postcondition: Returns ErrUnknownInstance if id is not registered.
func (m *Manager) Despawn(id string) error {
	m.mu.Lock()
	e, ok := m.entities[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownInstance, id)
	}
	delete(m.entities, id)
	if m.unique[e.def.ID] == e {
		delete(m.unique, e.def.ID)
	}
	m.mu.Unlock()

	e.OnDestroyed()
	return nil
}

// Get returns the entity with instance ID id.
func (m *Manager) Get(id string) (*Entity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[id]
	return e, ok
}

// UniqueInstance returns the live instance of a unique definition. An
// instance whose setup failed is not returned.
func (m *Manager) UniqueInstance(defID string) (*Entity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.unique[defID]
	return e, ok
}

// Entities returns a snapshot of live entities sorted by definition ID then
// instance ID.
func (m *Manager) Entities() []*Entity {
	m.mu.RLock()
	out := make([]*Entity, 0, len(m.entities))
	for _, e := range m.entities {
		out = append(out, e)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].def.ID != out[j].def.ID {
			return out[i].def.ID < out[j].def.ID
		}
		return out[i].id < out[j].id
	})
	return out
}

// ByNPC returns the live entities of definition defID.
func (m *Manager) ByNPC(defID string) []*Entity {
	var out []*Entity
	for _, e := range m.Entities() {
		if e.def.ID == defID {
			out = append(out, e)
		}
	}
	return out
}

// Tick advances every entity's schedule to now and returns the entries that
// started. Each entity recovers its own failures.
func (m *Manager) Tick(now clock.MilitaryTime) []Transition {
	var out []Transition
	for _, e := range m.Entities() {
		step := e.Tick(now)
		if step.Started && !step.Preempted && !step.Idle {
			out = append(out, Transition{
				InstanceID: e.id,
				NPC:        e.def.ID,
				Entry:      step.Entry,
				Until:      step.Until,
			})
		}
	}
	return out
}

// Dispatch raises ev on role k of every live instance of npcID. It has the
// shape of sim.RoleDispatcher.
//
// Postcondition: Returns ErrUnknownDefinition when no instance is live;
// handler failures are joined.
func (m *Manager) Dispatch(npcID string, k role.Kind, ev role.Event) error {
	targets := m.ByNPC(npcID)
	if len(targets) == 0 {
		return fmt.Errorf("%w: no live instance of %q", ErrUnknownDefinition, npcID)
	}
	var errs []error
	for _, e := range targets {
		if _, err := e.FireRoleEvent(k, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Shutdown despawns every entity.
func (m *Manager) Shutdown() {
	for _, e := range m.Entities() {
		_ = m.Despawn(e.id)
	}
}
