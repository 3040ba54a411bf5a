package npc

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/npcmod/internal/game/appearance"
	"github.com/cory-johannsen/npcmod/internal/game/clock"
	"github.com/cory-johannsen/npcmod/internal/game/dialogue"
	"github.com/cory-johannsen/npcmod/internal/game/role"
	"github.com/cory-johannsen/npcmod/internal/game/schedule"
	"github.com/cory-johannsen/npcmod/internal/host"
)

var (
	// ErrSetup wraps every configuration failure raised by OnCreated.
	ErrSetup = errors.New("npc setup failed")
	// ErrInert is returned by entity operations after a failed setup, before
	// creation, or after destruction.
	ErrInert = errors.New("npc entity is inert")
	// ErrNoDialogue is returned by Interact on an NPC without dialogue.
	ErrNoDialogue = errors.New("npc has no dialogue")
	// ErrNoRole is returned when an NPC lacks the role an operation needs.
	ErrNoRole = errors.New("npc does not carry role")
)

// State is an entity's lifecycle stage.
type State int

const (
	StatePending State = iota
	StateReady
	StateInert
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateInert:
		return "inert"
	case StateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Entity is one spawned NPC.
//
// Entities are single-threaded: the host drives every method from its tick
// goroutine.
type Entity struct {
	id      string
	def     *Definition
	ports   host.Ports
	scripts Scripts
	rng     *rand.Rand
	base    *zap.Logger
	logger  *zap.Logger

	state    State
	setupErr error

	look     *appearance.Descriptor
	ctrl     *dialogue.Controller
	dealer   *role.Component
	customer *role.Component
	wiring   *role.Wiring
	report   role.Report
	timeline *schedule.Timeline
	runner   *schedule.Runner
	stock    Stock

	lastTick clock.MilitaryTime
	ticked   bool
}

func newEntity(id string, def *Definition, ports host.Ports, scripts Scripts, rng *rand.Rand, logger *zap.Logger) *Entity {
	return &Entity{
		id:      id,
		def:     def,
		ports:   ports,
		scripts: scripts,
		rng:     rng,
		base:    logger,
		logger:  logger.With(zap.String("npc", def.ID), zap.String("instance", id)),
	}
}

// ID returns the runtime instance ID.
func (e *Entity) ID() string { return e.id }

// Definition returns the entity's definition.
func (e *Entity) Definition() *Definition { return e.def }

// State returns the lifecycle stage.
func (e *Entity) State() State { return e.state }

// Err returns the setup failure of an inert entity.
func (e *Entity) Err() error { return e.setupErr }

// Appearance returns the committed appearance, or nil for non-physical NPCs.
func (e *Entity) Appearance() *appearance.Descriptor { return e.look }

// Dialogue returns the dialogue controller, or nil when none is declared.
func (e *Entity) Dialogue() *dialogue.Controller { return e.ctrl }

// Timeline returns the schedule timeline, or nil for non-physical NPCs.
func (e *Entity) Timeline() *schedule.Timeline { return e.timeline }

// Report returns the outcome of role event wiring.
func (e *Entity) Report() role.Report { return e.report }

// Stock returns the generated inventory.
func (e *Entity) Stock() Stock {
	return Stock{Cash: e.stock.Cash, Items: slices.Clone(e.stock.Items)}
}

// Dealer returns the dealer role, or nil.
func (e *Entity) Dealer() *role.Component { return e.dealer }

// Customer returns the customer role, or nil.
func (e *Entity) Customer() *role.Component { return e.customer }

// OnCreated runs setup in a fixed order: script hook check, appearance
// commit, inventory, greeting, dialogue, role wiring, schedule. A
// configuration error at any step leaves the entity inert with any partial
// wiring undone; panics are recovered the same way.
//
// Postcondition: State is StateReady and nil is returned, or State is
// StateInert and an error wrapping ErrSetup is returned.
func (e *Entity) OnCreated() (err error) {
	if e.state != StatePending {
		return fmt.Errorf("npc %q: OnCreated called in state %s", e.def.ID, e.state)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			e.state = StateInert
			e.setupErr = fmt.Errorf("%w: npc %q: %w", ErrSetup, e.def.ID, err)
			e.teardown()
			e.logger.Error("npc setup failed", zap.Error(err))
			err = e.setupErr
			return
		}
		e.state = StateReady
		e.logger.Info("npc created",
			zap.String("name", e.def.FullName()),
			zap.Bool("physical", e.def.Physical),
		)
	}()

	if err := e.checkHooks(); err != nil {
		return err
	}
	if e.def.Physical {
		if err := e.setupAppearance(); err != nil {
			return err
		}
	}
	if e.def.Inventory != nil {
		e.stock = GenerateStock(*e.def.Inventory, e.rng)
	}
	if e.def.Greeting != "" {
		e.send(e.def.Greeting)
	}
	if err := e.setupDialogue(); err != nil {
		return fmt.Errorf("dialogue: %w", err)
	}
	if err := e.setupRoles(); err != nil {
		return fmt.Errorf("roles: %w", err)
	}
	if e.def.Physical {
		if err := e.setupSchedule(); err != nil {
			return fmt.Errorf("schedule: %w", err)
		}
	}
	return nil
}

func (e *Entity) checkHooks() error {
	hooks := e.def.Hooks()
	if e.def.Script == "" {
		return nil
	}
	if e.scripts == nil {
		return fmt.Errorf("script %q declared but no script manager configured", e.def.Script)
	}
	var errs []error
	for binding, fn := range hooks {
		if !e.scripts.HasHook(e.def.ID, fn) {
			errs = append(errs, fmt.Errorf("%s: script function %q is not defined", binding, fn))
		}
	}
	return errors.Join(errs...)
}

func (e *Entity) setupAppearance() error {
	b, err := e.def.Appearance.Builder()
	if err != nil {
		return fmt.Errorf("appearance: %w", err)
	}
	d, err := b.Build()
	if err != nil {
		return fmt.Errorf("appearance: %w", err)
	}
	e.look = d
	if err := d.Commit(e.ports.Renderers.Renderer(e.id)); err != nil {
		e.logger.Warn("appearance commit failed", zap.Error(err))
	}
	return nil
}

func (e *Entity) setupDialogue() error {
	spec := e.def.Dialogue
	if spec.Empty() {
		return nil
	}
	ctrl := dialogue.NewController(e.def.ID, e.ports.Focus, e.base)
	if e.ports.Display != nil {
		ctrl.SetDisplay(e.ports.Display)
	}
	if db := spec.BuildDatabase(); db != nil {
		ctrl.SetDatabase(db)
	}
	containers, err := spec.BuildContainers()
	if err != nil {
		return err
	}
	for _, ct := range containers {
		if err := ctrl.Register(ct); err != nil {
			return err
		}
	}
	for id, fn := range spec.OnChoice {
		ctrl.OnChoiceSelected(id, e.dialogueHandler(fn))
	}
	for id, fn := range spec.OnNode {
		ctrl.OnNodeDisplayed(id, e.dialogueHandler(fn))
	}
	if spec.Interact != "" {
		if err := ctrl.UseContainerOnInteract(spec.Interact); err != nil {
			return err
		}
	}
	e.ctrl = ctrl
	return nil
}

func (e *Entity) setupRoles() error {
	if d := e.def.Dealer; d != nil {
		if d.Home != "" {
			if _, err := e.ports.Resolver.ResolveBuilding(d.Home); err != nil {
				return fmt.Errorf("dealer home: %w", err)
			}
		}
		e.dealer = role.NewDealer(e.def.ID, e.ports.Roles)
	}
	if e.def.Customer != nil {
		e.customer = role.NewCustomer(e.def.ID, e.ports.Roles)
	}
	w := role.NewWiring(e.dealer, e.customer, e.logger)
	for ev, s := range e.def.Events.Dealer {
		if err := w.OnDealer(ev, e.roleHandler(s)); err != nil {
			return err
		}
	}
	for ev, s := range e.def.Events.Customer {
		if err := w.OnCustomer(ev, e.roleHandler(s)); err != nil {
			return err
		}
	}
	e.wiring = w
	e.report = w.WireEvents()
	return nil
}

func (e *Entity) setupSchedule() error {
	plan, err := e.def.Schedule.Plan()
	if err != nil {
		return err
	}
	tl, err := plan.Build()
	if err != nil {
		return err
	}
	tl.Enable()
	if err := tl.InitializeActions(e.ports.Resolver); err != nil {
		return err
	}
	e.timeline = tl
	e.runner = schedule.NewRunner(tl)
	return nil
}

// roleHandler turns an EventSpec into a role handler. Message failures are
// logged and swallowed; hook failures are returned to the caller of Fire.
func (e *Entity) roleHandler(s EventSpec) role.Handler {
	return func(npcID string, ev role.Event) error {
		if s.Log != "" {
			e.logger.Info(s.Log, zap.String("event", string(ev)))
		}
		if s.Message != "" {
			e.send(s.Message)
		}
		if s.Hook != "" {
			return e.callHook(s.Hook, nil, lua.LString(ev))
		}
		return nil
	}
}

func (e *Entity) send(text string) {
	if err := e.ports.Messenger.SendText(e.def.ID, text); err != nil {
		e.logger.Warn("text message failed", zap.Error(err))
	}
}

// teardown undoes wiring and closes any dialogue. It is safe on partially
// initialized entities.
func (e *Entity) teardown() {
	if e.wiring != nil {
		e.wiring.UnwireEvents()
	}
	if e.ctrl != nil {
		e.ctrl.End()
	}
}

// OnDestroyed unwires role events and ends dialogue, whatever the current
// state. Calling it twice is a no-op.
func (e *Entity) OnDestroyed() {
	if e.state == StateDestroyed {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("npc teardown panicked", zap.Any("panic", r))
		}
		e.state = StateDestroyed
		e.logger.Info("npc destroyed")
	}()
	e.teardown()
}

// Tick evaluates the schedule at now. While a dialogue session is open the
// schedule is suspended. When the game day rolls over an inventory marked
// clear_each_night is regenerated.
//
// Postcondition: Returns an idle step for entities that are not ready or
// have no schedule. Panics are recovered and reported as idle.
func (e *Entity) Tick(now clock.MilitaryTime) (step schedule.Step) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("npc tick panicked", zap.Any("panic", r))
			step = schedule.Step{Idle: true}
		}
	}()
	if e.state != StateReady {
		return schedule.Step{Idle: true}
	}
	if e.ticked && now < e.lastTick {
		e.nightly()
	}
	e.lastTick, e.ticked = now, true

	if e.runner == nil {
		return schedule.Step{Idle: true}
	}
	e.runner.Preempt(e.ctrl != nil && e.ctrl.Active())
	step = e.runner.Tick(now)
	if step.Started && !step.Preempted && !step.Idle {
		fields := []zap.Field{
			zap.Stringer("at", now),
			zap.String("kind", string(step.Entry.Action.Kind())),
			zap.Stringer("until", step.Until),
		}
		if step.Entry.Resolved != nil {
			fields = append(fields, zap.String("target", step.Entry.Resolved.Name))
		}
		e.logger.Debug("schedule entry started", fields...)
	}
	return step
}

func (e *Entity) nightly() {
	inv := e.def.Inventory
	if inv == nil || !inv.ClearEachNight {
		return
	}
	e.stock = GenerateStock(*inv, e.rng)
	e.logger.Debug("inventory restocked", zap.Float64("cash", e.stock.Cash))
}

// CanDeal reports whether the deal capability window is open at now.
func (e *Entity) CanDeal(now clock.MilitaryTime) bool {
	if e.state != StateReady || e.timeline == nil {
		return false
	}
	return e.timeline.SignalActive(schedule.SignalDeal, now)
}

// Interact opens the NPC's interaction dialogue.
func (e *Entity) Interact(ctx context.Context) error {
	if e.state != StateReady {
		return ErrInert
	}
	if e.ctrl == nil {
		return ErrNoDialogue
	}
	return e.ctrl.Interact(ctx)
}

// Select picks a choice in the open dialogue. Handler failures end the
// session and are logged by the controller; panics outside handlers are
// recovered here.
func (e *Entity) Select(choiceID string) (err error) {
	if e.state != StateReady {
		return ErrInert
	}
	if e.ctrl == nil {
		return ErrNoDialogue
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("dialogue select panicked", zap.Any("panic", r))
			e.ctrl.End()
			err = fmt.Errorf("select %q: panic: %v", choiceID, r)
		}
	}()
	return e.ctrl.Select(choiceID)
}

// EndDialogue closes any open dialogue.
func (e *Entity) EndDialogue() {
	if e.ctrl != nil {
		e.ctrl.End()
	}
}

func (e *Entity) component(k role.Kind) *role.Component {
	switch k {
	case role.KindDealer:
		return e.dealer
	case role.KindCustomer:
		return e.customer
	}
	return nil
}

// FireRoleEvent raises ev on the NPC's role of kind k. It reports whether a
// handler ran. Handler failures are logged and returned.
func (e *Entity) FireRoleEvent(k role.Kind, ev role.Event) (bool, error) {
	if e.state != StateReady {
		return false, ErrInert
	}
	c := e.component(k)
	if c == nil {
		return false, fmt.Errorf("%w %s", ErrNoRole, k)
	}
	ran, err := c.Fire(ev)
	if err != nil {
		e.logger.Warn("role event handler failed",
			zap.String("role", string(k)),
			zap.String("event", string(ev)),
			zap.Error(err),
		)
	}
	return ran, err
}

// RecommendTo asks the host to recommend this dealer to customerID.
func (e *Entity) RecommendTo(customerID string) error {
	if e.state != StateReady {
		return ErrInert
	}
	if e.dealer == nil {
		return fmt.Errorf("%w %s", ErrNoRole, role.KindDealer)
	}
	return e.dealer.RecommendTo(customerID)
}

// RequestProduct asks the host to raise a product request from this customer.
func (e *Entity) RequestProduct() error {
	if e.state != StateReady {
		return ErrInert
	}
	if e.customer == nil {
		return fmt.Errorf("%w %s", ErrNoRole, role.KindCustomer)
	}
	return e.customer.RequestProduct()
}
