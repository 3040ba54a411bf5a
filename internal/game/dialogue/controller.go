package dialogue

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/npcmod/internal/game/focus"
)

var (
	// ErrNotActive is returned by Select and JumpTo outside a session.
	ErrNotActive = errors.New("no active dialogue")
	// ErrNoContainer is returned by Interact when no container is selected.
	ErrNoContainer = errors.New("no dialogue container selected for interaction")
	// ErrUnknownChoice is returned when a selection is not offered by the
	// current node.
	ErrUnknownChoice = errors.New("choice not offered by current node")
)

// Handler reacts to a choice or a node display. It may call JumpTo or End on
// the controller; either overrides the choice's declared target.
type Handler func(c *Controller) error

// Display receives what the player should see. Implementations belong to the
// host.
type Display interface {
	// ShowText displays a node's text.
	ShowText(owner, container, node, text string)
	// ShowChoices offers the node's choices after its displayed handler ran.
	ShowChoices(owner string, choices []Choice)
	// Close hides the dialogue.
	Close(owner string)
}

type nopDisplay struct{}

func (nopDisplay) ShowText(string, string, string, string) {}
func (nopDisplay) ShowChoices(string, []Choice)            {}
func (nopDisplay) Close(string)                            {}

// Controller walks one NPC's dialogue containers.
//
// Invariant: while a session is active, the controller's owner holds focus.
type Controller struct {
	owner   string
	slot    *focus.Slot
	logger  *zap.Logger
	display Display

	db         *Database
	containers map[string]*Container
	onChoice   map[string]Handler
	onNode     map[string]Handler
	interact   string

	active    bool
	container *Container
	node      *Node
	// gen advances on every display and End so a caller can tell whether a
	// handler redirected the session.
	gen uint64
}

// NewController returns a controller for owner. A nil logger is replaced by
// a no-op logger.
func NewController(owner string, slot *focus.Slot, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		owner:      owner,
		slot:       slot,
		logger:     logger.With(zap.String("npc", owner)),
		display:    nopDisplay{},
		containers: make(map[string]*Container),
		onChoice:   make(map[string]Handler),
		onNode:     make(map[string]Handler),
	}
}

// Owner returns the focus owner name used by this controller.
func (c *Controller) Owner() string { return c.owner }

// SetDisplay routes output to d. A nil d discards output.
func (c *Controller) SetDisplay(d Display) {
	if d == nil {
		d = nopDisplay{}
	}
	c.display = d
}

// SetDatabase sets the snippet database. Containers registered afterwards are
// validated against it.
func (c *Controller) SetDatabase(db *Database) {
	c.db = db
}

// Database returns the snippet database.
func (c *Controller) Database() *Database { return c.db }

// Register validates ct and adds it.
//
// Postcondition: Returns an error, leaving the controller unchanged, when ct
// fails validation or its name is already registered.
func (c *Controller) Register(ct *Container) error {
	if ct == nil {
		return errors.New("registering dialogue container: nil container")
	}
	if _, dup := c.containers[ct.Name]; dup {
		return fmt.Errorf("dialogue container %q already registered", ct.Name)
	}
	if err := ct.Validate(c.db); err != nil {
		return fmt.Errorf("registering dialogue container %q: %w", ct.Name, err)
	}
	c.containers[ct.Name] = ct
	return nil
}

// Container returns a registered container.
func (c *Controller) Container(name string) (*Container, bool) {
	ct, ok := c.containers[name]
	return ct, ok
}

// OnChoiceSelected sets the handler for choiceID, replacing any previous one.
// A nil h clears it.
func (c *Controller) OnChoiceSelected(choiceID string, h Handler) {
	if h == nil {
		delete(c.onChoice, choiceID)
		return
	}
	c.onChoice[choiceID] = h
}

// OnNodeDisplayed sets the handler run after nodeID's text is shown and
// before its choices are offered, replacing any previous one. A nil h clears
// it.
func (c *Controller) OnNodeDisplayed(nodeID string, h Handler) {
	if h == nil {
		delete(c.onNode, nodeID)
		return
	}
	c.onNode[nodeID] = h
}

// UseContainerOnInteract selects the container opened by Interact.
func (c *Controller) UseContainerOnInteract(name string) error {
	if _, ok := c.containers[name]; !ok {
		return fmt.Errorf("dialogue container %q not registered", name)
	}
	c.interact = name
	return nil
}

// InteractContainer returns the container opened by Interact.
func (c *Controller) InteractContainer() string { return c.interact }

// Interact opens the interaction container at its ENTRY node.
//
// Postcondition: On success the owner holds focus and ENTRY has been
// displayed. Interacting during an active session is a no-op.
func (c *Controller) Interact(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.active {
		return nil
	}
	ct, ok := c.containers[c.interact]
	if !ok {
		return ErrNoContainer
	}
	if c.slot != nil {
		if err := c.slot.Acquire(c.owner); err != nil {
			return fmt.Errorf("opening dialogue %q: %w", ct.Name, err)
		}
	}
	c.active = true
	c.logger.Debug("dialogue opened", zap.String("container", ct.Name))
	c.show(ct, ct.nodes[EntryNode])
	return nil
}

// Select chooses choiceID on the current node. The choice handler runs
// first; unless it called JumpTo or End the session moves to the choice's
// target.
func (c *Controller) Select(choiceID string) error {
	if !c.active {
		return ErrNotActive
	}
	ch, ok := c.node.Choice(choiceID)
	if !ok {
		return fmt.Errorf("%w: %q on node %q", ErrUnknownChoice, choiceID, c.node.ID)
	}
	gen := c.gen
	if h, ok := c.onChoice[choiceID]; ok {
		if !c.run("choice", choiceID, h) {
			return nil
		}
	}
	if !c.active || c.gen != gen {
		return nil
	}
	c.show(c.container, c.container.nodes[ch.Target])
	return nil
}

// JumpTo moves the active session to node of container.
func (c *Controller) JumpTo(container, node string) error {
	if !c.active {
		return ErrNotActive
	}
	ct, ok := c.containers[container]
	if !ok {
		return fmt.Errorf("jump: dialogue container %q not registered", container)
	}
	n, ok := ct.nodes[node]
	if !ok {
		return fmt.Errorf("jump: container %q has no node %q", container, node)
	}
	c.show(ct, n)
	return nil
}

// End closes the session and releases focus. It is safe to call at any
// time, including from a handler and when no session is active.
func (c *Controller) End() {
	if !c.active {
		return
	}
	c.active = false
	c.gen++
	c.container, c.node = nil, nil
	c.display.Close(c.owner)
	if c.slot != nil {
		c.slot.Release(c.owner)
	}
	c.logger.Debug("dialogue ended")
}

// Active reports whether a session is open.
func (c *Controller) Active() bool { return c.active }

// Current returns the displayed container and node.
func (c *Controller) Current() (container, node string, ok bool) {
	if !c.active {
		return "", "", false
	}
	return c.container.Name, c.node.ID, true
}

// show displays n, runs its displayed handler, then offers its choices unless
// the handler moved the session elsewhere.
func (c *Controller) show(ct *Container, n *Node) {
	c.gen++
	gen := c.gen
	c.container, c.node = ct, n

	text := n.Text
	if len(References(text)) > 0 {
		expanded, err := c.db.Expand(text)
		if err != nil {
			c.logger.Warn("dialogue snippet unresolved", zap.String("node", n.ID), zap.Error(err))
		}
		text = expanded
	}
	c.display.ShowText(c.owner, ct.Name, n.ID, text)

	if h, ok := c.onNode[n.ID]; ok {
		if !c.run("node", n.ID, h) {
			return
		}
	}
	if !c.active || c.gen != gen {
		return
	}
	if !n.Terminal() {
		c.display.ShowChoices(c.owner, n.Choices)
	}
}

// run invokes h, recovering panics. A failing handler ends the session.
// It reports whether the handler succeeded.
func (c *Controller) run(kind, id string, h Handler) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("dialogue handler panicked",
				zap.String("kind", kind), zap.String("id", id), zap.Any("panic", r))
			c.End()
			ok = false
		}
	}()
	if err := h(c); err != nil {
		c.logger.Warn("dialogue handler failed",
			zap.String("kind", kind), zap.String("id", id), zap.Error(err))
		c.End()
		return false
	}
	return true
}
