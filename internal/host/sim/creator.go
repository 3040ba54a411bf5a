package sim

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/npcmod/internal/game/appearance"
	"github.com/cory-johannsen/npcmod/internal/game/focus"
	"github.com/cory-johannsen/npcmod/internal/host"
)

// ErrCreatorClosed is returned when completing or closing a creator that is
// not open.
var ErrCreatorClosed = errors.New("character creator is not open")

// Creator is a simulated character creator. Tests and the dev binary drive
// it with Complete and Cancel.
type Creator struct {
	slot   *focus.Slot
	logger *zap.Logger

	mu        sync.Mutex
	open      bool
	next      int
	completed map[int]func(appearance.Snapshot)
	closed    map[int]func()
}

func newCreator(slot *focus.Slot, logger *zap.Logger) *Creator {
	return &Creator{
		slot:      slot,
		logger:    logger,
		completed: make(map[int]func(appearance.Snapshot)),
		closed:    make(map[int]func()),
	}
}

// PreRegisterAsActiveUI implements host.CharacterCreator.
func (c *Creator) PreRegisterAsActiveUI() error {
	return c.slot.PreRegister(host.CharacterCreatorOwner)
}

// Open implements host.CharacterCreator.
func (c *Creator) Open() error {
	if err := c.slot.Acquire(host.CharacterCreatorOwner); err != nil {
		return err
	}
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()
	c.logger.Info("character creator opened")
	return nil
}

// IsOpen reports whether the creator is showing.
func (c *Creator) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// OnCompleted implements host.CharacterCreator.
func (c *Creator) OnCompleted(h func(appearance.Snapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	c.completed[id] = h
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.completed, id)
	}
}

// OnClosed implements host.CharacterCreator.
func (c *Creator) OnClosed(h func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	c.closed[id] = h
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.closed, id)
	}
}

// Subscribers returns the number of live completion and close subscriptions.
func (c *Creator) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.completed) + len(c.closed)
}

// Complete finishes editing with s, notifies completion subscribers, and
// releases focus.
func (c *Creator) Complete(s appearance.Snapshot) error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return ErrCreatorClosed
	}
	c.open = false
	hs := make([]func(appearance.Snapshot), 0, len(c.completed))
	for _, h := range c.completed {
		hs = append(hs, h)
	}
	c.mu.Unlock()

	c.slot.Release(host.CharacterCreatorOwner)
	for _, h := range hs {
		h(s)
	}
	return nil
}

// Cancel closes the creator without completing, notifies close subscribers,
// and releases focus.
func (c *Creator) Cancel() error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return ErrCreatorClosed
	}
	c.open = false
	hs := make([]func(), 0, len(c.closed))
	for _, h := range c.closed {
		hs = append(hs, h)
	}
	c.mu.Unlock()

	c.slot.Release(host.CharacterCreatorOwner)
	for _, h := range hs {
		h()
	}
	return nil
}
