// Package focus models the single process-wide interaction focus: at most one
// dialogue or modal UI holds it at a time.
package focus

import (
	"errors"
	"fmt"
	"sync"
)

// ErrHeld is returned when acquiring a slot that another owner holds.
var ErrHeld = errors.New("focus is held by another owner")

// Default names the owner the host falls back to when nobody holds focus,
// typically the player camera.
const Default = ""

// Listener observes every holder change. from and to may be Default.
type Listener func(from, to string)

// Slot is the focus slot.
//
// Invariant: at most one holder; a pending owner, when set, becomes the
// holder as soon as the current holder releases.
type Slot struct {
	mu        sync.Mutex
	holder    string
	pending   string
	listeners []Listener
}

// NewSlot returns an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Watch registers l for holder changes.
func (s *Slot) Watch(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Holder returns the current holder, or Default when free.
func (s *Slot) Holder() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holder
}

// Pending returns the owner reserved to take focus next.
func (s *Slot) Pending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Acquire takes focus for owner.
//
// Precondition: owner is non-empty.
// Postcondition: Returns nil iff owner is now the holder. Re-acquiring by the
// current holder succeeds. A free slot reserved for someone else is refused.
func (s *Slot) Acquire(owner string) error {
	if owner == Default {
		return errors.New("focus owner must not be empty")
	}
	s.mu.Lock()
	if s.holder == owner {
		s.mu.Unlock()
		return nil
	}
	if s.holder != Default {
		holder := s.holder
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrHeld, holder)
	}
	if s.pending != Default && s.pending != owner {
		pending := s.pending
		s.mu.Unlock()
		return fmt.Errorf("%w: reserved for %q", ErrHeld, pending)
	}
	s.pending = Default
	notify := s.set(owner)
	s.mu.Unlock()
	notify()
	return nil
}

// PreRegister reserves the slot for owner so that the next Release hands
// focus directly to it instead of falling back to Default.
func (s *Slot) PreRegister(owner string) error {
	if owner == Default {
		return errors.New("focus owner must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = owner
	return nil
}

// Release gives up focus held by owner. Releasing a slot owner does not hold
// is a no-op.
//
// Postcondition: the holder becomes the pending owner if one is reserved,
// otherwise Default.
func (s *Slot) Release(owner string) {
	s.mu.Lock()
	if s.holder != owner || owner == Default {
		s.mu.Unlock()
		return
	}
	next := s.pending
	s.pending = Default
	notify := s.set(next)
	s.mu.Unlock()
	notify()
}

// set must be called with mu held; the returned func notifies listeners and
// must be called after unlocking.
func (s *Slot) set(to string) func() {
	from := s.holder
	s.holder = to
	ls := append([]Listener(nil), s.listeners...)
	return func() {
		for _, l := range ls {
			l(from, to)
		}
	}
}
