package host

import (
	"errors"
	"sync"

	"github.com/cory-johannsen/npcmod/internal/game/appearance"
)

// ErrNoCreator is returned when the host has no character creator.
var ErrNoCreator = errors.New("host: no character creator")

// creatorSession tracks one open of the character creator.
type creatorSession struct {
	mu    sync.Mutex
	subs  []func()
	fired bool
}

// fire marks the session finished and unsubscribes everything registered so
// far. Only the first call returns true.
func (s *creatorSession) fire() bool {
	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		return false
	}
	s.fired = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, u := range subs {
		u()
	}
	return true
}

func (s *creatorSession) add(unsub func()) {
	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		unsub()
		return
	}
	s.subs = append(s.subs, unsub)
	s.mu.Unlock()
}

// OpenCharacterCreator subscribes to the creator's completion and close
// events, then opens it. Whichever event fires first unsubscribes both and
// invokes its callback; the other callback never runs. Either callback may
// be nil.
func OpenCharacterCreator(cc CharacterCreator, onCompleted func(appearance.Snapshot), onClosed func()) error {
	if cc == nil {
		return ErrNoCreator
	}
	s := &creatorSession{}
	s.add(cc.OnCompleted(func(snap appearance.Snapshot) {
		if s.fire() && onCompleted != nil {
			onCompleted(snap)
		}
	}))
	s.add(cc.OnClosed(func() {
		if s.fire() && onClosed != nil {
			onClosed()
		}
	}))
	if err := cc.Open(); err != nil {
		s.fire()
		return err
	}
	return nil
}
