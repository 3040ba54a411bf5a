// Package schedule implements an NPC's daily action timeline: an ordered set
// of actions keyed by military start time that the host evaluates against the
// world clock.
package schedule

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/npcmod/internal/game/clock"
	"github.com/cory-johannsen/npcmod/internal/game/world"
)

// ErrTimelineActive is returned when a timeline is mutated after Enable.
var ErrTimelineActive = errors.New("timeline is active")

// ErrNotEnabled is returned when InitializeActions runs before Enable.
var ErrNotEnabled = errors.New("timeline is not enabled")

// State is a timeline lifecycle state. Transitions only move forward.
type State int

const (
	Unconfigured State = iota
	Configured
	Active
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Active:
		return "active"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Resolver looks up world objects by name. world.Manager satisfies it.
type Resolver interface {
	ResolveBuilding(name string) (world.Ref, error)
	ResolveVendingMachine(name string) (world.Ref, error)
	ResolveParkingLot(name string) (world.Ref, error)
}

// ResolveError reports a schedule entry whose world reference could not be
// resolved. It is a configuration error.
type ResolveError struct {
	Start clock.MilitaryTime
	Ref   Reference
	Err   error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("schedule entry at %s: resolving %s %q: %v", e.Start, e.Ref.Kind, e.Ref.Name, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Entry is one timeline slot. Resolved is set by InitializeActions for actions
// that carry a world reference.
type Entry struct {
	Start    clock.MilitaryTime
	Action   Action
	Resolved *world.Ref
	seq      int
}

// Timeline is an NPC's daily schedule.
//
// Invariant: entries are sorted by ascending Start, ties by insertion order.
type Timeline struct {
	entries     []*Entry
	signals     map[string]bool
	state       State
	initialized bool
	nextSeq     int
}

// New returns an empty, Unconfigured timeline.
func New() *Timeline {
	return &Timeline{signals: make(map[string]bool)}
}

// State returns the current lifecycle state.
func (t *Timeline) State() State { return t.state }

// Len returns the number of entries.
func (t *Timeline) Len() int { return len(t.entries) }

// AddAction inserts action at start.
//
// Precondition: the timeline is not Active.
// Postcondition: On success the entry is placed after every existing entry
// with Start <= start and the timeline is Configured.
func (t *Timeline) AddAction(start clock.MilitaryTime, action Action) error {
	if t.state == Active {
		return ErrTimelineActive
	}
	if err := start.Validate(); err != nil {
		return fmt.Errorf("adding %s: %w", actionKind(action), err)
	}
	if action == nil {
		return fmt.Errorf("adding entry at %s: action must not be nil", start)
	}
	if err := action.Validate(); err != nil {
		return fmt.Errorf("adding entry at %s: %w", start, err)
	}
	e := &Entry{Start: start, Action: action, seq: t.nextSeq}
	t.nextSeq++
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].Start > start })
	t.entries = append(t.entries, nil)
	copy(t.entries[i+1:], t.entries[i:])
	t.entries[i] = e
	t.state = Configured
	return nil
}

// EnsureSignal declares an untimed capability window that is open all day.
// Calling it again with the same name has no further effect.
func (t *Timeline) EnsureSignal(name string) error {
	if t.state == Active {
		return ErrTimelineActive
	}
	if name == "" {
		return errors.New("signal name must not be empty")
	}
	t.signals[name] = true
	if t.state == Unconfigured {
		t.state = Configured
	}
	return nil
}

// Enable activates the timeline. An empty timeline may be enabled directly.
// Enabling an Active timeline is a no-op.
func (t *Timeline) Enable() {
	t.state = Active
}

// InitializeActions resolves every entry's world reference through r.
//
// Precondition: the timeline is Active.
// Postcondition: Each entry is resolved at most once across calls. Returns nil
// and marks the timeline initialized iff every reference resolved; otherwise
// the returned error joins one *ResolveError per failing entry.
func (t *Timeline) InitializeActions(r Resolver) error {
	if t.state != Active {
		return ErrNotEnabled
	}
	if t.initialized {
		return nil
	}
	var errs []error
	for _, e := range t.entries {
		if e.Resolved != nil {
			continue
		}
		ref, ok := e.Action.Reference()
		if !ok {
			continue
		}
		if r == nil {
			errs = append(errs, &ResolveError{Start: e.Start, Ref: ref, Err: errors.New("no resolver")})
			continue
		}
		resolved, err := resolve(r, ref)
		if err != nil {
			errs = append(errs, &ResolveError{Start: e.Start, Ref: ref, Err: err})
			continue
		}
		e.Resolved = &resolved
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	t.initialized = true
	return nil
}

func resolve(r Resolver, ref Reference) (world.Ref, error) {
	switch ref.Kind {
	case world.RefBuilding:
		return r.ResolveBuilding(ref.Name)
	case world.RefVendingMachine:
		return r.ResolveVendingMachine(ref.Name)
	case world.RefParkingLot:
		return r.ResolveParkingLot(ref.Name)
	default:
		return world.Ref{}, fmt.Errorf("unknown reference kind %q", ref.Kind)
	}
}

// Initialized reports whether InitializeActions has succeeded.
func (t *Timeline) Initialized() bool { return t.initialized }

// index returns the position of the entry in effect at now, or -1 when empty.
func (t *Timeline) index(now clock.MilitaryTime) int {
	n := len(t.entries)
	if n == 0 {
		return -1
	}
	i := sort.Search(n, func(i int) bool { return t.entries[i].Start > now })
	if i == 0 {
		// Before the first entry of the day: the last entry carries over
		// from the previous day.
		return n - 1
	}
	return i - 1
}

// At returns the entry in effect at now: the latest entry with Start <= now,
// or the last entry of the day when now precedes every entry.
//
// Postcondition: ok is false only for an empty timeline.
func (t *Timeline) At(now clock.MilitaryTime) (Entry, bool) {
	i := t.index(now)
	if i < 0 {
		return Entry{}, false
	}
	return *t.entries[i], true
}

// Next returns the entry that follows the one in effect at now, wrapping to
// the first entry of the day.
func (t *Timeline) Next(now clock.MilitaryTime) (Entry, bool) {
	i := t.index(now)
	if i < 0 {
		return Entry{}, false
	}
	return *t.entries[(i+1)%len(t.entries)], true
}

// SignalActive reports whether the capability window name is open at now.
func (t *Timeline) SignalActive(name string, now clock.MilitaryTime) bool {
	if t.signals[name] {
		return true
	}
	e, ok := t.At(now)
	if !ok {
		return false
	}
	sig, isSignal := e.Action.(Signal)
	return isSignal && sig.Name == name
}

// Signals returns the untimed signal names in sorted order.
func (t *Timeline) Signals() []string {
	out := make([]string, 0, len(t.signals))
	for name := range t.signals {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Entries returns a copy of the ordered entries.
func (t *Timeline) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = *e
	}
	return out
}

func actionKind(a Action) Kind {
	if a == nil {
		return "<nil>"
	}
	return a.Kind()
}
