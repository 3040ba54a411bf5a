// Package role models the economic roles an NPC may carry (dealer and
// customer) and the idempotent wiring of lifecycle-event handlers onto them.
package role

import (
	"errors"
	"fmt"
)

// Kind names a role.
type Kind string

const (
	KindDealer   Kind = "dealer"
	KindCustomer Kind = "customer"
)

// Event is a role lifecycle notification raised by the host.
type Event string

const (
	EventRecruited        Event = "recruited"
	EventContractAccepted Event = "contract_accepted"
	EventRecommended      Event = "recommended"
	EventDealCompleted    Event = "deal_completed"
	EventUnlocked         Event = "unlocked"
	EventContractAssigned Event = "contract_assigned"
)

var supported = map[Kind][]Event{
	KindDealer:   {EventRecruited, EventContractAccepted, EventRecommended, EventDealCompleted},
	KindCustomer: {EventUnlocked, EventDealCompleted, EventContractAssigned},
}

// Events returns the events a role kind raises.
func Events(k Kind) []Event {
	return append([]Event(nil), supported[k]...)
}

var (
	// ErrUnsupportedEvent is returned when binding an event the role never raises.
	ErrUnsupportedEvent = errors.New("event not supported by role")
	// ErrWrongRole is returned when invoking an operation of the other role.
	ErrWrongRole = errors.New("operation not available for role")
	// ErrNoService is returned by role operations when no host service is set.
	ErrNoService = errors.New("no role service")
)

// Handler reacts to a role event.
type Handler func(npcID string, ev Event) error

// Service carries out cross-NPC role operations. The host implements it.
type Service interface {
	RecommendDealer(dealerID, customerID string) error
	RequestProduct(customerID string) error
}

// Component is one role attached to one NPC.
//
// Invariant: at most one handler per event.
type Component struct {
	kind     Kind
	npcID    string
	service  Service
	handlers map[Event]Handler
}

// NewDealer returns a dealer role for npcID.
func NewDealer(npcID string, svc Service) *Component {
	return newComponent(KindDealer, npcID, svc)
}

// NewCustomer returns a customer role for npcID.
func NewCustomer(npcID string, svc Service) *Component {
	return newComponent(KindCustomer, npcID, svc)
}

func newComponent(k Kind, npcID string, svc Service) *Component {
	return &Component{kind: k, npcID: npcID, service: svc, handlers: make(map[Event]Handler)}
}

// Kind returns the role kind.
func (c *Component) Kind() Kind { return c.kind }

// NPC returns the owning NPC's ID.
func (c *Component) NPC() string { return c.npcID }

// Supports reports whether the role raises ev.
func (c *Component) Supports(ev Event) bool {
	for _, e := range supported[c.kind] {
		if e == ev {
			return true
		}
	}
	return false
}

// Set attaches h to ev, replacing any previous handler.
func (c *Component) Set(ev Event, h Handler) error {
	if !c.Supports(ev) {
		return fmt.Errorf("%s %q: %w: %s", c.kind, c.npcID, ErrUnsupportedEvent, ev)
	}
	if h == nil {
		return fmt.Errorf("%s %q: nil handler for %s", c.kind, c.npcID, ev)
	}
	c.handlers[ev] = h
	return nil
}

// Clear detaches the handler for ev, if any.
func (c *Component) Clear(ev Event) {
	delete(c.handlers, ev)
}

// Attached reports whether a handler is attached to ev.
func (c *Component) Attached(ev Event) bool {
	_, ok := c.handlers[ev]
	return ok
}

// Fire raises ev. It reports whether a handler ran; a panicking handler is
// recovered and returned as an error.
func (c *Component) Fire(ev Event) (ran bool, err error) {
	h, ok := c.handlers[ev]
	if !ok {
		return false, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s %q %s handler panicked: %v", c.kind, c.npcID, ev, r)
		}
	}()
	ran = true
	err = h(c.npcID, ev)
	return ran, err
}

// RecommendTo asks the host to recommend this dealer to customerID.
func (c *Component) RecommendTo(customerID string) error {
	if c.kind != KindDealer {
		return fmt.Errorf("recommend: %w %s", ErrWrongRole, c.kind)
	}
	if c.service == nil {
		return ErrNoService
	}
	return c.service.RecommendDealer(c.npcID, customerID)
}

// RequestProduct asks the host to raise a product request from this customer.
func (c *Component) RequestProduct() error {
	if c.kind != KindCustomer {
		return fmt.Errorf("request product: %w %s", ErrWrongRole, c.kind)
	}
	if c.service == nil {
		return ErrNoService
	}
	return c.service.RequestProduct(c.npcID)
}
