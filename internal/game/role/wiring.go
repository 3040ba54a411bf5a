package role

import (
	"fmt"

	"go.uber.org/zap"
)

// Attachment records one handler attached by WireEvents.
type Attachment struct {
	Role  Kind
	Event Event
}

// Report describes the outcome of WireEvents.
type Report struct {
	Attached []Attachment
	// Missing lists roles that have bindings but no component on the NPC.
	Missing []Kind
}

// Complete reports whether every bound role was present.
func (r Report) Complete() bool { return len(r.Missing) == 0 }

type binding struct {
	event   Event
	handler Handler
}

// Wiring holds an NPC's role event bindings and applies them to whichever
// role components the NPC carries.
type Wiring struct {
	Dealer   *Component
	Customer *Component

	logger   *zap.Logger
	bindings map[Kind][]binding
}

// NewWiring returns a wiring for the given components; either may be nil.
func NewWiring(dealer, customer *Component, logger *zap.Logger) *Wiring {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wiring{
		Dealer:   dealer,
		Customer: customer,
		logger:   logger,
		bindings: make(map[Kind][]binding),
	}
}

// OnDealer binds h to a dealer event.
func (w *Wiring) OnDealer(ev Event, h Handler) error {
	return w.bind(KindDealer, ev, h)
}

// OnCustomer binds h to a customer event.
func (w *Wiring) OnCustomer(ev Event, h Handler) error {
	return w.bind(KindCustomer, ev, h)
}

func (w *Wiring) bind(k Kind, ev Event, h Handler) error {
	probe := Component{kind: k}
	if !probe.Supports(ev) {
		return fmt.Errorf("binding %s: %w: %s", k, ErrUnsupportedEvent, ev)
	}
	if h == nil {
		return fmt.Errorf("binding %s %s: nil handler", k, ev)
	}
	bs := w.bindings[k]
	for i := range bs {
		if bs[i].event == ev {
			bs[i].handler = h
			return nil
		}
	}
	w.bindings[k] = append(bs, binding{event: ev, handler: h})
	return nil
}

func (w *Wiring) component(k Kind) *Component {
	if k == KindDealer {
		return w.Dealer
	}
	return w.Customer
}

// WireEvents attaches every binding to its role component. Each handler is
// detached before it is attached, so calling WireEvents any number of times
// leaves exactly one handler per event.
//
// Postcondition: a role with bindings but no component is skipped and listed
// in Report.Missing.
func (w *Wiring) WireEvents() Report {
	var rep Report
	for _, k := range []Kind{KindDealer, KindCustomer} {
		bs := w.bindings[k]
		if len(bs) == 0 {
			continue
		}
		c := w.component(k)
		if c == nil {
			rep.Missing = append(rep.Missing, k)
			w.logger.Info("role absent, event wiring skipped", zap.String("role", string(k)))
			continue
		}
		for _, b := range bs {
			c.Clear(b.event)
			if err := c.Set(b.event, b.handler); err != nil {
				// bind already checked support; a failure here means the
				// component's kind disagrees with the slot it occupies.
				w.logger.Warn("role event wiring failed", zap.String("role", string(k)), zap.Error(err))
				continue
			}
			rep.Attached = append(rep.Attached, Attachment{Role: k, Event: b.event})
		}
	}
	return rep
}

// UnwireEvents detaches every bound handler. It is safe to call when events
// were never wired or a role is absent.
func (w *Wiring) UnwireEvents() {
	for k, bs := range w.bindings {
		c := w.component(k)
		if c == nil {
			continue
		}
		for _, b := range bs {
			c.Clear(b.event)
		}
	}
}
