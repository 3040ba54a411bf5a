// Package sim is an in-memory host used by the development binary and by
// tests. It implements every port in package host over a loaded world.
package sim

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/npcmod/internal/game/appearance"
	"github.com/cory-johannsen/npcmod/internal/game/dialogue"
	"github.com/cory-johannsen/npcmod/internal/game/focus"
	"github.com/cory-johannsen/npcmod/internal/game/role"
	"github.com/cory-johannsen/npcmod/internal/game/world"
	"github.com/cory-johannsen/npcmod/internal/host"
)

// ErrInsufficientFunds is returned when a wallet change would go negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

// inboxTimeout bounds each persistence write.
const inboxTimeout = 5 * time.Second

// Inbox persists text messages. postgres.InboxRepository satisfies it.
type Inbox interface {
	Append(ctx context.Context, msg host.TextMessage) error
}

// RoleDispatcher raises a role event on the NPC that owns the role.
type RoleDispatcher func(npcID string, k role.Kind, ev role.Event) error

// Recommendation records a dealer recommended to a customer.
type Recommendation struct {
	Dealer   string
	Customer string
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// WithInbox persists every sent text message to inbox.
func WithInbox(inbox Inbox) Option {
	return func(h *Host) { h.inbox = inbox }
}

// WithClock overrides the wall clock used to stamp messages.
func WithClock(now func() time.Time) Option {
	return func(h *Host) { h.now = now }
}

// Host is the simulated engine.
type Host struct {
	world   *world.Manager
	slot    *focus.Slot
	logger  *zap.Logger
	inbox   Inbox
	now     func() time.Time
	creator *Creator

	mu              sync.Mutex
	balance         float64
	messages        []host.TextMessage
	renders         map[string][]appearance.Snapshot
	recommendations []Recommendation
	orders          []string
	transcript      []string
	dispatch        RoleDispatcher
}

// New returns a Host over w with the world's starting cash.
func New(w *world.Manager, opts ...Option) *Host {
	h := &Host{
		world:   w,
		slot:    focus.NewSlot(),
		logger:  zap.NewNop(),
		now:     time.Now,
		balance: w.World().StartingCash,
		renders: make(map[string][]appearance.Snapshot),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.creator = newCreator(h.slot, h.logger)
	return h
}

// Ports returns the host's port set.
func (h *Host) Ports() host.Ports {
	return host.Ports{
		Renderers: h,
		Resolver:  h.world,
		Messenger: h,
		Wallet:    h,
		Roles:     h,
		Focus:     h.slot,
		Display:   h,
		Creator:   h.creator,
	}
}

// Focus returns the process-wide focus slot.
func (h *Host) Focus() *focus.Slot { return h.slot }

// Creator returns the simulated character creator.
func (h *Host) Creator() *Creator { return h.creator }

// World returns the world registries.
func (h *Host) World() *world.Manager { return h.world }

// SetRoleDispatcher routes host-raised role events, such as a dealer being
// recommended, to NPC entities.
func (h *Host) SetRoleDispatcher(d RoleDispatcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dispatch = d
}

type renderer struct {
	h  *Host
	id string
}

func (r renderer) Apply(s appearance.Snapshot) error {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	r.h.renders[r.id] = append(r.h.renders[r.id], s)
	return nil
}

// Renderer implements host.RendererFactory.
func (h *Host) Renderer(instanceID string) appearance.Renderer {
	return renderer{h: h, id: instanceID}
}

// Rendered returns every snapshot applied to instanceID, oldest first.
func (h *Host) Rendered(instanceID string) []appearance.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]appearance.Snapshot(nil), h.renders[instanceID]...)
}

// SendText implements host.Messenger. The message is kept in memory and, when
// an inbox is configured, persisted.
func (h *Host) SendText(npcID, text string) error {
	msg := host.TextMessage{ID: uuid.NewString(), NPC: npcID, Text: text, SentAt: h.now()}
	h.mu.Lock()
	h.messages = append(h.messages, msg)
	h.mu.Unlock()
	h.logger.Info("text message", zap.String("npc", npcID), zap.String("text", text))

	if h.inbox == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), inboxTimeout)
	defer cancel()
	if err := h.inbox.Append(ctx, msg); err != nil {
		return fmt.Errorf("persisting message from %q: %w", npcID, err)
	}
	return nil
}

// Messages returns every sent message, oldest first.
func (h *Host) Messages() []host.TextMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]host.TextMessage(nil), h.messages...)
}

// Balance implements host.Wallet.
func (h *Host) Balance() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.balance
}

// Change implements host.Wallet.
func (h *Host) Change(delta float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.balance+delta < 0 {
		return fmt.Errorf("changing balance %.2f by %.2f: %w", h.balance, delta, ErrInsufficientFunds)
	}
	h.balance += delta
	return nil
}

// RecommendDealer implements role.Service and raises the dealer's
// recommended event.
func (h *Host) RecommendDealer(dealerID, customerID string) error {
	h.mu.Lock()
	h.recommendations = append(h.recommendations, Recommendation{Dealer: dealerID, Customer: customerID})
	dispatch := h.dispatch
	h.mu.Unlock()
	if dispatch == nil {
		return nil
	}
	return dispatch(dealerID, role.KindDealer, role.EventRecommended)
}

// RequestProduct implements role.Service.
func (h *Host) RequestProduct(customerID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.orders = append(h.orders, customerID)
	return nil
}

// Recommendations returns recorded dealer recommendations.
func (h *Host) Recommendations() []Recommendation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Recommendation(nil), h.recommendations...)
}

// Orders returns the customers that requested product.
func (h *Host) Orders() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.orders...)
}

// ShowText implements dialogue.Display.
func (h *Host) ShowText(owner, container, node, text string) {
	h.record(fmt.Sprintf("%s: %s", owner, text))
	h.logger.Debug("dialogue text", zap.String("npc", owner), zap.String("container", container), zap.String("node", node))
}

// ShowChoices implements dialogue.Display.
func (h *Host) ShowChoices(owner string, choices []dialogue.Choice) {
	labels := make([]string, len(choices))
	for i, ch := range choices {
		labels[i] = fmt.Sprintf("[%s] %s", ch.ID, ch.Label)
	}
	h.record(fmt.Sprintf("%s> %s", owner, strings.Join(labels, " | ")))
}

// Close implements dialogue.Display.
func (h *Host) Close(owner string) {
	h.record(fmt.Sprintf("%s: <closed>", owner))
}

func (h *Host) record(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transcript = append(h.transcript, line)
}

// Transcript returns every displayed dialogue line.
func (h *Host) Transcript() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.transcript...)
}
