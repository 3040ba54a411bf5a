// Package host declares the ports through which NPC behavior reaches the
// host engine: rendering, world lookups, messaging, the player's wallet, role
// services, interaction focus, dialogue display and the character creator.
package host

import (
	"errors"
	"time"

	"github.com/cory-johannsen/npcmod/internal/game/appearance"
	"github.com/cory-johannsen/npcmod/internal/game/dialogue"
	"github.com/cory-johannsen/npcmod/internal/game/focus"
	"github.com/cory-johannsen/npcmod/internal/game/role"
	"github.com/cory-johannsen/npcmod/internal/game/schedule"
)

// CharacterCreatorOwner is the focus owner name used by the character creator.
const CharacterCreatorOwner = "character_creator"

// TextMessage is a message an NPC sent to the player's phone.
type TextMessage struct {
	ID     string
	NPC    string
	Text   string
	SentAt time.Time
}

// RendererFactory returns the visual entity renderer for an NPC instance.
type RendererFactory interface {
	Renderer(instanceID string) appearance.Renderer
}

// Messenger delivers NPC text messages to the player.
type Messenger interface {
	SendText(npcID, text string) error
}

// Wallet is the player's cash balance.
type Wallet interface {
	Balance() float64
	Change(delta float64) error
}

// CharacterCreator is the host's appearance editor UI.
type CharacterCreator interface {
	// PreRegisterAsActiveUI reserves focus for the creator so a closing
	// dialogue hands focus over instead of restoring the camera.
	PreRegisterAsActiveUI() error
	Open() error
	// OnCompleted subscribes h to completion and returns its unsubscribe.
	OnCompleted(h func(appearance.Snapshot)) (unsubscribe func())
	// OnClosed subscribes h to the creator closing without completion.
	OnClosed(h func()) (unsubscribe func())
}

// Ports groups every host capability an NPC entity uses.
type Ports struct {
	Renderers RendererFactory
	Resolver  schedule.Resolver
	Messenger Messenger
	Wallet    Wallet
	Roles     role.Service
	Focus     *focus.Slot
	Display   dialogue.Display
	Creator   CharacterCreator
}

// Validate reports missing required ports. Display and Creator are optional.
func (p Ports) Validate() error {
	var errs []error
	if p.Renderers == nil {
		errs = append(errs, errors.New("host: renderer factory is required"))
	}
	if p.Resolver == nil {
		errs = append(errs, errors.New("host: resolver is required"))
	}
	if p.Messenger == nil {
		errs = append(errs, errors.New("host: messenger is required"))
	}
	if p.Wallet == nil {
		errs = append(errs, errors.New("host: wallet is required"))
	}
	if p.Focus == nil {
		errs = append(errs, errors.New("host: focus slot is required"))
	}
	return errors.Join(errs...)
}
