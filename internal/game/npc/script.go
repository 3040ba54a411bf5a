package npc

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/npcmod/internal/game/appearance"
	"github.com/cory-johannsen/npcmod/internal/game/dialogue"
	"github.com/cory-johannsen/npcmod/internal/host"
	"github.com/cory-johannsen/npcmod/internal/scripting"
)

// Scripts dispatches named hook functions. *scripting.Manager implements it.
type Scripts interface {
	HasHook(key, hook string) bool
	CallHook(key, hook string, env *scripting.Env, args ...lua.LValue) (lua.LValue, error)
}

// session is the engine surface one hook call sees. Dialogue and UI
// requests are recorded during the call and applied in call order once the
// hook returns, so that effects which run further hooks (a jump displaying a
// node with its own handler) never re-enter the script VM mid-call.
type session struct {
	e    *Entity
	ctrl *dialogue.Controller
	ops  []func() error
}

func (s *session) queue(op func() error) {
	s.ops = append(s.ops, op)
}

// JumpTo implements scripting.DialogueAPI. The target is checked
// immediately so a bad jump fails inside the script.
func (s *session) JumpTo(container, node string) error {
	ct, ok := s.ctrl.Container(container)
	if !ok {
		return fmt.Errorf("dialogue container %q not registered", container)
	}
	if _, ok := ct.Node(node); !ok {
		return fmt.Errorf("container %q has no node %q", container, node)
	}
	s.queue(func() error { return s.ctrl.JumpTo(container, node) })
	return nil
}

// End implements scripting.DialogueAPI.
func (s *session) End() {
	s.queue(func() error {
		s.ctrl.End()
		return nil
	})
}

// PreRegisterCharacterCreator implements scripting.UIAPI.
func (s *session) PreRegisterCharacterCreator() error {
	cc := s.e.ports.Creator
	if cc == nil {
		return host.ErrNoCreator
	}
	s.queue(cc.PreRegisterAsActiveUI)
	return nil
}

// OpenCharacterCreator implements scripting.UIAPI.
func (s *session) OpenCharacterCreator() error {
	cc := s.e.ports.Creator
	if cc == nil {
		return host.ErrNoCreator
	}
	s.queue(func() error {
		return host.OpenCharacterCreator(cc, s.e.creatorCompleted, s.e.creatorClosed)
	})
	return nil
}

func (s *session) apply() error {
	for _, op := range s.ops {
		if err := op(); err != nil {
			return err
		}
	}
	return nil
}

// textSender implements scripting.MessagesAPI for one NPC.
type textSender struct {
	m     host.Messenger
	npcID string
}

func (t textSender) Send(text string) error {
	return t.m.SendText(t.npcID, text)
}

// callHook runs fn from the entity's script and then applies the session's
// queued effects. ctrl is nil outside dialogue.
func (e *Entity) callHook(fn string, ctrl *dialogue.Controller, args ...lua.LValue) error {
	s := &session{e: e, ctrl: ctrl}
	env := &scripting.Env{
		NPC:      e.def.ID,
		Money:    e.ports.Wallet,
		Messages: textSender{m: e.ports.Messenger, npcID: e.def.ID},
		UI:       s,
	}
	if ctrl != nil {
		env.Dialogue = s
	}
	if _, err := e.scripts.CallHook(e.def.ID, fn, env, args...); err != nil {
		return err
	}
	return s.apply()
}

// dialogueHandler adapts a script function to a dialogue handler.
func (e *Entity) dialogueHandler(fn string) dialogue.Handler {
	return func(c *dialogue.Controller) error {
		return e.callHook(fn, c)
	}
}

func (e *Entity) creatorCompleted(snap appearance.Snapshot) {
	e.logger.Info("character customization completed")
	if fn := e.def.Creator.Completed; fn != "" {
		if err := e.callHook(fn, nil, lua.LString(snap.Hair)); err != nil {
			e.logger.Warn("creator completed hook failed", zap.Error(err))
		}
	}
}

func (e *Entity) creatorClosed() {
	e.logger.Info("character creator closed without completing")
	if fn := e.def.Creator.Closed; fn != "" {
		if err := e.callHook(fn, nil); err != nil {
			e.logger.Warn("creator closed hook failed", zap.Error(err))
		}
	}
}
