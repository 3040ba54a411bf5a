package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// registerModules installs the engine global into v's LState. Every function
// reads v.env at call time, so the same tables serve every CallHook.
//
// Postcondition: engine.{log,npc,dialogue,money,messages,ui} are defined.
func (m *Manager) registerModules(v *vm) {
	L := v.L
	engine := L.NewTable()
	L.SetGlobal("engine", engine)

	L.SetField(engine, "log", m.logModule(v))
	L.SetField(engine, "npc", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"id": func(L *lua.LState) int {
			if v.env == nil {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LString(v.env.NPC))
			return 1
		},
	}))
	L.SetField(engine, "dialogue", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"jump_to": func(L *lua.LState) int {
			d := dialogueOf(L, v)
			if err := d.JumpTo(L.CheckString(1), L.CheckString(2)); err != nil {
				L.RaiseError("engine.dialogue.jump_to: %s", err.Error())
			}
			return 0
		},
		"end_dialogue": func(L *lua.LState) int {
			dialogueOf(L, v).End()
			return 0
		},
	}))
	L.SetField(engine, "money", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"balance": func(L *lua.LState) int {
			L.Push(lua.LNumber(moneyOf(L, v).Balance()))
			return 1
		},
		"change": func(L *lua.LState) int {
			delta := float64(L.CheckNumber(1))
			if err := moneyOf(L, v).Change(delta); err != nil {
				L.Push(lua.LFalse)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(lua.LTrue)
			return 1
		},
	}))
	L.SetField(engine, "messages", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"send": func(L *lua.LState) int {
			if v.env == nil || v.env.Messages == nil {
				L.RaiseError("engine.messages unavailable")
			}
			if err := v.env.Messages.Send(L.CheckString(1)); err != nil {
				m.logger.Warn("scripting: send failed", zap.String("npc", v.env.NPC), zap.Error(err))
				L.Push(lua.LFalse)
				return 1
			}
			L.Push(lua.LTrue)
			return 1
		},
	}))
	L.SetField(engine, "ui", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"pre_register_character_creator": func(L *lua.LState) int {
			if err := uiOf(L, v).PreRegisterCharacterCreator(); err != nil {
				L.RaiseError("engine.ui.pre_register_character_creator: %s", err.Error())
			}
			return 0
		},
		"open_character_creator": func(L *lua.LState) int {
			if err := uiOf(L, v).OpenCharacterCreator(); err != nil {
				L.RaiseError("engine.ui.open_character_creator: %s", err.Error())
			}
			return 0
		},
	}))
}

func (m *Manager) logModule(v *vm) *lua.LTable {
	logAt := func(fn func(string, ...zap.Field)) lua.LGFunction {
		return func(L *lua.LState) int {
			npc := ""
			if v.env != nil {
				npc = v.env.NPC
			}
			fn(L.CheckString(1), zap.String("npc", npc), zap.String("source", "lua"))
			return 0
		}
	}
	t := v.L.NewTable()
	v.L.SetFuncs(t, map[string]lua.LGFunction{
		"debug": logAt(m.logger.Debug),
		"info":  logAt(m.logger.Info),
		"warn":  logAt(m.logger.Warn),
		"error": logAt(m.logger.Error),
	})
	return t
}

func dialogueOf(L *lua.LState, v *vm) DialogueAPI {
	if v.env == nil || v.env.Dialogue == nil {
		L.RaiseError("engine.dialogue unavailable outside a dialogue hook")
	}
	return v.env.Dialogue
}

func moneyOf(L *lua.LState, v *vm) MoneyAPI {
	if v.env == nil || v.env.Money == nil {
		L.RaiseError("engine.money unavailable")
	}
	return v.env.Money
}

func uiOf(L *lua.LState, v *vm) UIAPI {
	if v.env == nil || v.env.UI == nil {
		L.RaiseError("engine.ui unavailable")
	}
	return v.env.UI
}
