package scripting_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/npcmod/internal/scripting"
)

type fakeDialogue struct {
	jumps []string
	ended int
	err   error
}

func (f *fakeDialogue) JumpTo(container, node string) error {
	if f.err != nil {
		return f.err
	}
	f.jumps = append(f.jumps, container+"/"+node)
	return nil
}

func (f *fakeDialogue) End() { f.ended++ }

type fakeMoney struct{ balance float64 }

func (f *fakeMoney) Balance() float64 { return f.balance }

func (f *fakeMoney) Change(delta float64) error {
	if f.balance+delta < 0 {
		return errors.New("insufficient funds")
	}
	f.balance += delta
	return nil
}

type fakeMessages struct{ sent []string }

func (f *fakeMessages) Send(text string) error {
	f.sent = append(f.sent, text)
	return nil
}

type fakeUI struct{ calls []string }

func (f *fakeUI) PreRegisterCharacterCreator() error {
	f.calls = append(f.calls, "pre_register")
	return nil
}

func (f *fakeUI) OpenCharacterCreator() error {
	f.calls = append(f.calls, "open")
	return nil
}

func runScript(t *testing.T, mgr *scripting.Manager, luaSrc, hook string, env *scripting.Env, args ...lua.LValue) (lua.LValue, error) {
	t.Helper()
	dir := writeTempLua(t, "test.lua", luaSrc)
	key := "modtest_" + t.Name()
	require.NoError(t, mgr.LoadFile(key, filepath.Join(dir, "test.lua"), 0))
	return mgr.CallHook(key, hook, env, args...)
}

func TestEngineLog_AllLevelsCarryNPC(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	mgr := scripting.NewManager(zap.New(core))
	defer mgr.Close()

	_, err := runScript(t, mgr, `
		function do_all_logs()
			engine.log.debug("d")
			engine.log.info("i")
			engine.log.warn("w")
			engine.log.error("e")
		end
	`, "do_all_logs", &scripting.Env{NPC: "alex"})
	require.NoError(t, err)

	require.Equal(t, 4, logs.Len())
	for _, e := range logs.All() {
		assert.Equal(t, "alex", e.ContextMap()["npc"])
	}
}

func TestEngineNPC_ID(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret, err := runScript(t, mgr, `function who() return engine.npc.id() end`, "who", &scripting.Env{NPC: "dealer_smith"})
	require.NoError(t, err)
	assert.Equal(t, lua.LString("dealer_smith"), ret)
}

func TestEngineDialogue_PayForInfo(t *testing.T) {
	src := `
		function pay_for_info(choice)
			if engine.money.balance() >= 100 then
				engine.money.change(-100)
				engine.dialogue.jump_to("AlexShop", "INFO_NODE")
			else
				engine.dialogue.jump_to("AlexShop", "NOT_ENOUGH")
			end
		end
	`
	for _, tc := range []struct {
		balance float64
		jump    string
		left    float64
	}{
		{250, "AlexShop/INFO_NODE", 150},
		{50, "AlexShop/NOT_ENOUGH", 50},
	} {
		mgr, _ := newTestManager(t)
		d := &fakeDialogue{}
		money := &fakeMoney{balance: tc.balance}
		_, err := runScript(t, mgr, src, "pay_for_info", &scripting.Env{NPC: "alex", Dialogue: d, Money: money}, lua.LString("PAY_FOR_INFO"))
		require.NoError(t, err)
		assert.Equal(t, []string{tc.jump}, d.jumps)
		assert.Equal(t, tc.left, money.balance)
	}
}

func TestEngineDialogue_JumpErrorRaises(t *testing.T) {
	mgr, _ := newTestManager(t)
	d := &fakeDialogue{err: errors.New("no such node")}
	_, err := runScript(t, mgr, `function h() engine.dialogue.jump_to("A", "B") end`, "h", &scripting.Env{Dialogue: d})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such node")
}

func TestEngineDialogue_UnavailableWithoutEnv(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := runScript(t, mgr, `function h() engine.dialogue.end_dialogue() end`, "h", nil)
	assert.Error(t, err)
}

func TestEngineMoney_ChangeReportsFailure(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret, err := runScript(t, mgr, `
		function h()
			local ok, msg = engine.money.change(-500)
			if ok then return "paid" end
			return msg
		end
	`, "h", &scripting.Env{Money: &fakeMoney{balance: 10}})
	require.NoError(t, err)
	assert.Equal(t, lua.LString("insufficient funds"), ret)
}

func TestEngineMessagesAndUI(t *testing.T) {
	mgr, _ := newTestManager(t)
	msgs := &fakeMessages{}
	ui := &fakeUI{}
	d := &fakeDialogue{}
	_, err := runScript(t, mgr, `
		function open_creator()
			engine.ui.pre_register_character_creator()
			engine.dialogue.end_dialogue()
			engine.ui.open_character_creator()
			engine.messages.send("enjoy")
		end
	`, "open_creator", &scripting.Env{NPC: "customizer", Dialogue: d, Messages: msgs, UI: ui})
	require.NoError(t, err)
	assert.Equal(t, []string{"pre_register", "open"}, ui.calls)
	assert.Equal(t, 1, d.ended)
	assert.Equal(t, []string{"enjoy"}, msgs.sent)
}

func TestEnv_ClearedAfterCall(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "env.lua", `function who() return engine.npc.id() end`)
	require.NoError(t, mgr.LoadDir("npc", dir, 0))

	ret, err := mgr.CallHook("npc", "who", &scripting.Env{NPC: "first"})
	require.NoError(t, err)
	assert.Equal(t, lua.LString("first"), ret)

	ret, err = mgr.CallHook("npc", "who", nil)
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestProperty_EngineMoneyBalanceRoundTrip(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "money.lua", `function bal() return engine.money.balance() end`)
	require.NoError(t, mgr.LoadDir("money", dir, 0))
	rapid.Check(t, func(rt *rapid.T) {
		balance := float64(rapid.IntRange(0, 1_000_000).Draw(rt, "balance"))
		ret, err := mgr.CallHook("money", "bal", &scripting.Env{Money: &fakeMoney{balance: balance}})
		require.NoError(rt, err)
		require.Equal(rt, lua.LNumber(balance), ret)
	})
}
