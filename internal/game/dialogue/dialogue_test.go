package dialogue_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/npcmod/internal/game/dialogue"
	"github.com/cory-johannsen/npcmod/internal/game/focus"
)

type recordingDisplay struct {
	events []string
	texts  []string
}

func (d *recordingDisplay) ShowText(_, container, node, text string) {
	d.events = append(d.events, "text:"+container+"/"+node)
	d.texts = append(d.texts, text)
}

func (d *recordingDisplay) ShowChoices(_ string, choices []dialogue.Choice) {
	ids := ""
	for i, ch := range choices {
		if i > 0 {
			ids += ","
		}
		ids += ch.ID
	}
	d.events = append(d.events, "choices:"+ids)
}

func (d *recordingDisplay) Close(string) {
	d.events = append(d.events, "close")
}

func shopContainer(t *testing.T) *dialogue.Container {
	t.Helper()
	ct, err := dialogue.NewBuilder("AlexShop").
		AddNode(dialogue.EntryNode, "{{Reactions.GREETING}} Want some info for $100?",
			dialogue.Choice{ID: "PAY_FOR_INFO", Label: "Pay $100", Target: "INFO_NODE"},
			dialogue.Choice{ID: "NO_THANKS", Label: "No thanks", Target: "EXIT"}).
		AddNode("INFO_NODE", "Get scammed nerd.",
			dialogue.Choice{ID: "BYE", Label: "Thanks", Target: "EXIT"}).
		AddNode("NOT_ENOUGH", "You don't have enough cash.",
			dialogue.Choice{ID: "BACK", Label: "I'll come back.", Target: dialogue.EntryNode}).
		AddNode("EXIT", "See you.").
		Build()
	require.NoError(t, err)
	return ct
}

func newShop(t *testing.T, logger *zap.Logger) (*dialogue.Controller, *focus.Slot, *recordingDisplay) {
	t.Helper()
	slot := focus.NewSlot()
	c := dialogue.NewController("alex", slot, logger)
	disp := &recordingDisplay{}
	c.SetDisplay(disp)
	c.SetDatabase(dialogue.NewDatabase().WithModuleEntry("Reactions", "GREETING", "Welcome."))
	require.NoError(t, c.Register(shopContainer(t)))
	require.NoError(t, c.UseContainerOnInteract("AlexShop"))
	return c, slot, disp
}

func payForInfo(balance *float64) dialogue.Handler {
	return func(c *dialogue.Controller) error {
		const price = 100
		if *balance >= price {
			*balance -= price
			return c.JumpTo("AlexShop", "INFO_NODE")
		}
		return c.JumpTo("AlexShop", "NOT_ENOUGH")
	}
}

func TestInteract_DisplaysEntryAndTakesFocus(t *testing.T) {
	c, slot, disp := newShop(t, nil)
	require.NoError(t, c.Interact(context.Background()))

	ct, node, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "AlexShop", ct)
	assert.Equal(t, dialogue.EntryNode, node)
	assert.Equal(t, "alex", slot.Holder())
	assert.Equal(t, []string{"Welcome. Want some info for $100?"}, disp.texts)
	assert.Equal(t, []string{"text:AlexShop/ENTRY", "choices:PAY_FOR_INFO,NO_THANKS"}, disp.events)
}

func TestInteract_RequiresContainerAndFreeFocus(t *testing.T) {
	slot := focus.NewSlot()
	c := dialogue.NewController("alex", slot, nil)
	assert.ErrorIs(t, c.Interact(context.Background()), dialogue.ErrNoContainer)

	c2, slot2, _ := newShop(t, nil)
	require.NoError(t, slot2.Acquire("someone_else"))
	assert.ErrorIs(t, c2.Interact(context.Background()), focus.ErrHeld)
	assert.False(t, c2.Active())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Interact(ctx), context.Canceled)
}

func TestSelect_PayScenario(t *testing.T) {
	for _, tc := range []struct {
		name     string
		balance  float64
		wantNode string
		wantLeft float64
	}{
		{"enough cash", 150, "INFO_NODE", 50},
		{"exactly enough", 100, "INFO_NODE", 0},
		{"not enough", 99, "NOT_ENOUGH", 99},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, _, _ := newShop(t, nil)
			balance := tc.balance
			c.OnChoiceSelected("PAY_FOR_INFO", payForInfo(&balance))
			require.NoError(t, c.Interact(context.Background()))
			require.NoError(t, c.Select("PAY_FOR_INFO"))

			_, node, ok := c.Current()
			require.True(t, ok)
			assert.Equal(t, tc.wantNode, node)
			assert.Equal(t, tc.wantLeft, balance)
		})
	}
}

func TestSelect_JumpOverridesDeclaredTarget(t *testing.T) {
	c, _, disp := newShop(t, nil)
	c.OnChoiceSelected("NO_THANKS", func(c *dialogue.Controller) error {
		return c.JumpTo("AlexShop", "NOT_ENOUGH")
	})
	require.NoError(t, c.Interact(context.Background()))
	require.NoError(t, c.Select("NO_THANKS"))

	_, node, _ := c.Current()
	assert.Equal(t, "NOT_ENOUGH", node)
	for _, e := range disp.events {
		assert.NotEqual(t, "text:AlexShop/EXIT", e, "declared target must not be displayed")
	}
}

func TestSelect_FollowsDeclaredTargetWithoutHandler(t *testing.T) {
	c, _, _ := newShop(t, nil)
	require.NoError(t, c.Interact(context.Background()))
	require.NoError(t, c.Select("NO_THANKS"))
	_, node, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "EXIT", node)

	assert.ErrorIs(t, c.Select("BYE"), dialogue.ErrUnknownChoice)
	_, node, ok = c.Current()
	assert.True(t, ok, "terminal node stays displayed until End")
	assert.Equal(t, "EXIT", node)
}

func TestOnChoiceSelected_ReplacementFiresOnce(t *testing.T) {
	c, _, _ := newShop(t, nil)
	var first, second int
	c.OnChoiceSelected("NO_THANKS", func(*dialogue.Controller) error { first++; return nil })
	c.OnChoiceSelected("NO_THANKS", func(*dialogue.Controller) error { second++; return nil })
	require.NoError(t, c.Interact(context.Background()))
	require.NoError(t, c.Select("NO_THANKS"))
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)

	c.OnChoiceSelected("NO_THANKS", nil)
	c.End()
	require.NoError(t, c.Interact(context.Background()))
	require.NoError(t, c.Select("NO_THANKS"))
	assert.Equal(t, 1, second)
}

func TestOnNodeDisplayed_RunsAfterTextBeforeChoices(t *testing.T) {
	c, _, disp := newShop(t, nil)
	c.OnNodeDisplayed("INFO_NODE", func(*dialogue.Controller) error {
		disp.events = append(disp.events, "handler:INFO_NODE")
		return nil
	})
	require.NoError(t, c.Interact(context.Background()))
	require.NoError(t, c.Select("PAY_FOR_INFO"))
	assert.Equal(t, []string{
		"text:AlexShop/ENTRY",
		"choices:PAY_FOR_INFO,NO_THANKS",
		"text:AlexShop/INFO_NODE",
		"handler:INFO_NODE",
		"choices:BYE",
	}, disp.events)
}

func TestEnd_FromHandlerReleasesFocus(t *testing.T) {
	c, slot, disp := newShop(t, nil)
	var after bool
	c.OnChoiceSelected("BYE", func(c *dialogue.Controller) error {
		c.End()
		c.End()
		after = true
		return nil
	})
	require.NoError(t, c.Interact(context.Background()))
	require.NoError(t, c.Select("PAY_FOR_INFO"))
	require.NoError(t, c.Select("BYE"))

	assert.True(t, after)
	assert.False(t, c.Active())
	assert.Equal(t, focus.Default, slot.Holder())
	assert.Equal(t, "close", disp.events[len(disp.events)-1])
	_, _, ok := c.Current()
	assert.False(t, ok)
	assert.ErrorIs(t, c.Select("BYE"), dialogue.ErrNotActive)
	assert.ErrorIs(t, c.JumpTo("AlexShop", "EXIT"), dialogue.ErrNotActive)
	c.End()
}

func TestEnd_FromNodeHandlerSuppressesChoices(t *testing.T) {
	c, _, disp := newShop(t, nil)
	c.OnNodeDisplayed(dialogue.EntryNode, func(c *dialogue.Controller) error {
		c.End()
		return nil
	})
	require.NoError(t, c.Interact(context.Background()))
	assert.Equal(t, []string{"text:AlexShop/ENTRY", "close"}, disp.events)
}

func TestEnd_HandsFocusToPreRegisteredOwner(t *testing.T) {
	c, slot, _ := newShop(t, nil)
	var changes []string
	slot.Watch(func(_, to string) { changes = append(changes, to) })
	c.OnChoiceSelected("NO_THANKS", func(c *dialogue.Controller) error {
		if err := slot.PreRegister("character_creator"); err != nil {
			return err
		}
		c.End()
		return nil
	})
	require.NoError(t, c.Interact(context.Background()))
	require.NoError(t, c.Select("NO_THANKS"))
	assert.Equal(t, "character_creator", slot.Holder())
	assert.Equal(t, []string{"alex", "character_creator"}, changes)
}

func TestHandlerFailure_LoggedAndSessionEnded(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c, slot, _ := newShop(t, zap.New(core))
	c.OnChoiceSelected("PAY_FOR_INFO", func(*dialogue.Controller) error {
		return errors.New("wallet unavailable")
	})
	c.OnChoiceSelected("NO_THANKS", func(*dialogue.Controller) error {
		panic("boom")
	})

	require.NoError(t, c.Interact(context.Background()))
	require.NoError(t, c.Select("PAY_FOR_INFO"))
	assert.False(t, c.Active())
	assert.Equal(t, focus.Default, slot.Holder())
	assert.Equal(t, 1, logs.FilterMessage("dialogue handler failed").Len())

	require.NoError(t, c.Interact(context.Background()))
	require.NoError(t, c.Select("NO_THANKS"))
	assert.False(t, c.Active())
	entries := logs.FilterMessage("dialogue handler panicked").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "alex", entries[0].ContextMap()["npc"])
}

func TestRegister_RejectsInvalidGraphs(t *testing.T) {
	c := dialogue.NewController("x", nil, nil)

	badTarget, err := dialogue.NewBuilder("bad").
		AddNode(dialogue.EntryNode, "hi", dialogue.Choice{ID: "go", Target: "NOWHERE"}).
		Build()
	require.NoError(t, err)
	err = c.Register(badTarget)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOWHERE")

	noEntry, err := dialogue.NewBuilder("noentry").AddNode("START", "hi").Build()
	require.NoError(t, err)
	assert.Error(t, c.Register(noEntry))

	dupChoice, err := dialogue.NewBuilder("dup").
		AddNode(dialogue.EntryNode, "hi",
			dialogue.Choice{ID: "a", Target: dialogue.EntryNode},
			dialogue.Choice{ID: "a", Target: dialogue.EntryNode}).
		Build()
	require.NoError(t, err)
	assert.Error(t, c.Register(dupChoice))

	snippet, err := dialogue.NewBuilder("snip").AddNode(dialogue.EntryNode, "{{Missing.KEY}}").Build()
	require.NoError(t, err)
	assert.Error(t, c.Register(snippet))

	_, err = dialogue.NewBuilder("dupnode").AddNode("A", "x").AddNode("A", "y").Build()
	assert.Error(t, err)

	good, err := dialogue.NewBuilder("good").AddNode(dialogue.EntryNode, "hi").Build()
	require.NoError(t, err)
	require.NoError(t, c.Register(good))
	assert.Error(t, c.Register(good), "duplicate container name")
	assert.Error(t, c.UseContainerOnInteract("bad"), "rejected containers are not registered")
}

func TestJumpTo_RejectsUnknownTargets(t *testing.T) {
	c, _, _ := newShop(t, nil)
	require.NoError(t, c.Interact(context.Background()))
	assert.Error(t, c.JumpTo("Nope", dialogue.EntryNode))
	assert.Error(t, c.JumpTo("AlexShop", "NOPE"))
	_, node, _ := c.Current()
	assert.Equal(t, dialogue.EntryNode, node)
}

func TestDatabase_Expand(t *testing.T) {
	db := dialogue.NewDatabase().
		WithModuleEntry("Reactions", "GREETING", "Welcome.").
		WithModuleEntry("Reactions", "BYE", "Later.")
	out, err := db.Expand("{{Reactions.GREETING}} and {{ Reactions.BYE }}")
	require.NoError(t, err)
	assert.Equal(t, "Welcome. and Later.", out)

	out, err = db.Expand("{{Reactions.NOPE}}")
	assert.Error(t, err)
	assert.Equal(t, "{{Reactions.NOPE}}", out)
	assert.Equal(t, []string{"Reactions"}, db.Modules())
	assert.Equal(t, []dialogue.SnippetRef{{Module: "A", Key: "b"}}, dialogue.References("x {{A.b}} y"))
}

func TestSpec_YAML(t *testing.T) {
	src := `
database:
  Reactions:
    GREETING: Welcome.
interact: AlexShop
containers:
  - name: AlexShop
    nodes:
      - id: ENTRY
        text: "{{Reactions.GREETING}} Info?"
        choices:
          - {id: PAY_FOR_INFO, label: "Pay $100", target: INFO_NODE}
      - id: INFO_NODE
        text: Get scammed nerd.
on_choice:
  PAY_FOR_INFO: pay_for_info
on_node:
  INFO_NODE: info_shown
`
	var spec dialogue.Spec
	require.NoError(t, yaml.Unmarshal([]byte(src), &spec))
	require.NoError(t, spec.Validate())
	assert.False(t, spec.Empty())

	cts, err := spec.BuildContainers()
	require.NoError(t, err)
	require.Len(t, cts, 1)
	n, ok := cts[0].Node(dialogue.EntryNode)
	require.True(t, ok)
	assert.Equal(t, "INFO_NODE", n.Choices[0].Target)

	spec.OnChoice["MISSING"] = "fn"
	spec.Interact = "Other"
	err = spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MISSING")
	assert.Contains(t, err.Error(), "Other")
}

func TestProperty_HandlerSetRepeatedlyFiresOnce(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ct, err := dialogue.NewBuilder("c").
			AddNode(dialogue.EntryNode, "hi", dialogue.Choice{ID: "go", Target: "END"}).
			AddNode("END", "bye").
			Build()
		require.NoError(rt, err)
		c := dialogue.NewController("npc", focus.NewSlot(), nil)
		require.NoError(rt, c.Register(ct))
		require.NoError(rt, c.UseContainerOnInteract("c"))

		calls := make([]int, rapid.IntRange(1, 10).Draw(rt, "registrations"))
		for i := range calls {
			i := i
			c.OnChoiceSelected("go", func(*dialogue.Controller) error { calls[i]++; return nil })
		}
		require.NoError(rt, c.Interact(context.Background()))
		require.NoError(rt, c.Select("go"))

		total := 0
		for _, n := range calls {
			total += n
		}
		require.Equal(rt, 1, total)
		require.Equal(rt, 1, calls[len(calls)-1])
	})
}
