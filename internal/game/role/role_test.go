package role_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/npcmod/internal/game/role"
)

type fakeService struct {
	recommended [][2]string
	requested   []string
}

func (f *fakeService) RecommendDealer(dealerID, customerID string) error {
	f.recommended = append(f.recommended, [2]string{dealerID, customerID})
	return nil
}

func (f *fakeService) RequestProduct(customerID string) error {
	f.requested = append(f.requested, customerID)
	return nil
}

func TestComponent_SetReplacesAndFires(t *testing.T) {
	d := role.NewDealer("dealer_smith", nil)
	var first, second int
	require.NoError(t, d.Set(role.EventRecruited, func(string, role.Event) error { first++; return nil }))
	require.NoError(t, d.Set(role.EventRecruited, func(string, role.Event) error { second++; return nil }))

	ran, err := d.Fire(role.EventRecruited)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)

	ran, err = d.Fire(role.EventRecommended)
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestComponent_RejectsUnsupportedEvent(t *testing.T) {
	c := role.NewCustomer("alex", nil)
	err := c.Set(role.EventRecruited, func(string, role.Event) error { return nil })
	assert.ErrorIs(t, err, role.ErrUnsupportedEvent)
	assert.True(t, c.Supports(role.EventDealCompleted))
	assert.False(t, c.Supports(role.EventRecommended))
	assert.Error(t, c.Set(role.EventUnlocked, nil))
}

func TestComponent_FireRecoversPanics(t *testing.T) {
	c := role.NewCustomer("alex", nil)
	require.NoError(t, c.Set(role.EventUnlocked, func(string, role.Event) error { panic("boom") }))
	ran, err := c.Fire(role.EventUnlocked)
	assert.True(t, ran)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestComponent_RoleOperations(t *testing.T) {
	svc := &fakeService{}
	d := role.NewDealer("dealer_smith", svc)
	c := role.NewCustomer("alex", svc)

	require.NoError(t, d.RecommendTo("alex"))
	require.NoError(t, c.RequestProduct())
	assert.Equal(t, [][2]string{{"dealer_smith", "alex"}}, svc.recommended)
	assert.Equal(t, []string{"alex"}, svc.requested)

	assert.ErrorIs(t, d.RequestProduct(), role.ErrWrongRole)
	assert.ErrorIs(t, c.RecommendTo("x"), role.ErrWrongRole)
	assert.ErrorIs(t, role.NewCustomer("john", nil).RequestProduct(), role.ErrNoService)
}

func TestWireEvents_TwiceYieldsOneNotification(t *testing.T) {
	d := role.NewDealer("dealer_smith", nil)
	w := role.NewWiring(d, nil, nil)
	var calls int
	require.NoError(t, w.OnDealer(role.EventRecruited, func(id string, ev role.Event) error {
		assert.Equal(t, "dealer_smith", id)
		assert.Equal(t, role.EventRecruited, ev)
		calls++
		return nil
	}))

	rep := w.WireEvents()
	assert.True(t, rep.Complete())
	assert.Equal(t, []role.Attachment{{Role: role.KindDealer, Event: role.EventRecruited}}, rep.Attached)
	w.WireEvents()

	_, err := d.Fire(role.EventRecruited)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWireEvents_AbsentRoleIsReported(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	w := role.NewWiring(nil, nil, zap.New(core))
	require.NoError(t, w.OnCustomer(role.EventUnlocked, func(string, role.Event) error { return nil }))

	rep := w.WireEvents()
	assert.False(t, rep.Complete())
	assert.Equal(t, []role.Kind{role.KindCustomer}, rep.Missing)
	assert.Empty(t, rep.Attached)
	assert.Equal(t, 1, logs.FilterMessage("role absent, event wiring skipped").Len())
	w.UnwireEvents()
}

func TestWiring_BindRejectsWrongRoleEvent(t *testing.T) {
	w := role.NewWiring(nil, nil, nil)
	assert.ErrorIs(t, w.OnCustomer(role.EventRecruited, func(string, role.Event) error { return nil }), role.ErrUnsupportedEvent)
	assert.ErrorIs(t, w.OnDealer(role.EventUnlocked, func(string, role.Event) error { return nil }), role.ErrUnsupportedEvent)
	assert.Error(t, w.OnDealer(role.EventRecruited, nil))
}

func TestUnwireEvents_SafeWithoutWiring(t *testing.T) {
	d := role.NewDealer("dealer_smith", nil)
	c := role.NewCustomer("alex", nil)
	w := role.NewWiring(d, c, nil)
	w.UnwireEvents()

	require.NoError(t, w.OnDealer(role.EventContractAccepted, func(string, role.Event) error { return errors.New("x") }))
	require.NoError(t, w.OnCustomer(role.EventDealCompleted, func(string, role.Event) error { return nil }))
	w.WireEvents()
	assert.True(t, d.Attached(role.EventContractAccepted))
	assert.True(t, c.Attached(role.EventDealCompleted))

	w.UnwireEvents()
	w.UnwireEvents()
	assert.False(t, d.Attached(role.EventContractAccepted))
	assert.False(t, c.Attached(role.EventDealCompleted))
	ran, err := d.Fire(role.EventContractAccepted)
	assert.False(t, ran)
	assert.NoError(t, err)
}

func TestProperty_WireEventsIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d := role.NewDealer("d", nil)
		w := role.NewWiring(d, nil, nil)
		var calls int
		require.NoError(rt, w.OnDealer(role.EventDealCompleted, func(string, role.Event) error { calls++; return nil }))

		n := rapid.IntRange(1, 20).Draw(rt, "wires")
		for i := 0; i < n; i++ {
			if rapid.Bool().Draw(rt, "unwire_first") {
				w.UnwireEvents()
			}
			w.WireEvents()
		}
		fires := rapid.IntRange(0, 5).Draw(rt, "fires")
		for i := 0; i < fires; i++ {
			_, err := d.Fire(role.EventDealCompleted)
			require.NoError(rt, err)
		}
		require.Equal(rt, fires, calls)
	})
}

func TestCustomerDefaults_YAMLAndValidate(t *testing.T) {
	src := `
weekly_spending: {min: 400, max: 1000}
orders_per_week: {min: 1, max: 4}
preferred_order_day: sunday
order_time: 0900
standards: very_low
allow_direct_approach: true
guarantee_first_sample: true
mutual_relation: {min_at_50: 2.5, max_at_100: 4.0}
call_police_chance: 0.15
dependence: {base_addiction: 0.1, multiplier: 1.1}
affinities: {marijuana: 0.45, cocaine: -0.2}
preferred_properties: [munchies, energizing, cyclopean]
`
	var d role.CustomerDefaults
	require.NoError(t, yaml.Unmarshal([]byte(src), &d))
	require.NoError(t, d.Validate())
	assert.Equal(t, 900, int(d.OrderTime))
	assert.Equal(t, role.StandardVeryLow, d.Standards)

	d.CallPoliceChance = 1.5
	d.Affinities["meth"] = 2
	d.Standards = "picky"
	d.PreferredOrderDay = "someday"
	err := d.Validate()
	require.Error(t, err)
	for _, want := range []string{"call_police_chance", "meth", "picky", "someday"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestDealerDefaults_Validate(t *testing.T) {
	ok := role.DealerDefaults{SigningFee: 1000, Cut: 0.15, Type: role.DealerPlayer, Home: "North Apartments"}
	require.NoError(t, ok.Validate())

	bad := role.DealerDefaults{SigningFee: -1, Cut: 1.2, Type: "freelance"}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing_fee")
	assert.Contains(t, err.Error(), "cut")
	assert.Contains(t, err.Error(), "freelance")
}
