package clock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/npcmod/internal/game/clock"
)

func TestMilitaryTime_Validate(t *testing.T) {
	valid := []clock.MilitaryTime{0, 59, 100, 925, 1300, 2359}
	for _, v := range valid {
		assert.NoError(t, v.Validate(), "expected %d to be valid", int(v))
	}
	invalid := []clock.MilitaryTime{-1, 60, 875, 2400, 2460, 9999}
	for _, v := range invalid {
		assert.Error(t, v.Validate(), "expected %d to be invalid", int(v))
	}
}

func TestMilitaryTime_String(t *testing.T) {
	assert.Equal(t, "09:25", clock.MilitaryTime(925).String())
	assert.Equal(t, "00:00", clock.Midnight.String())
	assert.Equal(t, "23:59", clock.MilitaryTime(2359).String())
}

func TestMilitaryTime_AddMinutes_WrapsAtMidnight(t *testing.T) {
	assert.Equal(t, clock.MilitaryTime(10), clock.MilitaryTime(2350).AddMinutes(20))
	assert.Equal(t, clock.MilitaryTime(2350), clock.MilitaryTime(10).AddMinutes(-20))
	assert.Equal(t, clock.MilitaryTime(1500), clock.MilitaryTime(1300).AddMinutes(120))
}

func TestMilitaryTime_MinutesUntil(t *testing.T) {
	assert.Equal(t, 120, clock.MilitaryTime(900).MinutesUntil(1100))
	assert.Equal(t, 20, clock.MilitaryTime(2350).MinutesUntil(10))
	assert.Equal(t, 0, clock.MilitaryTime(1300).MinutesUntil(1300))
}

func TestParse(t *testing.T) {
	cases := map[string]clock.MilitaryTime{
		"0900":  900,
		"930":   930,
		"09:30": 930,
		" 1425": 1425,
		"0":     0,
	}
	for in, want := range cases {
		got, err := clock.Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "abc", "2400", "0875", "-100", "+900", "12:5", ":30", "123:45", "1:2:3", "12:", "09300"} {
		_, err := clock.Parse(in)
		assert.Error(t, err, in)
	}
}

func TestMilitaryTime_UnmarshalYAML_DecimalNotOctal(t *testing.T) {
	var doc struct {
		At clock.MilitaryTime `yaml:"at"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("at: 0700\n"), &doc))
	assert.Equal(t, clock.MilitaryTime(700), doc.At)

	require.NoError(t, yaml.Unmarshal([]byte("at: \"13:00\"\n"), &doc))
	assert.Equal(t, clock.MilitaryTime(1300), doc.At)

	assert.Error(t, yaml.Unmarshal([]byte("at: 0875\n"), &doc))
	assert.Error(t, yaml.Unmarshal([]byte("at: [1, 2]\n"), &doc))
}

func TestMilitaryTime_Period(t *testing.T) {
	cases := []struct {
		t      clock.MilitaryTime
		period clock.TimePeriod
	}{
		{0, clock.PeriodMidnight},
		{30, clock.PeriodMidnight},
		{100, clock.PeriodLateNight},
		{500, clock.PeriodDawn},
		{900, clock.PeriodMorning},
		{1300, clock.PeriodAfternoon},
		{1700, clock.PeriodDusk},
		{2000, clock.PeriodEvening},
		{2300, clock.PeriodNight},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.period, tc.t.Period(), "time %s", tc.t)
	}
}

func TestProperty_FromMinutes_AlwaysValid(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := rapid.IntRange(-10*clock.MinutesPerDay, 10*clock.MinutesPerDay).Draw(rt, "minutes")
		got := clock.FromMinutes(m)
		require.NoError(rt, got.Validate())
	})
}

func TestProperty_Minutes_RoundTrips(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := rapid.IntRange(0, clock.MinutesPerDay-1).Draw(rt, "minutes")
		assert.Equal(rt, m, clock.FromMinutes(m).Minutes())
	})
}
