// Package clock provides the military-time value used by NPC schedules and
// the game clock that advances it.
package clock

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MinutesPerDay is the length of one game day in minutes.
const MinutesPerDay = 24 * 60

// MilitaryTime is a time of day encoded as HHMM, e.g. 930 for 09:30.
//
// Invariant: a valid value is in [0, 2400) with a minute part < 60.
type MilitaryTime int

// Midnight is the start of the game day.
const Midnight MilitaryTime = 0

// Hour returns the hour component.
func (t MilitaryTime) Hour() int { return int(t) / 100 }

// Minute returns the minute component.
func (t MilitaryTime) Minute() int { return int(t) % 100 }

// Validate reports whether t is a well-formed military time.
//
// Postcondition: Returns nil iff 0 <= t < 2400 and the minute part is < 60.
func (t MilitaryTime) Validate() error {
	if t < 0 || t >= 2400 {
		return fmt.Errorf("military time %d out of range [0, 2400)", int(t))
	}
	if t.Minute() >= 60 {
		return fmt.Errorf("military time %04d has invalid minute %d", int(t), t.Minute())
	}
	return nil
}

// Minutes returns the number of minutes since midnight.
//
// Precondition: t must be valid.
func (t MilitaryTime) Minutes() int {
	return t.Hour()*60 + t.Minute()
}

// FromMinutes converts minutes since midnight to a MilitaryTime, wrapping
// across day boundaries in both directions.
//
// Postcondition: The result is always valid.
func FromMinutes(m int) MilitaryTime {
	m %= MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return MilitaryTime((m/60)*100 + m%60)
}

// AddMinutes returns t advanced by n minutes on a clock that wraps at 2400.
func (t MilitaryTime) AddMinutes(n int) MilitaryTime {
	return FromMinutes(t.Minutes() + n)
}

// MinutesUntil returns how many minutes pass going forward from t to u,
// wrapping past midnight when u is earlier than t.
//
// Postcondition: Returns a value in [0, MinutesPerDay).
func (t MilitaryTime) MinutesUntil(u MilitaryTime) int {
	d := u.Minutes() - t.Minutes()
	if d < 0 {
		d += MinutesPerDay
	}
	return d
}

// String renders t as "HH:MM".
func (t MilitaryTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Parse reads a military time written as "HHMM", "HMM", or "HH:MM".
//
// Postcondition: Returns a valid MilitaryTime or a non-nil error.
func Parse(s string) (MilitaryTime, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, fmt.Errorf("parsing military time: empty value")
	}
	digits := raw
	if hh, mm, ok := strings.Cut(raw, ":"); ok {
		if len(hh) < 1 || len(hh) > 2 || len(mm) != 2 {
			return 0, fmt.Errorf("parsing military time %q: want HH:MM", s)
		}
		digits = hh + mm
	}
	if len(digits) > 4 || strings.Trim(digits, "0123456789") != "" {
		return 0, fmt.Errorf("parsing military time %q: want digits only", s)
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("parsing military time %q: %w", s, err)
	}
	t := MilitaryTime(n)
	if err := t.Validate(); err != nil {
		return 0, err
	}
	return t, nil
}

// UnmarshalYAML decodes a military time from a scalar node. The scalar is
// always read as decimal so that values such as 0700 are not taken as octal.
func (t *MilitaryTime) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: military time must be a scalar", node.Line)
	}
	parsed, err := Parse(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*t = parsed
	return nil
}

// TimePeriod is a named phase of the game day.
type TimePeriod string

const (
	PeriodMidnight  TimePeriod = "Midnight"
	PeriodLateNight TimePeriod = "Late Night"
	PeriodDawn      TimePeriod = "Dawn"
	PeriodMorning   TimePeriod = "Morning"
	PeriodAfternoon TimePeriod = "Afternoon"
	PeriodDusk      TimePeriod = "Dusk"
	PeriodEvening   TimePeriod = "Evening"
	PeriodNight     TimePeriod = "Night"
)

// Period returns the named time period containing t.
//
// Precondition: t must be valid.
func (t MilitaryTime) Period() TimePeriod {
	switch h := t.Hour(); {
	case h == 0:
		return PeriodMidnight
	case h <= 4:
		return PeriodLateNight
	case h <= 6:
		return PeriodDawn
	case h <= 11:
		return PeriodMorning
	case h <= 16:
		return PeriodAfternoon
	case h <= 18:
		return PeriodDusk
	case h <= 21:
		return PeriodEvening
	default:
		return PeriodNight
	}
}
