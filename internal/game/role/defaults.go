package role

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/npcmod/internal/game/clock"
)

// Standard is a customer's quality expectation.
type Standard string

const (
	StandardVeryLow  Standard = "very_low"
	StandardLow      Standard = "low"
	StandardModerate Standard = "moderate"
	StandardHigh     Standard = "high"
	StandardVeryHigh Standard = "very_high"
)

var standards = map[Standard]bool{
	StandardVeryLow: true, StandardLow: true, StandardModerate: true,
	StandardHigh: true, StandardVeryHigh: true,
}

// DealerType says whom a dealer works for.
type DealerType string

const (
	DealerPlayer DealerType = "player"
	DealerCartel DealerType = "cartel"
)

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// Range is an inclusive numeric range.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

func (r Range) validate(name string, lo, hi float64) error {
	if r.Min > r.Max {
		return fmt.Errorf("%s: min %.2f exceeds max %.2f", name, r.Min, r.Max)
	}
	if r.Min < lo || r.Max > hi {
		return fmt.Errorf("%s: [%.2f, %.2f] outside [%.2f, %.2f]", name, r.Min, r.Max, lo, hi)
	}
	return nil
}

// MutualRelation is the relationship a customer requires of mutual contacts
// before accepting a sample, at 50% and 100% product quality.
type MutualRelation struct {
	MinAt50  float64 `yaml:"min_at_50"`
	MaxAt100 float64 `yaml:"max_at_100"`
}

// Dependence controls how quickly a customer becomes addicted.
type Dependence struct {
	BaseAddiction float64 `yaml:"base_addiction"`
	Multiplier    float64 `yaml:"multiplier"`
}

// CustomerDefaults are the initial customer parameters the host applies.
type CustomerDefaults struct {
	WeeklySpending       Range              `yaml:"weekly_spending"`
	OrdersPerWeek        Range              `yaml:"orders_per_week"`
	PreferredOrderDay    string             `yaml:"preferred_order_day"`
	OrderTime            clock.MilitaryTime `yaml:"order_time"`
	Standards            Standard           `yaml:"standards"`
	AllowDirectApproach  bool               `yaml:"allow_direct_approach"`
	GuaranteeFirstSample bool               `yaml:"guarantee_first_sample"`
	MutualRelation       MutualRelation     `yaml:"mutual_relation"`
	CallPoliceChance     float64            `yaml:"call_police_chance"`
	Dependence           Dependence         `yaml:"dependence"`
	Affinities           map[string]float64 `yaml:"affinities"`
	PreferredProperties  []string           `yaml:"preferred_properties"`
}

// Validate checks ranges and enumerations.
//
// Postcondition: Returns nil iff every field is within range; all violations
// are joined.
func (d CustomerDefaults) Validate() error {
	var errs []error
	if err := d.WeeklySpending.validate("weekly_spending", 0, 1e9); err != nil {
		errs = append(errs, err)
	}
	if err := d.OrdersPerWeek.validate("orders_per_week", 0, 7); err != nil {
		errs = append(errs, err)
	}
	if d.PreferredOrderDay != "" && !weekdays[strings.ToLower(d.PreferredOrderDay)] {
		errs = append(errs, fmt.Errorf("preferred_order_day %q is not a weekday", d.PreferredOrderDay))
	}
	if err := d.OrderTime.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("order_time: %w", err))
	}
	if d.Standards != "" && !standards[d.Standards] {
		errs = append(errs, fmt.Errorf("standards %q is not one of very_low, low, moderate, high, very_high", d.Standards))
	}
	if d.MutualRelation.MinAt50 < 0 || d.MutualRelation.MaxAt100 > 5 || d.MutualRelation.MinAt50 > d.MutualRelation.MaxAt100 {
		errs = append(errs, fmt.Errorf("mutual_relation: need 0 <= min_at_50 <= max_at_100 <= 5"))
	}
	if d.CallPoliceChance < 0 || d.CallPoliceChance > 1 {
		errs = append(errs, fmt.Errorf("call_police_chance %.2f outside [0, 1]", d.CallPoliceChance))
	}
	if d.Dependence.BaseAddiction < 0 || d.Dependence.BaseAddiction > 1 {
		errs = append(errs, fmt.Errorf("dependence.base_addiction %.2f outside [0, 1]", d.Dependence.BaseAddiction))
	}
	if d.Dependence.Multiplier < 0 {
		errs = append(errs, errors.New("dependence.multiplier must be >= 0"))
	}
	for drug, a := range d.Affinities {
		if a < -1 || a > 1 {
			errs = append(errs, fmt.Errorf("affinity %q %.2f outside [-1, 1]", drug, a))
		}
	}
	return errors.Join(errs...)
}

// DealerDefaults are the initial dealer parameters the host applies.
type DealerDefaults struct {
	SigningFee               float64    `yaml:"signing_fee"`
	Cut                      float64    `yaml:"cut"`
	Type                     DealerType `yaml:"type"`
	Home                     string     `yaml:"home"`
	AllowInsufficientQuality bool       `yaml:"allow_insufficient_quality"`
	AllowExcessQuality       bool       `yaml:"allow_excess_quality"`
	CompletedDealsVariable   string     `yaml:"completed_deals_variable"`
}

// Validate checks ranges and enumerations.
func (d DealerDefaults) Validate() error {
	var errs []error
	if d.SigningFee < 0 {
		errs = append(errs, fmt.Errorf("signing_fee %.2f must be >= 0", d.SigningFee))
	}
	if d.Cut < 0 || d.Cut > 1 {
		errs = append(errs, fmt.Errorf("cut %.2f outside [0, 1]", d.Cut))
	}
	switch d.Type {
	case "", DealerPlayer, DealerCartel:
	default:
		errs = append(errs, fmt.Errorf("dealer type %q is not player or cartel", d.Type))
	}
	return errors.Join(errs...)
}
