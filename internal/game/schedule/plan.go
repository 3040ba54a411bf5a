package schedule

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/npcmod/internal/game/clock"
	"github.com/cory-johannsen/npcmod/internal/game/world"
)

type planStep struct {
	start  clock.MilitaryTime
	action Action
	signal string
}

// Plan accumulates schedule entries. Each method returns a new Plan, so a
// partially built plan may be shared and extended independently.
type Plan struct {
	steps []planStep
}

func (p Plan) with(s planStep) Plan {
	return Plan{steps: append(p.steps[:len(p.steps):len(p.steps)], s)}
}

// Add appends an arbitrary action at start.
func (p Plan) Add(start clock.MilitaryTime, a Action) Plan {
	return p.with(planStep{start: start, action: a})
}

// WalkTo appends a WalkTo action.
func (p Plan) WalkTo(start clock.MilitaryTime, dest world.Vec3, face bool) Plan {
	return p.Add(start, WalkTo{Destination: dest, FaceDestination: face})
}

// StayInBuilding appends a StayInBuilding action. A non-positive duration
// selects DefaultStayDuration.
func (p Plan) StayInBuilding(start clock.MilitaryTime, building string, minutes int) Plan {
	if minutes <= 0 {
		minutes = DefaultStayDuration
	}
	return p.Add(start, StayInBuilding{Building: building, Duration: minutes})
}

// LocationDialogue appends a LocationDialogue action.
func (p Plan) LocationDialogue(start clock.MilitaryTime, dest world.Vec3, face bool) Plan {
	return p.Add(start, LocationDialogue{Destination: dest, FaceDestination: face})
}

// UseVendingMachine appends a UseVendingMachine action. An empty machine
// name lets the host choose.
func (p Plan) UseVendingMachine(start clock.MilitaryTime, machine string) Plan {
	return p.Add(start, UseVendingMachine{Machine: machine})
}

// DriveToCarPark appends a DriveToCarPark action.
func (p Plan) DriveToCarPark(start clock.MilitaryTime, lot, vehicle string) Plan {
	return p.Add(start, DriveToCarPark{ParkingLot: lot, Vehicle: vehicle})
}

// Signal appends a timed capability window.
func (p Plan) Signal(start clock.MilitaryTime, name string) Plan {
	return p.Add(start, Signal{Name: name})
}

// EnsureSignal declares an untimed capability window open all day.
func (p Plan) EnsureSignal(name string) Plan {
	return p.with(planStep{signal: name})
}

// Len returns the number of accumulated steps.
func (p Plan) Len() int { return len(p.steps) }

// Build materializes the plan.
//
// Postcondition: Returns a Configured (or, for an empty plan, Unconfigured)
// timeline, or every AddAction/EnsureSignal error joined.
func (p Plan) Build() (*Timeline, error) {
	t := New()
	var errs []error
	for _, s := range p.steps {
		var err error
		if s.action == nil {
			err = t.EnsureSignal(s.signal)
		} else {
			err = t.AddAction(s.start, s.action)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

// ActionSpec is the YAML form of one schedule entry.
type ActionSpec struct {
	At              clock.MilitaryTime `yaml:"at"`
	Kind            Kind               `yaml:"kind"`
	Destination     *world.Vec3        `yaml:"destination"`
	FaceDestination bool               `yaml:"face_destination"`
	Building        string             `yaml:"building"`
	Duration        int                `yaml:"duration"`
	Machine         string             `yaml:"machine"`
	ParkingLot      string             `yaml:"parking_lot"`
	Vehicle         string             `yaml:"vehicle"`
	Signal          string             `yaml:"signal"`
}

// Spec is the YAML form of a schedule.
type Spec struct {
	Signals []string     `yaml:"signals"`
	Actions []ActionSpec `yaml:"actions"`
}

// Action converts s into a concrete Action.
func (s ActionSpec) Action() (Action, error) {
	needDest := func() (world.Vec3, error) {
		if s.Destination == nil {
			return world.Vec3{}, fmt.Errorf("%s at %s: destination is required", s.Kind, s.At)
		}
		return *s.Destination, nil
	}
	switch s.Kind {
	case KindWalkTo:
		d, err := needDest()
		if err != nil {
			return nil, err
		}
		return WalkTo{Destination: d, FaceDestination: s.FaceDestination}, nil
	case KindLocationDialogue:
		d, err := needDest()
		if err != nil {
			return nil, err
		}
		return LocationDialogue{Destination: d, FaceDestination: s.FaceDestination}, nil
	case KindStayInBuilding:
		dur := s.Duration
		if dur == 0 {
			dur = DefaultStayDuration
		}
		return StayInBuilding{Building: s.Building, Duration: dur}, nil
	case KindUseVendingMachine:
		return UseVendingMachine{Machine: s.Machine}, nil
	case KindDriveToCarPark:
		return DriveToCarPark{ParkingLot: s.ParkingLot, Vehicle: s.Vehicle}, nil
	case KindSignal:
		return Signal{Name: s.Signal}, nil
	default:
		return nil, fmt.Errorf("entry at %s: unknown action kind %q", s.At, s.Kind)
	}
}

// Plan converts s into a Plan.
func (s Spec) Plan() (Plan, error) {
	var p Plan
	var errs []error
	for _, name := range s.Signals {
		p = p.EnsureSignal(name)
	}
	for _, as := range s.Actions {
		a, err := as.Action()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p = p.Add(as.At, a)
	}
	if len(errs) > 0 {
		return Plan{}, errors.Join(errs...)
	}
	return p, nil
}

// References lists every named world reference in s, for offline
// validation against a world file.
func (s Spec) References() []Reference {
	var refs []Reference
	for _, as := range s.Actions {
		a, err := as.Action()
		if err != nil {
			continue
		}
		if ref, ok := a.Reference(); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}
