package schedule

import (
	"fmt"

	"github.com/cory-johannsen/npcmod/internal/game/world"
)

// Kind names an action type.
type Kind string

const (
	KindWalkTo            Kind = "walk_to"
	KindStayInBuilding    Kind = "stay_in_building"
	KindLocationDialogue  Kind = "location_dialogue"
	KindUseVendingMachine Kind = "use_vending_machine"
	KindDriveToCarPark    Kind = "drive_to_car_park"
	KindSignal            Kind = "signal"
)

// SignalDeal marks windows during which deals may be initiated.
const SignalDeal = "deal"

// DefaultStayDuration is used when a StayInBuilding action omits its duration.
const DefaultStayDuration = 60

// Reference is a deferred lookup into one of the host's world registries.
type Reference struct {
	Kind world.RefKind
	Name string
}

// Action is the payload of a timeline entry.
type Action interface {
	Kind() Kind
	// Reference reports the world object this action needs resolved before
	// first evaluation, if any.
	Reference() (Reference, bool)
	Validate() error
}

// WalkTo moves the NPC to Destination.
type WalkTo struct {
	Destination     world.Vec3
	FaceDestination bool
}

func (WalkTo) Kind() Kind {
	return KindWalkTo
}

func (WalkTo) Reference() (Reference, bool) {
	return Reference{}, false
}

func (WalkTo) Validate() error {
	return nil
}

func (a WalkTo) String() string {
	return fmt.Sprintf("walk to %s", a.Destination)
}

// StayInBuilding keeps the NPC inside Building for Duration minutes.
type StayInBuilding struct {
	Building string
	Duration int
}

func (StayInBuilding) Kind() Kind {
	return KindStayInBuilding
}

func (a StayInBuilding) Reference() (Reference, bool) {
	return Reference{Kind: world.RefBuilding, Name: a.Building}, true
}

func (a StayInBuilding) Validate() error {
	if a.Building == "" {
		return fmt.Errorf("stay_in_building: building must not be empty")
	}
	if a.Duration < 1 || a.Duration >= 24*60 {
		return fmt.Errorf("stay_in_building %q: duration %d must be in [1, 1440)", a.Building, a.Duration)
	}
	return nil
}

func (a StayInBuilding) String() string {
	return fmt.Sprintf("stay in %s for %dm", a.Building, a.Duration)
}

// LocationDialogue parks the NPC at Destination, available for conversation.
type LocationDialogue struct {
	Destination     world.Vec3
	FaceDestination bool
}

func (LocationDialogue) Kind() Kind {
	return KindLocationDialogue
}

func (LocationDialogue) Reference() (Reference, bool) {
	return Reference{}, false
}

func (LocationDialogue) Validate() error {
	return nil
}

// UseVendingMachine sends the NPC to a vending machine. An empty Machine lets
// the host pick one.
type UseVendingMachine struct {
	Machine string
}

func (UseVendingMachine) Kind() Kind {
	return KindUseVendingMachine
}

func (a UseVendingMachine) Reference() (Reference, bool) {
	return Reference{Kind: world.RefVendingMachine, Name: a.Machine}, true
}

func (UseVendingMachine) Validate() error {
	return nil
}

// DriveToCarPark drives Vehicle to ParkingLot.
type DriveToCarPark struct {
	ParkingLot string
	Vehicle    string
}

func (DriveToCarPark) Kind() Kind {
	return KindDriveToCarPark
}

func (a DriveToCarPark) Reference() (Reference, bool) {
	return Reference{Kind: world.RefParkingLot, Name: a.ParkingLot}, true
}

func (a DriveToCarPark) Validate() error {
	if a.ParkingLot == "" {
		return fmt.Errorf("drive_to_car_park: parking_lot must not be empty")
	}
	return nil
}

// Signal performs no physical action; it flags a capability window to the host.
type Signal struct {
	Name string
}

func (Signal) Kind() Kind {
	return KindSignal
}

func (Signal) Reference() (Reference, bool) {
	return Reference{}, false
}

func (a Signal) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("signal: name must not be empty")
	}
	return nil
}
