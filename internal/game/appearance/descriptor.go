// Package appearance holds the avatar customization record an NPC commits to
// its visual entity.
package appearance

import (
	"errors"
	"fmt"
	"sort"
)

// Renderer materializes a committed appearance on the host's visual entity.
type Renderer interface {
	Apply(Snapshot) error
}

// LayerRef is one occupied slot in a Snapshot.
type LayerRef struct {
	Slot  Slot
	Layer Layer
}

// Snapshot is the complete appearance handed to a Renderer: every field with
// either its written value or its default, and the occupied layer slots in
// stable slot order.
type Snapshot struct {
	Scalars map[Field]float64
	Colors  map[Field]Color
	EyeLids map[Field]EyeLid
	Hair    string
	Layers  []LayerRef
}

// Descriptor accumulates customization writes until Commit.
//
// Invariant: each slot holds at most one Layer; a write replaces the previous one.
type Descriptor struct {
	scalars map[Field]float64
	colors  map[Field]Color
	eyelids map[Field]EyeLid
	paths   map[Field]string
	layers  map[Slot]Layer
	commits int
	dirty   bool
}

// NewDescriptor returns an empty Descriptor; committing it yields the default appearance.
func NewDescriptor() *Descriptor {
	return &Descriptor{
		scalars: make(map[Field]float64),
		colors:  make(map[Field]Color),
		eyelids: make(map[Field]EyeLid),
		paths:   make(map[Field]string),
		layers:  make(map[Slot]Layer),
	}
}

// SetField stores value under f. Numeric values out of the field's range are
// rejected, never clamped.
//
// Postcondition: Returns a *ValidationError and leaves the descriptor unchanged
// when f is unknown, value has the wrong type, or value is out of range.
func (d *Descriptor) SetField(f Field, value any) error {
	spec, ok := fieldSpecs[f]
	if !ok {
		return &ValidationError{Field: string(f), Value: value, Reason: "unknown field"}
	}
	switch spec.kind {
	case KindScalar:
		v, ok := toFloat(value)
		if !ok {
			return &ValidationError{Field: string(f), Value: value, Reason: "expected a number"}
		}
		if !spec.inRange(v) {
			return &ValidationError{Field: string(f), Value: value, Reason: fmt.Sprintf("out of range [%g, %g]", spec.min, spec.max)}
		}
		d.scalars[f] = v
	case KindColor:
		c, ok := value.(Color)
		if !ok {
			return &ValidationError{Field: string(f), Value: value, Reason: "expected a Color"}
		}
		d.colors[f] = c
	case KindEyeLid:
		e, ok := value.(EyeLid)
		if !ok {
			return &ValidationError{Field: string(f), Value: value, Reason: "expected an EyeLid"}
		}
		for _, v := range []float64{e.Top, e.Bottom} {
			if !spec.inRange(v) {
				return &ValidationError{Field: string(f), Value: value, Reason: fmt.Sprintf("out of range [%g, %g]", spec.min, spec.max)}
			}
		}
		d.eyelids[f] = e
	case KindPath:
		p, ok := value.(string)
		if !ok || p == "" {
			return &ValidationError{Field: string(f), Value: value, Reason: "expected a non-empty asset path"}
		}
		d.paths[f] = p
	}
	d.touch()
	return nil
}

// Field returns the written value of f, if any.
func (d *Descriptor) Field(f Field) (any, bool) {
	if v, ok := d.scalars[f]; ok {
		return v, true
	}
	if v, ok := d.colors[f]; ok {
		return v, true
	}
	if v, ok := d.eyelids[f]; ok {
		return v, true
	}
	if v, ok := d.paths[f]; ok {
		return v, true
	}
	return nil, false
}

// SetLayer places an asset in slot, replacing whatever occupied it.
//
// Postcondition: Returns a *ValidationError for an unknown slot or empty path.
func (d *Descriptor) SetLayer(slot Slot, path string, tint Color) error {
	if !knownSlots[slot] {
		return &ValidationError{Field: slot.String(), Value: path, Reason: "unknown layer slot"}
	}
	if path == "" {
		return &ValidationError{Field: slot.String(), Value: path, Reason: "asset path must not be empty"}
	}
	d.layers[slot] = Layer{Path: path, Tint: tint}
	d.touch()
	return nil
}

// ClearLayer empties slot. Clearing an empty slot is a no-op.
func (d *Descriptor) ClearLayer(slot Slot) {
	if _, ok := d.layers[slot]; ok {
		delete(d.layers, slot)
		d.touch()
	}
}

// Layer returns the asset occupying slot.
func (d *Descriptor) Layer(slot Slot) (Layer, bool) {
	l, ok := d.layers[slot]
	return l, ok
}

// Dirty reports whether writes happened after the last Commit.
func (d *Descriptor) Dirty() bool { return d.dirty }

// Commits returns how many times the descriptor was committed.
func (d *Descriptor) Commits() int { return d.commits }

// Snapshot returns the full appearance with defaults filled in.
func (d *Descriptor) Snapshot() Snapshot {
	s := Snapshot{
		Scalars: make(map[Field]float64),
		Colors:  make(map[Field]Color),
		EyeLids: make(map[Field]EyeLid),
	}
	for f, spec := range fieldSpecs {
		switch spec.kind {
		case KindScalar:
			s.Scalars[f] = spec.def.(float64)
		case KindColor:
			s.Colors[f] = spec.def.(Color)
		case KindEyeLid:
			s.EyeLids[f] = spec.def.(EyeLid)
		}
	}
	for f, v := range d.scalars {
		s.Scalars[f] = v
	}
	for f, v := range d.colors {
		s.Colors[f] = v
	}
	for f, v := range d.eyelids {
		s.EyeLids[f] = v
	}
	s.Hair = d.paths[FieldHairStyle]

	for slot, layer := range d.layers {
		s.Layers = append(s.Layers, LayerRef{Slot: slot, Layer: layer})
	}
	sort.Slice(s.Layers, func(i, j int) bool {
		return s.Layers[i].Slot.String() < s.Layers[j].Slot.String()
	})
	return s
}

// Commit materializes the accumulated state on r. Each call applies exactly
// once; writes never commit implicitly.
//
// Precondition: r must not be nil.
// Postcondition: On success Dirty() is false and Commits() is incremented.
// On failure the descriptor stays dirty so a later Commit can retry.
func (d *Descriptor) Commit(r Renderer) error {
	if r == nil {
		return errors.New("appearance.Commit: renderer must not be nil")
	}
	if err := r.Apply(d.Snapshot()); err != nil {
		return fmt.Errorf("committing appearance: %w", err)
	}
	d.commits++
	d.dirty = false
	return nil
}

func (d *Descriptor) touch() {
	d.dirty = true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
