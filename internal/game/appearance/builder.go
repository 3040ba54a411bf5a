package appearance

import (
	"errors"
	"fmt"
)

type write struct {
	field Field
	value any
	slot  *Slot
	layer Layer
}

// Builder is a value-type, chainable appearance configuration. Every method
// returns a new Builder; the receiver is never modified, so a shared base
// can be extended per NPC.
type Builder struct {
	writes []write
}

func (b Builder) with(w write) Builder {
	b.writes = append(b.writes[:len(b.writes):len(b.writes)], w)
	return b
}

// Set records a field write.
func (b Builder) Set(f Field, value any) Builder {
	return b.with(write{field: f, value: value})
}

// WithLayer records a layer write for slot.
func (b Builder) WithLayer(slot Slot, path string, tint Color) Builder {
	s := slot
	return b.with(write{slot: &s, layer: Layer{Path: path, Tint: tint}})
}

// WithFaceLayer records a face layer write.
func (b Builder) WithFaceLayer(name, path string, tint Color) Builder {
	return b.WithLayer(Slot{CategoryFace, name}, path, tint)
}

// WithBodyLayer records a body layer write.
func (b Builder) WithBodyLayer(name, path string, tint Color) Builder {
	return b.WithLayer(Slot{CategoryBody, name}, path, tint)
}

// WithAccessoryLayer records an accessory layer write.
func (b Builder) WithAccessoryLayer(name, path string, tint Color) Builder {
	return b.WithLayer(Slot{CategoryAccessory, name}, path, tint)
}

// Len returns the number of recorded writes.
func (b Builder) Len() int { return len(b.writes) }

// Build replays the recorded writes, in order, onto a fresh Descriptor.
//
// Postcondition: Returns the Descriptor, or every rejected write joined into one error.
func (b Builder) Build() (*Descriptor, error) {
	d := NewDescriptor()
	var errs []error
	for _, w := range b.writes {
		var err error
		if w.slot != nil {
			err = d.SetLayer(*w.slot, w.layer.Path, w.layer.Tint)
		} else {
			err = d.SetField(w.field, w.value)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return d, nil
}

// LayerSpec is the YAML form of a layer write.
type LayerSpec struct {
	Slot string `yaml:"slot"`
	Path string `yaml:"path"`
	Tint Color  `yaml:"tint"`
}

// Spec is the YAML form of an NPC's appearance defaults. Omitted fields keep
// their defaults.
type Spec struct {
	Gender               *float64    `yaml:"gender"`
	Height               *float64    `yaml:"height"`
	Weight               *float64    `yaml:"weight"`
	PupilDilation        *float64    `yaml:"pupil_dilation"`
	EyebrowScale         *float64    `yaml:"eyebrow_scale"`
	EyebrowThickness     *float64    `yaml:"eyebrow_thickness"`
	EyebrowRestingHeight *float64    `yaml:"eyebrow_resting_height"`
	EyebrowRestingAngle  *float64    `yaml:"eyebrow_resting_angle"`
	SkinColor            *Color      `yaml:"skin_color"`
	HairColor            *Color      `yaml:"hair_color"`
	EyeBallTint          *Color      `yaml:"eyeball_tint"`
	LeftEyeLidColor      *Color      `yaml:"left_eyelid_color"`
	RightEyeLidColor     *Color      `yaml:"right_eyelid_color"`
	EyeLidRestingLeft    *EyeLid     `yaml:"eyelid_resting_left"`
	EyeLidRestingRight   *EyeLid     `yaml:"eyelid_resting_right"`
	HairStyle            string      `yaml:"hair_style"`
	Layers               []LayerSpec `yaml:"layers"`
}

// Builder converts s to a Builder. Slot names are checked here;
// value ranges are checked by Build.
func (s Spec) Builder() (Builder, error) {
	var b Builder
	scalars := []struct {
		f Field
		v *float64
	}{
		{FieldGender, s.Gender},
		{FieldHeight, s.Height},
		{FieldWeight, s.Weight},
		{FieldPupilDilation, s.PupilDilation},
		{FieldEyebrowScale, s.EyebrowScale},
		{FieldEyebrowThickness, s.EyebrowThickness},
		{FieldEyebrowRestingHeight, s.EyebrowRestingHeight},
		{FieldEyebrowRestingAngle, s.EyebrowRestingAngle},
	}
	for _, sc := range scalars {
		if sc.v != nil {
			b = b.Set(sc.f, *sc.v)
		}
	}
	colors := []struct {
		f Field
		v *Color
	}{
		{FieldSkinColor, s.SkinColor},
		{FieldHairColor, s.HairColor},
		{FieldEyeBallTint, s.EyeBallTint},
		{FieldLeftEyeLidColor, s.LeftEyeLidColor},
		{FieldRightEyeLidColor, s.RightEyeLidColor},
	}
	for _, c := range colors {
		if c.v != nil {
			b = b.Set(c.f, *c.v)
		}
	}
	if s.EyeLidRestingLeft != nil {
		b = b.Set(FieldEyeLidRestingLeft, *s.EyeLidRestingLeft)
	}
	if s.EyeLidRestingRight != nil {
		b = b.Set(FieldEyeLidRestingRight, *s.EyeLidRestingRight)
	}
	if s.HairStyle != "" {
		b = b.Set(FieldHairStyle, s.HairStyle)
	}
	for i, l := range s.Layers {
		slot, err := ParseSlot(l.Slot)
		if err != nil {
			return Builder{}, fmt.Errorf("layers[%d]: %w", i, err)
		}
		b = b.WithLayer(slot, l.Path, l.Tint)
	}
	return b, nil
}
