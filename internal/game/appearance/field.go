package appearance

import "fmt"

// Field identifies one customization value on an avatar.
type Field string

const (
	FieldGender               Field = "gender"
	FieldHeight               Field = "height"
	FieldWeight               Field = "weight"
	FieldPupilDilation        Field = "pupil_dilation"
	FieldEyebrowScale         Field = "eyebrow_scale"
	FieldEyebrowThickness     Field = "eyebrow_thickness"
	FieldEyebrowRestingHeight Field = "eyebrow_resting_height"
	FieldEyebrowRestingAngle  Field = "eyebrow_resting_angle"
	FieldSkinColor            Field = "skin_color"
	FieldHairColor            Field = "hair_color"
	FieldEyeBallTint          Field = "eyeball_tint"
	FieldLeftEyeLidColor      Field = "left_eyelid_color"
	FieldRightEyeLidColor     Field = "right_eyelid_color"
	FieldEyeLidRestingLeft    Field = "eyelid_resting_left"
	FieldEyeLidRestingRight   Field = "eyelid_resting_right"
	FieldHairStyle            Field = "hair_style"
)

// Kind is the value type a Field accepts.
type Kind int

const (
	KindScalar Kind = iota
	KindColor
	KindEyeLid
	KindPath
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindColor:
		return "color"
	case KindEyeLid:
		return "eyelid"
	case KindPath:
		return "path"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type fieldSpec struct {
	kind     Kind
	min, max float64
	def      any
}

// inRange is false for NaN.
func (s fieldSpec) inRange(v float64) bool {
	return v >= s.min && v <= s.max
}

var fieldSpecs = map[Field]fieldSpec{
	FieldGender:               {kind: KindScalar, min: 0, max: 1, def: 0.0},
	FieldHeight:               {kind: KindScalar, min: 0, max: 1, def: 1.0},
	FieldWeight:               {kind: KindScalar, min: 0, max: 1, def: 0.5},
	FieldPupilDilation:        {kind: KindScalar, min: 0, max: 1, def: 1.0},
	FieldEyebrowScale:         {kind: KindScalar, min: 0, max: 1, def: 1.0},
	FieldEyebrowThickness:     {kind: KindScalar, min: 0, max: 1, def: 1.0},
	FieldEyebrowRestingHeight: {kind: KindScalar, min: 0, max: 1, def: 0.0},
	FieldEyebrowRestingAngle:  {kind: KindScalar, min: -1, max: 1, def: 0.0},
	FieldSkinColor:            {kind: KindColor, def: Color{150, 120, 95, 255}},
	FieldHairColor:            {kind: KindColor, def: Black},
	FieldEyeBallTint:          {kind: KindColor, def: White},
	FieldLeftEyeLidColor:      {kind: KindColor, def: Color{150, 120, 95, 255}},
	FieldRightEyeLidColor:     {kind: KindColor, def: Color{150, 120, 95, 255}},
	FieldEyeLidRestingLeft:    {kind: KindEyeLid, min: 0, max: 1, def: EyeLid{0.5, 0.5}},
	FieldEyeLidRestingRight:   {kind: KindEyeLid, min: 0, max: 1, def: EyeLid{0.5, 0.5}},
	FieldHairStyle:            {kind: KindPath, def: ""},
}

// KindOf returns the value kind for f.
//
// Postcondition: ok is false for unknown fields.
func KindOf(f Field) (Kind, bool) {
	spec, ok := fieldSpecs[f]
	return spec.kind, ok
}

// Category groups layer slots.
type Category string

const (
	CategoryFace      Category = "face"
	CategoryBody      Category = "body"
	CategoryAccessory Category = "accessory"
)

// Slot names one layer position within a category.
type Slot struct {
	Category Category
	Name     string
}

// Predefined slots.
var (
	SlotFace       = Slot{CategoryFace, "face"}
	SlotFacialHair = Slot{CategoryFace, "facial_hair"}
	SlotFaceTattoo = Slot{CategoryFace, "tattoo"}
	SlotShirts     = Slot{CategoryBody, "shirts"}
	SlotPants      = Slot{CategoryBody, "pants"}
	SlotBodyTattoo = Slot{CategoryBody, "tattoo"}
	SlotHead       = Slot{CategoryAccessory, "head"}
	SlotChest      = Slot{CategoryAccessory, "chest"}
	SlotWaist      = Slot{CategoryAccessory, "waist"}
	SlotHands      = Slot{CategoryAccessory, "hands"}
	SlotFeet       = Slot{CategoryAccessory, "feet"}
	SlotNeck       = Slot{CategoryAccessory, "neck"}
)

var knownSlots = map[Slot]bool{
	SlotFace: true, SlotFacialHair: true, SlotFaceTattoo: true,
	SlotShirts: true, SlotPants: true, SlotBodyTattoo: true,
	SlotHead: true, SlotChest: true, SlotWaist: true,
	SlotHands: true, SlotFeet: true, SlotNeck: true,
}

// ParseSlot reads "category/name", e.g. "body/shirts".
func ParseSlot(s string) (Slot, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			slot := Slot{Category(s[:i]), s[i+1:]}
			if !knownSlots[slot] {
				return Slot{}, fmt.Errorf("unknown layer slot %q", s)
			}
			return slot, nil
		}
	}
	return Slot{}, fmt.Errorf("layer slot %q must be category/name", s)
}

// String renders the slot as "category/name".
func (s Slot) String() string {
	return string(s.Category) + "/" + s.Name
}

// Layer is an asset reference occupying one slot.
type Layer struct {
	Path string
	Tint Color
}

// ValidationError reports a rejected field or layer write.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("appearance %s = %v: %s", e.Field, e.Value, e.Reason)
}
