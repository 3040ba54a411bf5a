package appearance_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/npcmod/internal/game/appearance"
)

type recordingRenderer struct {
	applied []appearance.Snapshot
	err     error
}

func (r *recordingRenderer) Apply(s appearance.Snapshot) error {
	if r.err != nil {
		return r.err
	}
	r.applied = append(r.applied, s)
	return nil
}

func TestSetField_RejectsOutOfRange(t *testing.T) {
	d := appearance.NewDescriptor()
	err := d.SetField(appearance.FieldHeight, 1.5)
	require.Error(t, err)
	var verr *appearance.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "height", verr.Field)

	_, ok := d.Field(appearance.FieldHeight)
	assert.False(t, ok, "rejected write must not be stored")
	assert.False(t, d.Dirty())
}

func TestSetField_RejectsWrongType(t *testing.T) {
	d := appearance.NewDescriptor()
	assert.Error(t, d.SetField(appearance.FieldSkinColor, 0.5))
	assert.Error(t, d.SetField(appearance.FieldWeight, "heavy"))
	assert.Error(t, d.SetField(appearance.FieldHairStyle, ""))
	assert.Error(t, d.SetField(appearance.Field("tail_length"), 1.0))
}

func TestSetField_EyeLidRange(t *testing.T) {
	d := appearance.NewDescriptor()
	require.NoError(t, d.SetField(appearance.FieldEyeLidRestingLeft, appearance.EyeLid{Top: 0.5, Bottom: 0.5}))
	assert.Error(t, d.SetField(appearance.FieldEyeLidRestingRight, appearance.EyeLid{Top: 1.2, Bottom: 0}))
	assert.Error(t, d.SetField(appearance.FieldEyeLidRestingRight, appearance.EyeLid{Top: 0.5, Bottom: math.NaN()}))
	_, ok := d.Field(appearance.FieldEyeLidRestingRight)
	assert.False(t, ok)
}

func TestSetField_RejectsNaNAndInf(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		d := appearance.NewDescriptor()
		err := d.SetField(appearance.FieldHeight, v)
		var verr *appearance.ValidationError
		require.ErrorAs(t, err, &verr, "%v", v)
		_, ok := d.Field(appearance.FieldHeight)
		assert.False(t, ok, "%v stored", v)
	}
}

func TestSetField_EyebrowAngleAllowsNegative(t *testing.T) {
	d := appearance.NewDescriptor()
	assert.NoError(t, d.SetField(appearance.FieldEyebrowRestingAngle, -0.3))
}

func TestSetLayer_ReplacesExistingReference(t *testing.T) {
	d := appearance.NewDescriptor()
	require.NoError(t, d.SetLayer(appearance.SlotShirts, "Avatar/Layers/Top/T-Shirt", appearance.Red))
	require.NoError(t, d.SetLayer(appearance.SlotShirts, "Avatar/Layers/Top/RolledButtonUp", appearance.Blue))

	layer, ok := d.Layer(appearance.SlotShirts)
	require.True(t, ok)
	assert.Equal(t, "Avatar/Layers/Top/RolledButtonUp", layer.Path)
	assert.Len(t, d.Snapshot().Layers, 1)
}

func TestSetLayer_Rejects(t *testing.T) {
	d := appearance.NewDescriptor()
	assert.Error(t, d.SetLayer(appearance.SlotFeet, "", appearance.Black))
	assert.Error(t, d.SetLayer(appearance.Slot{Category: "tail", Name: "x"}, "p", appearance.Black))
}

func TestCommit_EmptyDescriptorYieldsDefaults(t *testing.T) {
	r := &recordingRenderer{}
	d := appearance.NewDescriptor()
	require.NoError(t, d.Commit(r))
	require.Len(t, r.applied, 1)
	snap := r.applied[0]
	assert.Equal(t, 1.0, snap.Scalars[appearance.FieldHeight])
	assert.Equal(t, appearance.White, snap.Colors[appearance.FieldEyeBallTint])
	assert.Empty(t, snap.Layers)
}

func TestCommit_NoAutoCommitAndExplicitRebuild(t *testing.T) {
	r := &recordingRenderer{}
	d := appearance.NewDescriptor()
	require.NoError(t, d.SetField(appearance.FieldWeight, 0.36))
	assert.Empty(t, r.applied, "writes must not commit")
	assert.True(t, d.Dirty())

	require.NoError(t, d.Commit(r))
	assert.False(t, d.Dirty())
	assert.Equal(t, 0.36, r.applied[0].Scalars[appearance.FieldWeight])

	require.NoError(t, d.SetField(appearance.FieldWeight, 0.5))
	assert.True(t, d.Dirty())
	assert.Len(t, r.applied, 1)

	require.NoError(t, d.Commit(r))
	assert.Equal(t, 2, d.Commits())
	assert.Equal(t, 0.5, r.applied[1].Scalars[appearance.FieldWeight])
}

func TestCommit_RendererFailureKeepsDirty(t *testing.T) {
	d := appearance.NewDescriptor()
	require.NoError(t, d.SetField(appearance.FieldGender, 0.0))
	err := d.Commit(&recordingRenderer{err: errors.New("no rig")})
	require.Error(t, err)
	assert.True(t, d.Dirty())
	assert.Equal(t, 0, d.Commits())
	assert.Error(t, d.Commit(nil))
}

func TestBuilder_ValueSemantics(t *testing.T) {
	base := appearance.Builder{}.
		Set(appearance.FieldGender, 0.0).
		WithBodyLayer("shirts", "Avatar/Layers/Top/T-Shirt", appearance.Red)

	a := base.WithAccessoryLayer("feet", "Avatar/Accessories/Feet/Sneakers/Sneakers", appearance.Red)
	b := base.WithAccessoryLayer("feet", "Avatar/Accessories/Feet/Sneakers/Sneakers", appearance.Blue)

	assert.Equal(t, 2, base.Len())
	da, err := a.Build()
	require.NoError(t, err)
	db, err := b.Build()
	require.NoError(t, err)

	la, _ := da.Layer(appearance.SlotFeet)
	lb, _ := db.Layer(appearance.SlotFeet)
	assert.Equal(t, appearance.Red, la.Tint)
	assert.Equal(t, appearance.Blue, lb.Tint)
}

func TestBuilder_JoinsErrors(t *testing.T) {
	_, err := appearance.Builder{}.
		Set(appearance.FieldHeight, 2.0).
		Set(appearance.FieldWeight, -1.0).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "height")
	assert.Contains(t, err.Error(), "weight")
}

func TestParseColor(t *testing.T) {
	c, err := appearance.ParseColor("#96785f")
	require.NoError(t, err)
	assert.Equal(t, appearance.Color{R: 150, G: 120, B: 95, A: 255}, c)

	c, err = appearance.ParseColor("#1a1a1a80")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x80), c.A)

	c, err = appearance.ParseColor("White")
	require.NoError(t, err)
	assert.Equal(t, appearance.White, c)

	for _, bad := range []string{"", "purple", "#123", "#zzzzzz"} {
		_, err := appearance.ParseColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestRGB(t *testing.T) {
	c, err := appearance.RGB(0.1, 0.1, 0.1)
	require.NoError(t, err)
	assert.Equal(t, appearance.Color{R: 26, G: 26, B: 26, A: 255}, c)
	_, err = appearance.RGB(1.1, 0, 0)
	assert.Error(t, err)
}

func TestSpec_FromYAML(t *testing.T) {
	src := `
gender: 0.0
height: 1.0
weight: 0.36
skin_color: "#96785f"
eyeball_tint: white
eyelid_resting_left: [0.5, 0.5]
hair_style: Avatar/Hair/Spiky/Spiky
layers:
  - slot: face/face
    path: Avatar/Layers/Face/Face_Agitated
    tint: black
  - slot: face/facial_hair
    path: Avatar/Layers/Face/Freckles
    tint: blue
`
	var spec appearance.Spec
	require.NoError(t, yaml.Unmarshal([]byte(src), &spec))
	b, err := spec.Builder()
	require.NoError(t, err)
	d, err := b.Build()
	require.NoError(t, err)

	v, ok := d.Field(appearance.FieldWeight)
	require.True(t, ok)
	assert.Equal(t, 0.36, v)
	face, ok := d.Layer(appearance.SlotFace)
	require.True(t, ok)
	assert.Equal(t, appearance.Black, face.Tint)
	assert.Equal(t, "Avatar/Hair/Spiky/Spiky", d.Snapshot().Hair)
}

func TestSpec_UnknownSlot(t *testing.T) {
	spec := appearance.Spec{Layers: []appearance.LayerSpec{{Slot: "face/horns", Path: "x"}}}
	_, err := spec.Builder()
	assert.Error(t, err)
}

func TestProperty_ScalarWrites_AcceptIffInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := rapid.OneOf(
			rapid.Float64Range(-2, 2),
			rapid.SampledFrom([]float64{math.NaN(), math.Inf(1), math.Inf(-1)}),
		).Draw(rt, "value")
		d := appearance.NewDescriptor()
		err := d.SetField(appearance.FieldWeight, v)
		if v >= 0 && v <= 1 {
			assert.NoError(rt, err)
		} else {
			assert.Error(rt, err)
		}
	})
}

func TestProperty_LayerSlot_HoldsLastWrite(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		paths := rapid.SliceOfN(rapid.StringMatching(`Avatar/[A-Za-z]{1,8}`), 1, 10).Draw(rt, "paths")
		d := appearance.NewDescriptor()
		for _, p := range paths {
			require.NoError(rt, d.SetLayer(appearance.SlotPants, p, appearance.Black))
		}
		l, ok := d.Layer(appearance.SlotPants)
		require.True(rt, ok)
		assert.Equal(rt, paths[len(paths)-1], l.Path)
		assert.Len(rt, d.Snapshot().Layers, 1)
	})
}
