package appearance

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Color is an 8-bit RGBA color.
type Color struct {
	R, G, B, A uint8
}

// Common colors.
var (
	White = Color{255, 255, 255, 255}
	Black = Color{0, 0, 0, 255}
	Red   = Color{255, 0, 0, 255}
	Green = Color{0, 255, 0, 255}
	Blue  = Color{0, 0, 255, 255}
)

var namedColors = map[string]Color{
	"white": White,
	"black": Black,
	"red":   Red,
	"green": Green,
	"blue":  Blue,
}

// RGB builds an opaque color from unit-interval components, rounding to the
// nearest 8-bit value. Components outside [0, 1] are an error.
func RGB(r, g, b float64) (Color, error) {
	var out [3]uint8
	for i, c := range []float64{r, g, b} {
		if c < 0 || c > 1 {
			return Color{}, fmt.Errorf("color component %g out of range [0, 1]", c)
		}
		out[i] = uint8(c*255 + 0.5)
	}
	return Color{out[0], out[1], out[2], 255}, nil
}

// ParseColor reads "#rrggbb", "#rrggbbaa", or one of the named colors.
func ParseColor(s string) (Color, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[raw]; ok {
		return c, nil
	}
	hex, ok := strings.CutPrefix(raw, "#")
	if !ok || (len(hex) != 6 && len(hex) != 8) {
		return Color{}, fmt.Errorf("color %q must be a name or #rrggbb[aa]", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("color %q: %w", s, err)
	}
	return Color{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
}

// String renders c as "#rrggbbaa".
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// UnmarshalYAML decodes a color scalar via ParseColor.
func (c *Color) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: color must be a scalar", node.Line)
	}
	parsed, err := ParseColor(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*c = parsed
	return nil
}

// EyeLid is a resting eyelid state: how far the upper and lower lids close.
type EyeLid struct {
	Top    float64
	Bottom float64
}

// UnmarshalYAML decodes an EyeLid from a two element sequence: [top, bottom].
func (e *EyeLid) UnmarshalYAML(node *yaml.Node) error {
	var pair []float64
	if err := node.Decode(&pair); err != nil {
		return fmt.Errorf("line %d: eyelid must be [top, bottom]: %w", node.Line, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("line %d: eyelid must have 2 components, got %d", node.Line, len(pair))
	}
	*e = EyeLid{Top: pair[0], Bottom: pair[1]}
	return nil
}
