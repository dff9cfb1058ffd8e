// Package color holds the RGB value type used by animations and the DMX encoder.
package color

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an RGB triple. Components are nominally in [0,255] but arithmetic
// never clamps them; Byte clamps when a value is written to a channel.
type Color struct {
	Red   float64
	Green float64
	Blue  float64
}

// Black is every channel off; White is every channel full.
var (
	Black = Color{}
	White = Color{Red: 255, Green: 255, Blue: 255}
)

// RandomSource is the subset of *math/rand.Rand used for color draws.
type RandomSource interface {
	Intn(n int) int
}

// New returns the color with the given components.
func New(red, green, blue float64) Color {
	return Color{Red: red, Green: green, Blue: blue}
}

// Scale multiplies each component by factor.
func (c Color) Scale(factor float64) Color {
	return Color{Red: c.Red * factor, Green: c.Green * factor, Blue: c.Blue * factor}
}

// Add sums the components of c and other.
func (c Color) Add(other Color) Color {
	return Color{Red: c.Red + other.Red, Green: c.Green + other.Green, Blue: c.Blue + other.Blue}
}

// Random draws each component independently and uniformly from [0,255].
func Random(src RandomSource) Color {
	return Color{
		Red:   float64(src.Intn(256)),
		Green: float64(src.Intn(256)),
		Blue:  float64(src.Intn(256)),
	}
}

// Bytes rounds and clamps each component to a channel value.
func (c Color) Bytes() (uint8, uint8, uint8) {
	return Byte(c.Red), Byte(c.Green), Byte(c.Blue)
}

// Byte rounds half away from zero and clamps to [0,255].
func Byte(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v)
	if r <= 0 {
		return 0
	}
	if r >= 255 {
		return 255
	}
	return uint8(r)
}

// ParseHex reads "#rrggbb" (or the short "#rgb" form).
func ParseHex(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return New(float64(r), float64(g), float64(b)), nil
}

func (c Color) Hex() string {
	r, g, b := c.Bytes()
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func (c Color) String() string {
	return fmt.Sprintf("[%g %g %g]", c.Red, c.Green, c.Blue)
}
