package lifx

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pdf/golifx/common"

	"github.com/scheerer/dmx-light-control/internal/color"
)

const kelvin = 3500

func newLifxColor(c color.Color) common.Color {
	r, g, b := c.Bytes()
	hue, saturation, brightness := rgbToHsb(r, g, b)

	return common.Color{
		Hue:        hue,
		Saturation: saturation,
		Brightness: brightness,
		Kelvin:     kelvin,
	}
}

// adjustColor turns near-black greys off entirely and keeps everything else,
// including dark saturated colors, inside the configured brightness bounds.
func adjustColor(c common.Color, config Config) common.Color {
	blackThreshold := 0.015 * 0xFFFF
	if c.Brightness <= uint16(blackThreshold) && c.Saturation <= uint16(blackThreshold) {
		return common.Color{Kelvin: kelvin}
	}

	c.Brightness = uint16(math.Min(config.MaxBrightness*0xFFFF, math.Max(config.MinBrightness*0xFFFF, float64(c.Brightness))))
	return c
}

// rgbToHsb scales colorful's HSV (hue in degrees) to LIFX's 16 bit ranges.
func rgbToHsb(r, g, b uint8) (uint16, uint16, uint16) {
	h, s, v := colorful.Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}.Hsv()

	return uint16(math.Round(h / 360 * 0xFFFF)), uint16(math.Round(s * 0xFFFF)), uint16(math.Round(v * 0xFFFF))
}
