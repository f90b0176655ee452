// Package color converts between the color representations a bridge light
// accepts: CIE xy with gamut clamping, hue/saturation, mired color
// temperature and sRGB.
package color

import (
	"errors"
	"fmt"
)

// ErrUnsupportedColorMode is returned when a device can reproduce no
// representation of the requested color.
var ErrUnsupportedColorMode = errors.New("unsupported color mode")

// Kind identifies which representation a Color carries.
type Kind int

const (
	KindTemperature Kind = iota + 1
	KindXY
	KindHSV
	KindRGB
)

func (k Kind) String() string {
	switch k {
	case KindTemperature:
		return "temperature"
	case KindXY:
		return "xy"
	case KindHSV:
		return "hsv"
	case KindRGB:
		return "rgb"
	default:
		return "unknown"
	}
}

// Color is a tagged union over the supported representations. Brightness
// is carried alongside and always lies in [0,100].
type Color struct {
	kind       Kind
	mired      float64
	xy         XY
	hue        float64
	saturation float64
	r, g, b    uint8
	brightness float64
}

// Temperature returns a color temperature given in Kelvin.
func Temperature(kelvin float64) Color {
	return Color{kind: KindTemperature, mired: KelvinToMired(kelvin), brightness: 100}
}

// Mired returns a color temperature given in mired.
func Mired(mired float64) Color {
	return Color{kind: KindTemperature, mired: mired, brightness: 100}
}

// FromXY returns a chromaticity color at the given brightness.
func FromXY(x, y, brightness float64) Color {
	return Color{kind: KindXY, xy: XY{x, y}, brightness: clamp(brightness, 0, 100)}
}

// HSV returns a hue (degrees) and saturation (percent) color at the given
// brightness.
func HSV(hue, saturation, brightness float64) Color {
	return Color{
		kind:       KindHSV,
		hue:        hue,
		saturation: clamp(saturation, 0, 100),
		brightness: clamp(brightness, 0, 100),
	}
}

// RGB returns an sRGB color. Its brightness is the HSV value of the triple.
func RGB(r, g, b uint8) Color {
	_, _, v := RGBToHSV(r, g, b)
	return Color{kind: KindRGB, r: r, g: g, b: b, brightness: v}
}

func (c Color) Kind() Kind { return c.kind }

func (c Color) IsZero() bool { return c.kind == 0 }

func (c Color) Brightness() float64 { return c.brightness }

// Mired returns the color temperature in mired. Non-temperature colors
// are estimated from their chromaticity.
func (c Color) Mired() float64 {
	if c.kind == KindTemperature {
		return c.mired
	}
	return KelvinToMired(XYToKelvin(c.XY(nil)))
}

// Kelvin returns the color temperature in Kelvin.
func (c Color) Kelvin() float64 {
	return MiredToKelvin(c.Mired())
}

// XY returns the chromaticity of c, clamped onto gamut when one is given.
func (c Color) XY(gamut *Gamut) XY {
	switch c.kind {
	case KindTemperature:
		return gamut.Clamp(KelvinToXY(MiredToKelvin(c.mired)))
	case KindXY:
		return gamut.Clamp(c.xy)
	case KindHSV:
		r, g, b := HSVToRGB(c.hue, c.saturation, 100)
		return RGBToXY(r, g, b, gamut)
	case KindRGB:
		return RGBToXY(c.r, c.g, c.b, gamut)
	default:
		return XY{}
	}
}

// HueSat returns hue in degrees and saturation in percent.
func (c Color) HueSat() (float64, float64) {
	switch c.kind {
	case KindHSV:
		return c.hue, c.saturation
	case KindRGB:
		h, s, _ := RGBToHSV(c.r, c.g, c.b)
		return h, s
	case KindXY, KindTemperature:
		r, g, b := XYToRGB(c.XY(nil), nil)
		h, s, _ := RGBToHSV(r, g, b)
		return h, s
	default:
		return 0, 0
	}
}

// RGB returns the sRGB triple of c.
func (c Color) RGB() (uint8, uint8, uint8) {
	switch c.kind {
	case KindRGB:
		return c.r, c.g, c.b
	case KindHSV:
		return HSVToRGB(c.hue, c.saturation, c.brightness)
	case KindXY, KindTemperature:
		return XYToRGB(c.XY(nil), nil)
	default:
		return 0, 0, 0
	}
}

// WithBrightness returns a copy of c at the given brightness.
func (c Color) WithBrightness(brightness float64) Color {
	c.brightness = clamp(brightness, 0, 100)
	return c
}

func (c Color) String() string {
	switch c.kind {
	case KindTemperature:
		return fmt.Sprintf("temperature(%.0fK)", c.Kelvin())
	case KindXY:
		return fmt.Sprintf("xy(%.4f,%.4f bri=%.0f)", c.xy.X, c.xy.Y, c.brightness)
	case KindHSV:
		return fmt.Sprintf("hsv(%.1f,%.1f,%.0f)", c.hue, c.saturation, c.brightness)
	case KindRGB:
		return fmt.Sprintf("rgb(%d,%d,%d)", c.r, c.g, c.b)
	default:
		return "none"
	}
}
