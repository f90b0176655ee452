package color

import "math"

// MiredRange is the inclusive color temperature range of a device.
type MiredRange struct {
	Min uint16
	Max uint16
}

// IsZero reports whether the range is unset.
func (r MiredRange) IsZero() bool { return r.Min == 0 && r.Max == 0 }

// Clamp rounds m and limits it to the range. An unset range only rounds.
func (r MiredRange) Clamp(m float64) uint16 {
	m = math.Round(m)
	if !r.IsZero() {
		m = clamp(m, float64(r.Min), float64(r.Max))
	}
	return uint16(clamp(m, 0, math.MaxUint16))
}

// KelvinToMired converts a color temperature in Kelvin to mired.
func KelvinToMired(kelvin float64) float64 {
	if kelvin <= 0 {
		return 0
	}
	return 1e6 / kelvin
}

// MiredToKelvin converts mired to a color temperature in Kelvin.
func MiredToKelvin(mired float64) float64 {
	if mired <= 0 {
		return 0
	}
	return 1e6 / mired
}

// BrightnessToBridge maps 0..100 percent onto the bridge's 0..255 scale.
func BrightnessToBridge(percent float64) uint8 {
	return uint8(math.Round(clamp(percent, 0, 100) / 100 * 255))
}

// BrightnessFromBridge maps a bridge 0..255 value to whole percent.
func BrightnessFromBridge(v int) float64 {
	return math.Round(clamp(float64(v), 0, 255) / 255 * 100)
}

// HueToBridge maps degrees onto the bridge's 0..65535 hue wheel.
func HueToBridge(degrees float64) uint16 {
	d := math.Mod(degrees, 360)
	if d < 0 {
		d += 360
	}
	return uint16(math.Round(d / 360 * 65535))
}

// HueFromBridge maps a bridge hue to degrees.
func HueFromBridge(v int) float64 {
	return clamp(float64(v), 0, 65535) / 65535 * 360
}

// SaturationToBridge maps percent onto 0..limit.
func SaturationToBridge(percent float64, limit uint8) uint8 {
	return uint8(math.Round(clamp(percent, 0, 100) / 100 * float64(limit)))
}

// SaturationFromBridge maps a bridge saturation on 0..limit to percent.
func SaturationFromBridge(v int, limit uint8) float64 {
	if limit == 0 {
		return 0
	}
	return clamp(float64(v), 0, float64(limit)) / float64(limit) * 100
}
