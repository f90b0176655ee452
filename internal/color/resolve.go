package color

// Modes describes which color representations a device accepts.
type Modes struct {
	Temperature bool
	XY          bool
	HueSat      bool
	Gamut       *Gamut
	Mired       MiredRange
}

// Any reports whether the device accepts any color at all.
func (m Modes) Any() bool {
	return m.Temperature || m.XY || m.HueSat
}

// Resolve converts c into a representation the device accepts. The
// requested representation is kept when the device supports it natively;
// otherwise hue/saturation is preferred, then xy, then temperature.
// Temperature results are clamped to the device mired range and xy
// results to its gamut.
func Resolve(c Color, m Modes) (Color, error) {
	if c.IsZero() {
		return Color{}, ErrUnsupportedColorMode
	}

	switch {
	case c.kind == KindTemperature && m.Temperature:
		return m.temperature(c), nil
	case c.kind == KindXY && m.XY:
		return m.xy(c), nil
	case c.kind == KindHSV && m.HueSat:
		return c, nil
	}

	switch {
	case m.HueSat:
		h, s := c.HueSat()
		return HSV(h, s, c.brightness), nil
	case m.XY:
		return m.xy(c), nil
	case m.Temperature:
		return m.temperature(c), nil
	}
	return Color{}, ErrUnsupportedColorMode
}

func (m Modes) temperature(c Color) Color {
	out := Mired(float64(m.Mired.Clamp(c.Mired())))
	out.brightness = c.brightness
	return out
}

func (m Modes) xy(c Color) Color {
	p := c.XY(m.Gamut)
	return FromXY(p.X, p.Y, c.brightness)
}
