package color

import "math"

// RGBToXY converts an sRGB triple to chromaticity. With a gamut the
// result is clamped onto the gamut triangle.
func RGBToXY(r, g, b uint8, gamut *Gamut) XY {
	rl := decodeGamma(float64(r) / 255)
	gl := decodeGamma(float64(g) / 255)
	bl := decodeGamma(float64(b) / 255)

	x := rl*0.664511 + gl*0.154324 + bl*0.162028
	y := rl*0.283881 + gl*0.668433 + bl*0.047685
	z := rl*0.000088 + gl*0.072310 + bl*0.986039

	sum := x + y + z
	if sum == 0 {
		return gamut.Clamp(XY{})
	}
	return gamut.Clamp(XY{x / sum, y / sum})
}

// XYToRGB converts chromaticity to an sRGB triple at full luminance.
// With a gamut the point is clamped onto the gamut triangle first.
func XYToRGB(p XY, gamut *Gamut) (uint8, uint8, uint8) {
	p = gamut.Clamp(p)
	if p.Y <= 0 {
		return 0, 0, 0
	}

	z := 1 - p.X - p.Y
	Y := 1.0
	X := (Y / p.Y) * p.X
	Z := (Y / p.Y) * z

	r := X*1.656492 - Y*0.354851 - Z*0.255038
	g := -X*0.707196 + Y*1.655397 + Z*0.036152
	b := X*0.051713 - Y*0.121364 + Z*1.011530

	r, g, b = rescale(r, g, b)
	r, g, b = encodeGamma(r), encodeGamma(g), encodeGamma(b)
	r, g, b = rescale(r, g, b)

	return toByte(r), toByte(g), toByte(b)
}

// RGBToHSV converts an sRGB triple to hue in degrees, saturation and
// value in percent.
func RGBToHSV(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	hi := math.Max(rf, math.Max(gf, bf))
	lo := math.Min(rf, math.Min(gf, bf))
	d := hi - lo

	v = hi * 100
	if hi > 0 {
		s = d / hi * 100
	}
	if d == 0 {
		return 0, s, v
	}

	switch hi {
	case rf:
		h = math.Mod((gf-bf)/d, 6)
	case gf:
		h = (bf-rf)/d + 2
	default:
		h = (rf-gf)/d + 4
	}
	h *= 60
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// HSVToRGB converts hue in degrees, saturation and value in percent to
// an sRGB triple.
func HSVToRGB(h, s, v float64) (uint8, uint8, uint8) {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s = clamp(s, 0, 100) / 100
	v = clamp(v, 0, 100) / 100

	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return toByte(r + m), toByte(g + m), toByte(b + m)
}

// KelvinToXY approximates the Planckian locus for 1667K..25000K.
func KelvinToXY(kelvin float64) XY {
	t := clamp(kelvin, 1667, 25000)
	t2, t3 := t*t, t*t*t

	var x float64
	if t <= 4000 {
		x = -0.2661239e9/t3 - 0.2343589e6/t2 + 0.8776956e3/t + 0.179910
	} else {
		x = -3.0258469e9/t3 + 2.1070379e6/t2 + 0.2226347e3/t + 0.240390
	}

	x2, x3 := x*x, x*x*x
	var y float64
	switch {
	case t <= 2222:
		y = -1.1063814*x3 - 1.34811020*x2 + 2.18555832*x - 0.20219683
	case t <= 4000:
		y = -0.9549476*x3 - 1.37418593*x2 + 2.09137015*x - 0.16748867
	default:
		y = 3.0817580*x3 - 5.87338670*x2 + 3.75112997*x - 0.37001483
	}
	return XY{x, y}
}

// XYToKelvin estimates the correlated color temperature of p.
func XYToKelvin(p XY) float64 {
	if p.Y == 0.1858 {
		return 6500
	}
	n := (p.X - 0.3320) / (0.1858 - p.Y)
	k := 449*n*n*n + 3525*n*n + 6823.3*n + 5520.33
	return clamp(k, 1000, 25000)
}

func decodeGamma(v float64) float64 {
	if v > 0.04045 {
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return v / 12.92
}

func encodeGamma(v float64) float64 {
	if v > 0.0031308 {
		return 1.055*math.Pow(v, 1/2.4) - 0.055
	}
	return 12.92 * v
}

// rescale divides every channel by the largest one when it exceeds 1.
func rescale(r, g, b float64) (float64, float64, float64) {
	m := math.Max(r, math.Max(g, b))
	if m > 1 {
		return r / m, g / m, b / m
	}
	return r, g, b
}

func toByte(v float64) uint8 {
	return uint8(clamp(math.Round(v*255), 0, 255))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
