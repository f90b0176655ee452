package color

// XY is a CIE 1931 chromaticity coordinate.
type XY struct {
	X float64
	Y float64
}

// Gamut is the triangle of chromaticities a light can reproduce.
type Gamut struct {
	Name  string
	Red   XY
	Green XY
	Blue  XY
}

// Known Philips gamuts.
var (
	GamutA = Gamut{
		Name:  "A",
		Red:   XY{0.704, 0.296},
		Green: XY{0.2151, 0.7106},
		Blue:  XY{0.138, 0.08},
	}
	GamutB = Gamut{
		Name:  "B",
		Red:   XY{0.675, 0.322},
		Green: XY{0.409, 0.518},
		Blue:  XY{0.167, 0.04},
	}
	GamutC = Gamut{
		Name:  "C",
		Red:   XY{0.692, 0.308},
		Green: XY{0.17, 0.7},
		Blue:  XY{0.153, 0.048},
	}
)

// Contains reports whether p lies inside the triangle or on its boundary.
func (g *Gamut) Contains(p XY) bool {
	v0 := sub(g.Blue, g.Red)
	v1 := sub(g.Green, g.Red)
	v2 := sub(p, g.Red)

	dot00 := dot(v0, v0)
	dot01 := dot(v0, v1)
	dot02 := dot(v0, v2)
	dot11 := dot(v1, v1)
	dot12 := dot(v1, v2)

	denom := dot00*dot11 - dot01*dot01
	if denom == 0 {
		return false
	}
	u := (dot11*dot02 - dot01*dot12) / denom
	v := (dot00*dot12 - dot01*dot02) / denom

	const eps = 1e-12
	return u >= -eps && v >= -eps && u+v <= 1+eps
}

// Clamp returns p unchanged when it is inside the gamut, otherwise the
// closest point on the triangle boundary.
func (g *Gamut) Clamp(p XY) XY {
	if g == nil || g.Contains(p) {
		return p
	}

	edges := [3][2]XY{
		{g.Red, g.Green},
		{g.Green, g.Blue},
		{g.Blue, g.Red},
	}

	var best XY
	bestDist := -1.0
	for _, e := range edges {
		c := closestOnSegment(e[0], e[1], p)
		d := dist2(c, p)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func closestOnSegment(a, b, p XY) XY {
	ab := sub(b, a)
	l := dot(ab, ab)
	if l == 0 {
		return a
	}
	t := dot(sub(p, a), ab) / l
	switch {
	case t < 0:
		t = 0
	case t > 1:
		t = 1
	}
	return XY{a.X + ab.X*t, a.Y + ab.Y*t}
}

func sub(a, b XY) XY        { return XY{a.X - b.X, a.Y - b.Y} }
func dot(a, b XY) float64   { return a.X*b.X + a.Y*b.Y }
func dist2(a, b XY) float64 { d := sub(a, b); return dot(d, d) }
