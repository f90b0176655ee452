package device

import "math"

// Motion reports presence.
type Motion struct {
	sensor
	seen     bool
	presence bool
	updated  string
}

func (m *Motion) Update(d Descriptor) {
	presence, ok := d.State["presence"].(bool)
	if !ok {
		return
	}
	updated := stringField(d.State, "lastupdated")
	if m.seen && m.presence == presence && m.updated == updated {
		return
	}
	m.seen, m.presence, m.updated = true, presence, updated
	m.observer.UpdateMotion(m, presence)
}

// Temperature reports degrees Celsius. The bridge sends hundredths.
type Temperature struct {
	sensor
	seen  bool
	value float64
}

func (t *Temperature) Update(d Descriptor) {
	raw, ok := floatField(d.State, "temperature")
	if !ok {
		return
	}
	v := raw / 100
	if t.seen && t.value == v {
		return
	}
	t.seen, t.value = true, v
	t.observer.UpdateTemperature(t, v)
}

// Humidity reports relative humidity in percent. The bridge sends
// hundredths.
type Humidity struct {
	sensor
	seen  bool
	value float64
}

func (h *Humidity) Update(d Descriptor) {
	raw, ok := floatField(d.State, "humidity")
	if !ok {
		return
	}
	v := raw / 100
	if h.seen && h.value == v {
		return
	}
	h.seen, h.value = true, v
	h.observer.UpdateRelativeHumidity(h, v)
}

// LightLevel reports illuminance in lux.
type LightLevel struct {
	sensor
	seen    bool
	level   float64
	updated string
}

func (l *LightLevel) Update(d Descriptor) {
	level, ok := floatField(d.State, "lightlevel")
	if !ok {
		return
	}
	updated := stringField(d.State, "lastupdated")
	if l.seen && l.level == level && l.updated == updated {
		return
	}
	l.seen, l.level, l.updated = true, level, updated
	l.observer.UpdateIlluminance(l, Lux(level))
}

// Lux converts a bridge light level (10000*log10(lux)+1) to lux, rounded
// to four decimals and limited to 0..10000.
func Lux(lightLevel float64) float64 {
	if lightLevel <= 0 {
		return 0
	}
	lx := math.Pow(10, (lightLevel-1)/10000)
	lx = math.Round(lx*10000) / 10000
	switch {
	case lx > 10000:
		return 10000
	case lx <= 0:
		return 0
	}
	return lx
}
