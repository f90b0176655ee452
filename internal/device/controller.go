package device

import (
	"context"

	"github.com/dokzlo13/huelink/internal/capability"
)

// Button event phases encoded in the last three digits of buttonevent.
const (
	phasePress       = 0
	phaseLongPress   = 1
	phaseClick       = 2
	phaseLongRelease = 3
)

// buttonTracker drops repeated button events. The first event ever seen
// only primes the tracker: it happened before the device was observed.
type buttonTracker struct {
	seen    bool
	code    int
	updated string
}

// next returns the button code of a new event in state.
func (t *buttonTracker) next(state map[string]any) (int, bool) {
	code, ok := intField(state, "buttonevent")
	if !ok || code == 0 {
		return 0, false
	}
	updated := stringField(state, "lastupdated")
	if t.seen && t.code == code && t.updated == updated {
		return 0, false
	}

	first := !t.seen
	t.seen, t.code, t.updated = true, code, updated
	if first {
		return 0, false
	}
	return code, true
}

// sensor is the shared part of every sensor adapter.
type sensor struct {
	base
}

// Rename changes the sensor name on the bridge.
func (s *sensor) Rename(ctx context.Context, name string) error {
	return s.rename(ctx, name)
}

// Controller decodes button remotes into click, long-press and
// long-release actions.
type Controller struct {
	sensor
	tracker buttonTracker
}

func (c *Controller) Update(d Descriptor) {
	code, ok := c.tracker.next(d.State)
	if !ok {
		return
	}

	button, ok := c.profile.Button(code / 1000)
	if !ok {
		return
	}

	switch code % 1000 {
	case phasePress:
	case phaseLongPress:
		c.emit(c, button.Name+"-long-press", nil)
	case phaseClick:
		c.emit(c, button.Name+"-click", nil)
	case phaseLongRelease:
		c.emit(c, button.Name+"-long-release", nil)
	}
}

var tapActions = map[int]string{
	34: "one-click",
	16: "two-click",
	17: "three-click",
	18: "four-click",
}

// Tap decodes the four-button energy harvesting switch.
type Tap struct {
	sensor
	tracker buttonTracker
}

func (t *Tap) Update(d Descriptor) {
	code, ok := t.tracker.next(d.State)
	if !ok {
		return
	}
	if action, ok := tapActions[code]; ok {
		t.emit(t, action, nil)
	}
}

// Cube decodes the face gestures of a cube controller. Every gesture is
// emitted both plain and qualified by the face it happened on.
type Cube struct {
	sensor
	tracker buttonTracker
}

func (c *Cube) Update(d Descriptor) {
	code, ok := c.tracker.next(d.State)
	if !ok {
		return
	}

	face, gesture := code/1000, code%1000
	if face == 7 {
		switch gesture {
		case 0:
			c.emit(c, "wake", nil)
		case 7:
			c.emit(c, "shake", nil)
		}
		return
	}
	if face < 1 || face > len(capability.CubeSides) {
		return
	}

	side := capability.CubeSides[face-1]
	var action string
	switch gesture {
	case 0:
		action = "slide"
	case face:
		action = "double-tap"
	default:
		// gesture is the face the cube was flipped from
		action = "flip"
	}
	c.emit(c, action, nil)
	c.emit(c, side+"-"+action, nil)
}

// CubeRotation decodes the rotation half of a cube controller. The
// payload is the rotation angle in degrees.
type CubeRotation struct {
	sensor
	tracker buttonTracker
}

func (c *CubeRotation) Update(d Descriptor) {
	code, ok := c.tracker.next(d.State)
	if !ok {
		return
	}

	rotation := float64(code) / 100
	c.emit(c, "rotation", rotation)
	if rotation < 0 {
		c.emit(c, "rotation-left", -rotation)
	} else {
		c.emit(c, "rotation-right", rotation)
	}
}

func intField(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

func floatField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
