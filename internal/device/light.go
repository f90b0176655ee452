package device

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huelink/internal/color"
	"github.com/dokzlo13/huelink/internal/hue"
)

// DefaultTransition is used when a state change does not name a duration.
const DefaultTransition = 400 * time.Millisecond

// LightState is the semantic state of a light.
type LightState struct {
	Power      bool
	Brightness float64     // 0..100
	Color      color.Color // zero for lights without color
}

// StateChange is a partial light command. Nil fields are left alone.
type StateChange struct {
	Power      *bool
	Brightness *float64
	Color      *color.Color
	Duration   *time.Duration
}

// Light manages a bridge light.
type Light struct {
	base
	state  atomic.Pointer[LightState]
	seeded bool
}

// State returns the last known state.
func (l *Light) State() LightState { return *l.state.Load() }

// Rename changes the light name on the bridge.
func (l *Light) Rename(ctx context.Context, name string) error {
	return l.rename(ctx, name)
}

// Update decodes polled or pushed raw state.
func (l *Light) Update(d Descriptor) {
	s := d.Light
	next := l.State()

	if s.On != nil {
		next.Power = *s.On
	}
	if s.Bri != nil && l.profile.Dimmable {
		next.Brightness = color.BrightnessFromBridge(*s.Bri)
	}
	if l.profile.Color.Any() {
		if c, ok := decodeColor(s, next.Brightness, l.saturationMax()); ok {
			next.Color = c
		} else if !next.Color.IsZero() {
			next.Color = next.Color.WithBrightness(next.Brightness)
		}
	}
	l.publish(next)
}

// SetState sends change to the bridge. On success the semantic state is
// updated from the requested values without waiting for the next poll.
func (l *Light) SetState(ctx context.Context, change StateChange) error {
	update, next, err := l.encode(change, l.State())
	if err != nil {
		commandsTotal.WithLabelValues("rejected").Inc()
		return err
	}
	if isEmpty(update) {
		return nil
	}

	if err := l.api.SetLightState(ctx, l.InternalID(), update); err != nil {
		commandsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("set state of %s: %w", l.id, err)
	}
	commandsTotal.WithLabelValues("success").Inc()

	l.writer.Lock()
	l.publish(next)
	l.writer.Unlock()
	return nil
}

// SetPower switches the light on or off.
func (l *Light) SetPower(ctx context.Context, on bool) error {
	return l.SetState(ctx, StateChange{Power: &on})
}

// SetBrightness changes brightness; 0 turns the light off.
func (l *Light) SetBrightness(ctx context.Context, brightness float64, duration time.Duration) error {
	return l.SetState(ctx, StateChange{Brightness: &brightness, Duration: &duration})
}

// SetColor changes color. It has no effect while the light is off.
func (l *Light) SetColor(ctx context.Context, c color.Color, duration time.Duration) error {
	return l.SetState(ctx, StateChange{Color: &c, Duration: &duration})
}

// encode maps a semantic change onto a bridge update and computes the
// state the light will be in once the bridge accepted it.
func (l *Light) encode(change StateChange, current LightState) (hue.StateUpdate, LightState, error) {
	var u hue.StateUpdate
	next := current

	if change.Power != nil {
		u.On = ptr(*change.Power)
		next.Power = *change.Power
	}

	if change.Brightness != nil {
		b := *change.Brightness
		if b <= 0 {
			u.On = ptr(false)
			next.Power = false
			next.Brightness = 0
			if l.profile.Dimmable {
				u.Bri = ptr(uint8(0))
			}
		} else {
			u.On = ptr(true)
			next.Power = true
			if l.profile.Dimmable {
				u.Bri = ptr(color.BrightnessToBridge(b))
				next.Brightness = math.Min(b, 100)
			}
		}
	}

	if change.Color != nil {
		turningOn := u.On != nil && *u.On
		if current.Power || turningOn {
			resolved, err := color.Resolve(*change.Color, l.profile.Color)
			if err != nil {
				return hue.StateUpdate{}, current, fmt.Errorf("%s: %w", l.id, err)
			}
			l.encodeColor(&u, resolved)
			next.Color = resolved.WithBrightness(next.Brightness)
		} else {
			log.Debug().Str("device", l.id).Msg("Dropping color change for light that is off")
		}
	}

	d := DefaultTransition
	if change.Duration != nil {
		d = *change.Duration
	}
	if d < 0 {
		d = 0
	}
	u.TransitionTime = ptr(uint16(math.Round(float64(d) / float64(100*time.Millisecond))))

	return u, next, nil
}

func (l *Light) encodeColor(u *hue.StateUpdate, c color.Color) {
	switch c.Kind() {
	case color.KindTemperature:
		u.CT = ptr(l.profile.Color.Mired.Clamp(c.Mired()))
	case color.KindXY:
		p := c.XY(nil)
		u.XY = []float64{round4(p.X), round4(p.Y)}
	case color.KindHSV:
		h, s := c.HueSat()
		u.Hue = ptr(color.HueToBridge(h))
		u.Sat = ptr(color.SaturationToBridge(s, l.saturationMax()))
	}
}

func (l *Light) saturationMax() uint8 {
	if l.profile.SaturationMax == 0 {
		return 255
	}
	return l.profile.SaturationMax
}

// publish stores next and notifies the observer about every field that
// changed. The first publish reports everything.
func (l *Light) publish(next LightState) {
	prev := l.state.Swap(&next)
	first := !l.seeded
	l.seeded = true

	if first || prev.Power != next.Power {
		l.observer.UpdatePower(l, next.Power)
	}
	if l.profile.Dimmable && (first || prev.Brightness != next.Brightness) {
		l.observer.UpdateBrightness(l, next.Brightness)
	}
	if !next.Color.IsZero() && (first || prev.Color != next.Color) {
		l.observer.UpdateColor(l, next.Color)
	}
}

func decodeColor(s hue.LightState, brightness float64, satMax uint8) (color.Color, bool) {
	fromXY := func() (color.Color, bool) {
		if len(s.XY) != 2 {
			return color.Color{}, false
		}
		return color.FromXY(s.XY[0], s.XY[1], brightness), true
	}
	fromCT := func() (color.Color, bool) {
		if s.CT == nil || *s.CT <= 0 {
			return color.Color{}, false
		}
		return color.Mired(float64(*s.CT)).WithBrightness(brightness), true
	}

	switch s.ColorMode {
	case "xy":
		return fromXY()
	case "hs":
		if s.Hue == nil {
			return fromXY()
		}
		sat := 0
		if s.Sat != nil {
			sat = *s.Sat
		}
		return color.HSV(color.HueFromBridge(*s.Hue), color.SaturationFromBridge(sat, satMax), brightness), true
	case "ct":
		if c, ok := fromCT(); ok {
			return c, true
		}
		if len(s.XY) == 2 {
			k := color.XYToKelvin(color.XY{X: s.XY[0], Y: s.XY[1]})
			return color.Temperature(k).WithBrightness(brightness), true
		}
		return color.Color{}, false
	default:
		if c, ok := fromCT(); ok {
			return c, true
		}
		return fromXY()
	}
}

func isEmpty(u hue.StateUpdate) bool {
	return u.On == nil && u.Bri == nil && u.Hue == nil && u.Sat == nil && u.XY == nil && u.CT == nil
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

func ptr[T any](v T) *T { return &v }
