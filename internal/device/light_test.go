package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/huelink/internal/color"
	"github.com/dokzlo13/huelink/internal/hue"
)

func uint8Ptr(v uint8) *uint8    { return &v }
func uint16Ptr(v uint16) *uint16 { return &v }

func newTestLight(t *testing.T, model string, state hue.LightState) (*Light, *mockAPI, *recorder) {
	t.Helper()
	api := &mockAPI{}
	rec := &recorder{}
	d := lightDescriptor(model, state)
	dev, ok := New(d, api, rec, nil)
	require.True(t, ok)
	l, ok := dev.(*Light)
	require.True(t, ok)
	l.Update(d)
	rec.reset()
	return l, api, rec
}

var (
	stateOn  = hue.LightState{On: boolPtr(true), Bri: intPtr(254), CT: intPtr(300), ColorMode: "ct"}
	stateOff = hue.LightState{On: boolPtr(false), Bri: intPtr(254), CT: intPtr(300), ColorMode: "ct"}
)

func TestLightEncode(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		state  hue.LightState
		change StateChange
		want   hue.StateUpdate
	}{
		{
			name:   "brightness_zero_overrides_power",
			model:  "LCT015",
			state:  stateOn,
			change: StateChange{Brightness: floatPtr(0), Power: boolPtr(true)},
			want:   hue.StateUpdate{On: boolPtr(false), Bri: uint8Ptr(0), TransitionTime: uint16Ptr(4)},
		},
		{
			name:   "positive_brightness_turns_on",
			model:  "LCT015",
			state:  stateOff,
			change: StateChange{Brightness: floatPtr(50)},
			want:   hue.StateUpdate{On: boolPtr(true), Bri: uint8Ptr(128), TransitionTime: uint16Ptr(4)},
		},
		{
			name:   "color_dropped_while_off",
			model:  "LCT015",
			state:  stateOff,
			change: StateChange{Color: colorPtr(color.HSV(120, 100, 100))},
			want:   hue.StateUpdate{TransitionTime: uint16Ptr(4)},
		},
		{
			name:   "color_applied_when_turning_on",
			model:  "LCT015",
			state:  stateOff,
			change: StateChange{Power: boolPtr(true), Color: colorPtr(color.Temperature(2700))},
			want:   hue.StateUpdate{On: boolPtr(true), CT: uint16Ptr(370), TransitionTime: uint16Ptr(4)},
		},
		{
			name:   "hue_sat_uses_family_saturation_scale",
			model:  "LCT015",
			state:  stateOn,
			change: StateChange{Color: colorPtr(color.HSV(180, 50, 100))},
			want:   hue.StateUpdate{Hue: uint16Ptr(32768), Sat: uint8Ptr(127), TransitionTime: uint16Ptr(4)},
		},
		{
			name:   "temperature_clamped_to_device_range",
			model:  "TRADFRI bulb E27 WS opal 980lm",
			state:  stateOn,
			change: StateChange{Color: colorPtr(color.Temperature(6500))},
			want:   hue.StateUpdate{CT: uint16Ptr(250), TransitionTime: uint16Ptr(4)},
		},
		{
			name:   "duration_in_deciseconds",
			model:  "LCT015",
			state:  stateOn,
			change: StateChange{Power: boolPtr(false), Duration: func() *time.Duration { d := 1250 * time.Millisecond; return &d }()},
			want:   hue.StateUpdate{On: boolPtr(false), TransitionTime: uint16Ptr(13)},
		},
		{
			name:   "power_only_ignores_brightness_value",
			model:  "Plug 01",
			state:  hue.LightState{On: boolPtr(false)},
			change: StateChange{Brightness: floatPtr(70)},
			want:   hue.StateUpdate{On: boolPtr(true), TransitionTime: uint16Ptr(4)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _, _ := newTestLight(t, tt.model, tt.state)
			got, _, err := l.encode(tt.change, l.State())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLightEncodeXYClampedToGamut(t *testing.T) {
	l, _, _ := newTestLight(t, "LLC011", stateOn)

	// requests outside the gamut land on its boundary
	got, next, err := l.encode(StateChange{Color: colorPtr(color.FromXY(0.05, 0.9, 100))}, l.State())
	require.NoError(t, err)
	require.Len(t, got.XY, 2)
	assert.True(t, color.GamutA.Contains(color.XY{X: got.XY[0], Y: got.XY[1]}) ||
		onGamutEdge(color.GamutA, got.XY))
	assert.Equal(t, color.KindXY, next.Color.Kind())
}

func onGamutEdge(g color.Gamut, xy []float64) bool {
	c := g.Clamp(color.XY{X: xy[0], Y: xy[1]})
	return abs(c.X-xy[0]) < 1e-3 && abs(c.Y-xy[1]) < 1e-3
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestLightColorOnPowerOnly(t *testing.T) {
	l, api, _ := newTestLight(t, "Plug 01", hue.LightState{On: boolPtr(true)})

	err := l.SetColor(context.Background(), color.Temperature(3000), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, color.ErrUnsupportedColorMode))
	api.AssertNotCalled(t, "SetLightState", mock.Anything, mock.Anything)
}

func TestLightSetStateOptimistic(t *testing.T) {
	l, api, rec := newTestLight(t, "LCT015", stateOff)
	api.On("SetLightState", "1", mock.Anything).Return(nil)

	require.NoError(t, l.SetBrightness(context.Background(), 40, 0))

	api.AssertCalled(t, "SetLightState", "1", hue.StateUpdate{
		On:             boolPtr(true),
		Bri:            uint8Ptr(102),
		TransitionTime: uint16Ptr(0),
	})
	st := l.State()
	assert.True(t, st.Power)
	assert.Equal(t, 40.0, st.Brightness)

	power, ok := rec.last("power")
	require.True(t, ok)
	assert.Equal(t, true, power)
	bri, ok := rec.last("brightness")
	require.True(t, ok)
	assert.Equal(t, 40.0, bri)
}

func TestLightSetStateError(t *testing.T) {
	l, api, rec := newTestLight(t, "LCT015", stateOff)
	api.On("SetLightState", "1", mock.Anything).Return(&hue.OperationError{APIError: hue.APIError{Type: hue.ErrorTypeDeviceIsOff}})

	err := l.SetPower(context.Background(), true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hue.ErrPartialOperationFailed))
	assert.False(t, l.State().Power)
	assert.Empty(t, rec.kinds())
}

func TestLightSetColorWhileOffSendsNothing(t *testing.T) {
	l, api, _ := newTestLight(t, "LCT015", stateOff)

	require.NoError(t, l.SetColor(context.Background(), color.HSV(10, 100, 100), time.Second))
	api.AssertNotCalled(t, "SetLightState", mock.Anything, mock.Anything)
}

func TestLightDecode(t *testing.T) {
	tests := []struct {
		name  string
		state hue.LightState
		check func(t *testing.T, s LightState)
	}{
		{
			name:  "xy",
			state: hue.LightState{On: boolPtr(true), Bri: intPtr(255), ColorMode: "xy", XY: []float64{0.3, 0.4}},
			check: func(t *testing.T, s LightState) {
				assert.True(t, s.Power)
				assert.Equal(t, 100.0, s.Brightness)
				assert.Equal(t, color.KindXY, s.Color.Kind())
				assert.Equal(t, color.XY{X: 0.3, Y: 0.4}, s.Color.XY(nil))
			},
		},
		{
			name:  "hs",
			state: hue.LightState{On: boolPtr(true), Bri: intPtr(128), ColorMode: "hs", Hue: intPtr(21845), Sat: intPtr(254)},
			check: func(t *testing.T, s LightState) {
				assert.Equal(t, 50.0, s.Brightness)
				assert.Equal(t, color.KindHSV, s.Color.Kind())
				h, sat := s.Color.HueSat()
				assert.InDelta(t, 120.0, h, 0.01)
				assert.InDelta(t, 100.0, sat, 0.01)
				assert.Equal(t, 50.0, s.Color.Brightness())
			},
		},
		{
			name:  "ct",
			state: hue.LightState{On: boolPtr(false), Bri: intPtr(1), ColorMode: "ct", CT: intPtr(366)},
			check: func(t *testing.T, s LightState) {
				assert.False(t, s.Power)
				assert.Equal(t, 0.0, s.Brightness)
				assert.Equal(t, color.KindTemperature, s.Color.Kind())
				assert.Equal(t, 366.0, s.Color.Mired())
			},
		},
		{
			name:  "ct_falls_back_to_xy",
			state: hue.LightState{On: boolPtr(true), Bri: intPtr(200), ColorMode: "ct", XY: []float64{0.4578, 0.41}},
			check: func(t *testing.T, s LightState) {
				assert.Equal(t, color.KindTemperature, s.Color.Kind())
				assert.InDelta(t, 2700.0, s.Color.Kelvin(), 150)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _, _ := newTestLight(t, "LCT015", tt.state)
			tt.check(t, l.State())
		})
	}
}

func TestLightUpdateReportsOnlyChanges(t *testing.T) {
	l, _, rec := newTestLight(t, "LCT015", stateOn)

	l.Update(lightDescriptor("LCT015", stateOn))
	assert.Empty(t, rec.kinds())

	l.Update(lightDescriptor("LCT015", stateOff))
	assert.Equal(t, []string{"power"}, rec.kinds())
}

func TestLightSeedReportsEverything(t *testing.T) {
	rec := &recorder{}
	d := lightDescriptor("LCT015", stateOff)
	dev, ok := New(d, &mockAPI{}, rec, nil)
	require.True(t, ok)
	dev.Update(d)
	assert.Equal(t, []string{"power", "brightness", "color"}, rec.kinds())
}

func TestLightRename(t *testing.T) {
	l, api, _ := newTestLight(t, "LCT015", stateOn)
	api.On("RenameLight", "1", "Reading").Return(nil)

	require.NoError(t, l.Rename(context.Background(), "Reading"))
	assert.Equal(t, "Reading", l.Name())
	api.AssertExpectations(t)
}
