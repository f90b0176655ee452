package device

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/dokzlo13/huelink/internal/color"
	"github.com/dokzlo13/huelink/internal/hue"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) SetLightState(ctx context.Context, id string, update hue.StateUpdate) error {
	return m.Called(id, update).Error(0)
}

func (m *mockAPI) RenameLight(ctx context.Context, id, name string) error {
	return m.Called(id, name).Error(0)
}

func (m *mockAPI) RenameSensor(ctx context.Context, id, name string) error {
	return m.Called(id, name).Error(0)
}

type record struct {
	Kind   string
	Device string
	Value  any
}

type recorder struct {
	mu     sync.Mutex
	events []record
}

func (r *recorder) add(kind string, d Device, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, record{Kind: kind, Device: d.ID(), Value: v})
}

func (r *recorder) DeviceAdded(d Device) {
	r.add("added", d, d.Name())
}
func (r *recorder) DeviceRemoved(d Device) {
	r.add("removed", d, d.Name())
}
func (r *recorder) UpdatePower(d Device, on bool) {
	r.add("power", d, on)
}
func (r *recorder) UpdateBrightness(d Device, b float64) {
	r.add("brightness", d, b)
}
func (r *recorder) UpdateColor(d Device, c color.Color) {
	r.add("color", d, c)
}
func (r *recorder) UpdateMotion(d Device, m bool) {
	r.add("motion", d, m)
}
func (r *recorder) UpdateIlluminance(d Device, lux float64) {
	r.add("illuminance", d, lux)
}
func (r *recorder) UpdateRelativeHumidity(d Device, h float64) {
	r.add("humidity", d, h)
}
func (r *recorder) UpdateTemperature(d Device, c float64) {
	r.add("temperature", d, c)
}
func (r *recorder) EmitAction(d Device, action string, payload any) {
	r.add("action:"+action, d, payload)
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func (r *recorder) last(kind string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i].Value, true
		}
	}
	return nil, false
}

func boolPtr(v bool) *bool { return &v }

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func colorPtr(c color.Color) *color.Color { return &c }

func lightDescriptor(model string, state hue.LightState) Descriptor {
	return Descriptor{
		Resource:   hue.ResourceLights,
		InternalID: "1",
		UniqueID:   "00:17:88:01:00:aa:bb:cc-0b",
		Name:       "Desk",
		ModelID:    model,
		Light:      state,
	}
}

func sensorDescriptor(typ, model, uniqueID string, state map[string]any) Descriptor {
	return Descriptor{
		Resource:   hue.ResourceSensors,
		InternalID: "5",
		UniqueID:   uniqueID,
		Name:       "Sensor",
		Type:       typ,
		ModelID:    model,
		State:      state,
		Config:     map[string]any{"on": true, "reachable": true},
	}
}

func buttonState(code int, updated string) map[string]any {
	return map[string]any{"buttonevent": float64(code), "lastupdated": updated}
}
