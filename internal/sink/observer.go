// Package sink turns device notifications into bus events and delivers
// them to the log, the ledger and MQTT.
package sink

import (
	"math"

	"github.com/dokzlo13/huelink/internal/bridge"
	"github.com/dokzlo13/huelink/internal/color"
	"github.com/dokzlo13/huelink/internal/device"
	"github.com/dokzlo13/huelink/internal/eventbus"
)

// Attribute names carried by state events.
const (
	AttrPower       = "power"
	AttrBrightness  = "brightness"
	AttrColor       = "color"
	AttrMotion      = "motion"
	AttrIlluminance = "illuminance"
	AttrHumidity    = "humidity"
	AttrTemperature = "temperature"
)

// BusObserver publishes every device notification on a bus. Publishing
// never blocks, so it is safe to call under the session writer lock.
type BusObserver struct {
	bus    *eventbus.Bus
	bridge string
}

var (
	_ device.Observer        = (*BusObserver)(nil)
	_ bridge.SessionObserver = (*BusObserver)(nil)
)

// Bridge event statuses. Besides these, state changes publish the session
// state name.
const StatusLinked = "linked"

// NewBusObserver creates an observer for the session of bridge.
func NewBusObserver(bus *eventbus.Bus, bridge string) *BusObserver {
	return &BusObserver{bus: bus, bridge: bridge}
}

func (o *BusObserver) data(d device.Device) map[string]any {
	return map[string]any{
		"bridge":    o.bridge,
		"device_id": d.ID(),
		"name":      d.Name(),
		"kind":      d.Kind().String(),
	}
}

func (o *BusObserver) DeviceAdded(d device.Device) {
	data := o.data(d)
	data["model"] = d.Model()
	data["family"] = d.Profile().Family
	data["resource"] = string(d.Resource())
	data["internal_id"] = d.InternalID()
	o.bus.Publish(eventbus.Event{Type: eventbus.EventTypeDeviceAdded, Key: d.ID(), Data: data})
}

func (o *BusObserver) DeviceRemoved(d device.Device) {
	o.bus.Publish(eventbus.Event{Type: eventbus.EventTypeDeviceRemoved, Key: d.ID(), Data: o.data(d)})
}

func (o *BusObserver) state(d device.Device, attribute string, value any) {
	data := o.data(d)
	data["attribute"] = attribute
	data["value"] = value
	o.bus.Publish(eventbus.Event{Type: eventbus.EventTypeState, Key: d.ID(), Data: data})
}

func (o *BusObserver) UpdatePower(d device.Device, on bool) {
	o.state(d, AttrPower, on)
}

func (o *BusObserver) UpdateBrightness(d device.Device, brightness float64) {
	o.state(d, AttrBrightness, brightness)
}

func (o *BusObserver) UpdateColor(d device.Device, c color.Color) {
	o.state(d, AttrColor, ColorData(c))
}

func (o *BusObserver) UpdateMotion(d device.Device, motion bool) {
	o.state(d, AttrMotion, motion)
}

func (o *BusObserver) UpdateIlluminance(d device.Device, lux float64) {
	o.state(d, AttrIlluminance, lux)
}

func (o *BusObserver) UpdateRelativeHumidity(d device.Device, humidity float64) {
	o.state(d, AttrHumidity, humidity)
}

func (o *BusObserver) UpdateTemperature(d device.Device, celsius float64) {
	o.state(d, AttrTemperature, celsius)
}

func (o *BusObserver) EmitAction(d device.Device, action string, payload any) {
	data := o.data(d)
	data["action"] = action
	if payload != nil {
		data["payload"] = payload
	}
	o.bus.Publish(eventbus.Event{Type: eventbus.EventTypeAction, Key: d.ID(), Data: data})
}

func (o *BusObserver) SessionStateChanged(id string, state bridge.State) {
	o.bus.Publish(eventbus.Event{Type: eventbus.EventTypeBridge, Key: id, Data: map[string]any{
		"bridge": id,
		"status": state.String(),
	}})
}

func (o *BusObserver) SessionLinked(id, name string) {
	o.bus.Publish(eventbus.Event{Type: eventbus.EventTypeBridge, Key: id, Data: map[string]any{
		"bridge": id,
		"status": StatusLinked,
		"name":   name,
	}})
}

// ColorData flattens a color into plain values.
func ColorData(c color.Color) map[string]any {
	out := map[string]any{
		"mode":       c.Kind().String(),
		"brightness": c.Brightness(),
	}
	switch c.Kind() {
	case color.KindTemperature:
		out["kelvin"] = math.Round(c.Kelvin())
		out["mired"] = c.Mired()
	case color.KindXY:
		p := c.XY(nil)
		out["x"] = p.X
		out["y"] = p.Y
	case color.KindHSV:
		h, s := c.HueSat()
		out["hue"] = h
		out["saturation"] = s
	case color.KindRGB:
		r, g, b := c.RGB()
		out["rgb"] = []any{int(r), int(g), int(b)}
	}
	return out
}
