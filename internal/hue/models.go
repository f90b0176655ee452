package hue

import (
	"encoding/json"

	"github.com/amimof/huego"
)

// Resource is a bridge collection that holds devices.
type Resource string

const (
	ResourceLights  Resource = "lights"
	ResourceSensors Resource = "sensors"
)

// LightState is the raw state object of a light. Fields are pointers so
// that an absent attribute can be told apart from a zero one.
type LightState struct {
	On        *bool     `json:"on,omitempty"`
	Bri       *int      `json:"bri,omitempty"`
	Hue       *int      `json:"hue,omitempty"`
	Sat       *int      `json:"sat,omitempty"`
	XY        []float64 `json:"xy,omitempty"`
	CT        *int      `json:"ct,omitempty"`
	ColorMode string    `json:"colormode,omitempty"`
	Reachable *bool     `json:"reachable,omitempty"`
}

// Clone returns a deep copy of s.
func (s LightState) Clone() LightState {
	out := s
	out.On = cloneBool(s.On)
	out.Bri = cloneInt(s.Bri)
	out.Hue = cloneInt(s.Hue)
	out.Sat = cloneInt(s.Sat)
	out.CT = cloneInt(s.CT)
	out.Reachable = cloneBool(s.Reachable)
	if s.XY != nil {
		out.XY = append([]float64(nil), s.XY...)
	}
	return out
}

// Light is a light descriptor as returned by the bridge. The embedded
// huego light carries the identity fields; State shadows huego's state
// so that every attribute keeps its presence.
type Light struct {
	huego.Light
	State      LightState `json:"state"`
	InternalID string     `json:"-"`
}

// Sensor is a sensor descriptor as returned by the bridge.
type Sensor struct {
	huego.Sensor
	InternalID string `json:"-"`
}

// BridgeConfig is the subset of the bridge configuration the session uses.
type BridgeConfig struct {
	Name          string `json:"name"`
	BridgeID      string `json:"bridgeid"`
	ModelID       string `json:"modelid"`
	APIVersion    string `json:"apiversion"`
	SwVersion     string `json:"swversion"`
	WebsocketPort int    `json:"websocketport"`
}

// FullState is the body of GET /api/{key}.
type FullState struct {
	Lights  map[string]Light  `json:"lights"`
	Sensors map[string]Sensor `json:"sensors"`
	Config  BridgeConfig      `json:"config"`
}

// StateUpdate is the body of PUT /api/{key}/lights/{id}/state.
type StateUpdate struct {
	On             *bool     `json:"on,omitempty"`
	Bri            *uint8    `json:"bri,omitempty"`
	Hue            *uint16   `json:"hue,omitempty"`
	Sat            *uint8    `json:"sat,omitempty"`
	XY             []float64 `json:"xy,omitempty"`
	CT             *uint16   `json:"ct,omitempty"`
	TransitionTime *uint16   `json:"transitiontime,omitempty"`
}

// PushEvent is a message received on the websocket push channel.
type PushEvent struct {
	Event    string          `json:"e"`
	Type     string          `json:"t"`
	Resource Resource        `json:"r"`
	ID       string          `json:"id"`
	UniqueID string          `json:"uniqueid,omitempty"`
	State    json.RawMessage `json:"state,omitempty"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// IsChange reports whether the event carries new device state.
func (e PushEvent) IsChange() bool {
	return e.Type == "event" && e.Event == "changed" &&
		(e.Resource == ResourceLights || e.Resource == ResourceSensors)
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
