package device

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"strings"

	"github.com/dokzlo13/huelink/internal/capability"
	"github.com/dokzlo13/huelink/internal/hue"
)

// Descriptor is the raw view of one device in a bridge poll or push.
type Descriptor struct {
	Resource     hue.Resource
	InternalID   string
	UniqueID     string
	Name         string
	Type         string
	ModelID      string
	Manufacturer string

	// Light is set for lights; State and Config for sensors.
	Light  hue.LightState
	State  map[string]any
	Config map[string]any
}

// StableID derives the identifier that survives bridge renumbering from a
// hardware unique id. Only the colons are dropped.
func StableID(uniqueID string) string {
	return "hue:" + strings.ReplaceAll(uniqueID, ":", "")
}

// StableID returns the stable identifier of the described device.
func (d Descriptor) StableID() string { return StableID(d.UniqueID) }

// LightDescriptor converts a polled light.
func LightDescriptor(l hue.Light) Descriptor {
	return Descriptor{
		Resource:     hue.ResourceLights,
		InternalID:   l.InternalID,
		UniqueID:     l.UniqueID,
		Name:         l.Name,
		Type:         l.Type,
		ModelID:      l.ModelID,
		Manufacturer: l.ManufacturerName,
		Light:        l.State,
	}
}

// SensorDescriptor converts a polled sensor.
func SensorDescriptor(s hue.Sensor) Descriptor {
	return Descriptor{
		Resource:     hue.ResourceSensors,
		InternalID:   s.InternalID,
		UniqueID:     s.UniqueID,
		Name:         s.Name,
		Type:         s.Type,
		ModelID:      s.ModelID,
		Manufacturer: s.ManufacturerName,
		State:        s.State,
		Config:       s.Config,
	}
}

// Reachable reports whether the bridge can currently talk to the device.
// A missing flag counts as reachable.
func (d Descriptor) Reachable() bool {
	if d.Resource == hue.ResourceLights {
		return d.Light.Reachable == nil || *d.Light.Reachable
	}
	if v, ok := d.Config["reachable"].(bool); ok {
		return v
	}
	return true
}

// SameState reports whether d and o carry identical raw state.
func (d Descriptor) SameState(o Descriptor) bool {
	if d.Resource == hue.ResourceLights {
		return reflect.DeepEqual(d.Light, o.Light)
	}
	return reflect.DeepEqual(d.State, o.State) && reflect.DeepEqual(d.Config, o.Config)
}

// Fields lists the state attributes a light reported.
func (d Descriptor) Fields() capability.Fields {
	var f capability.Fields
	s := d.Light
	if s.Bri != nil {
		f |= capability.FieldBri
	}
	if s.Hue != nil {
		f |= capability.FieldHue
	}
	if s.Sat != nil {
		f |= capability.FieldSat
	}
	if s.XY != nil {
		f |= capability.FieldXY
	}
	if s.CT != nil {
		f |= capability.FieldCT
	}
	return f
}

// Merge overlays a partial push payload on d and returns the result; d
// itself is not modified.
func (d Descriptor) Merge(state, config json.RawMessage) (Descriptor, error) {
	out := d
	if d.Resource == hue.ResourceLights {
		out.Light = d.Light.Clone()
		if len(state) > 0 {
			if err := json.Unmarshal(state, &out.Light); err != nil {
				return d, fmt.Errorf("decode light state: %w", err)
			}
		}
		return out, nil
	}

	var err error
	if out.State, err = mergeMap(d.State, state); err != nil {
		return d, fmt.Errorf("decode sensor state: %w", err)
	}
	if out.Config, err = mergeMap(d.Config, config); err != nil {
		return d, fmt.Errorf("decode sensor config: %w", err)
	}
	return out, nil
}

func mergeMap(base map[string]any, patch json.RawMessage) (map[string]any, error) {
	if len(patch) == 0 {
		return base, nil
	}
	var overlay map[string]any
	if err := json.Unmarshal(patch, &overlay); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(base)+len(overlay))
	maps.Copy(out, base)
	maps.Copy(out, overlay)
	return out, nil
}
