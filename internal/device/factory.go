package device

import (
	"sync"

	"github.com/dokzlo13/huelink/internal/capability"
	"github.com/dokzlo13/huelink/internal/hue"
)

// Classify resolves the capability profile of a descriptor. Sensors no
// adapter understands report false.
func Classify(d Descriptor) (capability.Profile, bool) {
	switch d.Resource {
	case hue.ResourceLights:
		return capability.Resolve(d.ModelID, d.Fields()), true
	case hue.ResourceSensors:
		return capability.ResolveSensor(d.Type, d.ModelID, d.UniqueID)
	default:
		return capability.Profile{}, false
	}
}

// New builds the adapter variant for d. The adapter is not seeded; call
// Update with d once the device has been announced. writer is the lock
// that serializes state changes of the owning session.
func New(d Descriptor, api API, observer Observer, writer sync.Locker) (Device, bool) {
	p, ok := Classify(d)
	if !ok {
		return nil, false
	}

	var (
		dev Device
		b   *base
	)
	switch p.Kind {
	case capability.KindLight:
		l := &Light{}
		l.state.Store(&LightState{})
		dev, b = l, &l.base
	case capability.KindController:
		c := &Controller{}
		dev, b = c, &c.base
	case capability.KindTap:
		t := &Tap{}
		dev, b = t, &t.base
	case capability.KindCube:
		c := &Cube{}
		dev, b = c, &c.base
	case capability.KindCubeRotation:
		c := &CubeRotation{}
		dev, b = c, &c.base
	case capability.KindMotion:
		m := &Motion{}
		dev, b = m, &m.base
	case capability.KindTemperature:
		t := &Temperature{}
		dev, b = t, &t.base
	case capability.KindHumidity:
		h := &Humidity{}
		dev, b = h, &h.base
	case capability.KindLightLevel:
		l := &LightLevel{}
		dev, b = l, &l.base
	default:
		return nil, false
	}

	b.init(d, p, api, observer, writer)
	return dev, true
}
