// Package device implements the adapters that turn raw bridge
// descriptors into semantic device state and turn commands back into
// bridge requests.
package device

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dokzlo13/huelink/internal/capability"
	"github.com/dokzlo13/huelink/internal/color"
	"github.com/dokzlo13/huelink/internal/hue"
)

// API is the subset of the bridge client adapters issue commands through.
type API interface {
	SetLightState(ctx context.Context, id string, update hue.StateUpdate) error
	RenameLight(ctx context.Context, id, name string) error
	RenameSensor(ctx context.Context, id, name string) error
}

// Observer receives semantic updates from adapters. Callbacks run while
// the owning session holds its writer lock; they must not block and must
// not call back into the session.
type Observer interface {
	DeviceAdded(d Device)
	DeviceRemoved(d Device)
	UpdatePower(d Device, on bool)
	UpdateBrightness(d Device, brightness float64)
	UpdateColor(d Device, c color.Color)
	UpdateMotion(d Device, motion bool)
	UpdateIlluminance(d Device, lux float64)
	UpdateRelativeHumidity(d Device, humidity float64)
	UpdateTemperature(d Device, celsius float64)
	EmitAction(d Device, action string, payload any)
}

// NopObserver ignores every notification. Embed it to implement only
// some callbacks.
type NopObserver struct{}

func (NopObserver) DeviceAdded(Device) {}
func (NopObserver) DeviceRemoved(Device) {}
func (NopObserver) UpdatePower(Device, bool) {}
func (NopObserver) UpdateBrightness(Device, float64) {}
func (NopObserver) UpdateColor(Device, color.Color) {}
func (NopObserver) UpdateMotion(Device, bool) {}
func (NopObserver) UpdateIlluminance(Device, float64) {}
func (NopObserver) UpdateRelativeHumidity(Device, float64) {}
func (NopObserver) UpdateTemperature(Device, float64) {}
func (NopObserver) EmitAction(Device, string, any) {}

// Device is a managed bridge device.
type Device interface {
	// ID is the stable identifier; it survives bridge renumbering.
	ID() string
	// InternalID is the bridge's current id, used in API paths.
	InternalID() string
	Name() string
	Model() string
	Kind() capability.Kind
	Profile() capability.Profile
	Resource() hue.Resource
	Rename(ctx context.Context, name string) error

	// Rebind refreshes the bridge id and name. The caller holds the
	// session writer lock.
	Rebind(internalID, name string)
	// Update decodes changed raw state. The caller holds the session
	// writer lock.
	Update(d Descriptor)
}

type base struct {
	id       string
	resource hue.Resource
	model    string
	profile  capability.Profile
	api      API
	observer Observer
	writer   sync.Locker

	internalID atomic.Pointer[string]
	name       atomic.Pointer[string]
}

func (b *base) init(d Descriptor, p capability.Profile, api API, observer Observer, writer sync.Locker) {
	if observer == nil {
		observer = NopObserver{}
	}
	if writer == nil {
		writer = &sync.Mutex{}
	}
	b.id = d.StableID()
	b.resource = d.Resource
	b.model = d.ModelID
	b.profile = p
	b.api = api
	b.observer = observer
	b.writer = writer
	b.setInternalID(d.InternalID)
	b.setName(d.Name)
}

func (b *base) ID() string { return b.id }
func (b *base) Model() string { return b.model }
func (b *base) Kind() capability.Kind { return b.profile.Kind }
func (b *base) Profile() capability.Profile { return b.profile }
func (b *base) Resource() hue.Resource { return b.resource }
func (b *base) InternalID() string { return *b.internalID.Load() }
func (b *base) Name() string { return *b.name.Load() }

func (b *base) setInternalID(id string) { b.internalID.Store(&id) }
func (b *base) setName(name string) { b.name.Store(&name) }

func (b *base) Rebind(internalID, name string) {
	b.setInternalID(internalID)
	b.setName(name)
}

func (b *base) rename(ctx context.Context, name string) error {
	var err error
	switch b.resource {
	case hue.ResourceLights:
		err = b.api.RenameLight(ctx, b.InternalID(), name)
	default:
		err = b.api.RenameSensor(ctx, b.InternalID(), name)
	}
	if err != nil {
		return err
	}
	b.setName(name)
	return nil
}

func (b *base) emit(self Device, action string, payload any) {
	actionsTotal.WithLabelValues(b.profile.Kind.String()).Inc()
	b.observer.EmitAction(self, action, payload)
}
