package bridge

import (
	"maps"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huelink/internal/device"
	"github.com/dokzlo13/huelink/internal/hue"
)

// arena holds the managed devices of a session keyed by stable id. Every
// field is guarded by the session writer lock.
type arena struct {
	devices map[string]device.Device
	raw     map[string]device.Descriptor

	// byInternal maps the bridge's current ids to stable ids, per resource.
	byInternal map[hue.Resource]map[string]string

	// ignored remembers descriptors no adapter understands, logged once.
	ignored map[string]struct{}
}

func newArena() *arena {
	return &arena{
		devices:    make(map[string]device.Device),
		raw:        make(map[string]device.Descriptor),
		byInternal: make(map[hue.Resource]map[string]string),
		ignored:    make(map[string]struct{}),
	}
}

// changes counts what a reconciliation pass did.
type changes struct {
	added, updated, removed int
}

// descriptors flattens a poll into descriptors ordered by resource and
// bridge id.
func descriptors(fs *hue.FullState) []device.Descriptor {
	out := make([]device.Descriptor, 0, len(fs.Lights)+len(fs.Sensors))
	for _, id := range slices.Sorted(maps.Keys(fs.Lights)) {
		out = append(out, device.LightDescriptor(fs.Lights[id]))
	}
	for _, id := range slices.Sorted(maps.Keys(fs.Sensors)) {
		out = append(out, device.SensorDescriptor(fs.Sensors[id]))
	}
	return out
}

// managed reports whether a descriptor takes part in reconciliation.
func managed(d device.Descriptor) bool {
	return d.UniqueID != "" && d.Reachable()
}

// reconcile diffs the polled descriptors against the arena. The caller
// holds the session writer lock.
func (s *Session) reconcile(all []device.Descriptor) changes {
	a := s.arena
	var c changes
	seen := make(map[string]struct{}, len(all))

	for _, d := range all {
		if !managed(d) {
			continue
		}
		id := d.StableID()
		if _, dup := seen[id]; dup {
			continue
		}

		if dev, ok := a.devices[id]; ok {
			seen[id] = struct{}{}
			if dev.InternalID() != d.InternalID || dev.Name() != d.Name {
				dev.Rebind(d.InternalID, d.Name)
			}
			if prev := a.raw[id]; !prev.SameState(d) {
				a.raw[id] = d
				dev.Update(d)
				c.updated++
			}
			continue
		}

		dev, ok := device.New(d, s.client, s.observer, &s.writer)
		if !ok {
			if _, logged := a.ignored[id]; !logged {
				a.ignored[id] = struct{}{}
				log.Debug().
					Str("bridge", s.opts.ID).
					Str("device", id).
					Str("type", d.Type).
					Str("model", d.ModelID).
					Msg("Ignoring unsupported device")
			}
			continue
		}
		seen[id] = struct{}{}
		a.devices[id] = dev
		a.raw[id] = d
		s.observer.DeviceAdded(dev)
		dev.Update(d)
		c.added++

		log.Info().
			Str("bridge", s.opts.ID).
			Str("device", id).
			Str("internal_id", d.InternalID).
			Str("name", d.Name).
			Str("kind", dev.Kind().String()).
			Str("family", dev.Profile().Family).
			Msg("Device added")
	}

	for id, dev := range a.devices {
		if _, ok := seen[id]; ok {
			continue
		}
		delete(a.devices, id)
		delete(a.raw, id)
		s.observer.DeviceRemoved(dev)
		c.removed++

		log.Info().
			Str("bridge", s.opts.ID).
			Str("device", id).
			Str("name", dev.Name()).
			Msg("Device removed")
	}

	a.reindex()
	return c
}

func (a *arena) reindex() {
	idx := make(map[hue.Resource]map[string]string, 2)
	for id, dev := range a.devices {
		r := dev.Resource()
		if idx[r] == nil {
			idx[r] = make(map[string]string)
		}
		idx[r][dev.InternalID()] = id
	}
	a.byInternal = idx
}

// applyPush routes a push message to the device with the pushed bridge
// id. Messages for unknown devices are dropped; the next poll picks them
// up.
func (s *Session) applyPush(ev hue.PushEvent) {
	if !ev.IsChange() {
		return
	}

	s.writer.Lock()
	defer s.writer.Unlock()

	a := s.arena
	id, ok := a.byInternal[ev.Resource][ev.ID]
	if !ok {
		pushAppliedTotal.WithLabelValues(s.opts.ID, "unknown").Inc()
		log.Debug().
			Str("bridge", s.opts.ID).
			Str("resource", string(ev.Resource)).
			Str("internal_id", ev.ID).
			Msg("Push for unmanaged device")
		return
	}

	prev := a.raw[id]
	next, err := prev.Merge(ev.State, ev.Config)
	if err != nil {
		pushAppliedTotal.WithLabelValues(s.opts.ID, "malformed").Inc()
		log.Warn().Err(err).Str("bridge", s.opts.ID).Str("device", id).Msg("Dropping malformed push state")
		return
	}
	if next.SameState(prev) {
		pushAppliedTotal.WithLabelValues(s.opts.ID, "unchanged").Inc()
		return
	}

	a.raw[id] = next
	a.devices[id].Update(next)
	pushAppliedTotal.WithLabelValues(s.opts.ID, "applied").Inc()
}

// snapshot returns the managed devices ordered by stable id.
func (a *arena) snapshot() []device.Device {
	out := make([]device.Device, 0, len(a.devices))
	for _, dev := range a.devices {
		out = append(out, dev)
	}
	slices.SortFunc(out, func(x, y device.Device) int {
		return strings.Compare(x.ID(), y.ID())
	})
	return out
}
