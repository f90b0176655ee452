package sink

import (
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huelink/internal/eventbus"
	"github.com/dokzlo13/huelink/internal/ledger"
)

// Appender is the ledger subset the recorder writes through.
type Appender interface {
	Append(eventType ledger.EventType, source, deviceID string, payload map[string]any) error
}

var ledgerTypes = map[eventbus.EventType]ledger.EventType{
	eventbus.EventTypeDeviceAdded:   ledger.EventDeviceAdded,
	eventbus.EventTypeDeviceRemoved: ledger.EventDeviceRemoved,
	eventbus.EventTypeAction:        ledger.EventDeviceAction,
}

// RecordLedger appends device lifecycle events, actions and bridge links
// to the ledger. State changes are too frequent to keep.
func RecordLedger(bus *eventbus.Bus, l Appender) {
	for busType, ledgerType := range ledgerTypes {
		bus.Subscribe(busType, func(e eventbus.Event) {
			bridge, _ := e.Data["bridge"].(string)
			id, _ := e.Data["device_id"].(string)
			if err := l.Append(ledgerType, bridge, id, payload(e.Data)); err != nil {
				log.Error().Err(err).Str("event_type", string(e.Type)).Str("device", id).Msg("Failed to record ledger entry")
			}
		})
	}

	bus.Subscribe(eventbus.EventTypeBridge, func(e eventbus.Event) {
		if status, _ := e.Data["status"].(string); status != StatusLinked {
			return
		}
		bridge, _ := e.Data["bridge"].(string)
		if err := l.Append(ledger.EventBridgeLinked, bridge, "", nil); err != nil {
			log.Error().Err(err).Str("bridge", bridge).Msg("Failed to record ledger entry")
		}
	})
}

// payload drops the fields stored in their own columns.
func payload(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if k == "bridge" || k == "device_id" {
			continue
		}
		out[k] = v
	}
	return out
}
