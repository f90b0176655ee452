package sink

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huelink/internal/eventbus"
)

// LogEvents writes every bus event to the global logger. Actions are
// logged at info level, state changes at debug.
func LogEvents(bus *eventbus.Bus) {
	bus.SubscribeAll(func(e eventbus.Event) {
		var event *zerolog.Event
		switch e.Type {
		case eventbus.EventTypeAction:
			event = log.Info()
		default:
			event = log.Debug()
		}
		event.
			Str("event_type", string(e.Type)).
			Fields(e.Data).
			Msg("Device event")
	})
}
