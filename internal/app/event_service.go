package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huelink/internal/config"
	"github.com/dokzlo13/huelink/internal/eventbus"
	"github.com/dokzlo13/huelink/internal/ledger"
	"github.com/dokzlo13/huelink/internal/sink"
)

// EventService wires the event bus to its sinks: the log, the ledger and
// optionally MQTT.
type EventService struct {
	cfg    *config.Config
	Bus    *eventbus.Bus
	ledger *ledger.Ledger
	mqtt   *sink.MQTTPublisher
}

// NewEventService creates the bus. Sinks are attached by Start.
func NewEventService(cfg *config.Config, l *ledger.Ledger, instanceID string) *EventService {
	s := &EventService{
		cfg:    cfg,
		Bus:    eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize()),
		ledger: l,
	}

	if cfg.MQTT.Enabled {
		clientID := cfg.MQTT.ClientID
		if clientID == "" {
			clientID = "huelink-" + instanceID
		}
		s.mqtt = sink.NewMQTTPublisher(sink.MQTTConfig{
			Broker:      cfg.MQTT.Broker,
			ClientID:    clientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		})
	}
	return s
}

// Start attaches the sinks and the ledger cleanup loop.
func (s *EventService) Start(ctx context.Context) error {
	sink.LogEvents(s.Bus)
	sink.RecordLedger(s.Bus, s.ledger)

	if s.mqtt != nil {
		if err := s.mqtt.Connect(ctx); err != nil {
			return err
		}
		s.mqtt.Attach(s.Bus)
	}

	go s.runLedgerCleanup(ctx)
	return nil
}

// runLedgerCleanup periodically removes old ledger entries.
func (s *EventService) runLedgerCleanup(ctx context.Context) {
	retention := time.Duration(s.cfg.Ledger.RetentionDays) * 24 * time.Hour
	interval := s.cfg.Ledger.CleanupInterval.Duration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.ledger.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
			} else if deleted > 0 {
				log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
			}
		}
	}
}

// Close drains the bus and disconnects MQTT.
func (s *EventService) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
	defer cancel()
	s.Bus.Close(ctx)

	if s.mqtt != nil {
		s.mqtt.Close()
	}
}
