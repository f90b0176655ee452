package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huelink/internal/config"
	"github.com/dokzlo13/huelink/internal/db"
	"github.com/dokzlo13/huelink/internal/kv"
	"github.com/dokzlo13/huelink/internal/ledger"
	"github.com/dokzlo13/huelink/internal/sink"
)

// kv_store buckets
const (
	bucketCredentials = "credentials"
	bucketInstance    = "instance"
	bucketScript      = "script"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB         *db.DB
	Ledger     *ledger.Ledger
	InstanceID string

	// High-level services
	Events *EventService
	Bridge *BridgeService
	Lua    *LuaService
	Health *HealthService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	s.InstanceID, err = instanceID(kv.NewSQLiteBucket(database.DB, bucketInstance))
	if err != nil {
		s.Close()
		return nil, err
	}

	// Initialize ledger
	s.Ledger = ledger.New(database.DB)

	// Event bus and sinks
	s.Events = NewEventService(cfg, s.Ledger, s.InstanceID)

	// Bridge session publishes device notifications on the bus
	bridgeID := cfg.Bridge.ID
	if bridgeID == "" {
		bridgeID = cfg.Bridge.Host
	}
	observer := sink.NewBusObserver(s.Events.Bus, bridgeID)
	credentials := kv.NewSQLiteBucket(database.DB, bucketCredentials)
	s.Bridge = NewBridgeService(cfg, credentials, observer, s.InstanceID)

	// Lua hooks
	s.Lua = NewLuaService(cfg, s.Bridge.Session, kv.NewSQLiteBucket(database.DB, bucketScript))

	// Initialize health service
	s.Health = NewHealthService(cfg, s.Bridge.Session)

	return s, nil
}

// instanceID returns the id of this installation, creating it on first run.
func instanceID(bucket kv.Bucket) (string, error) {
	ctx := context.Background()
	id, ok, err := bucket.Get(ctx, "id")
	if err != nil {
		return "", fmt.Errorf("load instance id: %w", err)
	}
	if ok {
		return id, nil
	}

	id = uuid.NewString()
	if err := bucket.Set(ctx, "id", id); err != nil {
		return "", fmt.Errorf("store instance id: %w", err)
	}
	log.Info().Str("instance", id).Msg("Created instance id")
	return id, nil
}

// Start starts all services in the correct order. link forces pairing.
func (s *Services) Start(ctx context.Context, link bool) error {
	// Sinks first so no device notification is missed
	if err := s.Events.Start(ctx); err != nil {
		return err
	}

	// Load Lua script before any event can reach it
	if err := s.Lua.LoadScript(); err != nil {
		return err
	}
	s.Lua.Start(ctx, s.Events.Bus)

	s.Health.Start(ctx)

	return s.Bridge.Start(ctx, link)
}

// Close releases all resources. The session stops first so the bus
// receives no new events while draining.
func (s *Services) Close() {
	if s.Bridge != nil {
		s.Bridge.Close()
	}
	if s.Events != nil {
		s.Events.Close()
	}
	if s.Lua != nil {
		s.Lua.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
