package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huelink/internal/bridge"
	"github.com/dokzlo13/huelink/internal/config"
	"github.com/dokzlo13/huelink/internal/device"
)

// BridgeService owns the bridge session.
type BridgeService struct {
	cfg     *config.Config
	Session *bridge.Session
}

// NewBridgeService creates the session but does not contact the bridge.
func NewBridgeService(cfg *config.Config, storage bridge.Storage, observer device.Observer, instanceID string) *BridgeService {
	return &BridgeService{
		cfg:     cfg,
		Session: bridge.New(sessionOptions(cfg, instanceID), storage, observer),
	}
}

func sessionOptions(cfg *config.Config, instanceID string) bridge.Options {
	b := cfg.Bridge
	deviceType := b.DeviceType
	if deviceType == "" {
		deviceType = deviceTypeFor(instanceID)
	}
	return bridge.Options{
		ID:             b.ID,
		Host:           b.Host,
		Key:            b.Key,
		DeviceType:     deviceType,
		PollInterval:   b.PollInterval.Duration(),
		RequestTimeout: b.RequestTimeout.Duration(),
		PollTimeout:    b.PollTimeout.Duration(),
		ReconnectDelay: b.ReconnectDelay.Duration(),
		PairInterval:   b.PairInterval.Duration(),
		PairAttempts:   b.PairAttempts,
		MaxConcurrent:  b.MaxConcurrent,
		RateLimit:      b.RateLimitRPS,
		Push:           b.IsPushEnabled(),
	}
}

// deviceTypeFor builds the pairing devicetype, "<app>#<instance>". The
// bridge limits the instance part to 19 characters.
func deviceTypeFor(instanceID string) string {
	suffix := instanceID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	if suffix == "" {
		return bridge.DefaultDeviceType
	}
	return fmt.Sprintf("%s#%s", bridge.DefaultDeviceType, suffix)
}

// Start loads the stored key and runs the initial load. A failed initial
// load is not fatal: the session retries on every poll tick.
func (s *BridgeService) Start(ctx context.Context, link bool) error {
	err := s.Session.Start(ctx)
	switch {
	case err == nil:
	case errors.Is(err, bridge.ErrInitialLoadFailed):
		log.Warn().Err(err).Str("bridge", s.Session.ID()).Msg("Initial bridge load failed, will retry")
	default:
		return err
	}

	if link || (s.cfg.Bridge.AutoLink && !s.Session.HasKey()) {
		go s.link(ctx)
	}
	return nil
}

func (s *BridgeService) link(ctx context.Context) {
	if err := s.Session.Link(ctx); err != nil {
		log.Error().Err(err).Str("bridge", s.Session.ID()).Msg("Bridge pairing failed")
	}
}

// Close stops the session.
func (s *BridgeService) Close() {
	s.Session.Close()
}
