package hue

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultPairAttempts = 10
	DefaultPairInterval = time.Second
)

// Pairer obtains an authorization key by repeatedly asking the bridge to
// create a user while waiting for the link button.
type Pairer struct {
	client     *Client
	deviceType string
	attempts   int
	interval   time.Duration
}

// NewPairer creates a pairer. Non-positive attempts or interval fall back
// to the defaults.
func NewPairer(client *Client, deviceType string, attempts int, interval time.Duration) *Pairer {
	if attempts <= 0 {
		attempts = DefaultPairAttempts
	}
	if interval <= 0 {
		interval = DefaultPairInterval
	}
	return &Pairer{
		client:     client,
		deviceType: deviceType,
		attempts:   attempts,
		interval:   interval,
	}
}

// Pair runs the attempts sequentially and returns the new key. The key is
// not persisted here.
func (p *Pairer) Pair(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		key, err := p.client.CreateUser(ctx, p.deviceType)
		if err == nil {
			log.Info().Int("attempt", attempt).Msg("Bridge link established")
			return key, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if IsLinkButtonNotPressed(err) {
			log.Info().
				Int("attempt", attempt).
				Int("attempts", p.attempts).
				Msg("Waiting for bridge link button")
		} else {
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("attempts", p.attempts).
				Msg("Bridge link attempt failed")
		}

		if attempt == p.attempts {
			break
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %v", ErrLinkRejected, p.attempts, lastErr)
}
