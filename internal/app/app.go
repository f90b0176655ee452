package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huelink/internal/config"
)

// App runs one bridge session together with its sinks and Lua hooks.
type App struct {
	services *Services
}

// New opens the database and wires the services. Nothing runs until Run.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}
	return &App{services: services}, nil
}

// Run starts the services and blocks until ctx is cancelled, then shuts
// everything down. With link set, pairing starts right away and waits for
// the link button.
func (a *App) Run(ctx context.Context, link bool) error {
	if err := a.services.Start(ctx, link); err != nil {
		a.services.Close()
		return err
	}

	st := a.services.Bridge.Session.Status()
	log.Info().
		Str("instance", a.services.InstanceID).
		Str("bridge", st.ID).
		Str("state", st.State).
		Msg("huelink started")

	<-ctx.Done()

	start := time.Now()
	log.Info().Msg("Shutting down")
	a.services.Close()
	log.Info().Dur("took", time.Since(start)).Msg("Stopped")
	return nil
}
