package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huelink/internal/config"
	"github.com/dokzlo13/huelink/internal/eventbus"
	"github.com/dokzlo13/huelink/internal/kv"
	luart "github.com/dokzlo13/huelink/internal/lua"
	"github.com/dokzlo13/huelink/internal/lua/modules"
)

// LuaService wraps the Lua runtime. It is inactive when no script is
// configured.
type LuaService struct {
	cfg     *config.Config
	Runtime *luart.Runtime
	started bool
	done    chan struct{}
}

// NewLuaService creates a new LuaService.
func NewLuaService(cfg *config.Config, devices modules.DeviceSource, store kv.Bucket) *LuaService {
	if cfg.Script == "" {
		return &LuaService{cfg: cfg}
	}
	return &LuaService{
		cfg: cfg,
		Runtime: luart.NewRuntime(luart.RuntimeDeps{
			Devices: devices,
			Store:   store,
		}),
		done: make(chan struct{}),
	}
}

// LoadScript loads and executes the Lua script.
// Must be called before Start().
func (s *LuaService) LoadScript() error {
	if s.Runtime == nil {
		return nil
	}
	return s.Runtime.LoadScript(s.cfg.Script)
}

// Start begins the Lua worker goroutine and forwards bus events to the
// script hooks.
func (s *LuaService) Start(ctx context.Context, bus *eventbus.Bus) {
	if s.Runtime == nil {
		log.Debug().Msg("No Lua script configured")
		return
	}

	s.Runtime.Attach(bus)
	s.started = true
	go func() {
		defer close(s.done)
		// Start Lua worker goroutine - this is the ONLY goroutine that touches Lua
		s.Runtime.Run(ctx)
	}()
}

// Close stops the worker and closes the Lua state.
func (s *LuaService) Close() {
	if s.Runtime == nil {
		return
	}
	s.Runtime.Stop()
	if s.started {
		<-s.done
	}
	s.Runtime.Close()
}
