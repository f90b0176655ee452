package lua

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/huelink/internal/eventbus"
	"github.com/dokzlo13/huelink/internal/lua/modules"
)

// ErrRuntimeClosed is returned when the Lua runtime is closed
var ErrRuntimeClosed = fmt.Errorf("lua runtime closed")

const workQueueSize = 100

// LuaWork represents work to be executed on the Lua VM
// All Lua execution MUST go through this to ensure thread safety
type LuaWork func(ctx context.Context)

// Runtime manages the Lua VM with single-threaded execution
type Runtime struct {
	L *lua.LState

	hooks *modules.HooksModule

	// Work queue for thread-safe Lua execution
	workQueue chan LuaWork

	// closing is closed once to signal senders to stop
	closing   chan struct{}
	closeOnce sync.Once
}

// NewRuntime creates a new Lua runtime
func NewRuntime(deps RuntimeDeps) *Runtime {
	r := &Runtime{
		L:         lua.NewState(),
		hooks:     modules.NewHooksModule(),
		workQueue: make(chan LuaWork, workQueueSize),
		closing:   make(chan struct{}),
	}

	r.registerModules(deps)

	return r
}

// registerModules registers all Lua modules
func (r *Runtime) registerModules(deps RuntimeDeps) {
	r.L.PreloadModule("log", modules.NewLogModule().Loader)
	r.L.PreloadModule("hooks", r.hooks.Loader)

	if deps.Devices != nil {
		r.L.PreloadModule("bridge", modules.NewBridgeModule(deps.Devices).Loader)
	}
	if deps.Store != nil {
		r.L.PreloadModule("kv", modules.NewKVModule(deps.Store).Loader)
	}
}

// Close signals the runtime to stop accepting new work and closes the Lua state.
// Call it after Run has returned.
func (r *Runtime) Close() {
	r.Stop()
	// workQueue stays open so concurrent senders never panic.
	r.L.Close()
}

// Stop signals Run to drain the queue and return.
func (r *Runtime) Stop() {
	r.closeOnce.Do(func() {
		close(r.closing)
	})
}

func (r *Runtime) stopped() bool {
	select {
	case <-r.closing:
		return true
	default:
		return false
	}
}

// Do queues work to be executed on the Lua VM (thread-safe, non-blocking)
// Returns false if the runtime is closing or the queue is full.
func (r *Runtime) Do(work LuaWork) bool {
	if r.stopped() {
		log.Warn().Msg("Lua runtime closing, dropping work")
		return false
	}
	select {
	case r.workQueue <- work:
		return true
	default:
		log.Warn().Msg("Lua work queue full, dropping work")
		return false
	}
}

// DoSyncWithResult queues work, waits for space, and waits for the result.
func (r *Runtime) DoSyncWithResult(ctx context.Context, work func(context.Context) error) error {
	done := make(chan error, 1)
	wrappedWork := LuaWork(func(c context.Context) {
		done <- work(c)
	})

	if r.stopped() {
		return ErrRuntimeClosed
	}

	select {
	case <-r.closing:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	case r.workQueue <- wrappedWork:
	}

	select {
	case <-r.closing:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Attach forwards bus events to the registered hooks. Events nobody
// hooked are not queued.
func (r *Runtime) Attach(bus *eventbus.Bus) {
	bus.SubscribeAll(func(e eventbus.Event) {
		if !r.hooks.Wants(e) {
			return
		}
		r.Do(func(context.Context) {
			r.hooks.Dispatch(r.L, e)
		})
	})
}

// Run starts the Lua worker goroutine - this is the ONLY goroutine that touches Lua
// It includes panic recovery to prevent crashes from killing the worker.
// Exits when context is cancelled or runtime is stopped.
func (r *Runtime) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.drainQueue(ctx)
			return
		case <-r.closing:
			r.drainQueue(ctx)
			return
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		}
	}
}

// drainQueue processes any remaining work in the queue before exiting
func (r *Runtime) drainQueue(ctx context.Context) {
	for {
		select {
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		default:
			return
		}
	}
}

// executeWork runs a single work item with panic recovery
func (r *Runtime) executeWork(ctx context.Context, work LuaWork) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Msg("Lua work panicked - worker continuing")
		}
	}()
	// Modules reach the context through L.Context()
	r.L.SetContext(ctx)
	work(ctx)
}

// LoadScript loads and executes a Lua script (must be called before Run)
func (r *Runtime) LoadScript(path string) error {
	log.Info().Str("path", path).Msg("Loading Lua script")

	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}

	log.Info().Msg("Lua script loaded successfully")
	return nil
}

// LoadString executes inline Lua source (must be called before Run)
func (r *Runtime) LoadString(source string) error {
	if err := r.L.DoString(source); err != nil {
		return fmt.Errorf("failed to execute Lua source: %w", err)
	}
	return nil
}
