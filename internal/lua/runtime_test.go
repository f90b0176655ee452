package lua

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/huelink/internal/eventbus"
	"github.com/dokzlo13/huelink/internal/kv"
)

func startRuntime(t *testing.T, deps RuntimeDeps, source string) *Runtime {
	t.Helper()
	r := NewRuntime(deps)
	require.NoError(t, r.LoadString(source))

	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()
	t.Cleanup(func() {
		r.Stop()
		<-done
		r.Close()
	})
	return r
}

// flush waits until every work item queued so far has run.
func flush(t *testing.T, r *Runtime) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.DoSyncWithResult(ctx, func(context.Context) error { return nil }))
}

func TestRuntimeHooks(t *testing.T) {
	store := kv.NewMemory()
	r := startRuntime(t, RuntimeDeps{Store: store}, `
		local hooks = require("hooks")
		local kv = require("kv")
		hooks.on_action(function(e)
			kv.set("last_action", {action = e.action, device = e.device_id})
		end)
		hooks.on_state("hue:2", function(e)
			kv.set("state", e.value)
		end)
	`)

	bus := eventbus.NewWithConfig(1, 16)
	r.Attach(bus)
	bus.Publish(eventbus.Event{Type: eventbus.EventTypeAction, Key: "hue:1", Data: map[string]any{
		"device_id": "hue:1", "action": "click",
	}})
	bus.Publish(eventbus.Event{Type: eventbus.EventTypeState, Key: "hue:1", Data: map[string]any{
		"device_id": "hue:1", "value": 1.0,
	}})
	bus.Publish(eventbus.Event{Type: eventbus.EventTypeState, Key: "hue:2", Data: map[string]any{
		"device_id": "hue:2", "value": 42.0,
	}})
	bus.Close(context.Background())
	flush(t, r)

	ctx := context.Background()
	action, ok, err := store.Get(ctx, "last_action")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"action":"click","device":"hue:1"}`, action)

	state, _, err := store.Get(ctx, "state")
	require.NoError(t, err)
	assert.Equal(t, "42", state)
}

func TestRuntimeRecoversPanic(t *testing.T) {
	r := startRuntime(t, RuntimeDeps{}, ``)

	assert.True(t, r.Do(func(context.Context) { panic("boom") }))
	flush(t, r)
}

func TestRuntimeStopped(t *testing.T) {
	r := NewRuntime(RuntimeDeps{})
	r.Stop()
	defer r.Close()

	assert.False(t, r.Do(func(context.Context) {}))
	err := r.DoSyncWithResult(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrRuntimeClosed)
}

func TestLoadStringError(t *testing.T) {
	r := NewRuntime(RuntimeDeps{})
	defer r.Close()

	assert.Error(t, r.LoadString(`this is not lua`))
	assert.Error(t, r.LoadScript("does-not-exist.lua"))
}
