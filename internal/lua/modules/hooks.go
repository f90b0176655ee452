package modules

import (
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/huelink/internal/eventbus"
)

// HooksModule lets scripts react to device events:
//
//	hooks.on_action(fn)   fn(event) for emitted actions
//	hooks.on_state(fn)    fn(event) for state attribute changes
//	hooks.on_added(fn)    fn(event) when a device becomes managed
//	hooks.on_removed(fn)  fn(event) when a device is dropped
//
// An optional device id before fn limits the hook to that device.
type HooksModule struct {
	mu    sync.RWMutex
	hooks map[eventbus.EventType][]hook
}

type hook struct {
	device string
	fn     *lua.LFunction
}

// NewHooksModule creates a new hooks module
func NewHooksModule() *HooksModule {
	return &HooksModule{hooks: make(map[eventbus.EventType][]hook)}
}

// Loader is the module loader for Lua
func (m *HooksModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "on_action", L.NewFunction(m.register(eventbus.EventTypeAction)))
	L.SetField(mod, "on_state", L.NewFunction(m.register(eventbus.EventTypeState)))
	L.SetField(mod, "on_added", L.NewFunction(m.register(eventbus.EventTypeDeviceAdded)))
	L.SetField(mod, "on_removed", L.NewFunction(m.register(eventbus.EventTypeDeviceRemoved)))

	L.Push(mod)
	return 1
}

func (m *HooksModule) register(t eventbus.EventType) lua.LGFunction {
	return func(L *lua.LState) int {
		var h hook
		if L.GetTop() >= 2 {
			h.device = L.CheckString(1)
			h.fn = L.CheckFunction(2)
		} else {
			h.fn = L.CheckFunction(1)
		}

		m.mu.Lock()
		m.hooks[t] = append(m.hooks[t], h)
		m.mu.Unlock()
		return 0
	}
}

// Wants reports whether any hook could handle e. Safe to call from any
// goroutine.
func (m *HooksModule) Wants(e eventbus.Event) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hooks[e.Type]) > 0
}

// Dispatch calls the hooks matching e. Must run on the Lua worker.
func (m *HooksModule) Dispatch(L *lua.LState, e eventbus.Event) {
	m.mu.RLock()
	hooks := append([]hook(nil), m.hooks[e.Type]...)
	m.mu.RUnlock()

	id, _ := e.Data["device_id"].(string)
	for _, h := range hooks {
		if h.device != "" && h.device != id {
			continue
		}
		tbl := MapToLuaTable(L, e.Data)
		L.SetField(tbl, "type", lua.LString(e.Type))
		err := L.CallByParam(lua.P{Fn: h.fn, NRet: 0, Protect: true}, tbl)
		if err != nil {
			log.Error().Err(err).
				Str("event_type", string(e.Type)).
				Str("device", id).
				Msg("Lua hook failed")
		}
	}
}
