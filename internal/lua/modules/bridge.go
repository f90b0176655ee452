package modules

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/huelink/internal/color"
	"github.com/dokzlo13/huelink/internal/device"
	"github.com/dokzlo13/huelink/internal/sink"
)

// DeviceSource is the view of a bridge session the bridge module needs.
type DeviceSource interface {
	Devices() []device.Device
	Device(id string) (device.Device, bool)
}

// stateSetter is implemented by devices that accept light commands.
type stateSetter interface {
	SetState(ctx context.Context, change device.StateChange) error
	State() device.LightState
}

// BridgeModule exposes managed devices to Lua:
//
//	bridge.devices()              -> list of device tables
//	bridge.device(id)             -> device table or nil
//	bridge.set_state(id, change)  -> ok, err
//	bridge.rename(id, name)       -> ok, err
//
// change accepts power (bool), brightness (0..100), transition (ms) and
// color: {kelvin=}, {mired=}, {x=, y=}, {hue=, saturation=} or {r=, g=, b=}.
type BridgeModule struct {
	source DeviceSource
}

// NewBridgeModule creates a new bridge module
func NewBridgeModule(source DeviceSource) *BridgeModule {
	return &BridgeModule{source: source}
}

// Loader is the module loader for Lua
func (m *BridgeModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "devices", L.NewFunction(m.devices))
	L.SetField(mod, "device", L.NewFunction(m.device))
	L.SetField(mod, "set_state", L.NewFunction(m.setState))
	L.SetField(mod, "rename", L.NewFunction(m.rename))

	L.Push(mod)
	return 1
}

func (m *BridgeModule) devices(L *lua.LState) int {
	tbl := L.NewTable()
	for i, d := range m.source.Devices() {
		tbl.RawSetInt(i+1, deviceTable(L, d))
	}
	L.Push(tbl)
	return 1
}

func (m *BridgeModule) device(L *lua.LState) int {
	d, ok := m.source.Device(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(deviceTable(L, d))
	return 1
}

func (m *BridgeModule) setState(L *lua.LState) int {
	id := L.CheckString(1)
	tbl := L.CheckTable(2)

	d, ok := m.source.Device(id)
	if !ok {
		return fail(L, "unknown device: "+id)
	}
	light, ok := d.(stateSetter)
	if !ok {
		return fail(L, "device is not a light: "+id)
	}

	change, problem := parseChange(tbl)
	if problem != "" {
		return fail(L, problem)
	}

	if err := light.SetState(luaContext(L), change); err != nil {
		log.Warn().Err(err).Str("device", id).Msg("Lua set_state failed")
		return fail(L, err.Error())
	}
	L.Push(lua.LTrue)
	return 1
}

func (m *BridgeModule) rename(L *lua.LState) int {
	id := L.CheckString(1)
	name := L.CheckString(2)

	d, ok := m.source.Device(id)
	if !ok {
		return fail(L, "unknown device: "+id)
	}
	if err := d.Rename(luaContext(L), name); err != nil {
		log.Warn().Err(err).Str("device", id).Msg("Lua rename failed")
		return fail(L, err.Error())
	}
	L.Push(lua.LTrue)
	return 1
}

// luaContext returns the context of the running work item.
func luaContext(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func fail(L *lua.LState, msg string) int {
	L.Push(lua.LFalse)
	L.Push(lua.LString(msg))
	return 2
}

func deviceTable(L *lua.LState, d device.Device) *lua.LTable {
	data := map[string]any{
		"id":          d.ID(),
		"internal_id": d.InternalID(),
		"name":        d.Name(),
		"model":       d.Model(),
		"kind":        d.Kind().String(),
		"resource":    string(d.Resource()),
	}
	if light, ok := d.(stateSetter); ok {
		st := light.State()
		state := map[string]any{
			"power":      st.Power,
			"brightness": st.Brightness,
		}
		if !st.Color.IsZero() {
			state["color"] = sink.ColorData(st.Color)
		}
		data["state"] = state
	}
	return MapToLuaTable(L, data)
}

func parseChange(tbl *lua.LTable) (device.StateChange, string) {
	var change device.StateChange

	if v := tbl.RawGetString("power"); v != lua.LNil {
		b, ok := v.(lua.LBool)
		if !ok {
			return change, "power must be a boolean"
		}
		on := bool(b)
		change.Power = &on
	}
	if v := tbl.RawGetString("brightness"); v != lua.LNil {
		n, ok := v.(lua.LNumber)
		if !ok {
			return change, "brightness must be a number"
		}
		bri := float64(n)
		change.Brightness = &bri
	}
	if v := tbl.RawGetString("transition"); v != lua.LNil {
		n, ok := v.(lua.LNumber)
		if !ok {
			return change, "transition must be a number of milliseconds"
		}
		d := time.Duration(float64(n)) * time.Millisecond
		change.Duration = &d
	}
	if v := tbl.RawGetString("color"); v != lua.LNil {
		ct, ok := v.(*lua.LTable)
		if !ok {
			return change, "color must be a table"
		}
		c, ok := parseColor(ct)
		if !ok {
			return change, "unrecognized color"
		}
		change.Color = &c
	}
	return change, ""
}

func parseColor(tbl *lua.LTable) (color.Color, bool) {
	num := func(key string) (float64, bool) {
		n, ok := tbl.RawGetString(key).(lua.LNumber)
		return float64(n), ok
	}
	brightness, ok := num("brightness")
	if !ok {
		brightness = 100
	}

	if k, ok := num("kelvin"); ok {
		return color.Temperature(k).WithBrightness(brightness), true
	}
	if mired, ok := num("mired"); ok {
		return color.Mired(mired).WithBrightness(brightness), true
	}
	if x, ok := num("x"); ok {
		if y, ok := num("y"); ok {
			return color.FromXY(x, y, brightness), true
		}
	}
	if h, ok := num("hue"); ok {
		if s, ok := num("saturation"); ok {
			return color.HSV(h, s, brightness), true
		}
	}
	r, okR := num("r")
	g, okG := num("g")
	b, okB := num("b")
	if okR && okG && okB {
		return color.RGB(channel(r), channel(g), channel(b)), true
	}
	return color.Color{}, false
}

func channel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
