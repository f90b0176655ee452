package modules

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/huelink/internal/kv"
)

// KVModule gives scripts a persistent key-value bucket:
//
//	kv.get(key)         -> value or nil
//	kv.set(key, value)  values are stored as JSON
//	kv.delete(key)      -> bool
//	kv.keys()           -> list
type KVModule struct {
	bucket kv.Bucket
}

// NewKVModule creates a new KV module.
func NewKVModule(bucket kv.Bucket) *KVModule {
	return &KVModule{bucket: bucket}
}

// Loader is the module loader for Lua.
func (m *KVModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "get", L.NewFunction(m.get))
	L.SetField(mod, "set", L.NewFunction(m.set))
	L.SetField(mod, "delete", L.NewFunction(m.delete))
	L.SetField(mod, "keys", L.NewFunction(m.keys))

	L.Push(mod)
	return 1
}

func (m *KVModule) get(L *lua.LState) int {
	key := L.CheckString(1)

	raw, ok, err := m.bucket.Get(luaContext(L), key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to read script value")
	}
	if !ok || err != nil {
		L.Push(lua.LNil)
		return 1
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to decode script value")
		L.Push(lua.LNil)
		return 1
	}
	L.Push(GoToLuaValue(L, v))
	return 1
}

func (m *KVModule) set(L *lua.LState) int {
	key := L.CheckString(1)

	raw, err := json.Marshal(LuaToGo(L.Get(2)))
	if err != nil {
		L.RaiseError("kv.set: %v", err)
		return 0
	}
	if err := m.bucket.Set(luaContext(L), key, string(raw)); err != nil {
		L.RaiseError("kv.set: %v", err)
	}
	return 0
}

func (m *KVModule) delete(L *lua.LState) int {
	key := L.CheckString(1)

	deleted, err := m.bucket.Delete(luaContext(L), key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to delete script value")
	}
	L.Push(lua.LBool(deleted))
	return 1
}

func (m *KVModule) keys(L *lua.LState) int {
	keys, err := m.bucket.Keys(luaContext(L))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list script values")
	}

	tbl := L.NewTable()
	for i, k := range keys {
		tbl.RawSetInt(i+1, lua.LString(k))
	}
	L.Push(tbl)
	return 1
}
