package lua

import (
	"github.com/dokzlo13/huelink/internal/kv"
	"github.com/dokzlo13/huelink/internal/lua/modules"
)

// RuntimeDeps groups the dependencies of the Lua runtime. Nil fields
// leave the matching module unregistered.
type RuntimeDeps struct {
	// Devices backs the bridge module.
	Devices modules.DeviceSource
	// Store backs the kv module.
	Store kv.Bucket
}
