package main

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/wnxd/uclua/engine"
	"github.com/wnxd/uclua/internal/config"
	"github.com/wnxd/uclua/luabind"
)

var unsafeGlobals = []string{"dofile", "loadfile", "load", "collectgarbage", "require"}

// newState builds an interpreter with the unicorn module available. In safe
// mode the module is a global instead of a require target, since the package
// library is not opened.
func newState(cfg *config.Config, reg *engine.Registry) (*lua.LState, context.CancelFunc) {
	opts := []luabind.Option{luabind.WithRegistry(reg)}
	if cfg.Emulator.MemoryLimit > 0 {
		opts = append(opts, luabind.WithMemoryLimit(uint64(cfg.Emulator.MemoryLimit)))
	}

	var L *lua.LState
	if cfg.Script.Safe {
		L = lua.NewState(lua.Options{SkipOpenLibs: true})
		lua.OpenBase(L)
		lua.OpenTable(L)
		lua.OpenString(L)
		lua.OpenMath(L)
		for _, name := range unsafeGlobals {
			L.SetGlobal(name, lua.LNil)
		}
		L.SetGlobal(luabind.ModuleName, luabind.Open(L, opts...))
	} else {
		L = lua.NewState()
		luabind.Preload(L, opts...)
	}

	cancel := context.CancelFunc(func() {})
	if timeout := cfg.Script.Timeout.Duration(); timeout > 0 {
		var ctx context.Context
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
		L.SetContext(ctx)
	}
	return L, cancel
}
