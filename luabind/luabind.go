// Package luabind exposes the engine package to gopher-lua scripts as the
// "unicorn" module.
package luabind

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/wnxd/uclua/emulator"
	"github.com/wnxd/uclua/emulator/sim"
	"github.com/wnxd/uclua/engine"
)

const (
	VersionMajor = 2
	VersionMinor = 1
)

const (
	ModuleName      = "unicorn"
	SimConstsModule = "unicorn.sim_const"
)

type Option func(*binding)

// WithRegistry makes engines opened by scripts register in reg instead of
// engine.DefaultRegistry.
func WithRegistry(reg *engine.Registry) Option {
	return func(b *binding) {
		b.reg = reg
	}
}

// WithMemoryLimit caps mapped memory for every simulated core a script opens.
func WithMemoryLimit(limit uint64) Option {
	return func(b *binding) {
		b.memLimit = limit
	}
}

type binding struct {
	reg      *engine.Registry
	memLimit uint64
}

func newBinding(opts []Option) *binding {
	b := new(binding)
	for _, opt := range opts {
		opt(b)
	}
	if b.reg == nil {
		b.reg = engine.DefaultRegistry()
	}
	return b
}

// Preload makes require("unicorn") and require("unicorn.sim_const") available
// in L.
func Preload(L *lua.LState, opts ...Option) {
	b := newBinding(opts)
	L.PreloadModule(ModuleName, func(L *lua.LState) int {
		L.Push(b.module(L))
		return 1
	})
	L.PreloadModule(SimConstsModule, func(L *lua.LState) int {
		L.Push(simModule(L))
		return 1
	})
}

// Open builds the module table without going through require. It is meant
// for sandboxed states that do not load the package library.
func Open(L *lua.LState, opts ...Option) *lua.LTable {
	b := newBinding(opts)
	mod := b.module(L)
	mod.RawSetString("sim_const", simModule(L))
	return mod
}

func (b *binding) module(L *lua.LState) *lua.LTable {
	registerMetatables(L)
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"open":           b.open,
		"arch_supported": archSupported,
		"strerror":       strerror,
		"version":        version,
	})
	unicornConsts(mod)
	return mod
}

func simModule(L *lua.LState) *lua.LTable {
	tbl := L.NewTable()
	simConsts(tbl)
	return tbl
}

func (b *binding) open(L *lua.LState) int {
	arch := emulator.Arch(L.CheckInt(1))
	mode := emulator.Mode(L.CheckInt(2))
	var (
		e   *engine.Engine
		err error
	)
	if arch == emulator.ARCH_SIM && b.memLimit > 0 {
		var emu *sim.Emulator
		if emu, err = sim.New(mode, sim.WithMemoryLimit(b.memLimit)); err == nil {
			e = engine.New(b.reg, emu)
		}
	} else {
		e, err = engine.Open(b.reg, arch, mode)
	}
	if err != nil {
		raise(L, err)
		return 0
	}
	L.Push(newEngineUserData(L, e))
	Logger().Debug("script opened engine", zap.Stringer("handle", e.Handle()), zap.Stringer("arch", arch))
	return 1
}

func archSupported(L *lua.LState) int {
	L.Push(lua.LBool(emulator.Supported(emulator.Arch(L.CheckInt(1)))))
	return 1
}

func strerror(L *lua.LState) int {
	L.Push(lua.LString(emulator.Errno(L.CheckInt(1)).Error()))
	return 1
}

func version(L *lua.LState) int {
	L.Push(lua.LNumber(VersionMajor))
	L.Push(lua.LNumber(VersionMinor))
	L.Push(lua.LNumber(VersionMajor<<8 | VersionMinor))
	return 3
}

// raise turns err into a Lua error. It does not return.
func raise(L *lua.LState, err error) {
	L.RaiseError("%s", err.Error())
}
