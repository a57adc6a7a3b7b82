package luabind

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/wnxd/uclua/emulator"
	"github.com/wnxd/uclua/engine"
)

type hookHandle struct {
	owner *engine.Engine
	id    engine.HookID
	typ   emulator.HookType
}

func checkHook(L *lua.LState, n int) *hookHandle {
	ud := L.CheckUserData(n)
	if h, ok := ud.Value.(*hookHandle); ok {
		return h
	}
	L.ArgError(n, "unicorn hook expected")
	return nil
}

func hookToString(L *lua.LState) int {
	h := checkHook(L, 1)
	L.Push(lua.LString(fmt.Sprintf("unicorn hook(%d, type %#x)", h.id, int(h.typ))))
	return 1
}

// e:hook_add(kind, fn [, begin [, end [, udata]]])
func engineHookAdd(L *lua.LState) int {
	e := checkEngine(L, 1)
	typ := emulator.HookType(L.CheckInt(2))
	fn := L.CheckFunction(3)
	begin := optUint64(L, 4, 1)
	end := optUint64(L, 5, 0)
	udata := L.Get(6)

	id, err := e.HookAdd(typ, callable(typ, fn, udata), begin, end)
	if err != nil {
		raise(L, err)
	}
	ud := L.NewUserData()
	ud.Value = &hookHandle{owner: e, id: id, typ: typ}
	L.SetMetatable(ud, L.GetTypeMetatable(hookMetaName))
	L.Push(ud)
	return 1
}

func engineHookDel(L *lua.LState) int {
	e := checkEngine(L, 1)
	h := checkHook(L, 2)
	if h.owner != e {
		L.ArgError(2, "hook belongs to another engine")
	}
	if err := e.HookDel(h.id); err != nil {
		raise(L, err)
	}
	return 0
}

// callable adapts a Lua function to the engine callback shape for typ.
// Unsupported kinds yield nil and are rejected by the engine.
func callable(typ emulator.HookType, fn *lua.LFunction, udata lua.LValue) any {
	switch {
	case typ.IsCode():
		return engine.CodeFunc(func(e *engine.Engine, addr, size uint64) {
			invoke(e, fn, 0, pushUint64(addr), pushUint64(size), udata)
		})
	case typ == emulator.HOOK_TYPE_INTR:
		return engine.InterruptFunc(func(e *engine.Engine, intno uint64) {
			invoke(e, fn, 0, pushUint64(intno), udata)
		})
	case typ == emulator.HOOK_TYPE_INSN_INVALID:
		return engine.InvalidInsnFunc(func(e *engine.Engine) bool {
			return lua.LVAsBool(invoke(e, fn, 1, udata))
		})
	case typ.IsMemoryValid():
		return engine.MemoryFunc(func(e *engine.Engine, access emulator.MemAccess, addr, size uint64, value int64) {
			invoke(e, fn, 0, lua.LNumber(access), pushUint64(addr), pushUint64(size), lua.LNumber(value), udata)
		})
	case typ.IsMemoryInvalid():
		return engine.InvalidMemoryFunc(func(e *engine.Engine, access emulator.MemAccess, addr, size uint64, value int64) bool {
			return lua.LVAsBool(invoke(e, fn, 1, lua.LNumber(access), pushUint64(addr), pushUint64(size), lua.LNumber(value), udata))
		})
	}
	return nil
}

// invoke calls fn with the engine's userdata first. A Lua error aborts the
// running emulation and resurfaces from emu_start.
func invoke(e *engine.Engine, fn *lua.LFunction, nret int, args ...lua.LValue) lua.LValue {
	h := hostOf(e)
	if h == nil {
		e.Abort(fmt.Errorf("engine %s has no script host", e.Handle()))
		return lua.LNil
	}
	L := h.thread()
	err := L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, append([]lua.LValue{h.ud}, args...)...)
	if err != nil {
		Logger().Debug("hook callback failed", zap.Stringer("handle", e.Handle()), zap.Error(err))
		e.Abort(err)
		return lua.LNil
	}
	if nret == 0 {
		return lua.LNil
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret
}
