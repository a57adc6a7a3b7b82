package luabind

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/wnxd/uclua/emulator"
	"github.com/wnxd/uclua/engine"
)

var contextMethods = map[string]lua.LGFunction{
	"reg_read": contextRegRead,
	"clone":    contextClone,
}

func newContextUserData(L *lua.LState, ctx *engine.Context) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = ctx
	L.SetMetatable(ud, L.GetTypeMetatable(contextMetaName))
	return ud
}

func checkContext(L *lua.LState, n int) *engine.Context {
	ud := L.CheckUserData(n)
	if ctx, ok := ud.Value.(*engine.Context); ok {
		return ctx
	}
	L.ArgError(n, "unicorn context expected")
	return nil
}

func contextToString(L *lua.LState) int {
	L.Push(lua.LString(checkContext(L, 1).String()))
	return 1
}

func contextRegRead(L *lua.LState) int {
	ctx := checkContext(L, 1)
	val, err := ctx.RegRead(emulator.Reg(L.CheckInt(2)))
	if err != nil {
		raise(L, err)
	}
	L.Push(pushUint64(val))
	return 1
}

func contextClone(L *lua.LState) int {
	clone, err := checkContext(L, 1).Clone()
	if err != nil {
		raise(L, err)
	}
	L.Push(newContextUserData(L, clone))
	return 1
}

// engineContextSave returns the target userdata itself when one is given.
func engineContextSave(L *lua.LState) int {
	e := checkEngine(L, 1)
	if L.Get(2) == lua.LNil {
		ctx, err := e.ContextSave(nil)
		if err != nil {
			raise(L, err)
		}
		L.Push(newContextUserData(L, ctx))
		return 1
	}
	target := checkContext(L, 2)
	if _, err := e.ContextSave(target); err != nil {
		raise(L, err)
	}
	L.Push(L.Get(2))
	return 1
}

func engineContextRestore(L *lua.LState) int {
	e := checkEngine(L, 1)
	ctx := checkContext(L, 2)
	if err := e.ContextRestore(ctx); err != nil {
		raise(L, err)
	}
	return 0
}
