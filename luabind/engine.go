package luabind

import (
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/wnxd/uclua/emulator"
	"github.com/wnxd/uclua/engine"
)

const (
	engineMetaName  = "unicornlua__engine_meta"
	contextMetaName = "unicornlua__context_meta"
	hookMetaName    = "unicornlua__hook_meta"
)

var engineMethods = map[string]lua.LGFunction{
	"close":           engineClose,
	"context_save":    engineContextSave,
	"context_restore": engineContextRestore,
	"emu_start":       engineEmuStart,
	"emu_stop":        engineEmuStop,
	"errno":           engineErrno,
	"query":           engineQuery,
	"hook_add":        engineHookAdd,
	"hook_del":        engineHookDel,
	"mem_map":         engineMemMap,
	"mem_protect":     engineMemProtect,
	"mem_read":        engineMemRead,
	"mem_regions":     engineMemRegions,
	"mem_unmap":       engineMemUnmap,
	"mem_write":       engineMemWrite,
	"reg_read":        engineRegRead,
	"reg_read_batch":  engineRegReadBatch,
	"reg_write":       engineRegWrite,
	"reg_write_batch": engineRegWriteBatch,
}

func registerMetatables(L *lua.LState) {
	if _, ok := L.GetTypeMetatable(engineMetaName).(*lua.LTable); ok {
		return
	}
	mt := L.NewTypeMetatable(engineMetaName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), engineMethods))
	L.SetField(mt, "__tostring", L.NewFunction(engineToString))

	mt = L.NewTypeMetatable(contextMetaName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), contextMethods))
	L.SetField(mt, "__tostring", L.NewFunction(contextToString))

	mt = L.NewTypeMetatable(hookMetaName)
	L.SetField(mt, "__tostring", L.NewFunction(hookToString))
}

// scriptHost is the engine's host object. Hook callbacks receive ud, the
// very value the script holds, and run on the thread driving emu_start.
type scriptHost struct {
	ud      *lua.LUserData
	main    *lua.LState
	running *lua.LState
}

// thread returns the state hook callbacks must run on. Outside emu_start it
// falls back to the main thread, which outlives every coroutine.
func (h *scriptHost) thread() *lua.LState {
	if h.running != nil {
		return h.running
	}
	return h.main
}

func newEngineUserData(L *lua.LState, e *engine.Engine) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = e
	L.SetMetatable(ud, L.GetTypeMetatable(engineMetaName))
	e.SetHost(&scriptHost{ud: ud, main: L.G.MainThread})
	return ud
}

func hostOf(e *engine.Engine) *scriptHost {
	h, _ := e.Host().(*scriptHost)
	return h
}

func checkEngine(L *lua.LState, n int) *engine.Engine {
	ud := L.CheckUserData(n)
	if e, ok := ud.Value.(*engine.Engine); ok {
		return e
	}
	L.ArgError(n, "unicorn engine expected")
	return nil
}

func engineToString(L *lua.LState) int {
	e := checkEngine(L, 1)
	state := "open"
	if e.Closed() {
		state = "closed"
	}
	L.Push(lua.LString(fmt.Sprintf("unicorn engine(%s, %s, %s)", e.Arch(), e.Handle(), state)))
	return 1
}

func engineClose(L *lua.LState) int {
	if err := checkEngine(L, 1).Close(); err != nil {
		raise(L, err)
	}
	return 0
}

func engineEmuStart(L *lua.LState) int {
	e := checkEngine(L, 1)
	begin := checkUint64(L, 2)
	until := checkUint64(L, 3)
	timeout := time.Duration(optUint64(L, 4, 0)) * time.Microsecond
	count := optUint64(L, 5, 0)
	if h := hostOf(e); h != nil {
		prev := h.running
		h.running = L
		defer func() { h.running = prev }()
	}
	if err := e.EmuStart(begin, until, timeout, count); err != nil {
		raise(L, err)
	}
	return 0
}

func engineEmuStop(L *lua.LState) int {
	if err := checkEngine(L, 1).EmuStop(); err != nil {
		raise(L, err)
	}
	return 0
}

func engineErrno(L *lua.LState) int {
	errno, err := checkEngine(L, 1).Errno()
	if err != nil {
		raise(L, err)
	}
	L.Push(lua.LNumber(errno))
	return 1
}

// engineQuery reads the query type from argument 2, the first argument after
// the engine itself.
func engineQuery(L *lua.LState) int {
	e := checkEngine(L, 1)
	typ := emulator.QueryType(L.CheckInt(2))
	val, err := e.Query(typ)
	if err != nil {
		raise(L, err)
	}
	L.Push(pushUint64(val))
	return 1
}

func engineMemMap(L *lua.LState) int {
	e := checkEngine(L, 1)
	addr := checkUint64(L, 2)
	size := checkUint64(L, 3)
	prot := emulator.MemProt(L.OptInt(4, int(emulator.MEM_PROT_ALL)))
	if err := e.MemMap(addr, size, prot); err != nil {
		raise(L, err)
	}
	return 0
}

func engineMemProtect(L *lua.LState) int {
	e := checkEngine(L, 1)
	addr := checkUint64(L, 2)
	size := checkUint64(L, 3)
	prot := emulator.MemProt(L.CheckInt(4))
	if err := e.MemProtect(addr, size, prot); err != nil {
		raise(L, err)
	}
	return 0
}

func engineMemUnmap(L *lua.LState) int {
	e := checkEngine(L, 1)
	addr := checkUint64(L, 2)
	size := checkUint64(L, 3)
	if err := e.MemUnmap(addr, size); err != nil {
		raise(L, err)
	}
	return 0
}

func engineMemRead(L *lua.LState) int {
	e := checkEngine(L, 1)
	addr := checkUint64(L, 2)
	size := checkUint64(L, 3)
	data, err := e.MemRead(addr, size)
	if err != nil {
		raise(L, err)
	}
	L.Push(lua.LString(data))
	return 1
}

func engineMemWrite(L *lua.LState) int {
	e := checkEngine(L, 1)
	addr := checkUint64(L, 2)
	data := L.CheckString(3)
	if err := e.MemWrite(addr, []byte(data)); err != nil {
		raise(L, err)
	}
	return 0
}

func engineMemRegions(L *lua.LState) int {
	regions, err := checkEngine(L, 1).MemRegions()
	if err != nil {
		raise(L, err)
	}
	tbl := L.CreateTable(len(regions), 0)
	for _, r := range regions {
		entry := L.CreateTable(0, 3)
		entry.RawSetString("begins", pushUint64(r.Addr))
		entry.RawSetString("ends", pushUint64(r.End()))
		entry.RawSetString("perms", lua.LNumber(r.Prot))
		tbl.Append(entry)
	}
	L.Push(tbl)
	return 1
}

func engineRegRead(L *lua.LState) int {
	e := checkEngine(L, 1)
	val, err := e.RegRead(emulator.Reg(L.CheckInt(2)))
	if err != nil {
		raise(L, err)
	}
	L.Push(pushUint64(val))
	return 1
}

func engineRegWrite(L *lua.LState) int {
	e := checkEngine(L, 1)
	reg := emulator.Reg(L.CheckInt(2))
	val := checkUint64(L, 3)
	if err := e.RegWrite(reg, val); err != nil {
		raise(L, err)
	}
	return 0
}

func engineRegReadBatch(L *lua.LState) int {
	e := checkEngine(L, 1)
	regs := make([]emulator.Reg, 0, L.GetTop()-1)
	for n := 2; n <= L.GetTop(); n++ {
		regs = append(regs, emulator.Reg(L.CheckInt(n)))
	}
	vals, err := e.RegReadBatch(regs...)
	if err != nil {
		raise(L, err)
	}
	for _, v := range vals {
		L.Push(pushUint64(v))
	}
	return len(vals)
}

func engineRegWriteBatch(L *lua.LState) int {
	e := checkEngine(L, 1)
	tbl := L.CheckTable(2)
	var (
		regs []emulator.Reg
		vals []uint64
	)
	tbl.ForEach(func(k, v lua.LValue) {
		reg, ok := k.(lua.LNumber)
		if !ok {
			L.ArgError(2, "register ids must be numbers")
		}
		val, ok := v.(lua.LNumber)
		if !ok {
			L.ArgError(2, "register values must be numbers")
		}
		regs = append(regs, emulator.Reg(reg))
		if val < 0 {
			vals = append(vals, uint64(int64(val)))
		} else {
			vals = append(vals, uint64(val))
		}
	})
	if err := e.RegWriteBatch(regs, vals); err != nil {
		raise(L, err)
	}
	return 0
}
