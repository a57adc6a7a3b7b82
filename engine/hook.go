package engine

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/wnxd/uclua/emulator"
)

type (
	CodeFunc          = func(e *Engine, addr, size uint64)
	MemoryFunc        = func(e *Engine, access emulator.MemAccess, addr, size uint64, value int64)
	InvalidMemoryFunc = func(e *Engine, access emulator.MemAccess, addr, size uint64, value int64) bool
	InterruptFunc     = func(e *Engine, intno uint64)
	InvalidInsnFunc   = func(e *Engine) bool
)

type hookRecord struct {
	id     HookID
	typ    emulator.HookType
	begin  uint64
	end    uint64
	fn     any
	native emulator.Hook
}

// HookAdd registers fn for events of typ within [begin, end]. begin > end
// covers every address. fn must be the callable type matching typ.
func (e *Engine) HookAdd(typ emulator.HookType, fn any, begin, end uint64) (HookID, error) {
	defer runtime.KeepAlive(e)
	emu, err := e.live()
	if err != nil {
		return 0, err
	}
	id := e.nextID + 1
	callback, err := trampoline(e.st.reg, typ, fn, id)
	if err != nil {
		return 0, err
	}
	native, err := emu.Hook(typ, callback, e.st, begin, end)
	if err != nil {
		return 0, coreError("hook_add", err)
	}
	e.nextID = id
	e.hooks[id] = &hookRecord{id: id, typ: typ, begin: begin, end: end, fn: fn, native: native}
	e.st.native[id] = native
	Logger().Debug("hook added", zap.Stringer("handle", e.st.handle), zap.Uint64("id", uint64(id)), zap.Uint64("type", uint64(typ)))
	return id, nil
}

func (e *Engine) HookDel(id HookID) error {
	defer runtime.KeepAlive(e)
	if _, err := e.live(); err != nil {
		return err
	}
	rec, ok := e.hooks[id]
	if !ok {
		return ErrHookNotFound
	}
	delete(e.hooks, id)
	delete(e.st.native, id)
	if err := rec.native.Close(); err != nil {
		return coreError("hook_del", err)
	}
	Logger().Debug("hook deleted", zap.Stringer("handle", e.st.handle), zap.Uint64("id", uint64(id)))
	return nil
}

// resolve maps a raw callback back to its engine and hook record. On lookup
// failure the run is aborted with the lookup error.
func resolve(reg *Registry, h emulator.Handle, data any, id HookID) (*Engine, *hookRecord) {
	e, err := reg.Lookup(h)
	if err != nil {
		Logger().Error("callback for unknown engine", zap.Stringer("handle", h), zap.Uint64("hook", uint64(id)))
		if st, ok := data.(*engineState); ok {
			st.abortWith(err)
		}
		return nil, nil
	}
	rec, ok := e.hooks[id]
	if !ok {
		return nil, nil
	}
	return e, rec
}

// trampoline builds the raw core callback for a hook. It captures only the
// registry and the id; the callable itself stays in the engine's hook table.
func trampoline(reg *Registry, typ emulator.HookType, fn any, id HookID) (any, error) {
	switch {
	case typ.IsCode():
		if _, ok := fn.(CodeFunc); !ok {
			return nil, ErrHookCallbackType
		}
		return emulator.CodeCallback(func(h emulator.Handle, addr, size uint64, data any) {
			if e, rec := resolve(reg, h, data, id); rec != nil {
				rec.fn.(CodeFunc)(e, addr, size)
			}
		}), nil
	case typ == emulator.HOOK_TYPE_INTR:
		if _, ok := fn.(InterruptFunc); !ok {
			return nil, ErrHookCallbackType
		}
		return emulator.InterruptCallback(func(h emulator.Handle, intno uint64, data any) {
			if e, rec := resolve(reg, h, data, id); rec != nil {
				rec.fn.(InterruptFunc)(e, intno)
			}
		}), nil
	case typ == emulator.HOOK_TYPE_INSN_INVALID:
		if _, ok := fn.(InvalidInsnFunc); !ok {
			return nil, ErrHookCallbackType
		}
		return emulator.InvalidInsnCallback(func(h emulator.Handle, data any) bool {
			if e, rec := resolve(reg, h, data, id); rec != nil {
				return rec.fn.(InvalidInsnFunc)(e)
			}
			return false
		}), nil
	case typ.IsMemoryValid():
		if _, ok := fn.(MemoryFunc); !ok {
			return nil, ErrHookCallbackType
		}
		return emulator.MemoryCallback(func(h emulator.Handle, access emulator.MemAccess, addr, size uint64, value int64, data any) {
			if e, rec := resolve(reg, h, data, id); rec != nil {
				rec.fn.(MemoryFunc)(e, access, addr, size, value)
			}
		}), nil
	case typ.IsMemoryInvalid():
		if _, ok := fn.(InvalidMemoryFunc); !ok {
			return nil, ErrHookCallbackType
		}
		return emulator.InvalidMemoryCallback(func(h emulator.Handle, access emulator.MemAccess, addr, size uint64, value int64, data any) bool {
			if e, rec := resolve(reg, h, data, id); rec != nil {
				return rec.fn.(InvalidMemoryFunc)(e, access, addr, size, value)
			}
			return false
		}), nil
	}
	return nil, coreError("hook_add", emulator.ERR_HOOK)
}
