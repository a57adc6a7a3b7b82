package sim

import (
	"slices"

	"github.com/wnxd/uclua/emulator"
)

type hook struct {
	emu        *Emulator
	typ        emulator.HookType
	callback   any
	data       any
	begin, end uint64
	removed    bool
}

func (emu *Emulator) Hook(typ emulator.HookType, callback any, data any, begin, end uint64) (emulator.Hook, error) {
	if emu.closed.Load() {
		return nil, emulator.ERR_HANDLE
	}
	var ok bool
	switch {
	case typ.IsCode():
		_, ok = callback.(emulator.CodeCallback)
	case typ == emulator.HOOK_TYPE_INTR:
		_, ok = callback.(emulator.InterruptCallback)
	case typ == emulator.HOOK_TYPE_INSN_INVALID:
		_, ok = callback.(emulator.InvalidInsnCallback)
	case typ.IsMemoryValid():
		_, ok = callback.(emulator.MemoryCallback)
	case typ.IsMemoryInvalid():
		_, ok = callback.(emulator.InvalidMemoryCallback)
	default:
		return nil, emulator.ERR_HOOK
	}
	if !ok {
		return nil, emulator.ERR_ARG
	}
	h := &hook{emu: emu, typ: typ, callback: callback, data: data, begin: begin, end: end}
	emu.hooks = append(emu.hooks, h)
	return h, nil
}

func (h *hook) Close() error {
	if h.removed {
		return nil
	}
	h.removed = true
	h.emu.hooks = slices.DeleteFunc(h.emu.hooks, func(o *hook) bool {
		return o == h
	})
	return nil
}

func (h *hook) Type() emulator.HookType {
	return h.typ
}

// covers reports whether the hook range includes addr. A range with
// begin > end covers everything.
func (h *hook) covers(addr uint64) bool {
	if h.begin > h.end {
		return true
	}
	return addr >= h.begin && addr <= h.end
}

// matching snapshots the hooks selected by typ so callbacks may add or
// remove hooks while being dispatched.
func (emu *Emulator) matching(typ emulator.HookType, addr uint64) []*hook {
	var list []*hook
	for _, h := range emu.hooks {
		if h.typ&typ != 0 && h.covers(addr) {
			list = append(list, h)
		}
	}
	return list
}

func (emu *Emulator) live(h *hook) bool {
	return !h.removed && !emu.closed.Load()
}

func (emu *Emulator) fireCode(typ emulator.HookType, addr, size uint64) {
	for _, h := range emu.matching(typ, addr) {
		if emu.live(h) {
			h.callback.(emulator.CodeCallback)(emu.handle, addr, size, h.data)
		}
	}
}

func (emu *Emulator) fireMemory(typ emulator.HookType, access emulator.MemAccess, addr, size uint64, value int64) {
	for _, h := range emu.matching(typ, addr) {
		if emu.live(h) {
			h.callback.(emulator.MemoryCallback)(emu.handle, access, addr, size, value, h.data)
		}
	}
}

// fireInvalidMemory reports whether any handler asked to retry the access.
func (emu *Emulator) fireInvalidMemory(typ emulator.HookType, access emulator.MemAccess, addr, size uint64, value int64) bool {
	var handled bool
	for _, h := range emu.matching(typ, addr) {
		if emu.live(h) && h.callback.(emulator.InvalidMemoryCallback)(emu.handle, access, addr, size, value, h.data) {
			handled = true
		}
	}
	return handled
}

// fireInterrupt reports whether any handler saw the interrupt.
func (emu *Emulator) fireInterrupt(pc, intno uint64) bool {
	var handled bool
	for _, h := range emu.matching(emulator.HOOK_TYPE_INTR, pc) {
		if emu.live(h) {
			h.callback.(emulator.InterruptCallback)(emu.handle, intno, h.data)
			handled = true
		}
	}
	return handled
}

func (emu *Emulator) fireInvalidInsn(pc uint64) bool {
	var handled bool
	for _, h := range emu.matching(emulator.HOOK_TYPE_INSN_INVALID, pc) {
		if emu.live(h) && h.callback.(emulator.InvalidInsnCallback)(emu.handle, h.data) {
			handled = true
		}
	}
	return handled
}
