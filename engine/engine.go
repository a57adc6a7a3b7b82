// Package engine pairs an Emulator Core instance with the state a script host
// keeps for it: hooks, saved contexts and a handle registry that lets raw
// core callbacks find their way back to the owning engine.
package engine

import (
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/wnxd/uclua/emulator"
)

type HookID uint64

type Engine struct {
	st      *engineState
	hooks   map[HookID]*hookRecord
	nextID  HookID
	host    any
	cleanup runtime.Cleanup
}

// engineState is everything teardown needs. It must never reference the
// Engine, otherwise the Engine could not be collected.
type engineState struct {
	emu     emulator.Emulator
	handle  emulator.Handle
	arch    emulator.Arch
	mode    emulator.Mode
	reg     *Registry
	native  map[HookID]emulator.Hook
	closing bool
	abort   error
}

// Open creates a core for arch and mode and wraps it. A nil reg selects
// DefaultRegistry.
func Open(reg *Registry, arch emulator.Arch, mode emulator.Mode) (*Engine, error) {
	emu, err := emulator.Open(arch, mode)
	if err != nil {
		return nil, coreError("open", err)
	}
	return New(reg, emu), nil
}

// New takes ownership of emu. The engine closes it on Close or once the
// engine becomes unreachable.
func New(reg *Registry, emu emulator.Emulator) *Engine {
	if reg == nil {
		reg = DefaultRegistry()
	}
	st := &engineState{
		emu:    emu,
		handle: emu.Handle(),
		arch:   emu.Arch(),
		mode:   emu.Mode(),
		reg:    reg,
		native: make(map[HookID]emulator.Hook),
	}
	e := &Engine{st: st, hooks: make(map[HookID]*hookRecord)}
	reg.Register(st.handle, e)
	e.cleanup = runtime.AddCleanup(e, finalize, st)
	Logger().Debug("engine opened", zap.Stringer("handle", st.handle), zap.Stringer("arch", st.arch))
	return e
}

func finalize(st *engineState) {
	if st.emu == nil {
		return
	}
	Logger().Warn("closing unreachable engine", zap.Stringer("handle", st.handle))
	if err := st.teardown(); err != nil {
		Logger().Error("finalize engine", zap.Stringer("handle", st.handle), zap.Error(err))
	}
}

func (e *Engine) live() (emulator.Emulator, error) {
	if e.st.emu == nil || e.st.closing {
		return nil, ErrUseAfterClose
	}
	return e.st.emu, nil
}

// Close is idempotent. On error the engine is closed anyway.
func (e *Engine) Close() error {
	defer runtime.KeepAlive(e)
	if e.st.emu == nil || e.st.closing {
		return nil
	}
	e.cleanup.Stop()
	err := e.st.teardown()
	e.hooks = nil
	Logger().Debug("engine closed", zap.Stringer("handle", e.st.handle), zap.Error(err))
	return err
}

func (e *Engine) Closed() bool {
	return e.st.emu == nil
}

// Handle returns the raw core handle. It stays valid as an identifier after
// close but may have been reused by then.
func (e *Engine) Handle() emulator.Handle {
	return e.st.handle
}

func (e *Engine) Arch() emulator.Arch {
	return e.st.arch
}

func (e *Engine) Mode() emulator.Mode {
	return e.st.mode
}

func (e *Engine) Registry() *Registry {
	return e.st.reg
}

// Host returns the script-side object previously attached with SetHost.
func (e *Engine) Host() any {
	return e.host
}

func (e *Engine) SetHost(host any) {
	e.host = host
}

func (e *Engine) HookCount() int {
	return len(e.hooks)
}

// Abort stops a running emulation and makes EmuStart return err. Only the
// first abort of a run is kept.
func (e *Engine) Abort(err error) {
	e.st.abortWith(err)
}

func (st *engineState) abortWith(err error) {
	if st.abort == nil {
		st.abort = err
	}
	if st.emu != nil && !st.closing {
		st.emu.Stop()
	}
}

func (e *Engine) EmuStart(begin, until uint64, timeout time.Duration, count uint64) error {
	defer runtime.KeepAlive(e)
	emu, err := e.live()
	if err != nil {
		return err
	}
	e.st.abort = nil
	err = emu.Start(begin, until, timeout, count)
	if abort := e.st.abort; abort != nil {
		e.st.abort = nil
		return abort
	}
	return coreError("emu_start", err)
}

func (e *Engine) EmuStop() error {
	defer runtime.KeepAlive(e)
	emu, err := e.live()
	if err != nil {
		return err
	}
	return coreError("emu_stop", emu.Stop())
}

func (e *Engine) Errno() (emulator.Errno, error) {
	defer runtime.KeepAlive(e)
	emu, err := e.live()
	if err != nil {
		return emulator.ERR_OK, err
	}
	return emu.Errno(), nil
}

func (e *Engine) Query(typ emulator.QueryType) (uint64, error) {
	defer runtime.KeepAlive(e)
	emu, err := e.live()
	if err != nil {
		return 0, err
	}
	val, err := emu.Query(typ)
	if err != nil {
		return 0, coreError("query", err)
	}
	return val, nil
}

func (e *Engine) MemMap(addr, size uint64, prot emulator.MemProt) error {
	defer runtime.KeepAlive(e)
	emu, err := e.live()
	if err != nil {
		return err
	}
	return coreError("mem_map", emu.MemMap(addr, size, prot))
}

func (e *Engine) MemUnmap(addr, size uint64) error {
	defer runtime.KeepAlive(e)
	emu, err := e.live()
	if err != nil {
		return err
	}
	return coreError("mem_unmap", emu.MemUnmap(addr, size))
}

func (e *Engine) MemProtect(addr, size uint64, prot emulator.MemProt) error {
	defer runtime.KeepAlive(e)
	emu, err := e.live()
	if err != nil {
		return err
	}
	return coreError("mem_protect", emu.MemProtect(addr, size, prot))
}

func (e *Engine) MemRegions() ([]emulator.MemRegion, error) {
	defer runtime.KeepAlive(e)
	emu, err := e.live()
	if err != nil {
		return nil, err
	}
	regions, err := emu.MemRegions()
	if err != nil {
		return nil, coreError("mem_regions", err)
	}
	return regions, nil
}

func (e *Engine) MemRead(addr, size uint64) ([]byte, error) {
	defer runtime.KeepAlive(e)
	emu, err := e.live()
	if err != nil {
		return nil, err
	}
	data, err := emu.MemRead(addr, size)
	if err != nil {
		return nil, coreError("mem_read", err)
	}
	return data, nil
}

func (e *Engine) MemWrite(addr uint64, data []byte) error {
	defer runtime.KeepAlive(e)
	emu, err := e.live()
	if err != nil {
		return err
	}
	return coreError("mem_write", emu.MemWrite(addr, data))
}

func (e *Engine) RegRead(reg emulator.Reg) (uint64, error) {
	defer runtime.KeepAlive(e)
	emu, err := e.live()
	if err != nil {
		return 0, err
	}
	val, err := emu.RegRead(reg)
	if err != nil {
		return 0, coreError("reg_read", err)
	}
	return val, nil
}

func (e *Engine) RegWrite(reg emulator.Reg, value uint64) error {
	defer runtime.KeepAlive(e)
	emu, err := e.live()
	if err != nil {
		return err
	}
	return coreError("reg_write", emu.RegWrite(reg, value))
}

func (e *Engine) RegReadBatch(regs ...emulator.Reg) ([]uint64, error) {
	defer runtime.KeepAlive(e)
	emu, err := e.live()
	if err != nil {
		return nil, err
	}
	vals, err := emu.RegReadBatch(regs...)
	if err != nil {
		return nil, coreError("reg_read_batch", err)
	}
	return vals, nil
}

func (e *Engine) RegWriteBatch(regs []emulator.Reg, vals []uint64) error {
	defer runtime.KeepAlive(e)
	emu, err := e.live()
	if err != nil {
		return err
	}
	if len(regs) != len(vals) {
		return ErrArgument
	}
	return coreError("reg_write_batch", emu.RegWriteBatch(regs, vals))
}
