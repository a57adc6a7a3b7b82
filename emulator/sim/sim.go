// Package sim is a small pure-Go Emulator Core. It runs a 4-byte register
// machine instruction set and implements the full emulator contract, which
// makes it usable wherever a native core is not available.
package sim

import (
	"math"
	"sync"
	"time"

	"github.com/google/btree"
	"go.uber.org/atomic"

	"github.com/wnxd/uclua/emulator"
)

const (
	PAGE_SIZE = 0x1000

	handleBase   = 0x10000
	handleStride = 0x100
)

type Emulator struct {
	handle   emulator.Handle
	mode     emulator.Mode
	mask     uint64
	wordSize uint64
	state    cpuState
	mem      *btree.BTreeG[*region]
	mapped   uint64
	limit    uint64
	hooks    []*hook
	errno    emulator.Errno
	timedOut bool
	running  atomic.Bool
	stopReq  atomic.Bool
	closed   atomic.Bool
}

type Option func(*Emulator)

// WithMemoryLimit caps the total number of mapped bytes. Zero means no limit.
func WithMemoryLimit(limit uint64) Option {
	return func(emu *Emulator) {
		emu.limit = limit
	}
}

var (
	handleMu   sync.Mutex
	handleUsed = make(map[emulator.Handle]struct{})
)

func init() {
	emulator.Register(emulator.ARCH_SIM, func(mode emulator.Mode) (emulator.Emulator, error) {
		return New(mode)
	})
}

func New(mode emulator.Mode, opts ...Option) (*Emulator, error) {
	emu := new(Emulator)
	switch mode {
	case emulator.MODE_32:
		emu.mask, emu.wordSize = math.MaxUint32, 4
	case emulator.MODE_64:
		emu.mask, emu.wordSize = math.MaxUint64, 8
	default:
		return nil, emulator.ERR_MODE
	}
	emu.mode = mode
	emu.mem = newMemory()
	for _, opt := range opts {
		opt(emu)
	}
	emu.handle = allocHandle()
	return emu, nil
}

// allocHandle hands out the lowest free handle, so values are reused after close.
func allocHandle() emulator.Handle {
	handleMu.Lock()
	defer handleMu.Unlock()
	for h := emulator.Handle(handleBase); ; h += handleStride {
		if _, ok := handleUsed[h]; !ok {
			handleUsed[h] = struct{}{}
			return h
		}
	}
}

func freeHandle(h emulator.Handle) {
	handleMu.Lock()
	delete(handleUsed, h)
	handleMu.Unlock()
}

func (emu *Emulator) Close() error {
	if !emu.closed.CAS(false, true) {
		return emulator.ERR_HANDLE
	}
	emu.stopReq.Store(true)
	for _, h := range emu.hooks {
		h.removed = true
	}
	emu.hooks = nil
	emu.mem.Clear(false)
	emu.mapped = 0
	freeHandle(emu.handle)
	return nil
}

func (emu *Emulator) Handle() emulator.Handle {
	return emu.handle
}

func (emu *Emulator) Arch() emulator.Arch {
	return emulator.ARCH_SIM
}

func (emu *Emulator) Mode() emulator.Mode {
	return emu.mode
}

func (emu *Emulator) ByteOrder() emulator.ByteOrder {
	return emulator.BO_LITTLE_ENDIAN
}

func (emu *Emulator) PageSize() uint64 {
	return PAGE_SIZE
}

func (emu *Emulator) Errno() emulator.Errno {
	return emu.errno
}

func (emu *Emulator) Query(typ emulator.QueryType) (uint64, error) {
	if emu.closed.Load() {
		return 0, emulator.ERR_HANDLE
	}
	switch typ {
	case emulator.QUERY_MODE:
		return uint64(emu.mode), nil
	case emulator.QUERY_PAGE_SIZE:
		return PAGE_SIZE, nil
	case emulator.QUERY_ARCH:
		return uint64(emulator.ARCH_SIM), nil
	case emulator.QUERY_TIMEOUT:
		if emu.timedOut {
			return 1, nil
		}
		return 0, nil
	}
	return 0, emulator.ERR_ARG
}

// Start runs from begin until the PC reaches until, count instructions have
// executed, timeout elapses, a HLT executes or Stop is called.
func (emu *Emulator) Start(begin, until uint64, timeout time.Duration, count uint64) error {
	if emu.closed.Load() {
		return emulator.ERR_HANDLE
	} else if !emu.running.CAS(false, true) {
		return emulator.ERR_ARG
	}
	defer emu.running.Store(false)
	emu.stopReq.Store(false)
	emu.timedOut = false
	emu.setPC(begin)
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	err := emu.run(until&emu.mask, deadline, count)
	if errno, ok := err.(emulator.Errno); ok {
		emu.errno = errno
	} else {
		emu.errno = emulator.ERR_OK
	}
	return err
}

// Stop may be called from a hook or from another goroutine.
func (emu *Emulator) Stop() error {
	if emu.closed.Load() {
		return emulator.ERR_HANDLE
	}
	emu.stopReq.Store(true)
	return nil
}

// HookCount returns the number of hooks currently registered.
func (emu *Emulator) HookCount() int {
	return len(emu.hooks)
}
