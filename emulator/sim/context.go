package sim

import (
	"go.uber.org/atomic"

	"github.com/wnxd/uclua/emulator"
	"github.com/wnxd/uclua/encoding"
)

var liveContexts atomic.Int64

// ContextCount returns the number of contexts allocated by this core and not
// yet freed, across all emulators.
func ContextCount() int64 {
	return liveContexts.Load()
}

type snapshot struct {
	emu   *Emulator
	data  []byte
	freed bool
}

func (emu *Emulator) ContextAlloc() (emulator.Context, error) {
	if emu.closed.Load() {
		return nil, emulator.ERR_HANDLE
	}
	var zero cpuState
	data, err := encoding.Marshal(&zero)
	if err != nil {
		return nil, emulator.ERR_NOMEM
	}
	liveContexts.Inc()
	return &snapshot{emu: emu, data: data}, nil
}

func (ctx *snapshot) Close() error {
	if ctx.freed {
		return emulator.ERR_ARG
	}
	ctx.freed = true
	ctx.data = nil
	liveContexts.Dec()
	return nil
}

func (ctx *snapshot) Save() error {
	if ctx.freed {
		return emulator.ERR_ARG
	} else if ctx.emu.closed.Load() {
		return emulator.ERR_HANDLE
	}
	data, err := encoding.Marshal(&ctx.emu.state)
	if err != nil {
		return emulator.ERR_ARG
	}
	ctx.data = data
	return nil
}

func (ctx *snapshot) Restore() error {
	if ctx.freed {
		return emulator.ERR_ARG
	} else if ctx.emu.closed.Load() {
		return emulator.ERR_HANDLE
	}
	if err := encoding.Unmarshal(ctx.data, &ctx.emu.state); err != nil {
		return emulator.ERR_ARG
	}
	return nil
}

func (ctx *snapshot) RegRead(reg emulator.Reg) (uint64, error) {
	if ctx.freed {
		return 0, emulator.ERR_ARG
	}
	var state cpuState
	if err := encoding.Unmarshal(ctx.data, &state); err != nil {
		return 0, emulator.ERR_ARG
	}
	return state.read(reg)
}

func (ctx *snapshot) Clone() (emulator.Context, error) {
	if ctx.freed {
		return nil, emulator.ERR_ARG
	}
	liveContexts.Inc()
	return &snapshot{emu: ctx.emu, data: append([]byte(nil), ctx.data...)}, nil
}
