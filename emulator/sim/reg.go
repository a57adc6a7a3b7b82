package sim

import "github.com/wnxd/uclua/emulator"

const (
	SIM_REG_INVALID emulator.Reg = iota
	SIM_REG_R0
	SIM_REG_R1
	SIM_REG_R2
	SIM_REG_R3
	SIM_REG_R4
	SIM_REG_R5
	SIM_REG_R6
	SIM_REG_R7
	SIM_REG_SP
	SIM_REG_PC
	SIM_REG_FLAGS
	SIM_REG_ENDING
)

const numRegs = int(SIM_REG_ENDING) - 1

const FLAG_ZERO = 1 << 0

// cpuState is the register file. Its byte image is what contexts store.
type cpuState struct {
	Regs [numRegs]uint64
}

// RegNames maps the script-visible constant name of every register.
func RegNames() map[string]emulator.Reg {
	return map[string]emulator.Reg{
		"UC_SIM_REG_INVALID": SIM_REG_INVALID,
		"UC_SIM_REG_R0":      SIM_REG_R0,
		"UC_SIM_REG_R1":      SIM_REG_R1,
		"UC_SIM_REG_R2":      SIM_REG_R2,
		"UC_SIM_REG_R3":      SIM_REG_R3,
		"UC_SIM_REG_R4":      SIM_REG_R4,
		"UC_SIM_REG_R5":      SIM_REG_R5,
		"UC_SIM_REG_R6":      SIM_REG_R6,
		"UC_SIM_REG_R7":      SIM_REG_R7,
		"UC_SIM_REG_SP":      SIM_REG_SP,
		"UC_SIM_REG_PC":      SIM_REG_PC,
		"UC_SIM_REG_FLAGS":   SIM_REG_FLAGS,
		"UC_SIM_REG_ENDING":  SIM_REG_ENDING,
	}
}

func (s *cpuState) read(reg emulator.Reg) (uint64, error) {
	if reg <= SIM_REG_INVALID || reg >= SIM_REG_ENDING {
		return 0, emulator.ERR_ARG
	}
	return s.Regs[reg-1], nil
}

func (s *cpuState) write(reg emulator.Reg, value, mask uint64) error {
	if reg <= SIM_REG_INVALID || reg >= SIM_REG_ENDING {
		return emulator.ERR_ARG
	}
	s.Regs[reg-1] = value & mask
	return nil
}

func (emu *Emulator) RegRead(reg emulator.Reg) (uint64, error) {
	if emu.closed.Load() {
		return 0, emulator.ERR_HANDLE
	}
	return emu.state.read(reg)
}

func (emu *Emulator) RegWrite(reg emulator.Reg, value uint64) error {
	if emu.closed.Load() {
		return emulator.ERR_HANDLE
	}
	return emu.state.write(reg, value, emu.mask)
}

func (emu *Emulator) RegReadBatch(regs ...emulator.Reg) ([]uint64, error) {
	if emu.closed.Load() {
		return nil, emulator.ERR_HANDLE
	}
	vals := make([]uint64, len(regs))
	for i, reg := range regs {
		v, err := emu.state.read(reg)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func (emu *Emulator) RegWriteBatch(regs []emulator.Reg, vals []uint64) error {
	if emu.closed.Load() {
		return emulator.ERR_HANDLE
	} else if len(regs) != len(vals) {
		return emulator.ERR_ARG
	}
	for i, reg := range regs {
		if reg <= SIM_REG_INVALID || reg >= SIM_REG_ENDING {
			return emulator.ERR_ARG
		}
		emu.state.Regs[reg-1] = vals[i] & emu.mask
	}
	return nil
}

func (emu *Emulator) pc() uint64 {
	return emu.state.Regs[SIM_REG_PC-1]
}

func (emu *Emulator) setPC(pc uint64) {
	emu.state.Regs[SIM_REG_PC-1] = pc & emu.mask
}

// operand maps an instruction register field to the register file index.
func operand(field byte) (int, bool) {
	if field > 8 {
		return 0, false
	}
	return int(field), true
}
