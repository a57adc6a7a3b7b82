package sim

import (
	"encoding/binary"

	"github.com/wnxd/uclua/emulator"
)

// Assembler builds programs for the simulated CPU.
//
//	code := new(sim.Assembler).Movi(sim.SIM_REG_R0, 3).Addi(sim.SIM_REG_R0, -1).Jnz(sim.SIM_REG_R0, -8).Hlt().Bytes()
//
// Branch offsets are relative to the instruction after the branch.
type Assembler struct {
	buf []byte
}

func field(reg emulator.Reg) byte {
	switch {
	case reg >= SIM_REG_R0 && reg <= SIM_REG_R7:
		return byte(reg - SIM_REG_R0)
	case reg == SIM_REG_SP:
		return 8
	}
	return 0xFF
}

func (a *Assembler) emit(op, b1, b2, b3 byte) *Assembler {
	a.buf = append(a.buf, op, b1, b2, b3)
	return a
}

func (a *Assembler) emitImm(op, b1 byte, imm uint16) *Assembler {
	a.buf = append(a.buf, op, b1)
	a.buf = binary.LittleEndian.AppendUint16(a.buf, imm)
	return a
}

func (a *Assembler) Nop() *Assembler {
	return a.emit(OP_NOP, 0, 0, 0)
}

func (a *Assembler) Movi(rd emulator.Reg, imm uint16) *Assembler {
	return a.emitImm(OP_MOVI, field(rd), imm)
}

func (a *Assembler) Mov(rd, rs emulator.Reg) *Assembler {
	return a.emit(OP_MOV, field(rd), field(rs), 0)
}

func (a *Assembler) Add(rd, rs emulator.Reg) *Assembler {
	return a.emit(OP_ADD, field(rd), field(rs), 0)
}

func (a *Assembler) Sub(rd, rs emulator.Reg) *Assembler {
	return a.emit(OP_SUB, field(rd), field(rs), 0)
}

func (a *Assembler) Addi(rd emulator.Reg, imm int16) *Assembler {
	return a.emitImm(OP_ADDI, field(rd), uint16(imm))
}

// Ldr loads a word from the address held in rs.
func (a *Assembler) Ldr(rd, rs emulator.Reg) *Assembler {
	return a.emit(OP_LDR, field(rd), field(rs), 0)
}

// Str stores rs to the address held in rd.
func (a *Assembler) Str(rd, rs emulator.Reg) *Assembler {
	return a.emit(OP_STR, field(rd), field(rs), 0)
}

func (a *Assembler) Jmp(off int16) *Assembler {
	return a.emitImm(OP_JMP, 0, uint16(off))
}

func (a *Assembler) Jnz(rd emulator.Reg, off int16) *Assembler {
	return a.emitImm(OP_JNZ, field(rd), uint16(off))
}

func (a *Assembler) Int(intno uint8) *Assembler {
	return a.emit(OP_INT, intno, 0, 0)
}

func (a *Assembler) Hlt() *Assembler {
	return a.emit(OP_HLT, 0, 0, 0)
}

func (a *Assembler) Raw(b ...byte) *Assembler {
	a.buf = append(a.buf, b...)
	return a
}

func (a *Assembler) Len() uint64 {
	return uint64(len(a.buf))
}

func (a *Assembler) Bytes() []byte {
	return a.buf
}
