package sim

import (
	"encoding/binary"
	"time"

	"github.com/wnxd/uclua/emulator"
)

const (
	OP_NOP byte = iota
	OP_MOVI
	OP_MOV
	OP_ADD
	OP_SUB
	OP_ADDI
	OP_LDR
	OP_STR
	OP_JMP
	OP_JNZ
	OP_INT
	OP_HLT
)

const (
	INSN_SIZE     = 4
	maxBlockInsns = 256
)

type accessKind int

const (
	accessRead accessKind = iota
	accessWrite
	accessFetch
)

var accessTable = [...]struct {
	need                   emulator.MemProt
	unmapped, prot         emulator.MemAccess
	unmappedHook, protHook emulator.HookType
	unmappedErr, protErr   emulator.Errno
}{
	accessRead: {
		emulator.MEM_PROT_READ,
		emulator.MEM_READ_UNMAPPED, emulator.MEM_READ_PROT,
		emulator.HOOK_TYPE_MEM_READ_UNMAPPED, emulator.HOOK_TYPE_MEM_READ_PROT,
		emulator.ERR_READ_UNMAPPED, emulator.ERR_READ_PROT,
	},
	accessWrite: {
		emulator.MEM_PROT_WRITE,
		emulator.MEM_WRITE_UNMAPPED, emulator.MEM_WRITE_PROT,
		emulator.HOOK_TYPE_MEM_WRITE_UNMAPPED, emulator.HOOK_TYPE_MEM_WRITE_PROT,
		emulator.ERR_WRITE_UNMAPPED, emulator.ERR_WRITE_PROT,
	},
	accessFetch: {
		emulator.MEM_PROT_EXEC,
		emulator.MEM_FETCH_UNMAPPED, emulator.MEM_FETCH_PROT,
		emulator.HOOK_TYPE_MEM_FETCH_UNMAPPED, emulator.HOOK_TYPE_MEM_FETCH_PROT,
		emulator.ERR_FETCH_UNMAPPED, emulator.ERR_FETCH_PROT,
	},
}

func (emu *Emulator) run(until uint64, deadline time.Time, count uint64) error {
	newBlock := true
	for n := uint64(0); ; n++ {
		if emu.stopReq.Load() || emu.closed.Load() {
			return nil
		}
		pc := emu.pc()
		if pc == until || (count != 0 && n >= count) {
			return nil
		} else if !deadline.IsZero() && time.Now().After(deadline) {
			emu.timedOut = true
			return nil
		}
		insn, err := emu.fetch(pc)
		if err != nil {
			return err
		}
		if newBlock {
			emu.fireCode(emulator.HOOK_TYPE_BLOCK, pc, emu.blockSize(pc))
			newBlock = false
		}
		emu.fireCode(emulator.HOOK_TYPE_CODE, pc, INSN_SIZE)
		if emu.stopReq.Load() || emu.closed.Load() {
			return nil
		} else if emu.pc() != pc {
			newBlock = true
			continue
		}
		branch, halt, err := emu.exec(pc, insn)
		if err != nil || halt {
			return err
		}
		newBlock = branch
	}
}

// check validates an access made by a running program, giving invalid-memory
// hooks one chance to repair it.
func (emu *Emulator) check(kind accessKind, addr, size uint64, value int64) error {
	info := &accessTable[kind]
	for retry := false; ; retry = true {
		mapped, allowed := emu.probe(addr, size, info.need)
		if mapped && allowed {
			return nil
		}
		access, typ, errno := info.unmapped, info.unmappedHook, info.unmappedErr
		if mapped {
			access, typ, errno = info.prot, info.protHook, info.protErr
		}
		if retry || !emu.fireInvalidMemory(typ, access, addr, size, value) {
			return errno
		}
	}
}

func (emu *Emulator) fetch(pc uint64) (insn [INSN_SIZE]byte, err error) {
	if err = emu.check(accessFetch, pc, INSN_SIZE, 0); err != nil {
		return
	}
	emu.copyMem(pc, insn[:], false)
	return
}

func (emu *Emulator) load(addr uint64) (uint64, error) {
	size := emu.wordSize
	if err := emu.check(accessRead, addr, size, 0); err != nil {
		return 0, err
	}
	emu.fireMemory(emulator.HOOK_TYPE_MEM_READ, emulator.MEM_READ, addr, size, 0)
	var buf [8]byte
	if !emu.copyMem(addr, buf[:size], false) {
		return 0, emulator.ERR_READ_UNMAPPED
	}
	value := binary.LittleEndian.Uint64(buf[:])
	emu.fireMemory(emulator.HOOK_TYPE_MEM_READ_AFTER, emulator.MEM_READ_AFTER, addr, size, int64(value))
	return value, nil
}

func (emu *Emulator) store(addr, value uint64) error {
	size := emu.wordSize
	if err := emu.check(accessWrite, addr, size, int64(value)); err != nil {
		return err
	}
	emu.fireMemory(emulator.HOOK_TYPE_MEM_WRITE, emulator.MEM_WRITE, addr, size, int64(value))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	if !emu.copyMem(addr, buf[:size], true) {
		return emulator.ERR_WRITE_UNMAPPED
	}
	return nil
}

// exec runs one instruction. branch reports that the next instruction
// starts a new basic block.
func (emu *Emulator) exec(pc uint64, insn [INSN_SIZE]byte) (branch, halt bool, err error) {
	regs := &emu.state.Regs
	next := (pc + INSN_SIZE) & emu.mask
	imm := uint64(binary.LittleEndian.Uint16(insn[2:]))
	simm := uint64(int64(int16(imm)))
	rd, okd := operand(insn[1])
	rs, oks := operand(insn[2])
	switch insn[0] {
	case OP_NOP:
	case OP_MOVI:
		if !okd {
			return emu.invalid(pc)
		}
		regs[rd] = imm
	case OP_MOV:
		if !okd || !oks {
			return emu.invalid(pc)
		}
		regs[rd] = regs[rs]
	case OP_ADD, OP_SUB, OP_ADDI:
		if !okd || (insn[0] != OP_ADDI && !oks) {
			return emu.invalid(pc)
		}
		switch insn[0] {
		case OP_ADD:
			regs[rd] = (regs[rd] + regs[rs]) & emu.mask
		case OP_SUB:
			regs[rd] = (regs[rd] - regs[rs]) & emu.mask
		default:
			regs[rd] = (regs[rd] + simm) & emu.mask
		}
		emu.setZero(regs[rd] == 0)
	case OP_LDR:
		if !okd || !oks {
			return emu.invalid(pc)
		}
		value, err := emu.load(regs[rs])
		if err != nil {
			return false, false, err
		}
		regs[rd] = value & emu.mask
	case OP_STR:
		if !okd || !oks {
			return emu.invalid(pc)
		}
		if err := emu.store(regs[rd], regs[rs]); err != nil {
			return false, false, err
		}
	case OP_JMP:
		emu.setPC(next + simm)
		return true, false, nil
	case OP_JNZ:
		if !okd {
			return emu.invalid(pc)
		}
		if regs[rd] != 0 {
			emu.setPC(next + simm)
			return true, false, nil
		}
		emu.setPC(next)
		return true, false, nil
	case OP_INT:
		emu.setPC(next)
		if !emu.fireInterrupt(pc, uint64(insn[1])) {
			return false, false, emulator.ERR_EXCEPTION
		}
		return true, false, nil
	case OP_HLT:
		emu.setPC(next)
		return false, true, nil
	default:
		return emu.invalid(pc)
	}
	emu.setPC(next)
	return false, false, nil
}

// invalid lets invalid-instruction hooks handle the instruction at pc. A
// handled instruction is skipped unless the handler moved the PC itself.
func (emu *Emulator) invalid(pc uint64) (bool, bool, error) {
	if !emu.fireInvalidInsn(pc) {
		return false, false, emulator.ERR_INSN_INVALID
	}
	if emu.pc() == pc {
		emu.setPC(pc + INSN_SIZE)
	}
	return true, false, nil
}

func (emu *Emulator) setZero(zero bool) {
	flags := &emu.state.Regs[SIM_REG_FLAGS-1]
	if zero {
		*flags |= FLAG_ZERO
	} else {
		*flags &^= FLAG_ZERO
	}
}

// blockSize measures the basic block starting at pc.
func (emu *Emulator) blockSize(pc uint64) uint64 {
	var insn [INSN_SIZE]byte
	for i := uint64(0); i < maxBlockInsns; i++ {
		addr := pc + i*INSN_SIZE
		if _, ok := emu.probe(addr, INSN_SIZE, emulator.MEM_PROT_EXEC); !ok {
			return i * INSN_SIZE
		}
		emu.copyMem(addr, insn[:], false)
		switch insn[0] {
		case OP_JMP, OP_JNZ, OP_INT, OP_HLT:
			return (i + 1) * INSN_SIZE
		}
	}
	return maxBlockInsns * INSN_SIZE
}
