package luabind

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/wnxd/uclua/emulator"
	"github.com/wnxd/uclua/emulator/sim"
)

var archConsts = map[string]emulator.Arch{
	"UC_ARCH_ARM":    emulator.ARCH_ARM,
	"UC_ARCH_ARM64":  emulator.ARCH_ARM64,
	"UC_ARCH_X86":    emulator.ARCH_X86,
	"UC_ARCH_X86_64": emulator.ARCH_X86_64,
	"UC_ARCH_SIM":    emulator.ARCH_SIM,
}

var modeConsts = map[string]emulator.Mode{
	"UC_MODE_LITTLE_ENDIAN": emulator.MODE_LITTLE_ENDIAN,
	"UC_MODE_BIG_ENDIAN":    emulator.MODE_BIG_ENDIAN,
	"UC_MODE_ARM":           emulator.MODE_ARM,
	"UC_MODE_THUMB":         emulator.MODE_THUMB,
	"UC_MODE_16":            emulator.MODE_16,
	"UC_MODE_32":            emulator.MODE_32,
	"UC_MODE_64":            emulator.MODE_64,
}

var hookConsts = map[string]emulator.HookType{
	"UC_HOOK_INTR":               emulator.HOOK_TYPE_INTR,
	"UC_HOOK_INSN":               emulator.HOOK_TYPE_INSN,
	"UC_HOOK_CODE":               emulator.HOOK_TYPE_CODE,
	"UC_HOOK_BLOCK":              emulator.HOOK_TYPE_BLOCK,
	"UC_HOOK_MEM_READ_UNMAPPED":  emulator.HOOK_TYPE_MEM_READ_UNMAPPED,
	"UC_HOOK_MEM_WRITE_UNMAPPED": emulator.HOOK_TYPE_MEM_WRITE_UNMAPPED,
	"UC_HOOK_MEM_FETCH_UNMAPPED": emulator.HOOK_TYPE_MEM_FETCH_UNMAPPED,
	"UC_HOOK_MEM_READ_PROT":      emulator.HOOK_TYPE_MEM_READ_PROT,
	"UC_HOOK_MEM_WRITE_PROT":     emulator.HOOK_TYPE_MEM_WRITE_PROT,
	"UC_HOOK_MEM_FETCH_PROT":     emulator.HOOK_TYPE_MEM_FETCH_PROT,
	"UC_HOOK_MEM_READ":           emulator.HOOK_TYPE_MEM_READ,
	"UC_HOOK_MEM_WRITE":          emulator.HOOK_TYPE_MEM_WRITE,
	"UC_HOOK_MEM_FETCH":          emulator.HOOK_TYPE_MEM_FETCH,
	"UC_HOOK_MEM_READ_AFTER":     emulator.HOOK_TYPE_MEM_READ_AFTER,
	"UC_HOOK_INSN_INVALID":       emulator.HOOK_TYPE_INSN_INVALID,
	"UC_HOOK_MEM_UNMAPPED":       emulator.HOOK_TYPE_MEM_UNMAPPED,
	"UC_HOOK_MEM_PROT":           emulator.HOOK_TYPE_MEM_PROT,
	"UC_HOOK_MEM_INVALID":        emulator.HOOK_TYPE_MEM_INVALID,
	"UC_HOOK_MEM_VALID":          emulator.HOOK_TYPE_MEM_VALID,
}

var memConsts = map[string]emulator.MemAccess{
	"UC_MEM_READ":           emulator.MEM_READ,
	"UC_MEM_WRITE":          emulator.MEM_WRITE,
	"UC_MEM_FETCH":          emulator.MEM_FETCH,
	"UC_MEM_READ_UNMAPPED":  emulator.MEM_READ_UNMAPPED,
	"UC_MEM_WRITE_UNMAPPED": emulator.MEM_WRITE_UNMAPPED,
	"UC_MEM_FETCH_UNMAPPED": emulator.MEM_FETCH_UNMAPPED,
	"UC_MEM_WRITE_PROT":     emulator.MEM_WRITE_PROT,
	"UC_MEM_READ_PROT":      emulator.MEM_READ_PROT,
	"UC_MEM_FETCH_PROT":     emulator.MEM_FETCH_PROT,
	"UC_MEM_READ_AFTER":     emulator.MEM_READ_AFTER,
}

var protConsts = map[string]emulator.MemProt{
	"UC_PROT_NONE":  emulator.MEM_PROT_NONE,
	"UC_PROT_READ":  emulator.MEM_PROT_READ,
	"UC_PROT_WRITE": emulator.MEM_PROT_WRITE,
	"UC_PROT_EXEC":  emulator.MEM_PROT_EXEC,
	"UC_PROT_ALL":   emulator.MEM_PROT_ALL,
}

var queryConsts = map[string]emulator.QueryType{
	"UC_QUERY_MODE":      emulator.QUERY_MODE,
	"UC_QUERY_PAGE_SIZE": emulator.QUERY_PAGE_SIZE,
	"UC_QUERY_ARCH":      emulator.QUERY_ARCH,
	"UC_QUERY_TIMEOUT":   emulator.QUERY_TIMEOUT,
}

var simOpConsts = map[string]byte{
	"UC_SIM_OP_NOP":  sim.OP_NOP,
	"UC_SIM_OP_MOVI": sim.OP_MOVI,
	"UC_SIM_OP_MOV":  sim.OP_MOV,
	"UC_SIM_OP_ADD":  sim.OP_ADD,
	"UC_SIM_OP_SUB":  sim.OP_SUB,
	"UC_SIM_OP_ADDI": sim.OP_ADDI,
	"UC_SIM_OP_LDR":  sim.OP_LDR,
	"UC_SIM_OP_STR":  sim.OP_STR,
	"UC_SIM_OP_JMP":  sim.OP_JMP,
	"UC_SIM_OP_JNZ":  sim.OP_JNZ,
	"UC_SIM_OP_INT":  sim.OP_INT,
	"UC_SIM_OP_HLT":  sim.OP_HLT,
}

func setConsts[V ~int | ~uint8](tbl *lua.LTable, consts map[string]V) {
	for name, v := range consts {
		tbl.RawSetString(name, lua.LNumber(v))
	}
}

func unicornConsts(tbl *lua.LTable) {
	setConsts(tbl, archConsts)
	setConsts(tbl, modeConsts)
	setConsts(tbl, hookConsts)
	setConsts(tbl, memConsts)
	setConsts(tbl, protConsts)
	setConsts(tbl, queryConsts)
	setConsts(tbl, emulator.ErrnoNames())
	tbl.RawSetString("UC_API_MAJOR", lua.LNumber(VersionMajor))
	tbl.RawSetString("UC_API_MINOR", lua.LNumber(VersionMinor))
	tbl.RawSetString("UC_SECOND_SCALE", lua.LNumber(1000000))
	tbl.RawSetString("UC_MILISECOND_SCALE", lua.LNumber(1000))
}

func simConsts(tbl *lua.LTable) {
	setConsts(tbl, sim.RegNames())
	setConsts(tbl, simOpConsts)
	tbl.RawSetString("UC_SIM_INSN_SIZE", lua.LNumber(sim.INSN_SIZE))
	tbl.RawSetString("UC_SIM_PAGE_SIZE", lua.LNumber(sim.PAGE_SIZE))
}
