package emulator

import "io"

type HookType int

const (
	HOOK_TYPE_INTR HookType = 1 << iota
	HOOK_TYPE_INSN
	HOOK_TYPE_CODE
	HOOK_TYPE_BLOCK
	HOOK_TYPE_MEM_READ_UNMAPPED
	HOOK_TYPE_MEM_WRITE_UNMAPPED
	HOOK_TYPE_MEM_FETCH_UNMAPPED
	HOOK_TYPE_MEM_READ_PROT
	HOOK_TYPE_MEM_WRITE_PROT
	HOOK_TYPE_MEM_FETCH_PROT
	HOOK_TYPE_MEM_READ
	HOOK_TYPE_MEM_WRITE
	HOOK_TYPE_MEM_FETCH
	HOOK_TYPE_MEM_READ_AFTER
	HOOK_TYPE_INSN_INVALID

	HOOK_TYPE_MEM_UNMAPPED = HOOK_TYPE_MEM_READ_UNMAPPED | HOOK_TYPE_MEM_WRITE_UNMAPPED | HOOK_TYPE_MEM_FETCH_UNMAPPED
	HOOK_TYPE_MEM_PROT     = HOOK_TYPE_MEM_READ_PROT | HOOK_TYPE_MEM_WRITE_PROT | HOOK_TYPE_MEM_FETCH_PROT
	HOOK_TYPE_MEM_INVALID  = HOOK_TYPE_MEM_UNMAPPED | HOOK_TYPE_MEM_PROT
	HOOK_TYPE_MEM_VALID    = HOOK_TYPE_MEM_READ | HOOK_TYPE_MEM_WRITE | HOOK_TYPE_MEM_FETCH
)

// MemAccess describes the memory event passed to memory callbacks.
type MemAccess int

const (
	MEM_READ MemAccess = iota + 16
	MEM_WRITE
	MEM_FETCH
	MEM_READ_UNMAPPED
	MEM_WRITE_UNMAPPED
	MEM_FETCH_UNMAPPED
	MEM_WRITE_PROT
	MEM_READ_PROT
	MEM_FETCH_PROT
	MEM_READ_AFTER
)

// Callbacks receive the raw handle of the emulator that fired them.
type CodeCallback = func(h Handle, addr, size uint64, data any)
type MemoryCallback = func(h Handle, access MemAccess, addr, size uint64, value int64, data any)
type InvalidMemoryCallback = func(h Handle, access MemAccess, addr, size uint64, value int64, data any) bool
type InterruptCallback = func(h Handle, intno uint64, data any)
type InvalidInsnCallback = func(h Handle, data any) bool

type Hook interface {
	io.Closer
	Type() HookType
}

// IsMemoryValid reports whether t only selects successful memory accesses.
func (t HookType) IsMemoryValid() bool {
	return t != 0 && t&^(HOOK_TYPE_MEM_VALID|HOOK_TYPE_MEM_READ_AFTER) == 0
}

func (t HookType) IsMemoryInvalid() bool {
	return t != 0 && t&^HOOK_TYPE_MEM_INVALID == 0
}

func (t HookType) IsCode() bool {
	return t == HOOK_TYPE_CODE || t == HOOK_TYPE_BLOCK
}
