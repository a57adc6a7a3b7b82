package emulator

// Reg identifies a register. Its meaning depends on the architecture.
type Reg int

const REG_INVALID Reg = 0
