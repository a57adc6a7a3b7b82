package emulator

import "io"

// Context is a register-state snapshot allocated by an emulator.
type Context interface {
	io.Closer
	Save() error
	Restore() error
	RegRead(reg Reg) (uint64, error)
	Clone() (Context, error)
}

type RegisterContext interface {
	RegRead(reg Reg) (uint64, error)
	RegWrite(reg Reg, value uint64) error
	RegReadBatch(regs ...Reg) ([]uint64, error)
	RegWriteBatch(regs []Reg, vals []uint64) error
}
