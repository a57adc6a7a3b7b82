package engine

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/wnxd/uclua/emulator"
)

// Context holds a core register snapshot for as long as the Context is
// reachable.
type Context struct {
	snap  emulator.Context
	owner *engineState
}

func newContext(owner *engineState, snap emulator.Context) *Context {
	ctx := &Context{snap: snap, owner: owner}
	runtime.AddCleanup(ctx, freeSnapshot, snap)
	return ctx
}

func freeSnapshot(snap emulator.Context) {
	if err := snap.Close(); err != nil {
		Logger().Error("free context", zap.Error(err))
	}
}

// RegRead reads a register value out of the snapshot.
func (ctx *Context) RegRead(reg emulator.Reg) (uint64, error) {
	defer runtime.KeepAlive(ctx)
	val, err := ctx.snap.RegRead(reg)
	if err != nil {
		return 0, coreError("context_reg_read", err)
	}
	return val, nil
}

// Clone copies the snapshot into a new Context bound to the same engine.
func (ctx *Context) Clone() (*Context, error) {
	defer runtime.KeepAlive(ctx)
	snap, err := ctx.snap.Clone()
	if err != nil {
		return nil, coreError("context_clone", err)
	}
	return newContext(ctx.owner, snap), nil
}

func (ctx *Context) String() string {
	return fmt.Sprintf("context(%s)", ctx.owner.handle)
}

// ContextSave stores the current register state. A nil target allocates a
// new Context; otherwise the target is overwritten and returned.
func (e *Engine) ContextSave(target *Context) (*Context, error) {
	defer runtime.KeepAlive(e)
	emu, err := e.live()
	if err != nil {
		return nil, err
	}
	if target == nil {
		snap, err := emu.ContextAlloc()
		if err != nil {
			return nil, coreError("context_alloc", err)
		}
		target = newContext(e.st, snap)
	} else if target.owner != e.st {
		return nil, fmt.Errorf("%w: context belongs to another engine", ErrArgument)
	}
	defer runtime.KeepAlive(target)
	if err := target.snap.Save(); err != nil {
		return nil, coreError("context_save", err)
	}
	return target, nil
}

func (e *Engine) ContextRestore(ctx *Context) error {
	defer runtime.KeepAlive(e)
	if _, err := e.live(); err != nil {
		return err
	}
	if ctx == nil {
		return fmt.Errorf("%w: nil context", ErrArgument)
	} else if ctx.owner != e.st {
		return fmt.Errorf("%w: context belongs to another engine", ErrArgument)
	}
	defer runtime.KeepAlive(ctx)
	return coreError("context_restore", ctx.snap.Restore())
}
