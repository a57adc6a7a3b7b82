package engine

import (
	"errors"
	"fmt"

	"github.com/wnxd/uclua/emulator"
)

var (
	ErrUseAfterClose    = errors.New("attempted to use closed engine")
	ErrNotRegistered    = errors.New("no engine object is registered")
	ErrArgument         = errors.New("argument invalid")
	ErrHookNotFound     = errors.New("hook not found")
	ErrHookCallbackType = errors.New("hook callback type exception")
)

// EmulatorError is a failure status reported by the Emulator Core.
type EmulatorError struct {
	Op   string
	Code emulator.Errno
	Err  error
}

type NotRegisteredError struct {
	Handle emulator.Handle
}

func (e *EmulatorError) Error() string {
	if e.Err == nil || e.Err == error(e.Code) {
		return fmt.Sprintf("%s: %s (code %d)", e.Op, e.Code.Error(), e.Code.Code())
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *EmulatorError) Unwrap() error {
	return e.Err
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("no engine object is registered for pointer %s", e.Handle)
}

func (e *NotRegisteredError) Is(target error) bool {
	return target == ErrNotRegistered
}

// coreError converts a core status into an *EmulatorError.
func coreError(op string, err error) error {
	if err == nil {
		return nil
	}
	code := emulator.ERR_EXCEPTION
	var errno emulator.Errno
	if errors.As(err, &errno) {
		if errno == emulator.ERR_OK {
			return nil
		}
		code = errno
	}
	return &EmulatorError{Op: op, Code: code, Err: err}
}
