package emulator

import "fmt"

// Handle is the raw identity of an open emulator, as seen by callbacks.
// A core may hand out the same value again once the emulator is closed.
type Handle uintptr

func (h Handle) String() string {
	return fmt.Sprintf("%#x", uintptr(h))
}
