package emulator

import (
	"io"
	"sync"
	"time"
)

type Emulator interface {
	io.Closer
	Handle() Handle
	Arch() Arch
	Mode() Mode
	ByteOrder() ByteOrder
	PageSize() uint64
	MemMap(addr, size uint64, prot MemProt) error
	MemUnmap(addr, size uint64) error
	MemProtect(addr, size uint64, prot MemProt) error
	MemRegions() ([]MemRegion, error)
	MemRead(addr, size uint64) ([]byte, error)
	MemWrite(addr uint64, data []byte) error
	RegisterContext
	Start(begin, until uint64, timeout time.Duration, count uint64) error
	Stop() error
	Errno() Errno
	Query(typ QueryType) (uint64, error)
	ContextAlloc() (Context, error)
	Hook(typ HookType, callback any, data any, begin, end uint64) (Hook, error)
}

type Opener func(mode Mode) (Emulator, error)

var (
	openMu  sync.RWMutex
	openMap = make(map[Arch]Opener)
)

// Register makes a core available for arch. It reports false if one is
// already registered.
func Register(arch Arch, open Opener) bool {
	openMu.Lock()
	defer openMu.Unlock()
	if _, ok := openMap[arch]; ok {
		return false
	}
	openMap[arch] = open
	return true
}

func Supported(arch Arch) bool {
	openMu.RLock()
	defer openMu.RUnlock()
	_, ok := openMap[arch]
	return ok
}

func Open(arch Arch, mode Mode) (Emulator, error) {
	openMu.RLock()
	open, ok := openMap[arch]
	openMu.RUnlock()
	if !ok {
		return nil, ERR_ARCH
	}
	return open(mode)
}
