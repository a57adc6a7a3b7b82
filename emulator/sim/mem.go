package sim

import (
	"github.com/google/btree"

	"github.com/wnxd/uclua/emulator"
)

type region struct {
	addr, size uint64
	prot       emulator.MemProt
	data       []byte
}

func newMemory() *btree.BTreeG[*region] {
	return btree.NewG(8, func(a, b *region) bool {
		return a.addr < b.addr
	})
}

func (r *region) end() uint64 {
	return r.addr + r.size
}

// find returns the region containing addr, if any.
func (emu *Emulator) find(addr uint64) *region {
	var found *region
	emu.mem.DescendLessOrEqual(&region{addr: addr}, func(r *region) bool {
		if addr-r.addr < r.size {
			found = r
		}
		return false
	})
	return found
}

func (emu *Emulator) checkRange(addr, size uint64) error {
	if size == 0 || !emulator.IsAligned(addr, PAGE_SIZE) || !emulator.IsAligned(size, PAGE_SIZE) {
		return emulator.ERR_ARG
	} else if addr+size-1 < addr {
		return emulator.ERR_ARG
	}
	return nil
}

// covered reports whether [addr, addr+size) is mapped without holes.
func (emu *Emulator) covered(addr, size uint64) bool {
	last := addr + size - 1
	for cur := addr; ; {
		r := emu.find(cur)
		if r == nil {
			return false
		}
		end := r.end() - 1
		if end >= last {
			return true
		}
		cur = end + 1
	}
}

// split makes addr the start of a region if it falls inside one.
func (emu *Emulator) split(addr uint64) {
	r := emu.find(addr)
	if r == nil || r.addr == addr {
		return
	}
	off := addr - r.addr
	tail := &region{addr: addr, size: r.size - off, prot: r.prot, data: r.data[off:]}
	r.size = off
	r.data = r.data[:off:off]
	emu.mem.ReplaceOrInsert(tail)
}

func (emu *Emulator) regionsIn(addr, size uint64) []*region {
	var list []*region
	collect := func(r *region) bool {
		list = append(list, r)
		return true
	}
	if end := addr + size; end == 0 {
		emu.mem.AscendGreaterOrEqual(&region{addr: addr}, collect)
	} else {
		emu.mem.AscendRange(&region{addr: addr}, &region{addr: end}, collect)
	}
	return list
}

func (emu *Emulator) MemMap(addr, size uint64, prot emulator.MemProt) error {
	if emu.closed.Load() {
		return emulator.ERR_HANDLE
	} else if err := emu.checkRange(addr, size); err != nil {
		return err
	} else if prot&^emulator.MEM_PROT_ALL != 0 {
		return emulator.ERR_ARG
	}
	if emu.find(addr) != nil || len(emu.regionsIn(addr, size)) != 0 {
		return emulator.ERR_MAP
	}
	if emu.limit != 0 && emu.mapped+size > emu.limit {
		return emulator.ERR_NOMEM
	}
	emu.mem.ReplaceOrInsert(&region{addr: addr, size: size, prot: prot, data: make([]byte, size)})
	emu.mapped += size
	return nil
}

func (emu *Emulator) MemUnmap(addr, size uint64) error {
	if emu.closed.Load() {
		return emulator.ERR_HANDLE
	} else if err := emu.checkRange(addr, size); err != nil {
		return err
	} else if !emu.covered(addr, size) {
		return emulator.ERR_NOMEM
	}
	emu.split(addr)
	emu.split(addr + size)
	for _, r := range emu.regionsIn(addr, size) {
		emu.mem.Delete(r)
		emu.mapped -= r.size
	}
	return nil
}

func (emu *Emulator) MemProtect(addr, size uint64, prot emulator.MemProt) error {
	if emu.closed.Load() {
		return emulator.ERR_HANDLE
	} else if err := emu.checkRange(addr, size); err != nil {
		return err
	} else if prot&^emulator.MEM_PROT_ALL != 0 {
		return emulator.ERR_ARG
	} else if !emu.covered(addr, size) {
		return emulator.ERR_NOMEM
	}
	emu.split(addr)
	emu.split(addr + size)
	for _, r := range emu.regionsIn(addr, size) {
		r.prot = prot
	}
	return nil
}

func (emu *Emulator) MemRegions() ([]emulator.MemRegion, error) {
	if emu.closed.Load() {
		return nil, emulator.ERR_HANDLE
	}
	regions := make([]emulator.MemRegion, 0, emu.mem.Len())
	emu.mem.Ascend(func(r *region) bool {
		regions = append(regions, emulator.MemRegion{Addr: r.addr, Size: r.size, Prot: r.prot})
		return true
	})
	return regions, nil
}

// MemRead ignores protection, like a debugger would.
func (emu *Emulator) MemRead(addr, size uint64) ([]byte, error) {
	if emu.closed.Load() {
		return nil, emulator.ERR_HANDLE
	}
	buf := make([]byte, size)
	if size != 0 && !emu.copyMem(addr, buf, false) {
		return nil, emulator.ERR_READ_UNMAPPED
	}
	return buf, nil
}

func (emu *Emulator) MemWrite(addr uint64, data []byte) error {
	if emu.closed.Load() {
		return emulator.ERR_HANDLE
	}
	if len(data) != 0 && !emu.copyMem(addr, data, true) {
		return emulator.ERR_WRITE_UNMAPPED
	}
	return nil
}

// copyMem moves bytes between buf and guest memory. Nothing is copied unless
// the whole range is mapped.
func (emu *Emulator) copyMem(addr uint64, buf []byte, write bool) bool {
	size := uint64(len(buf))
	if addr+size-1 < addr || !emu.covered(addr, size) {
		return false
	}
	for done := uint64(0); done < size; {
		cur := addr + done
		r := emu.find(cur)
		off := cur - r.addr
		var n int
		if write {
			n = copy(r.data[off:], buf[done:])
		} else {
			n = copy(buf[done:], r.data[off:])
		}
		done += uint64(n)
	}
	return true
}

// probe reports whether the range is mapped and whether every page allows need.
func (emu *Emulator) probe(addr, size uint64, need emulator.MemProt) (mapped, allowed bool) {
	if addr+size-1 < addr || !emu.covered(addr, size) {
		return false, false
	}
	allowed = true
	last := addr + size - 1
	for cur := addr; ; {
		r := emu.find(cur)
		if r.prot&need != need {
			allowed = false
		}
		if r.end()-1 >= last {
			break
		}
		cur = r.end()
	}
	return true, allowed
}
