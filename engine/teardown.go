package engine

import (
	"maps"
	"slices"

	"go.uber.org/multierr"
)

// teardown runs exactly once per engine, whichever of Close or the cleanup
// gets there first. On return the core is closed, the native hooks are
// released and the registry no longer maps the handle.
func (st *engineState) teardown() error {
	if st.emu == nil || st.closing {
		return nil
	}
	st.closing = true
	var errs error
	for _, id := range slices.Sorted(maps.Keys(st.native)) {
		if h, ok := st.native[id]; ok {
			errs = multierr.Append(errs, h.Close())
		}
	}
	st.native = nil
	errs = multierr.Append(errs, st.emu.Close())
	st.reg.release(st.handle, st)
	st.emu = nil
	st.closing = false
	st.abort = nil
	return coreError("close", errs)
}
