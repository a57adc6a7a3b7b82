package luabind

import (
	"math"

	lua "github.com/yuin/gopher-lua"
)

// checkUint64 reads an address-sized number. Negative values wrap, so -1
// gives the all-ones value. Only integers up to 2^53 are exact.
func checkUint64(L *lua.LState, n int) uint64 {
	v := float64(L.CheckNumber(n))
	if v != math.Trunc(v) {
		L.ArgError(n, "integer expected")
	}
	if v < 0 {
		return uint64(int64(v))
	}
	return uint64(v)
}

func optUint64(L *lua.LState, n int, d uint64) uint64 {
	if L.Get(n) == lua.LNil {
		return d
	}
	return checkUint64(L, n)
}

func pushUint64(v uint64) lua.LNumber {
	return lua.LNumber(float64(v))
}
