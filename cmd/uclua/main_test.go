package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/wnxd/uclua/engine"
	"github.com/wnxd/uclua/internal/config"
	"github.com/wnxd/uclua/luabind"
)

func TestNewStateFull(t *testing.T) {
	reg := engine.NewRegistry()
	L, cancel := newState(config.Default(), reg)
	defer cancel()
	defer L.Close()

	require.NoError(t, L.DoString(`
		local uc = require("unicorn")
		local S = require("unicorn.sim_const")
		local e = uc.open(uc.UC_ARCH_SIM, uc.UC_MODE_64)
		e:reg_write(S.UC_SIM_REG_R1, 42)
		result = e:reg_read(S.UC_SIM_REG_R1)
	`))
	assert.Equal(t, lua.LNumber(42), L.GetGlobal("result"))
	assert.Equal(t, 1, reg.Len())
}

func TestNewStateSafe(t *testing.T) {
	cfg := config.Default()
	cfg.Script.Safe = true
	cfg.Emulator.MemoryLimit = 0x1000
	L, cancel := newState(cfg, engine.NewRegistry())
	defer cancel()
	defer L.Close()

	for _, name := range unsafeGlobals {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), name)
	}
	assert.Equal(t, lua.LNil, L.GetGlobal("os"))
	require.NoError(t, L.DoString(`
		local e = unicorn.open(unicorn.UC_ARCH_SIM, unicorn.UC_MODE_64)
		e:mem_map(0x1000, 0x1000)
		local ok, err = pcall(e.mem_map, e, 0x2000, 0x1000)
		assert(not ok and string.find(err, "UC_ERR_NOMEM", 1, true))
		e:close()
	`))
}

func TestScriptTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.Script.Timeout = config.Duration(50 * time.Millisecond)
	L, cancel := newState(cfg, engine.NewRegistry())
	defer cancel()
	defer L.Close()

	assert.Error(t, L.DoString(`while true do end`))
}

func TestEval(t *testing.T) {
	L, cancel := newState(config.Default(), engine.NewRegistry())
	defer cancel()
	defer L.Close()

	results, incomplete, err := eval(L, "1 + 2, 'x'")
	require.NoError(t, err)
	assert.False(t, incomplete)
	assert.Equal(t, "3\tx", formatResults(L, results))

	results, incomplete, err = eval(L, "answer = 42")
	require.NoError(t, err)
	assert.False(t, incomplete)
	assert.Empty(t, results)
	assert.Equal(t, lua.LNumber(42), L.GetGlobal("answer"))

	_, incomplete, err = eval(L, "for i = 1, 2 do")
	assert.Error(t, err)
	assert.True(t, incomplete)

	_, incomplete, err = eval(L, "error('boom')")
	assert.ErrorContains(t, err, "boom")
	assert.False(t, incomplete)

	results, _, err = eval(L, "require('unicorn').open(require('unicorn').UC_ARCH_SIM, require('unicorn').UC_MODE_32)")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, formatResults(L, results), "unicorn engine(sim")
	assert.Equal(t, 0, L.GetTop())
}

func TestRunScriptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.lua")
	require.NoError(t, os.WriteFile(path, []byte(`
		local uc = require("unicorn")
		local e = uc.open(uc.UC_ARCH_SIM, uc.UC_MODE_64)
		e:mem_map(0x1000, 0x1000)
		e:mem_write(0x1000, string.char(require("unicorn.sim_const").UC_SIM_OP_HLT, 0, 0, 0))
		e:emu_start(0x1000, 0)
		e:close()
		done = true
	`), 0o644))

	L, cancel := newState(config.Default(), engine.NewRegistry())
	defer cancel()
	defer L.Close()
	require.NoError(t, L.DoFile(path))
	assert.Equal(t, lua.LTrue, L.GetGlobal("done"))
}

func TestRunAppExitCode(t *testing.T) {
	t.Cleanup(func() {
		engine.SetLogger(nil)
		luabind.SetLogger(nil)
	})
	path := filepath.Join(t.TempDir(), "ok.lua")
	require.NoError(t, os.WriteFile(path, []byte(`assert(#arg == 1 and arg[1] == "x")`), 0o644))

	assert.Equal(t, 0, runApp([]string{"uclua", "version"}))
	assert.Equal(t, 0, runApp([]string{"uclua", "--log-level", "error", "run", path, "x"}))
	assert.Equal(t, 1, runApp([]string{"uclua", "--log-level", "loud", "version"}))
	assert.Equal(t, 1, runApp([]string{"uclua", "run", filepath.Join(t.TempDir(), "missing.lua")}))
}
