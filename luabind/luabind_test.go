package luabind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wnxd/uclua/engine"
)

const prelude = `
local uc = require("unicorn")
local S = require("unicorn.sim_const")
local CODE = 0x1000
local function insn(op, a, b, c) return string.char(op, a or 0, b or 0, c or 0) end
local function program(...) return table.concat({...}) end
local function open_sim(code)
	local e = uc.open(uc.UC_ARCH_SIM, uc.UC_MODE_64)
	if code then
		e:mem_map(CODE, S.UC_SIM_PAGE_SIZE)
		e:mem_write(CODE, code)
	end
	return e
end
local NOP = insn(S.UC_SIM_OP_NOP)
local HLT = insn(S.UC_SIM_OP_HLT)
`

func newState(t *testing.T, opts ...Option) *lua.LState {
	t.Helper()
	L := lua.NewState()
	t.Cleanup(L.Close)
	Preload(L, opts...)
	return L
}

func run(t *testing.T, L *lua.LState, script string) {
	t.Helper()
	require.NoError(t, L.DoString(prelude+script))
}

func TestOpenStartAtEnd(t *testing.T) {
	reg := engine.NewRegistry()
	L := newState(t, WithRegistry(reg))
	run(t, L, `
		local e = open_sim()
		e:reg_write(S.UC_SIM_REG_R0, 0x1000)
		e:emu_start(0x1000, 0x1000, 0, 0)
		assert(e:reg_read(S.UC_SIM_REG_R0) == 0x1000)
		e:close()
		e:close()
	`)
	assert.Equal(t, 0, reg.Len())
}

func TestContextSnapshot(t *testing.T) {
	L := newState(t, WithRegistry(engine.NewRegistry()))
	run(t, L, `
		local e = open_sim()
		e:reg_write(S.UC_SIM_REG_R0, 0xAA)
		local ctx = e:context_save()
		e:reg_write(S.UC_SIM_REG_R0, 0xBB)
		e:context_restore(ctx)
		assert(e:reg_read(S.UC_SIM_REG_R0) == 0xAA)
		assert(ctx:reg_read(S.UC_SIM_REG_R0) == 0xAA)
		e:close()
	`)
}

func TestContextReuseTarget(t *testing.T) {
	L := newState(t, WithRegistry(engine.NewRegistry()))
	run(t, L, `
		local e = open_sim()
		local ctx = e:context_save()
		e:reg_write(S.UC_SIM_REG_R0, 0xCC)
		local same = e:context_save(ctx)
		assert(rawequal(same, ctx))
		e:reg_write(S.UC_SIM_REG_R0, 0xDD)
		e:context_restore(ctx)
		assert(e:reg_read(S.UC_SIM_REG_R0) == 0xCC)
		assert(string.find(tostring(ctx), "context(", 1, true))
		e:close()
	`)
}

func TestUseAfterClose(t *testing.T) {
	L := newState(t, WithRegistry(engine.NewRegistry()))
	run(t, L, `
		local e = open_sim()
		local ctx = e:context_save()
		local h = e:hook_add(uc.UC_HOOK_CODE, function() end)
		e:close()
		local calls = {
			function() return e:query(0) end,
			function() return e:query(uc.UC_QUERY_MODE) end,
			function() return e:errno() end,
			function() return e:emu_start(CODE, 0) end,
			function() return e:emu_stop() end,
			function() return e:context_save() end,
			function() return e:context_save(ctx) end,
			function() return e:context_restore(ctx) end,
			function() return e:hook_add(uc.UC_HOOK_CODE, function() end) end,
			function() return e:hook_del(h) end,
			function() return e:mem_map(0, 0x1000) end,
			function() return e:mem_protect(0, 0x1000, uc.UC_PROT_READ) end,
			function() return e:mem_unmap(0, 0x1000) end,
			function() return e:mem_read(0, 4) end,
			function() return e:mem_write(0, "x") end,
			function() return e:mem_regions() end,
			function() return e:reg_read(S.UC_SIM_REG_R0) end,
			function() return e:reg_write(S.UC_SIM_REG_R0, 1) end,
			function() return e:reg_read_batch(S.UC_SIM_REG_R0) end,
			function() return e:reg_write_batch({[S.UC_SIM_REG_R0] = 1}) end,
		}
		for i, call in ipairs(calls) do
			local ok, err = pcall(call)
			assert(not ok, "call " .. i .. " succeeded")
			assert(string.find(err, "closed engine", 1, true), "call " .. i .. ": " .. tostring(err))
		end
		e:close()
		assert(string.find(tostring(e), "closed", 1, true))
	`)
}

func TestHookAutoCleanup(t *testing.T) {
	reg := engine.NewRegistry()
	L := newState(t, WithRegistry(reg))
	run(t, L, `
		local count = 0
		local e = open_sim(program(NOP, NOP, HLT))
		e:hook_add(uc.UC_HOOK_CODE, function() count = count + 1 end)
		e:emu_start(CODE, 0)
		assert(count == 3, "count " .. count)
		e:close()

		local other = open_sim(program(NOP, NOP, HLT))
		other:emu_start(CODE, 0)
		assert(count == 3, "count " .. count)
		other:close()
	`)
	assert.Equal(t, 0, reg.Len())
}

func TestCallbackReceivesSameEngine(t *testing.T) {
	L := newState(t, WithRegistry(engine.NewRegistry()))
	run(t, L, `
		local e = open_sim(program(NOP, HLT))
		local seen = 0
		e:hook_add(uc.UC_HOOK_CODE, function(engine, addr, size, udata)
			assert(rawequal(engine, e))
			assert(size == S.UC_SIM_INSN_SIZE)
			assert(udata == "tag")
			seen = seen + 1
		end, 1, 0, "tag")
		e:emu_start(CODE, 0)
		assert(seen == 2)
		e:close()
	`)
}

func TestHookErrorAbortsEmulation(t *testing.T) {
	L := newState(t, WithRegistry(engine.NewRegistry()))
	run(t, L, `
		local e = open_sim(program(NOP, NOP, HLT))
		local seen = 0
		e:hook_add(uc.UC_HOOK_CODE, function(engine, addr)
			seen = seen + 1
			if addr == CODE + 4 then error("boom") end
		end)
		local ok, err = pcall(e.emu_start, e, CODE, 0)
		assert(not ok)
		assert(string.find(err, "boom", 1, true), tostring(err))
		assert(seen == 2)
		assert(e:reg_read(S.UC_SIM_REG_PC) == CODE + 4)
		e:close()
	`)
}

func TestHookDel(t *testing.T) {
	L := newState(t, WithRegistry(engine.NewRegistry()))
	run(t, L, `
		local e = open_sim(program(NOP, NOP, HLT))
		local other = open_sim()
		local count = 0
		local h
		h = e:hook_add(uc.UC_HOOK_CODE, function(engine)
			count = count + 1
			engine:hook_del(h)
		end)
		assert(string.find(tostring(h), "unicorn hook", 1, true))
		e:emu_start(CODE, 0)
		assert(count == 1)

		local ok, err = pcall(e.hook_del, e, h)
		assert(not ok and string.find(err, "hook not found", 1, true), tostring(err))

		local foreign = other:hook_add(uc.UC_HOOK_CODE, function() end)
		ok, err = pcall(e.hook_del, e, foreign)
		assert(not ok and string.find(err, "another engine", 1, true), tostring(err))

		ok, err = pcall(e.hook_add, e, uc.UC_HOOK_INSN, function() end)
		assert(not ok and string.find(err, "UC_ERR_HOOK", 1, true), tostring(err))
		e:close()
		other:close()
	`)
}

func TestMemoryAccess(t *testing.T) {
	L := newState(t, WithRegistry(engine.NewRegistry()))
	run(t, L, `
		local e = open_sim()
		e:mem_map(0x4000, 0x2000, uc.UC_PROT_READ + uc.UC_PROT_WRITE)
		e:mem_write(0x4010, "hello")
		assert(e:mem_read(0x4010, 5) == "hello")
		e:mem_protect(0x5000, 0x1000, uc.UC_PROT_READ)

		local regions = e:mem_regions()
		assert(#regions == 2)
		assert(regions[1].begins == 0x4000 and regions[1].ends == 0x4fff)
		assert(regions[1].perms == uc.UC_PROT_READ + uc.UC_PROT_WRITE)
		assert(regions[2].begins == 0x5000 and regions[2].perms == uc.UC_PROT_READ)

		e:mem_unmap(0x4000, 0x2000)
		assert(#e:mem_regions() == 0)
		local ok, err = pcall(e.mem_read, e, 0x4010, 5)
		assert(not ok and string.find(err, "UC_ERR_READ_UNMAPPED", 1, true), tostring(err))
		ok, err = pcall(e.mem_map, e, 0x4001, 0x1000)
		assert(not ok and string.find(err, "UC_ERR_ARG", 1, true), tostring(err))
		e:close()
	`)
}

func TestRegisterBatch(t *testing.T) {
	L := newState(t, WithRegistry(engine.NewRegistry()))
	run(t, L, `
		local e = open_sim()
		e:reg_write_batch({[S.UC_SIM_REG_R0] = 1, [S.UC_SIM_REG_R1] = 2, [S.UC_SIM_REG_SP] = 0x7000})
		local a, b, sp = e:reg_read_batch(S.UC_SIM_REG_R0, S.UC_SIM_REG_R1, S.UC_SIM_REG_SP)
		assert(a == 1 and b == 2 and sp == 0x7000)
		e:close()
	`)
}

func TestInvalidMemoryHook(t *testing.T) {
	L := newState(t, WithRegistry(engine.NewRegistry()))
	run(t, L, `
		local e = open_sim(program(
			insn(S.UC_SIM_OP_MOVI, 1, 0x00, 0x80),
			insn(S.UC_SIM_OP_MOVI, 0, 0x77, 0x00),
			insn(S.UC_SIM_OP_STR, 1, 0),
			insn(S.UC_SIM_OP_LDR, 2, 1),
			HLT))
		local faults, writes = {}, 0
		e:hook_add(uc.UC_HOOK_MEM_UNMAPPED, function(engine, access, addr, size, value)
			faults[#faults + 1] = access
			engine:mem_map(0x8000, 0x1000)
			return true
		end)
		e:hook_add(uc.UC_HOOK_MEM_WRITE, function(engine, access, addr, size, value)
			assert(access == uc.UC_MEM_WRITE and addr == 0x8000 and value == 0x77)
			writes = writes + 1
		end)
		e:emu_start(CODE, 0)
		assert(#faults == 1 and faults[1] == uc.UC_MEM_WRITE_UNMAPPED)
		assert(writes == 1)
		assert(e:reg_read(S.UC_SIM_REG_R2) == 0x77)
		assert(e:errno() == uc.UC_ERR_OK)
		e:close()
	`)
}

func TestInterruptHook(t *testing.T) {
	L := newState(t, WithRegistry(engine.NewRegistry()))
	run(t, L, `
		local e = open_sim(program(insn(S.UC_SIM_OP_INT, 0x80), HLT))
		local ok, err = pcall(e.emu_start, e, CODE, 0)
		assert(not ok and string.find(err, "UC_ERR_EXCEPTION", 1, true), tostring(err))
		assert(e:errno() == uc.UC_ERR_EXCEPTION)

		local got
		e:hook_add(uc.UC_HOOK_INTR, function(engine, intno) got = intno end)
		e:emu_start(CODE, 0)
		assert(got == 0x80)
		e:close()
	`)
}

func TestStopAndQuery(t *testing.T) {
	L := newState(t, WithRegistry(engine.NewRegistry()))
	run(t, L, `
		local e = open_sim(program(NOP, NOP, NOP, HLT))
		e:hook_add(uc.UC_HOOK_CODE, function(engine, addr)
			if addr == CODE + 8 then engine:emu_stop() end
		end)
		e:emu_start(CODE, 0)
		assert(e:reg_read(S.UC_SIM_REG_PC) == CODE + 8)
		assert(e:query(uc.UC_QUERY_MODE) == uc.UC_MODE_64)
		assert(e:query(uc.UC_QUERY_PAGE_SIZE) == S.UC_SIM_PAGE_SIZE)
		assert(e:query(uc.UC_QUERY_ARCH) == uc.UC_ARCH_SIM)
		assert(e:query(uc.UC_QUERY_TIMEOUT) == 0)
		e:close()
	`)
}

func TestModuleFunctions(t *testing.T) {
	L := newState(t, WithRegistry(engine.NewRegistry()))
	run(t, L, `
		assert(uc.arch_supported(uc.UC_ARCH_SIM))
		assert(not uc.arch_supported(uc.UC_ARCH_ARM))
		assert(uc.strerror(uc.UC_ERR_MAP) == "Invalid memory mapping (UC_ERR_MAP)")
		local major, minor, combined = uc.version()
		assert(major == uc.UC_API_MAJOR and minor == uc.UC_API_MINOR)
		assert(combined == major * 256 + minor)

		local ok, err = pcall(uc.open, uc.UC_ARCH_ARM, uc.UC_MODE_ARM)
		assert(not ok and string.find(err, "UC_ERR_ARCH", 1, true), tostring(err))
		ok, err = pcall(uc.open, uc.UC_ARCH_SIM, uc.UC_MODE_16)
		assert(not ok and string.find(err, "UC_ERR_MODE", 1, true), tostring(err))

		local e = open_sim()
		assert(string.find(tostring(e), "unicorn engine(sim", 1, true), tostring(e))
		ok, err = pcall(e.mem_map, e, "x", 0x1000)
		assert(not ok and string.find(err, "number expected", 1, true), tostring(err))
		ok, err = pcall(e.context_restore, e, nil)
		assert(not ok)
		e:close()
	`)
}

func TestMemoryLimit(t *testing.T) {
	L := newState(t, WithRegistry(engine.NewRegistry()), WithMemoryLimit(0x2000))
	run(t, L, `
		local e = open_sim()
		e:mem_map(0x1000, 0x2000)
		local ok, err = pcall(e.mem_map, e, 0x10000, 0x1000)
		assert(not ok and string.find(err, "UC_ERR_NOMEM", 1, true), tostring(err))
		e:close()
	`)
}

func TestOpenWithoutRequire(t *testing.T) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	lua.OpenBase(L)
	L.SetGlobal("unicorn", Open(L, WithRegistry(engine.NewRegistry())))
	require.NoError(t, L.DoString(`
		local e = unicorn.open(unicorn.UC_ARCH_SIM, unicorn.UC_MODE_32)
		e:reg_write(unicorn.sim_const.UC_SIM_REG_R0, 0x123456789)
		assert(e:reg_read(unicorn.sim_const.UC_SIM_REG_R0) == 0x23456789)
		e:close()
	`))
}

func TestHookAddedInCoroutine(t *testing.T) {
	L := newState(t, WithRegistry(engine.NewRegistry()))
	run(t, L, `
		local e = open_sim(program(NOP, NOP, HLT))
		local seen = 0
		local co = coroutine.create(function()
			e:hook_add(uc.UC_HOOK_CODE, function(engine)
				assert(rawequal(engine, e))
				seen = seen + 1
			end)
		end)
		assert(coroutine.resume(co))
		assert(coroutine.status(co) == "dead")

		e:emu_start(CODE, 0)
		assert(seen == 3, "seen " .. seen)

		local runner = coroutine.wrap(function()
			e:emu_start(CODE, 0)
			coroutine.yield(seen)
		end)
		assert(runner() == 6)
		e:close()
	`)
}

func TestContextClone(t *testing.T) {
	L := newState(t, WithRegistry(engine.NewRegistry()))
	run(t, L, `
		local e = open_sim()
		e:reg_write(S.UC_SIM_REG_R0, 0x11)
		local ctx = e:context_save()
		local copy = ctx:clone()
		assert(not rawequal(copy, ctx))
		e:reg_write(S.UC_SIM_REG_R0, 0x22)
		e:context_save(ctx)
		assert(ctx:reg_read(S.UC_SIM_REG_R0) == 0x22)
		assert(copy:reg_read(S.UC_SIM_REG_R0) == 0x11)
		e:context_restore(copy)
		assert(e:reg_read(S.UC_SIM_REG_R0) == 0x11)
		e:close()
		assert(copy:clone():reg_read(S.UC_SIM_REG_R0) == 0x11)
	`)
}

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))

	L := newState(t, WithRegistry(engine.NewRegistry()))
	run(t, L, `
		local e = open_sim(program(NOP, HLT))
		e:hook_add(uc.UC_HOOK_CODE, function() error("boom") end)
		assert(not pcall(e.emu_start, e, CODE, 0))
		e:close()
	`)
	assert.Equal(t, 1, logs.FilterMessage("hook callback failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("script opened engine").Len())

	SetLogger(nil)
	assert.NotNil(t, Logger())
	run(t, L, `open_sim():close()`)
	assert.Equal(t, 1, logs.FilterMessage("script opened engine").Len())
}
