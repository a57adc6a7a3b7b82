package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultScriptTimeout, cfg.Script.Timeout.Duration())
	assert.False(t, cfg.Script.Safe)
	assert.Zero(t, cfg.Emulator.MemoryLimit)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "uclua.yaml", `
log:
  level: debug
  development: true
script:
  timeout: 1m30s
  safe: true
emulator:
  memory_limit: 64MiB
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, 90*time.Second, cfg.Script.Timeout.Duration())
	assert.True(t, cfg.Script.Safe)
	assert.EqualValues(t, 64<<20, cfg.Emulator.MemoryLimit)

	zc, err := cfg.ZapConfig()
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, zc.Level.Level())
	assert.True(t, zc.Development)
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeFile(t, "uclua.json", `{"emulator": {"memory_limit": 8192}, "script": {"timeout": 2}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.EqualValues(t, 8192, cfg.Emulator.MemoryLimit)
	assert.Equal(t, 2*time.Second, cfg.Script.Timeout.Duration())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	_, err = Load(writeFile(t, "bad.yaml", "log:\n  level: loud\n"))
	assert.ErrorContains(t, err, "log.level")

	_, err = Load(writeFile(t, "bad.yaml", "script:\n  timeout: soon\n"))
	assert.ErrorContains(t, err, "invalid duration")

	_, err = Load(writeFile(t, "bad.yaml", "emulator:\n  memory_limit: lots\n"))
	assert.ErrorContains(t, err, "invalid size")
}

func TestByteSize(t *testing.T) {
	for in, want := range map[string]ByteSize{
		"512":    512,
		"4k":     4 << 10,
		"4KiB":   4 << 10,
		"64MiB":  64 << 20,
		"1g":     1 << 30,
		"1.5MiB": 3 << 19,
	} {
		got, err := ParseByteSize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseByteSize("-1")
	assert.Error(t, err)
	assert.Equal(t, "64MiB", ByteSize(64<<20).String())
}
