package engine

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wnxd/uclua/emulator"
)

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	e, err := Open(NewRegistry(), emulator.ARCH_SIM, emulator.MODE_64)
	require.NoError(t, err)
	require.NoError(t, e.Close())
	assert.Equal(t, 1, logs.FilterMessage("engine opened").Len())
	assert.Equal(t, 1, logs.FilterMessage("engine closed").Len())

	SetLogger(nil)
	assert.NotNil(t, Logger())
	e, err = Open(NewRegistry(), emulator.ARCH_SIM, emulator.MODE_64)
	require.NoError(t, err)
	require.NoError(t, e.Close())
	assert.Equal(t, 1, logs.FilterMessage("engine opened").Len())
}

func TestSetLoggerDuringFinalization(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	reg := NewRegistry()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			SetLogger(zap.NewNop())
			SetLogger(nil)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, err := Open(reg, emulator.ARCH_SIM, emulator.MODE_64)
			assert.NoError(t, err)
			runtime.GC()
		}
	}()
	wg.Wait()
	assert.NotNil(t, Logger())
}
