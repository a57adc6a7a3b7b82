package luabind

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var (
	logger    atomic.Value
	nopLogger = zap.NewNop()
)

// Logger returns the luabind package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	if l, ok := logger.Load().(*zap.Logger); ok {
		return l
	}
	return nopLogger
}

// SetLogger replaces the luabind package's logger. A nil logger restores the
// no-op default. It is safe to call while engines are running.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = nopLogger
	}
	logger.Store(l)
}
