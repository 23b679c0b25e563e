package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// global holds the logger behind the package-level functions. It is built
// lazily from DefaultConfig until New or ReplaceGlobal installs another one.
var global atomic.Pointer[zap.Logger]

func defaultGlobal() *zap.Logger {
	l, err := build(DefaultConfig(), zapcore.InfoLevel, zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func current() *zap.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	global.CompareAndSwap(nil, defaultGlobal())
	return global.Load()
}

// ReplaceGlobal installs l behind the package-level functions and returns a
// func restoring the previous one. l should carry zap.AddCallerSkip(1).
func ReplaceGlobal(l *zap.Logger) func() {
	prev := global.Swap(l)
	return func() { global.Store(prev) }
}

// L returns the global logger without the extra caller frame
func L() Logger {
	return current().WithOptions(zap.AddCallerSkip(-1))
}

func Debug(msg string, fields ...zap.Field) { current().Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { current().Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { current().Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { current().Error(msg, fields...) }

// Sync flushes the global logger
func Sync() error { return current().Sync() }
