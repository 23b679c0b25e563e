package logger

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGlobal_LazyDefault(t *testing.T) {
	restore := ReplaceGlobal(nil)
	defer restore()

	Info("built on first use", zap.String("key", "value"))
	if global.Load() == nil {
		t.Error("global logger not built by Info")
	}
}

func TestGlobal_ReplaceAndRestore(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	restore := ReplaceGlobal(zap.New(core, zap.AddCallerSkip(1)))

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")
	L().Info("through L")
	restore()
	Info("after restore")

	want := []string{"debug message", "info message", "warn message", "error message", "through L"}
	entries := recorded.All()
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, entry := range entries {
		if entry.Message != want[i] {
			t.Errorf("entry %d = %q, want %q", i, entry.Message, want[i])
		}
	}
}

func TestGlobal_ConcurrentFirstUse(t *testing.T) {
	restore := ReplaceGlobal(nil)
	defer restore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			Debug("concurrent message", zap.Int("goroutine", id))
		}(i)
	}
	wg.Wait()

	first := global.Load()
	Debug("again")
	if global.Load() != first {
		t.Error("global logger rebuilt after first use")
	}
}

func TestNew_ReplacesGlobal(t *testing.T) {
	restore := ReplaceGlobal(nil)
	defer restore()

	if _, err := New(&Config{Level: "debug", Encoding: "json"}); err != nil {
		t.Fatalf("New() = %v", err)
	}
	if global.Load() == nil {
		t.Error("global logger not installed by New")
	}
}

func TestConfig_ErrorsWrapInvalidConfig(t *testing.T) {
	for _, cfg := range []*Config{{Level: "loud"}, {Encoding: "xml"}} {
		_, err := New(cfg)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("New(%+v) = %v, want ErrInvalidConfig", cfg, err)
		}
	}
}
