// Package routine provides goroutine execution and callback invocation with panic recovery.
//
// A panic in a feed pump, a subscriber callback or a scheduled task must never
// take the whole process down; everything that runs foreign code goes through here.
package routine

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/trattoria/livesync/logger"
	"go.uber.org/zap"
)

// Runner starts named goroutines and can wait for all of them
type Runner interface {
	// GoNamed executes fn in a new goroutine with panic recovery
	GoNamed(name string, fn func())

	// GoNamedWithContext executes fn with ctx in a new goroutine with panic recovery
	GoNamedWithContext(ctx context.Context, name string, fn func(ctx context.Context))

	// Wait waits for all goroutines started by this runner to complete
	Wait()
}

type defaultRunner struct {
	log logger.Logger
	wg  sync.WaitGroup
}

// New creates a new Runner with the given logger
func New(log logger.Logger) Runner {
	return &defaultRunner{log: log}
}

func (r *defaultRunner) GoNamed(name string, fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer recoverWithLog(r.log, name)
		fn()
	}()
}

func (r *defaultRunner) GoNamedWithContext(ctx context.Context, name string, fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer recoverWithLog(r.log, name)
		fn(ctx)
	}()
}

func (r *defaultRunner) Wait() {
	r.wg.Wait()
}

// GoNamed executes a named function in a new, untracked goroutine with panic recovery
func GoNamed(log logger.Logger, name string, fn func()) {
	go func() {
		defer recoverWithLog(log, name)
		fn()
	}()
}

// GoNamedWithContext is GoNamed with a context argument
func GoNamedWithContext(ctx context.Context, log logger.Logger, name string, fn func(ctx context.Context)) {
	go func() {
		defer recoverWithLog(log, name)
		fn(ctx)
	}()
}

// Call runs fn on the calling goroutine. A panic is logged and returned as an error
// wrapping ErrPanicRecovered instead of unwinding into the caller.
func Call(log logger.Logger, name string, fn func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("callback panicked", panicFields(name, rec)...)
			err = ErrPanic(rec)
		}
	}()
	fn()
	return nil
}

func recoverWithLog(log logger.Logger, name string) {
	if rec := recover(); rec != nil {
		log.Error("goroutine panicked", panicFields(name, rec)...)
	}
}

func panicFields(name string, rec any) []zap.Field {
	fields := []zap.Field{
		zap.Any("panic", rec),
		zap.String("stack", string(debug.Stack())),
	}
	if name != "" {
		fields = append([]zap.Field{zap.String("routine", name)}, fields...)
	}
	return fields
}
