package cron

import (
	"context"
	"time"

	"github.com/trattoria/livesync/logger"
	"github.com/trattoria/livesync/routine"
	"go.uber.org/zap"
)

// Middleware is a function that wraps a Task with additional behavior
type Middleware func(Task) Task

// applyMiddlewares applies multiple middlewares to a task
// applyMiddlewares(task, mw1, mw2, mw3) results in: mw1(mw2(mw3(task)))
func applyMiddlewares(t Task, mws ...Middleware) Task {
	for i := len(mws) - 1; i >= 0; i-- {
		t = mws[i](t)
	}
	return t
}

// recoveryMiddleware turns a task panic into an error wrapping routine.ErrPanicRecovered
func recoveryMiddleware(log logger.Logger) Middleware {
	return func(next Task) Task {
		return &wrappedTask{
			name: next.Name(),
			exec: func(ctx context.Context) error {
				var err error
				if perr := routine.Call(log, next.Name(), func() { err = next.Run(ctx) }); perr != nil {
					return perr
				}
				return err
			},
		}
	}
}

// loggingMiddleware logs start, duration and outcome of every task run
func loggingMiddleware(log logger.Logger) Middleware {
	return func(next Task) Task {
		return &wrappedTask{
			name: next.Name(),
			exec: func(ctx context.Context) error {
				start := time.Now()
				log.Debug("task started", zap.String("task", next.Name()))

				err := next.Run(ctx)

				duration := time.Since(start)
				if err != nil {
					log.Error("task failed",
						zap.String("task", next.Name()),
						zap.Duration("duration", duration),
						zap.Error(err),
					)
				} else {
					log.Info("task completed",
						zap.String("task", next.Name()),
						zap.Duration("duration", duration),
					)
				}
				return err
			},
		}
	}
}

// TimeoutMiddleware bounds every task run by d
func TimeoutMiddleware(d time.Duration) Middleware {
	return func(next Task) Task {
		return &wrappedTask{
			name: next.Name(),
			exec: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, d)
				defer cancel()
				return next.Run(ctx)
			},
		}
	}
}

// wrappedTask is an internal helper struct used to wrap tasks with middleware
type wrappedTask struct {
	name string
	exec func(ctx context.Context) error
}

func (w *wrappedTask) Name() string {
	return w.name
}

func (w *wrappedTask) Run(ctx context.Context) error {
	return w.exec(ctx)
}
