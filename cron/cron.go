// Package cron schedules chains of tasks on robfig/cron with a seconds field.
//
// Tasks of a chain run sequentially and share a SharedData through the
// context; the first failure aborts the chain. A chain that is still running
// when its next tick fires skips that tick.
package cron

import (
	"context"
	"time"

	"github.com/trattoria/livesync/logger"
)

// Task is the interface for a cron task
// Each task must have a unique name and implement the Run method
type Task interface {
	// Name returns the unique identifier for this task
	Name() string
	// Run executes the task with the given context
	// The context carries the chain's SharedData
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to Task
type TaskFunc struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

func (t TaskFunc) Name() string                  { return t.TaskName }
func (t TaskFunc) Run(ctx context.Context) error { return t.Fn(ctx) }

// Chain represents a chain of tasks that execute sequentially
type Chain struct {
	// Name is the name of the chain
	Name string
	// Spec is the cron spec for the chain
	Spec string
	// Timeout bounds one run of the whole chain; 0 means no limit
	Timeout time.Duration
	// Tasks are the tasks in the chain
	Tasks []Task
}

// Cron is the interface for managing cron jobs
// It supports chain-based task execution with middleware support
type Cron interface {
	// Start begins the cron scheduler
	Start()
	// Close stops the cron scheduler and waits for running jobs to complete
	Close()
	// AddTasks adds a chain of tasks without a run timeout
	AddTasks(name string, spec string, tasks ...Task) error
	// AddChain adds a chain to be executed according to its cron spec
	AddChain(chain Chain) error
	// Trigger runs a registered chain now, outside the schedule, and returns its error
	Trigger(ctx context.Context, name string) error
}

// NewCron creates a new cron manager with the given logger and middlewares
// Middlewares are applied to all tasks in the order they are provided
// Built-in middlewares: recoveryMiddleware, loggingMiddleware
func NewCron(log logger.Logger, mws ...Middleware) Cron {
	defaultMws := []Middleware{
		recoveryMiddleware(log),
		loggingMiddleware(log),
	}
	return newCronManager(log, append(defaultMws, mws...)...)
}
