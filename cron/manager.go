package cron

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/trattoria/livesync/logger"
	"go.uber.org/zap"
)

// chainJob runs the tasks of a chain sequentially
type chainJob struct {
	chain  Chain
	logger logger.Logger
}

// Run is called by the scheduler
func (j *chainJob) Run() {
	_ = j.run(context.Background())
}

// run executes all tasks in order and stops at the first failure
func (j *chainJob) run(parent context.Context) error {
	ctx := context.WithValue(parent, sharedDataKey, &SharedData{})
	if j.chain.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.chain.Timeout)
		defer cancel()
	}

	j.logger.Info("chain job started", zap.String("chain_name", j.chain.Name))

	for _, task := range j.chain.Tasks {
		if err := task.Run(ctx); err != nil {
			j.logger.Error("chain job aborted due to task failure",
				zap.String("chain_name", j.chain.Name),
				zap.String("task_name", task.Name()),
				zap.Error(err),
			)
			return ErrTask(j.chain.Name, task.Name(), err)
		}
	}

	j.logger.Info("chain job completed", zap.String("chain_name", j.chain.Name))
	return nil
}

// cronManager is the default implementation of the Cron interface
type cronManager struct {
	cron        *cron.Cron
	middlewares []Middleware
	logger      logger.Logger

	mu     sync.Mutex
	jobs   map[string]*chainJob
	closed bool
}

// newCronManager creates a new cron manager instance
func newCronManager(log logger.Logger, mws ...Middleware) *cronManager {
	cl := cronLogger{log: log}
	return &cronManager{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl)),
		),
		middlewares: mws,
		logger:      log,
		jobs:        make(map[string]*chainJob),
	}
}

// Start begins the cron scheduler
func (m *cronManager) Start() {
	m.cron.Start()
}

// Close stops the cron scheduler and waits for running jobs to complete
func (m *cronManager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	ctx := m.cron.Stop()
	<-ctx.Done()
}

// AddTasks adds a chain of tasks to be executed according to the cron spec
// The spec follows the standard cron format with support for seconds (6 fields)
// Example: "0 0 * * * *" (every hour at minute 0, second 0)
func (m *cronManager) AddTasks(name, spec string, tasks ...Task) error {
	return m.AddChain(Chain{Name: name, Spec: spec, Tasks: tasks})
}

// AddChain registers chain under its name
func (m *cronManager) AddChain(chain Chain) error {
	if len(chain.Tasks) == 0 {
		return ErrNoTasks
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrCronClosed
	}
	if _, ok := m.jobs[chain.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateChain, chain.Name)
	}

	// apply middlewares to all tasks
	wrappedTasks := make([]Task, len(chain.Tasks))
	for i, task := range chain.Tasks {
		wrapTask := &wrappedTask{
			name: fmt.Sprintf("%s:%s", chain.Name, task.Name()),
			exec: task.Run,
		}
		wrappedTasks[i] = applyMiddlewares(wrapTask, m.middlewares...)
	}

	job := &chainJob{
		chain: Chain{
			Name:    chain.Name,
			Spec:    chain.Spec,
			Timeout: chain.Timeout,
			Tasks:   wrappedTasks,
		},
		logger: m.logger,
	}

	if _, err := m.cron.AddJob(chain.Spec, job); err != nil {
		return fmt.Errorf("%w: chain %s with spec %q: %v", ErrInvalidSpec, chain.Name, chain.Spec, err)
	}
	m.jobs[chain.Name] = job

	m.logger.Info("chain added",
		zap.String("chain_name", chain.Name),
		zap.String("spec", chain.Spec),
		zap.Duration("timeout", chain.Timeout),
		zap.Int("task_count", len(chain.Tasks)),
	)
	return nil
}

// Trigger runs the chain registered as name on the calling goroutine
func (m *cronManager) Trigger(ctx context.Context, name string) error {
	m.mu.Lock()
	job, ok := m.jobs[name]
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return ErrCronClosed
	}
	if !ok {
		return ErrUnknownChain(name)
	}
	return job.run(ctx)
}

// cronLogger routes robfig/cron scheduler messages to the zap logger
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug(msg, append(kvFields(keysAndValues), zap.String("component", "cron"))...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error(msg, append(kvFields(keysAndValues), zap.String("component", "cron"), zap.Error(err))...)
}

func kvFields(keysAndValues []any) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2+1)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
