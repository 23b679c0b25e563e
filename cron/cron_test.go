package cron

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trattoria/livesync/logger"
	"github.com/trattoria/livesync/routine"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordTask struct {
	name string
	mu   *sync.Mutex
	log  *[]string
	err  error
}

func (r recordTask) Name() string { return r.name }

func (r recordTask) Run(context.Context) error {
	r.mu.Lock()
	*r.log = append(*r.log, r.name)
	r.mu.Unlock()
	return r.err
}

func TestTrigger_RunsChainInOrder(t *testing.T) {
	c := NewCron(logger.NewNop())
	defer c.Close()

	var mu sync.Mutex
	var ran []string
	err := c.AddTasks("maintenance", "0 0 * * * *",
		recordTask{name: "persist", mu: &mu, log: &ran},
		recordTask{name: "purge", mu: &mu, log: &ran},
	)
	if err != nil {
		t.Fatalf("AddTasks() = %v", err)
	}

	if err := c.Trigger(context.Background(), "maintenance"); err != nil {
		t.Fatalf("Trigger() = %v", err)
	}
	if len(ran) != 2 || ran[0] != "persist" || ran[1] != "purge" {
		t.Errorf("ran = %v", ran)
	}
}

func TestTrigger_AbortsOnFailure(t *testing.T) {
	c := NewCron(logger.NewNop())
	defer c.Close()

	boom := errors.New("boom")
	var mu sync.Mutex
	var ran []string
	_ = c.AddTasks("chain", "@every 1h",
		recordTask{name: "first", mu: &mu, log: &ran, err: boom},
		recordTask{name: "second", mu: &mu, log: &ran},
	)

	err := c.Trigger(context.Background(), "chain")
	if !errors.Is(err, boom) {
		t.Fatalf("Trigger() = %v, want wrapped boom", err)
	}
	if len(ran) != 1 {
		t.Errorf("ran = %v, second task must not run", ran)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	c := NewCron(zap.New(core))
	defer c.Close()

	_ = c.AddTasks("chain", "@every 1h", TaskFunc{TaskName: "explode", Fn: func(context.Context) error {
		panic("kaboom")
	}})

	err := c.Trigger(context.Background(), "chain")
	if !errors.Is(err, routine.ErrPanicRecovered) {
		t.Fatalf("Trigger() = %v, want ErrPanicRecovered", err)
	}
	if logs.FilterMessage("callback panicked").Len() != 1 {
		t.Error("panic not logged")
	}
}

func TestSharedData_BetweenTasks(t *testing.T) {
	c := NewCron(logger.NewNop())
	defer c.Close()

	var seen int
	_ = c.AddTasks("chain", "@every 1h",
		TaskFunc{TaskName: "count", Fn: func(ctx context.Context) error {
			shared := GetSharedData(ctx)
			shared.Add("persisted", 2)
			shared.Add("persisted", 1)
			return nil
		}},
		TaskFunc{TaskName: "report", Fn: func(ctx context.Context) error {
			seen = GetSharedData(ctx).Int("persisted")
			return nil
		}},
	)

	if err := c.Trigger(context.Background(), "chain"); err != nil {
		t.Fatal(err)
	}
	if seen != 3 {
		t.Errorf("shared counter = %d, want 3", seen)
	}

	// a new run starts with fresh data
	if err := c.Trigger(context.Background(), "chain"); err != nil {
		t.Fatal(err)
	}
	if seen != 3 {
		t.Errorf("shared counter on second run = %d, want 3", seen)
	}

	if GetSharedData(context.Background()) != nil {
		t.Error("SharedData outside a chain")
	}
}

func TestChainTimeout(t *testing.T) {
	c := NewCron(logger.NewNop())
	defer c.Close()

	err := c.AddChain(Chain{
		Name:    "slow",
		Spec:    "@every 1h",
		Timeout: 20 * time.Millisecond,
		Tasks: []Task{TaskFunc{TaskName: "wait", Fn: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Trigger(context.Background(), "slow"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Trigger() = %v, want deadline exceeded", err)
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	c := NewCron(logger.NewNop(), TimeoutMiddleware(10*time.Millisecond))
	defer c.Close()

	_ = c.AddTasks("chain", "@every 1h", TaskFunc{TaskName: "wait", Fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	if err := c.Trigger(context.Background(), "chain"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Trigger() = %v", err)
	}
}

func TestAddChain_Errors(t *testing.T) {
	c := NewCron(logger.NewNop())
	task := TaskFunc{TaskName: "noop", Fn: func(context.Context) error { return nil }}

	if err := c.AddTasks("empty", "@every 1h"); !errors.Is(err, ErrNoTasks) {
		t.Errorf("no tasks = %v", err)
	}
	if err := c.AddTasks("bad", "not a spec", task); !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("bad spec = %v", err)
	}
	if err := c.AddTasks("ok", "*/5 * * * * *", task); err != nil {
		t.Fatalf("valid spec = %v", err)
	}
	if err := c.AddTasks("ok", "@every 1h", task); !errors.Is(err, ErrDuplicateChain) {
		t.Errorf("duplicate = %v", err)
	}
	if err := c.Trigger(context.Background(), "missing"); err == nil {
		t.Error("Trigger() of unknown chain succeeded")
	}

	c.Close()
	if err := c.AddTasks("late", "@every 1h", task); !errors.Is(err, ErrCronClosed) {
		t.Errorf("after Close = %v", err)
	}
	if err := c.Trigger(context.Background(), "ok"); !errors.Is(err, ErrCronClosed) {
		t.Errorf("Trigger() after Close = %v", err)
	}
}

func TestScheduler_RunsChain(t *testing.T) {
	c := NewCron(logger.NewNop())
	var runs atomic.Int32
	_ = c.AddTasks("tick", "* * * * * *", TaskFunc{TaskName: "count", Fn: func(context.Context) error {
		runs.Add(1)
		return nil
	}})
	c.Start()
	defer c.Close()

	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("scheduled chain never ran")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
