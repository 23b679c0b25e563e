package journal

import (
	"context"
	"sync"
	"time"

	"github.com/smallnest/chanx"
	"github.com/trattoria/livesync/logger"
	"github.com/trattoria/livesync/routine"
	"go.uber.org/zap"
)

// Journal buffers rows and hands them to an Inserter in batches
type Journal struct {
	config   *Config
	logger   logger.Logger
	inserter Inserter

	rows   *chanx.UnboundedChan[Row]
	cancel context.CancelFunc
	runner routine.Runner
	now    func() time.Time

	mu      sync.RWMutex
	started bool
	closed  bool
}

// New creates a journal writing through inserter. Start begins flushing.
func New(log logger.Logger, config *Config, inserter Inserter) (*Journal, error) {
	if config == nil {
		config = DefaultConfig()
	}
	config.MergeDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if inserter == nil {
		return nil, ErrInvalidConfig("inserter is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &Journal{
		config:   config,
		logger:   log,
		inserter: inserter,
		rows:     chanx.NewUnboundedChan[Row](ctx, config.FlushSize),
		cancel:   cancel,
		runner:   routine.New(log),
		now:      time.Now,
	}

	log.Info("journal initialized",
		zap.Duration("flush_interval", config.FlushInterval),
		zap.Int("flush_size", config.FlushSize),
		zap.Int("min_flush_size", config.MinFlushSize),
		zap.Duration("max_wait_time", config.MaxWaitTime),
	)
	return j, nil
}

// Start begins the flush loop. It is a no-op when already started.
func (j *Journal) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if j.started {
		return nil
	}
	j.started = true
	j.runner.GoNamed("journal-flush", j.processLoop)
	j.logger.Info("journal started")
	return nil
}

// Record queues rows. It never blocks; rows recorded after Close are rejected.
func (j *Journal) Record(rows ...Row) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}
	for _, row := range rows {
		j.rows.In <- row
	}
	return nil
}

// Close flushes what is buffered, stops the loop and closes the inserter
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	started := j.started
	close(j.rows.In)
	j.mu.Unlock()

	j.logger.Info("journal shutting down")
	if started {
		j.runner.Wait()
	}
	j.cancel()

	if err := j.inserter.Close(); err != nil {
		j.logger.Error("failed to close journal inserter", zap.Error(err))
		return err
	}
	j.logger.Info("journal shutdown complete")
	return nil
}

func (j *Journal) processLoop() {
	ticker := time.NewTicker(j.config.FlushInterval)
	defer ticker.Stop()

	buffer := make([]Row, 0, j.config.FlushSize)
	var firstRowAt time.Time

	for {
		select {
		case row, ok := <-j.rows.Out:
			if !ok {
				// In was closed and everything queued was read
				if len(buffer) > 0 {
					j.flush(buffer)
				}
				j.logger.Info("journal flush loop stopped")
				return
			}
			if len(buffer) == 0 {
				firstRowAt = j.now()
			}
			buffer = append(buffer, row)
			if len(buffer) >= j.config.FlushSize {
				j.flush(buffer)
				buffer = buffer[:0]
			}

		case <-ticker.C:
			if len(buffer) == 0 {
				continue
			}
			if j.shouldFlush(len(buffer), firstRowAt) {
				j.flush(buffer)
				buffer = buffer[:0]
			} else {
				j.logger.Debug("skipping flush, waiting for more rows",
					zap.Int("current_rows", len(buffer)),
					zap.Int("min_flush_size", j.config.MinFlushSize),
				)
			}
		}
	}
}

// shouldFlush applies the MinFlushSize and MaxWaitTime strategy to a time-triggered flush
func (j *Journal) shouldFlush(rows int, firstRowAt time.Time) bool {
	if j.config.MinFlushSize == 0 || rows >= j.config.MinFlushSize {
		return true
	}
	return j.config.MaxWaitTime > 0 && j.now().Sub(firstRowAt) >= j.config.MaxWaitTime
}

func (j *Journal) flush(rows []Row) {
	batch := make([]Row, len(rows))
	copy(batch, rows)

	ctx, cancel := context.WithTimeout(context.Background(), j.config.InsertTimeout)
	defer cancel()

	if err := j.inserter.Insert(ctx, batch); err != nil {
		j.logger.Error("failed to insert journal batch", zap.Int("rows", len(batch)), zap.Error(err))
		return
	}
	j.logger.Debug("journal flush completed", zap.Int("rows", len(batch)))
}
