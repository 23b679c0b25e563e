// Package snapshot persists the last known state of each mirror so a restart
// can serve data before the live feed has delivered anything.
//
// A snapshot is a JSON envelope holding the items and the time they were
// written. Load treats snapshots older than the caller's max age as absent;
// LoadStale ignores age and is the fallback when the feed fails at cold start.
package snapshot

import (
	"context"
	"time"

	"github.com/trattoria/livesync/logger"
	"go.uber.org/zap"
)

// Backend is a key/value byte store with per-key expiration
type Backend interface {
	// Put stores value under key; it expires after ttl
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns the value and whether it exists and has not expired
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Purger is implemented by backends that need expired rows removed explicitly
type Purger interface {
	// Purge removes expired entries and returns how many were removed
	Purge(ctx context.Context) (int64, error)
}

// Store saves and loads snapshots of one item type
type Store[T any] struct {
	logger  logger.Logger
	backend Backend
	cfg     *Config
	now     func() time.Time
}

// NewStore creates a snapshot store. A nil config uses DefaultConfig.
func NewStore[T any](log logger.Logger, backend Backend, cfg *Config) (*Store[T], error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, ErrInvalidConfig("backend is required")
	}
	return &Store[T]{logger: log, backend: backend, cfg: cfg, now: time.Now}, nil
}

// Key returns the storage key of a collection
func (s *Store[T]) Key(collection string) string {
	return s.cfg.Prefix + collection
}

// Save overwrites the snapshot under key. Failures are logged and returned;
// a failed save never affects the in-memory state of the caller.
func (s *Store[T]) Save(ctx context.Context, key string, items []T) error {
	if key == "" {
		return ErrEmptyKey
	}
	data, err := encode(items, s.now())
	if err != nil {
		s.logger.Error("failed to encode snapshot", zap.String("key", key), zap.Error(err))
		return err
	}
	if err := s.backend.Put(ctx, key, data, s.cfg.Retention); err != nil {
		s.logger.Error("failed to save snapshot", zap.String("key", key), zap.Error(err))
		return err
	}
	s.logger.Debug("snapshot saved", zap.String("key", key), zap.Int("count", len(items)))
	return nil
}

// Load returns the snapshot under key if it is younger than maxAge
func (s *Store[T]) Load(ctx context.Context, key string, maxAge time.Duration) ([]T, time.Time, bool) {
	items, writtenAt, ok := s.read(ctx, key)
	if !ok {
		return nil, time.Time{}, false
	}
	if age := s.now().Sub(writtenAt); age > maxAge {
		s.logger.Debug("snapshot too old",
			zap.String("key", key),
			zap.Duration("age", age),
			zap.Duration("max_age", maxAge),
		)
		return nil, time.Time{}, false
	}
	return items, writtenAt, true
}

// LoadStale returns the snapshot under key regardless of its age
func (s *Store[T]) LoadStale(ctx context.Context, key string) ([]T, time.Time, bool) {
	return s.read(ctx, key)
}

// Purge removes expired snapshots when the backend needs it
func (s *Store[T]) Purge(ctx context.Context) (int64, error) {
	p, ok := s.backend.(Purger)
	if !ok {
		return 0, nil
	}
	return p.Purge(ctx)
}

func (s *Store[T]) read(ctx context.Context, key string) ([]T, time.Time, bool) {
	data, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn("failed to read snapshot", zap.String("key", key), zap.Error(err))
		return nil, time.Time{}, false
	}
	if !ok {
		return nil, time.Time{}, false
	}
	items, writtenAt, err := decode[T](data)
	if err != nil {
		s.logger.Warn("discarding undecodable snapshot", zap.String("key", key), zap.Error(err))
		return nil, time.Time{}, false
	}
	return items, writtenAt, true
}
