// Package cache keeps an eventually consistent in-memory mirror of one remote
// collection and fans its changes out to local subscribers.
//
// A Mirror is fed by a feed.Source. Every feed callback is queued and applied
// by a single pump goroutine, so each delta is applied and delivered to every
// listener before the next one starts. Reads never block on the feed.
//
// The first Subscribe opens the upstream subscription and the last unsubscribe
// closes it. A subscriber that joins a ready mirror is sent the current state as
// an initial_load event before any later change.
//
// When a SnapshotStore is configured, a fresh persisted snapshot serves reads
// until the live snapshot lands, and a stale one is used if the feed fails
// before any data was loaded.
package cache

import (
	"context"
	"time"

	"github.com/trattoria/livesync/feed"
)

// Schema describes how a mirror identifies and orders its items
type Schema[T any] struct {
	// Key returns the identity key of an item (required)
	Key func(T) string
	// Less orders GetAll and GetFiltered results; nil orders by key
	Less func(a, b T) bool
}

// SnapshotStore persists full copies of a mirror's items
type SnapshotStore[T any] interface {
	Save(ctx context.Context, key string, items []T) error
	Load(ctx context.Context, key string, maxAge time.Duration) ([]T, time.Time, bool)
	LoadStale(ctx context.Context, key string) ([]T, time.Time, bool)
}

// Listener receives mirror events. It runs on the mirror's pump goroutine and
// must not call ApplyInitialSnapshot, ApplyDelta or Persist on the same mirror.
type Listener[T any] func(Event[T])

// Unsubscribe removes a listener. Calling it more than once is a no-op.
type Unsubscribe func()

// Mirror is a read-only local copy of one remote collection
type Mirror[T any] interface {
	// Name identifies the mirror in logs
	Name() string

	// Open starts the upstream subscription. It returns immediately and is a no-op when already open.
	Open()

	// Close stops the upstream subscription and clears the state.
	// A later Open starts a new lifetime.
	Close()

	// ApplyInitialSnapshot replaces the state and marks the mirror ready.
	// Once ready, a snapshot is reconciled into added, modified and removed events.
	ApplyInitialSnapshot(items []T)

	// ApplyDelta applies one change and emits one event. Adding a present key
	// and removing an absent key are no-ops without an event.
	ApplyDelta(kind feed.Kind, item T)

	// GetAll returns every item in schema order
	GetAll() []T

	// GetByID returns the item with key
	GetByID(key string) (T, bool)

	// GetFiltered returns the items matching keep in schema order
	GetFiltered(keep func(T) bool) []T

	// Stats returns the current statistics
	Stats() Stats

	// Subscribe registers l; the returned func removes it
	Subscribe(l Listener[T]) Unsubscribe

	// Persist overwrites the persisted snapshot with the live state.
	// It returns ErrNotLive while the mirror serves persisted or no data.
	Persist(ctx context.Context) error
}
