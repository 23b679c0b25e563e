// Package feed describes the upstream change feed consumed by the cache mirrors.
//
// A Source delivers, per subscription, one initial Snapshot followed by an
// ordered sequence of Changes, each tagged with the Origin of the data.
// Transport failures surface through Sink.Error; the retry policy belongs to the
// source, never to the consumer.
//
// Available sources:
//   - Memory: an in-process collection, used in tests and local wiring
//   - Poller: turns a periodic full fetch into snapshot + diffs
//   - KafkaSource: snapshot from a loader, deltas from the Kafka change topic
package feed

import (
	"context"
	"fmt"
)

// Kind is the type of one delta
type Kind string

const (
	Added    Kind = "added"
	Modified Kind = "modified"
	Removed  Kind = "removed"
)

// Valid reports whether k is one of the known kinds
func (k Kind) Valid() bool {
	switch k {
	case Added, Modified, Removed:
		return true
	}
	return false
}

// ParseKind converts a wire value into a Kind
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", ErrUnknownKind(s)
	}
	return k, nil
}

// Origin tells whether data was confirmed by the remote store or served
// from the feed client's own local cache
type Origin int

const (
	OriginServer Origin = iota
	OriginCache
)

func (o Origin) String() string {
	switch o {
	case OriginServer:
		return "server"
	case OriginCache:
		return "cache"
	}
	return fmt.Sprintf("origin(%d)", int(o))
}

// Change is one delta for one document
type Change[T any] struct {
	Kind Kind
	Doc  T
}

// Sink receives the feed of one subscription. A source never calls one sink concurrently.
type Sink[T any] interface {
	// Snapshot delivers the full current collection
	Snapshot(docs []T, origin Origin)
	// Change delivers one delta
	Change(change Change[T], origin Origin)
	// Connectivity reports the transport's own connection signal
	Connectivity(online bool)
	// Error reports a transport error; the subscription stays open
	Error(err error)
}

// Source is a subscribable remote collection
type Source[T any] interface {
	Collection() string
	// Subscribe starts delivering to sink until the subscription is closed or ctx is done
	Subscribe(ctx context.Context, sink Sink[T]) (Subscription, error)
}

// Subscription is a live upstream connection
type Subscription interface {
	Close() error
}

// SubscriptionFunc adapts a function to Subscription
type SubscriptionFunc func() error

// Close calls f
func (f SubscriptionFunc) Close() error { return f() }

// FetchFunc loads the full current collection
type FetchFunc[T any] func(ctx context.Context) ([]T, error)
