package cache

import "time"

// EventType is the kind of a mirror event
type EventType string

const (
	EventInitialLoad EventType = "initial_load"
	EventAdded       EventType = "added"
	EventModified    EventType = "modified"
	EventRemoved     EventType = "removed"
	EventError       EventType = "error"
	// EventStatus carries new Stats when only the online or stale flag changed
	EventStatus EventType = "status"
)

// Stats is derived from the mirror state after each mutation
type Stats struct {
	TotalCount  int       `json:"totalCount"`
	LastUpdated time.Time `json:"lastUpdated"`
	// IsOnline is false while the data comes from a local cache or the feed is disconnected
	IsOnline       bool `json:"isOnline"`
	HasInitialData bool `json:"hasInitialData"`
	// Stale is true while the mirror serves a persisted snapshot
	Stale bool `json:"stale"`
}

// Event is delivered to listeners.
//
// Items is set for initial_load, Item and Key for added, modified and removed,
// Err for error. A status event carries Stats only. Items is shared between listeners and must be treated as read-only.
type Event[T any] struct {
	Type  EventType
	Items []T
	Item  T
	Key   string
	Err   error
	Stats Stats
}
