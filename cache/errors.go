package cache

import (
	"fmt"
	"time"
)

// Predefined errors
var (
	// ErrInvalidConfig is returned when required constructor arguments are missing
	ErrInvalidConfig = fmt.Errorf("cache: invalid config")
	// ErrMissingConfig is returned by New for a nil config
	ErrMissingConfig = fmt.Errorf("%w: config is required", ErrInvalidConfig)
	// ErrNotLive is returned by Persist when the mirror holds no live data
	ErrNotLive = fmt.Errorf("cache: mirror has no live data")
	// ErrNoStore is returned by Persist when no snapshot store is configured
	ErrNoStore = fmt.Errorf("cache: no snapshot store")
)

// ErrSubscribe wraps a failed upstream subscription
func ErrSubscribe(name string, err error) error {
	return fmt.Errorf("cache: %s: subscribe failed: %w", name, err)
}

// ErrInvalidName returns an error for a missing mirror name
func ErrInvalidName(name string) error {
	return fmt.Errorf("%w: name %q must be non-empty", ErrInvalidConfig, name)
}

// ErrInvalidMaxAge returns an error for invalid snapshot max age
func ErrInvalidMaxAge(maxAge time.Duration) error {
	return fmt.Errorf("cache: invalid max age: %v (must be > 0)", maxAge)
}

// ErrInvalidQueueSize returns an error for invalid queue size
func ErrInvalidQueueSize(size int) error {
	return fmt.Errorf("cache: invalid queue size: %d (must be >= 1)", size)
}

// ErrInvalidPersistTimeout returns an error for invalid persist timeout
func ErrInvalidPersistTimeout(timeout time.Duration) error {
	return fmt.Errorf("cache: invalid persist timeout: %v (must be > 0)", timeout)
}
