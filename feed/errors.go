package feed

import (
	"fmt"
	"time"
)

var (
	// ErrSubscriptionClosed is returned when a closed subscription is used
	ErrSubscriptionClosed = fmt.Errorf("feed: subscription closed")
	// ErrMissingPayload is returned for change messages that carry no document
	ErrMissingPayload = fmt.Errorf("feed: change payload is required")
	// ErrInvalidConfig is returned when a source is built without required parts
	ErrInvalidConfig = fmt.Errorf("feed: invalid config")
)

// ErrUnknownKind returns an error for an unrecognised delta kind
func ErrUnknownKind(kind string) error {
	return fmt.Errorf("feed: unknown change kind %q", kind)
}

// ErrFetch wraps a failed fetch after all retries
func ErrFetch(collection string, err error) error {
	return fmt.Errorf("feed: fetch %s failed: %w", collection, err)
}

// ErrDecode wraps a change payload that cannot be decoded
func ErrDecode(collection string, err error) error {
	return fmt.Errorf("feed: decode %s change: %w", collection, err)
}

// ErrInvalidInterval returns an error for invalid poll interval
func ErrInvalidInterval(interval time.Duration) error {
	return fmt.Errorf("feed: invalid poll interval: %v (must be > 0)", interval)
}

// ErrInvalidTimeout returns an error for invalid fetch timeout
func ErrInvalidTimeout(timeout time.Duration) error {
	return fmt.Errorf("feed: invalid fetch timeout: %v (must be > 0)", timeout)
}

// ErrInvalidMaxRetries returns an error for invalid max retries
func ErrInvalidMaxRetries(retries int) error {
	return fmt.Errorf("feed: invalid max retries: %d (must be >= 1)", retries)
}
