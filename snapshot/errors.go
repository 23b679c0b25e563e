package snapshot

import (
	"fmt"
	"time"
)

var (
	// ErrClosed is returned by a backend after Close
	ErrClosed = fmt.Errorf("snapshot: backend is closed")
	// ErrEmptyKey is returned when a key is empty
	ErrEmptyKey = fmt.Errorf("snapshot: key is required")

	errMissingTimestamp = fmt.Errorf("missing writtenAt")
)

// ErrInvalidConfig returns a configuration error
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("snapshot: invalid config: %s", msg)
}

// ErrInvalidRetention returns an error for invalid retention
func ErrInvalidRetention(retention time.Duration) error {
	return fmt.Errorf("snapshot: invalid retention: %v (must be > 0)", retention)
}

// ErrConnection wraps a backend connection failure
func ErrConnection(err error) error {
	return fmt.Errorf("snapshot: connection failed: %w", err)
}

// ErrBackend wraps a backend operation failure
func ErrBackend(op, key string, err error) error {
	return fmt.Errorf("snapshot: %s %s: %w", op, key, err)
}

// ErrEncode wraps an envelope encoding failure
func ErrEncode(err error) error {
	return fmt.Errorf("snapshot: encode: %w", err)
}

// ErrDecode wraps an envelope decoding failure
func ErrDecode(err error) error {
	return fmt.Errorf("snapshot: decode: %w", err)
}
