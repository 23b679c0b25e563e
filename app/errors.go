package app

import "fmt"

var (
	// ErrStarted is returned when starting a running app
	ErrStarted = fmt.Errorf("app: already started")
	// ErrStopped is returned when starting a stopped app
	ErrStopped = fmt.Errorf("app: stopped")
)

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("app: invalid config: %s", msg)
}

// ErrBuild wraps the failure of one component
func ErrBuild(component string, err error) error {
	return fmt.Errorf("app: build %s: %w", component, err)
}
