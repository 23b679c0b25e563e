package cron

import "fmt"

var (
	// ErrNoTasks is returned when attempting to add a chain job with no tasks
	ErrNoTasks = fmt.Errorf("cron: no tasks provided")

	// ErrInvalidSpec is returned when a cron spec string is invalid
	ErrInvalidSpec = fmt.Errorf("cron: invalid cron spec")

	// ErrCronClosed is returned when attempting to operate on a closed cron manager
	ErrCronClosed = fmt.Errorf("cron: cron manager is closed")

	// ErrDuplicateChain is returned when a chain name is already registered
	ErrDuplicateChain = fmt.Errorf("cron: duplicate chain name")
)

// ErrUnknownChain is returned by Trigger for an unregistered chain
func ErrUnknownChain(name string) error {
	return fmt.Errorf("cron: unknown chain %q", name)
}

// ErrTask wraps the failure of one task in a chain
func ErrTask(chain, task string, err error) error {
	return fmt.Errorf("cron: chain %s aborted at task %s: %w", chain, task, err)
}
