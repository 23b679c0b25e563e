package journal

import "fmt"

var (
	// ErrClosed when recording on a closed journal
	ErrClosed = fmt.Errorf("journal: closed")
	// ErrConnectionClosed when inserting through a closed connection
	ErrConnectionClosed = fmt.Errorf("journal: connection is closed")
)

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("journal: invalid config: %s", msg)
}

// ErrConnection ClickHouse connection error
func ErrConnection(err error) error {
	return fmt.Errorf("journal: connection failed: %w", err)
}

// ErrInsert insert error
func ErrInsert(table string, err error) error {
	return fmt.Errorf("journal: insert to table %s failed: %w", table, err)
}
