package db

import "fmt"

var (
	// ErrConnectionNotEstablished database connection not established
	ErrConnectionNotEstablished = fmt.Errorf("db: database connection not established")
	// ErrNotFound no document with the given id in the collection
	ErrNotFound = fmt.Errorf("db: document not found")
	// ErrDuplicateID a document with the same id already exists in the collection
	ErrDuplicateID = fmt.Errorf("db: duplicate document id")
	// ErrEmptyID document key is empty
	ErrEmptyID = fmt.Errorf("db: empty document id")
)

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("db: invalid config: %s", msg)
}

// ErrConnection database connection error
func ErrConnection(err error) error {
	return fmt.Errorf("db: connection failed: %w", err)
}

// ErrQuery wraps a failed statement on a collection
func ErrQuery(op, collection string, err error) error {
	return fmt.Errorf("db: %s %s: %w", op, collection, err)
}

// ErrEncode document encode error
func ErrEncode(collection string, err error) error {
	return fmt.Errorf("db: encode %s document: %w", collection, err)
}

// ErrDecode document decode error
func ErrDecode(collection, id string, err error) error {
	return fmt.Errorf("db: decode %s/%s: %w", collection, id, err)
}
