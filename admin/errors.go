package admin

import "fmt"

var (
	// ErrMissingID update or delete without a document id
	ErrMissingID = fmt.Errorf("admin: document id is required")
	// ErrInvalidDocument is wrapped by every validation failure
	ErrInvalidDocument = fmt.Errorf("admin: invalid document")
)

// ErrInvalidConfig invalid service wiring
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("admin: invalid config: %s", msg)
}

// ErrValidation document rejected before any write
func ErrValidation(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
}

// ErrWrite repository failure
func ErrWrite(op, collection string, err error) error {
	return fmt.Errorf("admin: %s %s: %w", op, collection, err)
}

// ErrPublish the write is stored but its change message was not sent
func ErrPublish(collection, key string, err error) error {
	return fmt.Errorf("admin: publish change %s/%s: %w", collection, key, err)
}
