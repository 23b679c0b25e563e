// Package kafka carries entity change events from the write side to the cache mirrors.
//
// Every change is published as a ChangeMessage JSON envelope keyed by the entity
// key, with the collection name repeated in a header so consumers can skip
// foreign collections without decoding the value.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// HeaderCollection is the message header holding the collection name
const HeaderCollection = "collection"

// ChangeMessage is the wire envelope of one entity change
type ChangeMessage struct {
	Collection string          `json:"collection"`
	Kind       string          `json:"kind"`
	Key        string          `json:"key"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Encode marshals the envelope
func (m *ChangeMessage) Encode() ([]byte, error) {
	b, err := codec.Marshal(m)
	if err != nil {
		return nil, ErrEncode(err)
	}
	return b, nil
}

// DecodeChange unmarshals an envelope
func DecodeChange(data []byte) (*ChangeMessage, error) {
	var m ChangeMessage
	if err := codec.Unmarshal(data, &m); err != nil {
		return nil, ErrDecode(err)
	}
	if m.Collection == "" || m.Key == "" {
		return nil, ErrDecode(ErrIncompleteMessage)
	}
	return &m, nil
}

// NewChangeMessage builds an envelope carrying doc as payload
func NewChangeMessage(collection, kind, key string, doc any, at time.Time) (*ChangeMessage, error) {
	payload, err := codec.Marshal(doc)
	if err != nil {
		return nil, ErrEncode(err)
	}
	return &ChangeMessage{
		Collection: collection,
		Kind:       kind,
		Key:        key,
		Payload:    payload,
		Timestamp:  at,
	}, nil
}

// ChangeHandler handles one decoded change message
type ChangeHandler func(ctx context.Context, msg *ChangeMessage) error

// ErrorHandler receives transport errors the consumer cannot recover from by itself
type ErrorHandler func(err error)

// Consumer reads change messages from the change topic
type Consumer interface {
	// Start begins the poll loop; it returns immediately
	Start(ctx context.Context, handler ChangeHandler, onError ErrorHandler) error
	// Close stops the poll loop and closes the underlying consumer
	Close() error
}

// Producer publishes change messages to the change topic
type Producer interface {
	Publish(ctx context.Context, msg *ChangeMessage) error
	Close() error
}
