package kafka

import "fmt"

var (
	// ErrConsumerClosed is returned when starting a closed consumer
	ErrConsumerClosed = fmt.Errorf("kafka: consumer is closed")
	// ErrConsumerStarted is returned when Start is called twice
	ErrConsumerStarted = fmt.Errorf("kafka: consumer already started")
	// ErrProducerClosed is returned when publishing on a closed producer
	ErrProducerClosed = fmt.Errorf("kafka: producer is closed")
	// ErrIncompleteMessage is returned for envelopes without collection or key
	ErrIncompleteMessage = fmt.Errorf("kafka: collection and key are required")
	// ErrUnknownTopic is returned when the cluster metadata lacks the configured topic
	ErrUnknownTopic = fmt.Errorf("kafka: unknown topic")
)

// ErrInvalidConfig Kafka configuration error
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("kafka: invalid config: %s", msg)
}

// ErrConnection Kafka connection error
func ErrConnection(err error) error {
	return fmt.Errorf("kafka: connection failed: %w", err)
}

// ErrSubscribe subscribe error
func ErrSubscribe(topic string, err error) error {
	return fmt.Errorf("kafka: subscribe to topic %s failed: %w", topic, err)
}

// ErrConsume consume error
func ErrConsume(err error) error {
	return fmt.Errorf("kafka: consume failed: %w", err)
}

// ErrCommit commit message error
func ErrCommit(err error) error {
	return fmt.Errorf("kafka: commit offsets failed: %w", err)
}

// ErrEncode envelope encoding error
func ErrEncode(err error) error {
	return fmt.Errorf("kafka: encode change: %w", err)
}

// ErrDecode envelope decoding error
func ErrDecode(err error) error {
	return fmt.Errorf("kafka: decode change: %w", err)
}

// ErrPublish produce error
func ErrPublish(topic string, err error) error {
	return fmt.Errorf("kafka: publish to topic %s failed: %w", topic, err)
}
