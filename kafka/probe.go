package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/trattoria/livesync/logger"
	"go.uber.org/zap"
)

const metadataTimeout = 10 * time.Second

// probeTopic fails fast when the brokers cannot be reached or do not know topic.
// Metadata requests are retried attempts times with a doubling backoff.
func probeTopic(log logger.Logger, brokers []string, topic string, attempts int) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(brokers, ","),
		"request.timeout.ms": int(metadataTimeout.Milliseconds()),
	})
	if err != nil {
		return ErrConnection(err)
	}
	defer admin.Close()

	if attempts < 1 {
		attempts = 1
	}
	backoff := time.Second
	for attempt := 1; ; attempt++ {
		err = topicKnown(admin, topic)
		if err == nil {
			log.Info("kafka topic reachable", zap.Strings("brokers", brokers), zap.String("topic", topic))
			return nil
		}
		if attempt == attempts {
			return ErrConnection(fmt.Errorf("topic %q after %d attempts: %w", topic, attempts, err))
		}
		log.Warn("kafka metadata request failed, retrying",
			zap.String("topic", topic),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		time.Sleep(backoff)
		backoff *= 2
	}
}

func topicKnown(admin *kafka.AdminClient, topic string) error {
	md, err := admin.GetMetadata(&topic, false, int(metadataTimeout.Milliseconds()))
	if err != nil {
		return err
	}
	tm, ok := md.Topics[topic]
	if !ok {
		return ErrUnknownTopic
	}
	if tm.Error.Code() != kafka.ErrNoError {
		return tm.Error
	}
	return nil
}
