package kafka

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/trattoria/livesync/logger"
	"go.uber.org/zap"
)

type defaultProducer struct {
	logger logger.Logger
	config *ProducerConfig

	p *kafka.Producer

	wg     sync.WaitGroup
	done   chan struct{}
	once   sync.Once
	closed atomic.Bool
}

// NewProducer creates a producer for the change topic
func NewProducer(log logger.Logger, config *ProducerConfig) (Producer, error) {
	if config == nil {
		config = DefaultProducerConfig()
	}
	config.MergeDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := probeTopic(log, config.Brokers, config.Topic, config.MaxRetries); err != nil {
		return nil, err
	}

	configMap := config.BuildConfigMap()

	var producer *kafka.Producer
	var err error

	maxRetries := 3
	retryDelay := 3 * time.Second
	for i := 0; i < maxRetries; i++ {
		producer, err = kafka.NewProducer(configMap)
		if err == nil {
			break
		}

		if i < maxRetries-1 {
			log.Warn("failed to create kafka producer, retrying...",
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("max_retries", maxRetries),
			)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		return nil, ErrConnection(fmt.Errorf("after %d retries: %w", maxRetries, err))
	}

	kp := &defaultProducer{
		logger: log,
		config: config,
		p:      producer,
		done:   make(chan struct{}),
	}

	kp.wg.Add(1)
	go kp.handleDeliveryReports()

	log.Info("kafka producer initialized", zap.Strings("brokers", config.Brokers), zap.String("topic", config.Topic))
	return kp, nil
}

func (kp *defaultProducer) handleDeliveryReports() {
	defer kp.wg.Done()

	for {
		select {
		case <-kp.done:
			return
		case e := <-kp.p.Events():
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					kp.logger.Error("failed to deliver change",
						zap.Error(ev.TopicPartition.Error),
						zap.String("topic", topicOf(ev)),
						zap.ByteString("key", ev.Key),
					)
				} else {
					kp.logger.Debug("change delivered",
						zap.String("topic", topicOf(ev)),
						zap.Int32("partition", ev.TopicPartition.Partition),
						zap.Int64("offset", int64(ev.TopicPartition.Offset)),
					)
				}
			case kafka.Error:
				kp.logger.Error("kafka producer error",
					zap.Int("code", int(ev.Code())),
					zap.String("error", ev.String()),
				)
			default:
				kp.logger.Debug("received unknown event", zap.String("type", fmt.Sprintf("%T", ev)))
			}
		}
	}
}

// Publish enqueues the change; delivery failures are reported asynchronously
func (kp *defaultProducer) Publish(ctx context.Context, msg *ChangeMessage) error {
	if kp.closed.Load() {
		return ErrProducerClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg == nil || msg.Collection == "" || msg.Key == "" {
		return ErrIncompleteMessage
	}

	value, err := msg.Encode()
	if err != nil {
		return err
	}

	topic := kp.config.Topic
	message := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(msg.Collection + "/" + msg.Key),
		Value:          value,
		Headers:        []kafka.Header{{Key: HeaderCollection, Value: []byte(msg.Collection)}},
		Timestamp:      msg.Timestamp,
	}
	if err := kp.p.Produce(message, nil); err != nil {
		return ErrPublish(topic, err)
	}
	return nil
}

// Close flushes outstanding messages and closes the producer
func (kp *defaultProducer) Close() error {
	if !kp.closed.CompareAndSwap(false, true) {
		return nil
	}
	kp.once.Do(func() { close(kp.done) })
	kp.wg.Wait()

	remaining := kp.p.Flush(int(kp.config.FlushTimeout.Milliseconds()))
	if remaining > 0 {
		kp.logger.Warn("producer closed with unflushed changes", zap.Int("remaining", remaining))
	}

	kp.p.Close()
	return nil
}
