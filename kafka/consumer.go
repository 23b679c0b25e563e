package kafka

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/trattoria/livesync/logger"
	"github.com/trattoria/livesync/routine"
	"go.uber.org/zap"
)

type defaultConsumer struct {
	logger logger.Logger
	config *ConsumerConfig
	// collection filters messages by header; empty accepts every message
	collection string

	c      *kafka.Consumer
	runner routine.Runner

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	closed  atomic.Bool
}

// NewConsumer creates a consumer subscribed to the change topic. Messages whose
// collection header differs from collection are committed and skipped.
func NewConsumer(log logger.Logger, config *ConsumerConfig, collection string) (Consumer, error) {
	if config == nil {
		config = DefaultConsumerConfig()
	}
	config.MergeDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := probeTopic(log, config.Brokers, config.Topic, config.MaxRetries); err != nil {
		return nil, err
	}

	consumer, err := kafka.NewConsumer(config.BuildConfigMap())
	if err != nil {
		return nil, ErrConnection(err)
	}
	if err := consumer.Subscribe(config.Topic, nil); err != nil {
		_ = consumer.Close()
		return nil, ErrSubscribe(config.Topic, err)
	}

	return &defaultConsumer{
		logger:     log,
		config:     config,
		collection: collection,
		c:          consumer,
		runner:     routine.New(log),
	}, nil
}

// Start starts the consume loop in the background
func (c *defaultConsumer) Start(ctx context.Context, handler ChangeHandler, onError ErrorHandler) error {
	if c.closed.Load() {
		return ErrConsumerClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrConsumerStarted
	}
	c.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.runner.GoNamedWithContext(loopCtx, "kafka-consume-"+c.config.GroupID, func(ctx context.Context) {
		c.consumeLoop(ctx, handler, onError)
	})

	c.logger.Info("kafka consumer started",
		zap.String("group_id", c.config.GroupID),
		zap.String("topic", c.config.Topic),
		zap.String("collection", c.collection),
	)
	return nil
}

// Close stops the consume loop and closes the consumer
func (c *defaultConsumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.runner.Wait()

	if err := c.c.Close(); err != nil {
		return ErrConnection(err)
	}
	c.logger.Info("kafka consumer closed", zap.String("group_id", c.config.GroupID))
	return nil
}

func (c *defaultConsumer) consumeLoop(ctx context.Context, handler ChangeHandler, onError ErrorHandler) {
	timeoutMs := int(c.config.PollTimeout.Milliseconds())
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev := c.c.Poll(timeoutMs)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			if err := c.handleMessage(ctx, e, handler); err != nil {
				c.logger.Error("kafka consumer handle message failed",
					zap.String("topic", topicOf(e)),
					zap.Int32("partition", e.TopicPartition.Partition),
					zap.Int64("offset", int64(e.TopicPartition.Offset)),
					zap.Error(err),
				)
			}
		case kafka.Error:
			c.logger.Error("kafka consumer error", zap.Int("code", int(e.Code())), zap.String("error", e.String()))
			if e.Code() == kafka.ErrAllBrokersDown && onError != nil {
				// librdkafka keeps reconnecting; the loop keeps polling
				onError(ErrConsume(e))
			}
		case kafka.OffsetsCommitted:
			if e.Error != nil {
				c.logger.Error("failed to commit offsets", zap.Error(e.Error))
			}
		default:
			c.logger.Debug("received unknown event", zap.String("type", fmt.Sprintf("%T", e)))
		}
	}
}

func (c *defaultConsumer) handleMessage(ctx context.Context, msg *kafka.Message, handler ChangeHandler) error {
	startTime := time.Now()

	if c.accepts(msg) {
		change, err := DecodeChange(msg.Value)
		if err != nil {
			// a poison message is committed so it cannot block the partition
			c.logger.Warn("dropping undecodable change", zap.String("topic", topicOf(msg)), zap.Error(err))
		} else if change.Collection == c.collection || c.collection == "" {
			var runError error
			for i := 1; i <= c.config.MaxRetries; i++ {
				if runError = handler(ctx, change); runError == nil {
					break
				}
			}
			if runError != nil {
				return runError
			}
		}
	}

	if !c.config.EnableAutoCommit {
		if _, err := c.c.CommitMessage(msg); err != nil {
			return ErrCommit(err)
		}
	}

	c.logger.Debug("kafka consumer processed message",
		zap.String("topic", topicOf(msg)),
		zap.Int32("partition", msg.TopicPartition.Partition),
		zap.Int64("offset", int64(msg.TopicPartition.Offset)),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

// accepts reports whether the message header names this consumer's collection.
// Messages without the header are decoded and filtered on the envelope instead.
func (c *defaultConsumer) accepts(msg *kafka.Message) bool {
	if c.collection == "" {
		return true
	}
	for _, h := range msg.Headers {
		if h.Key == HeaderCollection {
			return string(h.Value) == c.collection
		}
	}
	return true
}

func topicOf(msg *kafka.Message) string {
	if msg.TopicPartition.Topic == nil {
		return ""
	}
	return *msg.TopicPartition.Topic
}
