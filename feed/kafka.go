package feed

import (
	"context"
	"sync"
	"time"

	"github.com/trattoria/livesync/kafka"
	"github.com/trattoria/livesync/logger"
	"github.com/trattoria/livesync/routine"
	"go.uber.org/zap"
)

// ConsumerFactory opens a fresh change consumer for one subscription
type ConsumerFactory func() (kafka.Consumer, error)

// KafkaSource combines a full load of the collection with the change topic.
//
// The consumer starts before the load so no change committed in between is
// lost. Changes that arrive before the snapshot is delivered are buffered and
// replayed after it; replays overlap the snapshot, which the mirror absorbs
// because a duplicate add is a no-op and a modification is an upsert.
type KafkaSource[T any] struct {
	logger      logger.Logger
	collection  string
	key         func(T) string
	load        FetchFunc[T]
	newConsumer ConsumerFactory
	cfg         *KafkaSourceConfig
}

// NewKafkaSource creates a Kafka-backed source. A nil config uses DefaultKafkaSourceConfig.
func NewKafkaSource[T any](
	log logger.Logger,
	cfg *KafkaSourceConfig,
	collection string,
	key func(T) string,
	load FetchFunc[T],
	newConsumer ConsumerFactory,
) (*KafkaSource[T], error) {
	if cfg == nil {
		cfg = DefaultKafkaSourceConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if collection == "" || key == nil || load == nil || newConsumer == nil {
		return nil, ErrInvalidConfig
	}
	return &KafkaSource[T]{
		logger:      log,
		collection:  collection,
		key:         key,
		load:        load,
		newConsumer: newConsumer,
		cfg:         cfg,
	}, nil
}

func (s *KafkaSource[T]) Collection() string { return s.collection }

// Subscribe opens a consumer, then loads the snapshot in the background
func (s *KafkaSource[T]) Subscribe(ctx context.Context, sink Sink[T]) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	consumer, err := s.newConsumer()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &kafkaSubscription[T]{source: s, sink: sink, online: true}

	if err := consumer.Start(ctx, sub.handle, sub.fail); err != nil {
		cancel()
		_ = consumer.Close()
		return nil, err
	}

	routine.GoNamedWithContext(ctx, s.logger, s.collection+"-snapshot", sub.loadSnapshot)

	var once sync.Once
	return SubscriptionFunc(func() error {
		var closeErr error
		once.Do(func() {
			cancel()
			closeErr = consumer.Close()
		})
		return closeErr
	}), nil
}

type kafkaSubscription[T any] struct {
	source *KafkaSource[T]
	sink   Sink[T]

	// mu serializes every sink call
	mu      sync.Mutex
	loaded  bool
	online  bool
	pending []Change[T]
}

func (k *kafkaSubscription[T]) loadSnapshot(ctx context.Context) {
	s := k.source
	backoff := s.cfg.RetryBackoff
	for {
		loadCtx, cancel := context.WithTimeout(ctx, s.cfg.LoadTimeout)
		docs, err := s.load(loadCtx)
		cancel()
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			k.deliverSnapshot(docs)
			return
		}

		s.logger.Warn("snapshot load failed, will retry",
			zap.String("collection", s.collection),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		k.mu.Lock()
		k.sink.Error(ErrFetch(s.collection, err))
		k.mu.Unlock()

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
}

func (k *kafkaSubscription[T]) deliverSnapshot(docs []T) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.sink.Snapshot(docs, OriginServer)
	k.loaded = true
	for _, change := range k.pending {
		k.sink.Change(change, OriginServer)
	}
	if n := len(k.pending); n > 0 {
		k.source.logger.Debug("replayed buffered changes",
			zap.String("collection", k.source.collection),
			zap.Int("count", n),
		)
	}
	k.pending = nil
}

// handle converts one change message. Malformed messages are logged and
// skipped: retrying cannot fix them.
func (k *kafkaSubscription[T]) handle(_ context.Context, msg *kafka.ChangeMessage) error {
	s := k.source
	if msg.Collection != s.collection {
		return nil
	}

	change, err := decodeChange[T](s.collection, msg)
	if err != nil {
		s.logger.Warn("skipping malformed change",
			zap.String("collection", s.collection),
			zap.String("key", msg.Key),
			zap.Error(err),
		)
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.online {
		k.online = true
		k.sink.Connectivity(true)
	}
	if !k.loaded {
		k.pending = append(k.pending, change)
		return nil
	}
	k.sink.Change(change, OriginServer)
	return nil
}

func (k *kafkaSubscription[T]) fail(err error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.sink.Error(err)
	if k.online {
		k.online = false
		k.sink.Connectivity(false)
	}
}

func decodeChange[T any](collection string, msg *kafka.ChangeMessage) (Change[T], error) {
	kind, err := ParseKind(msg.Kind)
	if err != nil {
		return Change[T]{}, err
	}
	if len(msg.Payload) == 0 || string(msg.Payload) == "null" {
		return Change[T]{}, ErrMissingPayload
	}
	var doc T
	if err := json.Unmarshal(msg.Payload, &doc); err != nil {
		return Change[T]{}, ErrDecode(collection, err)
	}
	return Change[T]{Kind: kind, Doc: doc}, nil
}
