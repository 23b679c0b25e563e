package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trattoria/livesync/logger"
	"go.uber.org/zap"
)

// Redis is a Backend on a Redis server. Expiration is native, so it needs no purge.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to Redis and verifies the connection. A nil config uses DefaultRedisConfig.
func NewRedis(log logger.Logger, cfg *RedisConfig) (*Redis, error) {
	if cfg == nil {
		cfg = DefaultRedisConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(cfg.Options())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, ErrConnection(err)
	}

	log.Info("snapshot redis backend connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return &Redis{client: client}, nil
}

func (r *Redis) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return ErrBackend("put", key, err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ErrBackend("get", key, err)
	}
	return value, true, nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return ErrBackend("delete", key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
