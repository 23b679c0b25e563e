package snapshot

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds configuration for Store
type Config struct {
	// Prefix is prepended to the collection name to form the storage key
	// default: "livesync:snapshot:"
	Prefix string `mapstructure:"prefix" env:"PREFIX"`
	// Retention is how long the backend keeps a snapshot. It must exceed every
	// mirror's max age so that stale data stays recoverable.
	// default: 7 * 24 * time.Hour
	Retention time.Duration `mapstructure:"retention" env:"RETENTION"`
}

// DefaultConfig returns the default store configuration
func DefaultConfig() *Config {
	return &Config{
		Prefix:    "livesync:snapshot:",
		Retention: 7 * 24 * time.Hour,
	}
}

// MergeDefaults fills zero values with defaults
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Prefix == "" {
		c.Prefix = defaults.Prefix
	}
	if c.Retention == 0 {
		c.Retention = defaults.Retention
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Retention <= 0 {
		return ErrInvalidRetention(c.Retention)
	}
	return nil
}

// RedisConfig holds the connection settings of the Redis backend
type RedisConfig struct {
	Addr     string `mapstructure:"addr" env:"ADDR"`
	Username string `mapstructure:"username" env:"USERNAME"`
	Password string `mapstructure:"password" env:"PASSWORD"`
	DB       int    `mapstructure:"db" env:"DB"`

	// default: 10
	PoolSize     int `mapstructure:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int `mapstructure:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	MaxRetries   int `mapstructure:"max_retries" env:"MAX_RETRIES"`

	// default: 5s
	DialTimeout time.Duration `mapstructure:"dial_timeout" env:"DIAL_TIMEOUT"`
	// default: 3s
	ReadTimeout time.Duration `mapstructure:"read_timeout" env:"READ_TIMEOUT"`
	// default: 3s
	WriteTimeout time.Duration `mapstructure:"write_timeout" env:"WRITE_TIMEOUT"`
}

// DefaultRedisConfig returns the default Redis configuration
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// MergeDefaults fills zero values with defaults
func (c *RedisConfig) MergeDefaults() *RedisConfig {
	defaults := DefaultRedisConfig()
	if c.Addr == "" {
		c.Addr = defaults.Addr
	}
	if c.PoolSize == 0 {
		c.PoolSize = defaults.PoolSize
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	return c
}

// Validate validates the configuration
func (c *RedisConfig) Validate() error {
	switch {
	case c.Addr == "":
		return ErrInvalidConfig("redis addr is required")
	case c.DB < 0:
		return ErrInvalidConfig("redis db must be >= 0")
	case c.PoolSize < 0, c.MinIdleConns < 0, c.MaxRetries < 0:
		return ErrInvalidConfig("redis pool_size, min_idle_conns and max_retries must be >= 0")
	case c.DialTimeout < 0, c.ReadTimeout < 0, c.WriteTimeout < 0:
		return ErrInvalidConfig("redis timeouts must be >= 0")
	}
	return nil
}

// Options converts the configuration to go-redis options
func (c *RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}
