package journal

import (
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouseConfig holds the ClickHouse connection settings
type ClickHouseConfig struct {
	Hosts       []string      `mapstructure:"hosts" env:"HOSTS"`
	Database    string        `mapstructure:"database" env:"DATABASE"`
	Username    string        `mapstructure:"username" env:"USERNAME"`
	Password    string        `mapstructure:"password" env:"PASSWORD"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" env:"DIAL_TIMEOUT"`
	Debug       bool          `mapstructure:"debug" env:"DEBUG"`
	// Table receives the journal rows
	// default: "cache_events"
	Table string `mapstructure:"table" env:"TABLE"`
	// CreateTable creates Table when missing
	CreateTable bool `mapstructure:"create_table" env:"CREATE_TABLE"`
	// clickhouse settings (https://clickhouse.com/docs/operations/settings/settings)
	Settings clickhouse.Settings `mapstructure:"settings"`
}

// DefaultClickHouseConfig returns the default connection settings
func DefaultClickHouseConfig() *ClickHouseConfig {
	return &ClickHouseConfig{
		Database:    "default",
		DialTimeout: 10 * time.Second,
		Table:       "cache_events",
	}
}

// MergeDefaults fills zero values with defaults
func (c *ClickHouseConfig) MergeDefaults() *ClickHouseConfig {
	defaults := DefaultClickHouseConfig()
	if c.Database == "" {
		c.Database = defaults.Database
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	if c.Table == "" {
		c.Table = defaults.Table
	}
	return c
}

func (c *ClickHouseConfig) Validate() error {
	if len(c.Hosts) == 0 {
		return ErrInvalidConfig("hosts are required")
	}
	if c.Username == "" {
		return ErrInvalidConfig("username is required")
	}
	if !tablePattern.MatchString(c.Table) {
		return ErrInvalidConfig("table must be a plain identifier")
	}
	return nil
}

// Config controls batching
type Config struct {
	// FlushInterval is the period of time-triggered flushes
	// default: 10 * time.Second
	FlushInterval time.Duration `mapstructure:"flush_interval" env:"FLUSH_INTERVAL"`
	// FlushSize triggers a flush as soon as that many rows are buffered
	// default: 1000
	FlushSize int `mapstructure:"flush_size" env:"FLUSH_SIZE"`
	// MinFlushSize is the minimum batch size for a time-triggered flush.
	// 0 flushes on every interval.
	MinFlushSize int `mapstructure:"min_flush_size" env:"MIN_FLUSH_SIZE"`
	// MaxWaitTime forces a time-triggered flush below MinFlushSize once the
	// oldest buffered row has waited that long. 0 disables it.
	// default: 60 * time.Second
	MaxWaitTime time.Duration `mapstructure:"max_wait_time" env:"MAX_WAIT_TIME"`
	// InsertTimeout bounds one batch insert
	// default: 10 * time.Second
	InsertTimeout time.Duration `mapstructure:"insert_timeout" env:"INSERT_TIMEOUT"`
}

// DefaultConfig returns the default batching configuration
func DefaultConfig() *Config {
	return &Config{
		FlushInterval: 10 * time.Second,
		FlushSize:     1000,
		MaxWaitTime:   60 * time.Second,
		InsertTimeout: 10 * time.Second,
	}
}

// MergeDefaults fills zero values with defaults
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.FlushInterval == 0 {
		c.FlushInterval = defaults.FlushInterval
	}
	if c.FlushSize == 0 {
		c.FlushSize = defaults.FlushSize
	}
	if c.MaxWaitTime == 0 {
		c.MaxWaitTime = defaults.MaxWaitTime
	}
	if c.InsertTimeout == 0 {
		c.InsertTimeout = defaults.InsertTimeout
	}
	return c
}

func (c *Config) Validate() error {
	if c.FlushInterval <= 0 {
		return ErrInvalidConfig("flush_interval must be positive")
	}
	if c.FlushSize <= 0 {
		return ErrInvalidConfig("flush_size must be positive")
	}
	if c.MinFlushSize < 0 {
		return ErrInvalidConfig("min_flush_size cannot be negative")
	}
	if c.MinFlushSize > c.FlushSize {
		return ErrInvalidConfig("min_flush_size cannot be greater than flush_size")
	}
	if c.MaxWaitTime < 0 {
		return ErrInvalidConfig("max_wait_time cannot be negative")
	}
	if c.InsertTimeout <= 0 {
		return ErrInvalidConfig("insert_timeout must be positive")
	}
	return nil
}
