package app

import (
	"fmt"
	"slices"

	"github.com/caarlos0/env/v11"
	"github.com/trattoria/livesync/db"
	"github.com/trattoria/livesync/feed"
	"github.com/trattoria/livesync/journal"
	"github.com/trattoria/livesync/kafka"
	"github.com/trattoria/livesync/logger"
	"github.com/trattoria/livesync/snapshot"
)

// EnvPrefix prefixes every environment variable read by LoadConfig
const EnvPrefix = "LIVESYNC_"

// Feed modes
const (
	FeedMemory = "memory"
	FeedPoll   = "poll"
	FeedKafka  = "kafka"
)

// Snapshot backends
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config aggregates the configuration of every component
type Config struct {
	Logger logger.Config `envPrefix:"LOG_"`

	// FeedMode selects where the mirrors read from: memory, poll or kafka
	FeedMode string `env:"FEED_MODE" envDefault:"memory"`
	// DB holds the authoritative documents; required by the poll and kafka modes
	DB          db.Config               `envPrefix:"DB_"`
	Poller      feed.PollerConfig       `envPrefix:"POLL_"`
	KafkaSource feed.KafkaSourceConfig  `envPrefix:"KAFKA_SOURCE_"`
	Consumer    kafka.ConsumerConfig    `envPrefix:"KAFKA_CONSUMER_"`
	Producer    kafka.ProducerConfig    `envPrefix:"KAFKA_PRODUCER_"`
	Snapshot    SnapshotConfig          `envPrefix:"SNAPSHOT_"`
	Journal     JournalConfig           `envPrefix:"JOURNAL_"`
}

// SnapshotConfig selects and configures the persisted snapshot backend
type SnapshotConfig struct {
	// Backend is none, memory, sqlite or redis
	Backend    string               `env:"BACKEND" envDefault:"sqlite"`
	SQLitePath string               `env:"SQLITE_PATH" envDefault:"livesync-snapshots.db"`
	Store      snapshot.Config      `envPrefix:"STORE_"`
	Redis      snapshot.RedisConfig `envPrefix:"REDIS_"`
	// RefreshSpec schedules persisting every live mirror
	RefreshSpec string `env:"REFRESH_SPEC" envDefault:"0 */5 * * * *"`
	// PurgeSpec schedules removal of expired snapshots from backends that need it
	PurgeSpec string `env:"PURGE_SPEC" envDefault:"0 17 * * * *"`
}

// JournalConfig enables the ClickHouse event journal
type JournalConfig struct {
	Enabled    bool                     `env:"ENABLED"`
	Writer     journal.Config           `envPrefix:"WRITER_"`
	ClickHouse journal.ClickHouseConfig `envPrefix:"CLICKHOUSE_"`
}

// LoadConfig reads the configuration from LIVESYNC_* environment variables
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, ErrInvalidConfig(fmt.Sprintf("parse env: %v", err))
	}
	return &cfg, nil
}

// Validate checks the mode selections and the settings they require
func (c *Config) Validate() error {
	if !slices.Contains([]string{FeedMemory, FeedPoll, FeedKafka}, c.FeedMode) {
		return ErrInvalidConfig(fmt.Sprintf("feed mode %q must be one of memory, poll, kafka", c.FeedMode))
	}
	if !slices.Contains([]string{BackendNone, BackendMemory, BackendSQLite, BackendRedis}, c.Snapshot.Backend) {
		return ErrInvalidConfig(fmt.Sprintf("snapshot backend %q must be one of none, memory, sqlite, redis", c.Snapshot.Backend))
	}
	if c.Snapshot.Backend == BackendSQLite && c.Snapshot.SQLitePath == "" {
		return ErrInvalidConfig("snapshot sqlite path is required")
	}
	if c.FeedMode == FeedKafka && (len(c.Consumer.Brokers) == 0 || c.Consumer.Topic == "") {
		return ErrInvalidConfig("kafka feed mode needs consumer brokers and topic")
	}
	return nil
}

// writable reports whether admin services can be built
func (c *Config) writable() bool {
	return c.FeedMode != FeedMemory && len(c.Producer.Brokers) > 0 && c.Producer.Topic != ""
}
