package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// ConsumerConfig is the configuration for the change consumer
type ConsumerConfig struct {
	Brokers []string `mapstructure:"brokers" env:"BROKERS"`
	// GroupID must be unique per mirror instance: every mirror needs every change
	GroupID string `mapstructure:"group_id" env:"GROUP_ID"`
	Topic   string `mapstructure:"topic" env:"TOPIC"`

	// Handler attempts per message before it is logged and skipped
	// default: 3
	MaxRetries int `mapstructure:"max_retries" env:"MAX_RETRIES"`

	// Auto offset reset policy: "earliest" or "latest"
	// default: "latest"
	AutoOffsetReset string `mapstructure:"auto_offset_reset" env:"AUTO_OFFSET_RESET"`

	// default: false
	EnableAutoCommit bool `mapstructure:"enable_auto_commit" env:"ENABLE_AUTO_COMMIT"`
	// only used when EnableAutoCommit is true
	// default: 5s
	AutoCommitInterval time.Duration `mapstructure:"auto_commit_interval" env:"AUTO_COMMIT_INTERVAL"`

	// default: 30s
	SessionTimeout time.Duration `mapstructure:"session_timeout" env:"SESSION_TIMEOUT"`
	// default: 120s
	MaxPollInterval time.Duration `mapstructure:"max_poll_interval" env:"MAX_POLL_INTERVAL"`
	// PollTimeout bounds one Poll call so cancellation is noticed
	// default: 200ms
	PollTimeout time.Duration `mapstructure:"poll_timeout" env:"POLL_TIMEOUT"`

	// only PLAINTEXT is supported for now
	// default: "PLAINTEXT"
	SecurityProtocol string `mapstructure:"security_protocol" env:"SECURITY_PROTOCOL"`

	Debug bool `mapstructure:"debug" env:"DEBUG"`
}

// DefaultConsumerConfig returns the default consumer configuration
func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		MaxRetries:         3,
		AutoOffsetReset:    "latest",
		AutoCommitInterval: 5 * time.Second,
		SessionTimeout:     30 * time.Second,
		MaxPollInterval:    120 * time.Second,
		PollTimeout:        200 * time.Millisecond,
		SecurityProtocol:   "PLAINTEXT",
	}
}

// MergeDefaults fills zero values with defaults
func (c *ConsumerConfig) MergeDefaults() *ConsumerConfig {
	d := DefaultConsumerConfig()
	if c.MaxRetries == 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.AutoOffsetReset == "" {
		c.AutoOffsetReset = d.AutoOffsetReset
	}
	if c.AutoCommitInterval == 0 {
		c.AutoCommitInterval = d.AutoCommitInterval
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = d.SessionTimeout
	}
	if c.MaxPollInterval == 0 {
		c.MaxPollInterval = d.MaxPollInterval
	}
	if c.PollTimeout == 0 {
		c.PollTimeout = d.PollTimeout
	}
	if c.SecurityProtocol == "" {
		c.SecurityProtocol = d.SecurityProtocol
	}
	return c
}

// Validate validates the consumer configuration
func (c *ConsumerConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrInvalidConfig("brokers are required")
	}
	if c.GroupID == "" {
		return ErrInvalidConfig("group_id is required")
	}
	if c.Topic == "" {
		return ErrInvalidConfig("topic is required")
	}
	if c.MaxRetries < 1 {
		return ErrInvalidConfig("max_retries must be at least 1")
	}
	if c.AutoOffsetReset != "earliest" && c.AutoOffsetReset != "latest" {
		return ErrInvalidConfig(
			fmt.Sprintf("invalid auto_offset_reset: %s, must be either 'earliest' or 'latest'", c.AutoOffsetReset),
		)
	}
	if c.EnableAutoCommit && c.AutoCommitInterval <= 0 {
		return ErrInvalidConfig("auto_commit_interval must be greater than 0 when enable_auto_commit is true")
	}
	if c.SessionTimeout <= 0 {
		return ErrInvalidConfig("session_timeout must be greater than 0")
	}
	if c.MaxPollInterval <= 0 {
		return ErrInvalidConfig("max_poll_interval must be greater than 0")
	}
	if c.PollTimeout <= 0 {
		return ErrInvalidConfig("poll_timeout must be greater than 0")
	}
	return nil
}

// BuildConfigMap converts the configuration to librdkafka properties
func (c *ConsumerConfig) BuildConfigMap() *kafka.ConfigMap {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers":    strings.Join(c.Brokers, ","),
		"group.id":             c.GroupID,
		"auto.offset.reset":    strings.ToLower(c.AutoOffsetReset),
		"enable.auto.commit":   c.EnableAutoCommit,
		"session.timeout.ms":   int(c.SessionTimeout.Milliseconds()),
		"max.poll.interval.ms": int(c.MaxPollInterval.Milliseconds()),
		"security.protocol":    c.SecurityProtocol,
	}
	if c.EnableAutoCommit {
		_ = configMap.SetKey("auto.commit.interval.ms", int(c.AutoCommitInterval.Milliseconds()))
	}
	if c.Debug {
		_ = configMap.SetKey("debug", "consumer,cgrp,topic,fetch")
	}
	return configMap
}

// ProducerConfig is the configuration for the change producer
type ProducerConfig struct {
	Brokers []string `mapstructure:"brokers" env:"BROKERS"`
	Topic   string   `mapstructure:"topic" env:"TOPIC"`

	// Optional: identifies this producer in broker logs and metrics
	ClientID string `mapstructure:"client_id" env:"CLIENT_ID"`

	// Acks: "all" waits for every in-sync replica; "1" for the leader only; "0" for none.
	// default: "all"
	Acks string `mapstructure:"acks" env:"ACKS"`

	// none, gzip, snappy, lz4, zstd
	// default: "none"
	Compression string `mapstructure:"compression" env:"COMPRESSION"`

	// default: 0 (send immediately)
	LingerMs int `mapstructure:"linger_ms" env:"LINGER_MS"`

	// default: 100KB
	BatchSize int `mapstructure:"batch_size" env:"BATCH_SIZE"`

	// default: "PLAINTEXT"
	SecurityProtocol string `mapstructure:"security_protocol" env:"SECURITY_PROTOCOL"`

	// default: 3
	MaxRetries int `mapstructure:"max_retries" env:"MAX_RETRIES"`

	// FlushTimeout bounds the flush on Close
	// default: 10s
	FlushTimeout time.Duration `mapstructure:"flush_timeout" env:"FLUSH_TIMEOUT"`
}

// DefaultProducerConfig returns the default producer configuration
func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Acks:             "all",
		Compression:      "none",
		BatchSize:        100 * 1024,
		SecurityProtocol: "PLAINTEXT",
		MaxRetries:       3,
		FlushTimeout:     10 * time.Second,
	}
}

// MergeDefaults fills zero values with defaults
func (p *ProducerConfig) MergeDefaults() *ProducerConfig {
	d := DefaultProducerConfig()
	if p.Acks == "" {
		p.Acks = d.Acks
	}
	if p.Compression == "" {
		p.Compression = d.Compression
	}
	if p.BatchSize == 0 {
		p.BatchSize = d.BatchSize
	}
	if p.SecurityProtocol == "" {
		p.SecurityProtocol = d.SecurityProtocol
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = d.MaxRetries
	}
	if p.FlushTimeout == 0 {
		p.FlushTimeout = d.FlushTimeout
	}
	return p
}

// Validate validates the producer configuration
func (p *ProducerConfig) Validate() error {
	if len(p.Brokers) == 0 {
		return ErrInvalidConfig("brokers are required")
	}
	if p.Topic == "" {
		return ErrInvalidConfig("topic is required")
	}
	if p.LingerMs < 0 || p.BatchSize < 0 || p.MaxRetries < 0 {
		return ErrInvalidConfig("linger_ms, batch_size and max_retries must not be negative")
	}
	return nil
}

// BuildConfigMap converts the configuration to librdkafka properties
func (p *ProducerConfig) BuildConfigMap() *kafka.ConfigMap {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers": strings.Join(p.Brokers, ","),
		"compression.type":  strings.ToLower(p.Compression),
		"acks":              strings.ToLower(p.Acks),
		"linger.ms":         p.LingerMs,
		"batch.size":        p.BatchSize,
		"retries":           p.MaxRetries,
		"security.protocol": p.SecurityProtocol,
	}
	if p.ClientID != "" {
		_ = configMap.SetKey("client.id", p.ClientID)
	}
	return configMap
}
