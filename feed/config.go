package feed

import "time"

// PollerConfig holds configuration for Poller
type PollerConfig struct {
	// Interval between full fetches
	// default: 30 * time.Second
	Interval time.Duration `mapstructure:"interval" env:"INTERVAL"`
	// Timeout for each fetch attempt
	// default: 10 * time.Second
	Timeout time.Duration `mapstructure:"timeout" env:"TIMEOUT"`
	// MaxRetries is the number of attempts per poll for retryable errors
	// default: 3
	MaxRetries int `mapstructure:"max_retries" env:"MAX_RETRIES"`
	// RetryBackoff is the first backoff; it doubles on every further attempt
	// default: 1 * time.Second
	RetryBackoff time.Duration `mapstructure:"retry_backoff" env:"RETRY_BACKOFF"`
}

// DefaultPollerConfig returns the default configuration for Poller
func DefaultPollerConfig() *PollerConfig {
	return &PollerConfig{
		Interval:     30 * time.Second,
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Second,
	}
}

// MergeDefaults fills zero values with defaults
func (c *PollerConfig) MergeDefaults() *PollerConfig {
	defaults := DefaultPollerConfig()
	if c.Interval == 0 {
		c.Interval = defaults.Interval
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = defaults.RetryBackoff
	}
	return c
}

// Validate validates the configuration
func (c *PollerConfig) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidInterval(c.Interval)
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout(c.Timeout)
	}
	if c.MaxRetries < 1 {
		return ErrInvalidMaxRetries(c.MaxRetries)
	}
	return nil
}

// KafkaSourceConfig holds configuration for KafkaSource
type KafkaSourceConfig struct {
	// LoadTimeout bounds one snapshot load
	// default: 10 * time.Second
	LoadTimeout time.Duration `mapstructure:"load_timeout" env:"LOAD_TIMEOUT"`
	// RetryBackoff is the wait after the first failed load; it doubles up to MaxBackoff
	// default: 1 * time.Second
	RetryBackoff time.Duration `mapstructure:"retry_backoff" env:"RETRY_BACKOFF"`
	// default: 30 * time.Second
	MaxBackoff time.Duration `mapstructure:"max_backoff" env:"MAX_BACKOFF"`
}

// DefaultKafkaSourceConfig returns the default configuration for KafkaSource
func DefaultKafkaSourceConfig() *KafkaSourceConfig {
	return &KafkaSourceConfig{
		LoadTimeout:  10 * time.Second,
		RetryBackoff: time.Second,
		MaxBackoff:   30 * time.Second,
	}
}

// MergeDefaults fills zero values with defaults
func (c *KafkaSourceConfig) MergeDefaults() *KafkaSourceConfig {
	defaults := DefaultKafkaSourceConfig()
	if c.LoadTimeout == 0 {
		c.LoadTimeout = defaults.LoadTimeout
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = defaults.RetryBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = defaults.MaxBackoff
	}
	return c
}

// Validate validates the configuration
func (c *KafkaSourceConfig) Validate() error {
	if c.LoadTimeout <= 0 {
		return ErrInvalidTimeout(c.LoadTimeout)
	}
	if c.RetryBackoff <= 0 || c.MaxBackoff < c.RetryBackoff {
		return ErrInvalidInterval(c.RetryBackoff)
	}
	return nil
}
