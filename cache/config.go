package cache

import "time"

// Config holds configuration for a Mirror
type Config struct {
	// Name is used for logging purposes to identify the mirror (required)
	Name string `mapstructure:"name"`
	// SnapshotKey is the persisted snapshot key
	// default: Name
	SnapshotKey string `mapstructure:"snapshot_key"`
	// MaxAge is how old a persisted snapshot may be to be served at cold start
	// default: 1 * time.Hour
	MaxAge time.Duration `mapstructure:"max_age"`
	// QueueSize is the initial capacity of the feed queue; the queue grows as needed
	// default: 64
	QueueSize int `mapstructure:"queue_size"`
	// PersistTimeout bounds persisted snapshot reads and writes on the pump
	// default: 5 * time.Second
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
}

// DefaultConfig returns the default configuration.
// Name has no default value and must be set by the caller.
func DefaultConfig() *Config {
	return &Config{
		MaxAge:         time.Hour,
		QueueSize:      64,
		PersistTimeout: 5 * time.Second,
	}
}

// MergeDefaults fills zero values with defaults
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.SnapshotKey == "" {
		c.SnapshotKey = c.Name
	}
	if c.MaxAge == 0 {
		c.MaxAge = defaults.MaxAge
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaults.QueueSize
	}
	if c.PersistTimeout == 0 {
		c.PersistTimeout = defaults.PersistTimeout
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Name == "" {
		return ErrInvalidName(c.Name)
	}
	if c.MaxAge <= 0 {
		return ErrInvalidMaxAge(c.MaxAge)
	}
	if c.QueueSize < 1 {
		return ErrInvalidQueueSize(c.QueueSize)
	}
	if c.PersistTimeout <= 0 {
		return ErrInvalidPersistTimeout(c.PersistTimeout)
	}
	return nil
}
