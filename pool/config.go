package pool

import (
	"time"
)

// Config holds the pool configuration. It is assembled from Options at
// construction, validated once, and never mutated afterwards.
type Config struct {
	// MaxPoolSize is the maximum number of connections the pool may own,
	// idle and in-use combined. Must be at least 1.
	MaxPoolSize int

	// MinIdle is the number of idle connections the maintenance loop
	// keeps warm. Must not exceed MaxPoolSize.
	MinIdle int

	// AcquireTimeout bounds how long Acquire waits for a connection when
	// the caller's context carries no deadline of its own.
	AcquireTimeout time.Duration

	// IdleTimeout is how long a connection may sit idle before the
	// maintenance loop evicts it. Zero disables idle eviction.
	IdleTimeout time.Duration

	// MaxLifetime is how long a connection may live since creation.
	// Zero disables lifetime eviction.
	MaxLifetime time.Duration

	// ValidationTimeout bounds each Factory.Validate call.
	ValidationTimeout time.Duration

	// LeakThreshold is how long a connection may stay checked out before
	// the maintenance loop reports it as a suspected leak. Zero disables
	// leak detection.
	LeakThreshold time.Duration

	// TestOnBorrow validates every connection before handing it to a
	// caller. A connection that fails validation is evicted and the
	// acquire retried transparently within the caller's deadline.
	TestOnBorrow bool

	// MaintenanceInterval is how often the background sweep runs.
	MaintenanceInterval time.Duration

	// MaxWaiters limits how many callers may block in Acquire at once.
	// Zero means unlimited.
	MaxWaiters int

	// Limiter optionally rate-limits the opening of new physical
	// connections. When the limiter denies growth, Acquire waits for a
	// release instead of dialing.
	Limiter GrowthLimiter

	// EventListeners receive connection lifecycle events.
	EventListeners []EventListener
}

// GrowthLimiter gates the creation of new physical connections.
// connlimit.Limiter satisfies it.
type GrowthLimiter interface {
	// Allow reports whether one more connection may be opened now.
	Allow() bool
}

// defaultConfig returns the configuration used when no options are given.
func defaultConfig() *Config {
	return &Config{
		MaxPoolSize:         10,
		MinIdle:             0,
		AcquireTimeout:      30 * time.Second,
		IdleTimeout:         5 * time.Minute,
		MaxLifetime:         30 * time.Minute,
		ValidationTimeout:   time.Second,
		LeakThreshold:       0,
		TestOnBorrow:        false,
		MaintenanceInterval: 5 * time.Second,
		MaxWaiters:          0,
	}
}

// validate rejects contradictory configurations with a *ConfigError.
func (c *Config) validate() error {
	if c.MaxPoolSize < 1 {
		return &ConfigError{Field: "MaxPoolSize", Reason: "must be at least 1"}
	}
	if c.MinIdle < 0 {
		return &ConfigError{Field: "MinIdle", Reason: "must not be negative"}
	}
	if c.MinIdle > c.MaxPoolSize {
		return &ConfigError{Field: "MinIdle", Reason: "must not exceed MaxPoolSize"}
	}
	if c.AcquireTimeout < 0 {
		return &ConfigError{Field: "AcquireTimeout", Reason: "must not be negative"}
	}
	if c.IdleTimeout < 0 {
		return &ConfigError{Field: "IdleTimeout", Reason: "must not be negative"}
	}
	if c.MaxLifetime < 0 {
		return &ConfigError{Field: "MaxLifetime", Reason: "must not be negative"}
	}
	if c.ValidationTimeout < 0 {
		return &ConfigError{Field: "ValidationTimeout", Reason: "must not be negative"}
	}
	if c.LeakThreshold < 0 {
		return &ConfigError{Field: "LeakThreshold", Reason: "must not be negative"}
	}
	if c.MaintenanceInterval <= 0 {
		return &ConfigError{Field: "MaintenanceInterval", Reason: "must be positive"}
	}
	if c.MaxWaiters < 0 {
		return &ConfigError{Field: "MaxWaiters", Reason: "must not be negative"}
	}
	return nil
}

// Option configures a pool.
type Option func(*Config)

// WithMaxPoolSize sets the maximum number of connections.
func WithMaxPoolSize(n int) Option {
	return func(c *Config) {
		c.MaxPoolSize = n
	}
}

// WithMinIdle sets the number of idle connections to keep warm.
func WithMinIdle(n int) Option {
	return func(c *Config) {
		c.MinIdle = n
	}
}

// WithAcquireTimeout sets the default acquire deadline.
func WithAcquireTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.AcquireTimeout = d
	}
}

// WithIdleTimeout sets the idle eviction threshold.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.IdleTimeout = d
	}
}

// WithMaxLifetime sets the connection lifetime limit.
func WithMaxLifetime(d time.Duration) Option {
	return func(c *Config) {
		c.MaxLifetime = d
	}
}

// WithValidationTimeout bounds each Factory.Validate call.
func WithValidationTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ValidationTimeout = d
	}
}

// WithLeakThreshold enables leak detection for checkouts longer than d.
func WithLeakThreshold(d time.Duration) Option {
	return func(c *Config) {
		c.LeakThreshold = d
	}
}

// WithTestOnBorrow validates connections before handing them out.
func WithTestOnBorrow(test bool) Option {
	return func(c *Config) {
		c.TestOnBorrow = test
	}
}

// WithMaintenanceInterval sets the background sweep period.
func WithMaintenanceInterval(d time.Duration) Option {
	return func(c *Config) {
		c.MaintenanceInterval = d
	}
}

// WithMaxWaiters limits the number of blocked Acquire calls.
func WithMaxWaiters(n int) Option {
	return func(c *Config) {
		c.MaxWaiters = n
	}
}

// WithLimiter rate-limits the opening of new physical connections.
func WithLimiter(l GrowthLimiter) Option {
	return func(c *Config) {
		c.Limiter = l
	}
}

// WithEventListener adds a connection lifecycle event listener.
func WithEventListener(l EventListener) Option {
	return func(c *Config) {
		c.EventListeners = append(c.EventListeners, l)
	}
}
