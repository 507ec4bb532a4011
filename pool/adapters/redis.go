package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gengirish/database-connection-pool/pool"
)

// RedisConfig configures a Redis-backed connection factory.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisConfig returns a config for a local unauthenticated Redis.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// RedisFactory opens one dedicated Redis client per pooled connection.
// The client's internal pool is pinned to a single connection so the
// engine's accounting matches physical connections one to one.
type RedisFactory struct {
	config *RedisConfig
}

// NewRedisFactory creates a factory for config.
func NewRedisFactory(config *RedisConfig) *RedisFactory {
	if config == nil {
		config = DefaultRedisConfig()
	}
	return &RedisFactory{config: config}
}

// Open dials a new single-connection client and verifies it with PING.
func (f *RedisFactory) Open(ctx context.Context) (interface{}, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         f.config.Addr,
		Username:     f.config.Username,
		Password:     f.config.Password,
		DB:           f.config.DB,
		DialTimeout:  f.config.DialTimeout,
		ReadTimeout:  f.config.ReadTimeout,
		WriteTimeout: f.config.WriteTimeout,
		PoolSize:     1,
		MinIdleConns: 1,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("adapters: dial redis %s: %w", f.config.Addr, err)
	}
	return client, nil
}

// Validate checks liveness with PING.
func (f *RedisFactory) Validate(ctx context.Context, raw interface{}) bool {
	client, ok := raw.(*redis.Client)
	if !ok {
		return false
	}
	result, err := client.Ping(ctx).Result()
	return err == nil && result == "PONG"
}

// Close closes the client.
func (f *RedisFactory) Close(raw interface{}) {
	if client, ok := raw.(*redis.Client); ok {
		_ = client.Close()
	}
}

var _ pool.Factory = (*RedisFactory)(nil)

// WithRedisClient acquires a connection from p, exposes it to fn as a
// *redis.Client, and releases it on return.
func WithRedisClient(ctx context.Context, p *pool.Pool, fn func(*redis.Client) error) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	client, ok := c.Raw().(*redis.Client)
	if !ok {
		return fmt.Errorf("adapters: pooled connection is %T, not *redis.Client", c.Raw())
	}
	return fn(client)
}
