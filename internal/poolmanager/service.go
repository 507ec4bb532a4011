// Package poolmanager manages named connection pools on behalf of the
// CLI. It is embedder-side glue: the pool engine itself knows nothing
// about names or backends.
package poolmanager

import (
	"context"
	"errors"
	"time"

	"github.com/gengirish/database-connection-pool/pool"
)

var (
	// ErrPoolNotFound indicates the requested pool does not exist.
	ErrPoolNotFound = errors.New("pool not found")

	// ErrPoolExists indicates a pool with that name already exists.
	ErrPoolExists = errors.New("pool already exists")

	// ErrUnknownBackend indicates an unsupported backend type.
	ErrUnknownBackend = errors.New("unknown backend")
)

// Backend identifies what a pool's connections talk to.
type Backend string

const (
	// MemoryBackend is an in-process loopback backend for demos and load
	// testing; no external service is needed.
	MemoryBackend Backend = "memory"
	// SQLBackend pools connections of a database/sql driver.
	SQLBackend Backend = "sql"
	// RedisBackend pools dedicated Redis clients.
	RedisBackend Backend = "redis"
	// GRPCBackend pools gRPC client channels.
	GRPCBackend Backend = "grpc"
)

// PoolOptions describe a pool to create.
type PoolOptions struct {
	// Backend selects the connection factory.
	Backend Backend

	// Target is backend-specific: a DSN for sql (prefixed
	// "driver://..."), an address for redis and grpc, ignored for memory.
	Target string

	// Engine knobs, passed through to the pool.
	MaxPoolSize    int
	MinIdle        int
	AcquireTimeout time.Duration
	IdleTimeout    time.Duration
	MaxLifetime    time.Duration
	LeakThreshold  time.Duration
	TestOnBorrow   bool

	// OpenDelay and FailEvery tune the memory backend: artificial dial
	// latency, and one simulated open failure per FailEvery opens.
	OpenDelay time.Duration
	FailEvery int
}

// PoolInfo contains a pool's identity and current snapshot.
type PoolInfo struct {
	Name     string
	Backend  Backend
	Snapshot pool.Snapshot
}

// Service manages named pools.
type Service interface {
	// CreatePool creates and registers a new pool.
	CreatePool(name string, opts PoolOptions) error

	// GetPool returns the named pool.
	GetPool(name string) (*pool.Pool, error)

	// ListPools lists all registered pools with their snapshots.
	ListPools() []PoolInfo

	// PoolStats returns the named pool's snapshot.
	PoolStats(name string) (pool.Snapshot, error)

	// PoolHealth runs the named pool's health check.
	PoolHealth(ctx context.Context, name string) (pool.Health, error)

	// RemovePool shuts down and unregisters the named pool.
	RemovePool(name string) error

	// Close shuts down all pools.
	Close() error
}
