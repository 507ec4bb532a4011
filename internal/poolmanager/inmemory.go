package poolmanager

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gengirish/database-connection-pool/pool"
	"github.com/gengirish/database-connection-pool/pool/adapters"
)

// InMemoryService implements Service with an in-process registry.
type InMemoryService struct {
	pools map[string]poolEntry
	mu    sync.RWMutex
}

// poolEntry pairs a pool with its metadata.
type poolEntry struct {
	p       *pool.Pool
	backend Backend
}

// NewInMemoryService creates an empty pool registry.
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{
		pools: make(map[string]poolEntry),
	}
}

// CreatePool creates and registers a new pool.
func (s *InMemoryService) CreatePool(name string, opts PoolOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pools[name]; exists {
		return ErrPoolExists
	}

	factory, err := buildFactory(opts)
	if err != nil {
		return err
	}

	poolOpts := []pool.Option{}
	if opts.MaxPoolSize > 0 {
		poolOpts = append(poolOpts, pool.WithMaxPoolSize(opts.MaxPoolSize))
	}
	if opts.MinIdle > 0 {
		poolOpts = append(poolOpts, pool.WithMinIdle(opts.MinIdle))
	}
	if opts.AcquireTimeout > 0 {
		poolOpts = append(poolOpts, pool.WithAcquireTimeout(opts.AcquireTimeout))
	}
	if opts.IdleTimeout > 0 {
		poolOpts = append(poolOpts, pool.WithIdleTimeout(opts.IdleTimeout))
	}
	if opts.MaxLifetime > 0 {
		poolOpts = append(poolOpts, pool.WithMaxLifetime(opts.MaxLifetime))
	}
	if opts.LeakThreshold > 0 {
		poolOpts = append(poolOpts, pool.WithLeakThreshold(opts.LeakThreshold))
	}
	if opts.TestOnBorrow {
		poolOpts = append(poolOpts, pool.WithTestOnBorrow(true))
	}

	p, err := pool.New(factory, poolOpts...)
	if err != nil {
		return err
	}

	s.pools[name] = poolEntry{p: p, backend: opts.Backend}
	return nil
}

// buildFactory maps backend options to a pool.Factory.
func buildFactory(opts PoolOptions) (pool.Factory, error) {
	switch opts.Backend {
	case MemoryBackend, "":
		return NewLoopbackFactory(opts.OpenDelay, opts.FailEvery), nil

	case SQLBackend:
		driver, dsn, ok := strings.Cut(opts.Target, "://")
		if !ok {
			return nil, fmt.Errorf("poolmanager: sql target must be driver://dsn, got %q", opts.Target)
		}
		return adapters.NewSQLFactory(&adapters.SQLConfig{
			DriverName:     driver,
			DataSourceName: dsn,
		})

	case RedisBackend:
		cfg := adapters.DefaultRedisConfig()
		if opts.Target != "" {
			cfg.Addr = opts.Target
		}
		return adapters.NewRedisFactory(cfg), nil

	case GRPCBackend:
		return adapters.NewGRPCFactory(&adapters.GRPCConfig{Target: opts.Target}), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, opts.Backend)
	}
}

// GetPool returns the named pool.
func (s *InMemoryService) GetPool(name string) (*pool.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.pools[name]
	if !exists {
		return nil, ErrPoolNotFound
	}
	return entry.p, nil
}

// ListPools lists all registered pools with their snapshots.
func (s *InMemoryService) ListPools() []PoolInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]PoolInfo, 0, len(s.pools))
	for name, entry := range s.pools {
		result = append(result, PoolInfo{
			Name:     name,
			Backend:  entry.backend,
			Snapshot: entry.p.Snapshot(),
		})
	}
	return result
}

// PoolStats returns the named pool's snapshot.
func (s *InMemoryService) PoolStats(name string) (pool.Snapshot, error) {
	p, err := s.GetPool(name)
	if err != nil {
		return pool.Snapshot{}, err
	}
	return p.Snapshot(), nil
}

// PoolHealth runs the named pool's health check.
func (s *InMemoryService) PoolHealth(ctx context.Context, name string) (pool.Health, error) {
	p, err := s.GetPool(name)
	if err != nil {
		return pool.Unhealthy, err
	}
	return p.HealthCheck(ctx), nil
}

// RemovePool shuts down and unregisters the named pool.
func (s *InMemoryService) RemovePool(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.pools[name]
	if !exists {
		return ErrPoolNotFound
	}
	delete(s.pools, name)
	return entry.p.Shutdown()
}

// Close shuts down all pools.
func (s *InMemoryService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for name, entry := range s.pools {
		if err := entry.p.Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.pools, name)
	}
	return firstErr
}
