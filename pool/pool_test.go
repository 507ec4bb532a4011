package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockConn is the physical connection handed out by mockFactory.
type mockConn struct {
	seq    int64
	closed atomic.Bool
	valid  atomic.Bool
}

// mockFactory implements Factory for tests.
type mockFactory struct {
	mu        sync.Mutex
	seq       int64
	conns     []*mockConn
	openErr   error
	failNext  int // fail this many opens before succeeding
	openDelay time.Duration
}

func (f *mockFactory) Open(ctx context.Context) (interface{}, error) {
	f.mu.Lock()
	if f.openDelay > 0 {
		delay := f.openDelay
		f.mu.Unlock()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		f.mu.Lock()
	}
	defer f.mu.Unlock()

	if f.failNext > 0 {
		f.failNext--
		return nil, errors.New("backend unavailable")
	}
	if f.openErr != nil {
		return nil, f.openErr
	}

	f.seq++
	c := &mockConn{seq: f.seq}
	c.valid.Store(true)
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *mockFactory) Validate(ctx context.Context, raw interface{}) bool {
	c := raw.(*mockConn)
	return c.valid.Load() && !c.closed.Load()
}

func (f *mockFactory) Close(raw interface{}) {
	raw.(*mockConn).closed.Store(true)
}

func (f *mockFactory) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

func (f *mockFactory) closedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.conns {
		if c.closed.Load() {
			n++
		}
	}
	return n
}

// eventRecorder collects lifecycle events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) OnEvent(event Event, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) count(event Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

// newTestPool builds a pool with a long maintenance interval so sweeps
// do not interfere with tests that are not about maintenance.
func newTestPool(t *testing.T, factory Factory, options ...Option) *Pool {
	t.Helper()
	base := []Option{WithMaintenanceInterval(time.Hour)}
	p, err := New(factory, append(base, options...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown() })
	return p
}

func TestAcquireRelease(t *testing.T) {
	factory := &mockFactory{}
	p := newTestPool(t, factory, WithMaxPoolSize(5))

	c, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, c.Raw())
	assert.NotEmpty(t, c.ID())
	assert.False(t, c.CreatedAt().IsZero())

	first := c.Raw().(*mockConn)
	require.NoError(t, c.Close())

	// The released connection is reused, not replaced.
	c2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, c2.Raw().(*mockConn))
	require.NoError(t, c2.Close())

	stats := p.Snapshot()
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Idle)
	assert.Equal(t, 0, stats.InUse)
	assert.Equal(t, int64(2), stats.Acquired)
	assert.Equal(t, int64(2), stats.Released)
	assert.Equal(t, 1, factory.openCount())
}

func TestAcquireTimesOutAtCapacity(t *testing.T) {
	factory := &mockFactory{}
	p := newTestPool(t, factory, WithMaxPoolSize(2), WithAcquireTimeout(80*time.Millisecond))

	c1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	c2, err := p.Acquire(context.Background())
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Acquire(context.Background())
	require.ErrorIs(t, err, ErrAcquireTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)

	stats := p.Snapshot()
	assert.Equal(t, int64(1), stats.Timeouts)
	assert.Equal(t, 2, stats.Total)

	// A release while someone is waiting hands the connection over.
	done := make(chan error, 1)
	go func() {
		c, err := p.Acquire(context.Background())
		if err == nil {
			err = c.Close()
		}
		done <- err
	}()

	require.Eventually(t, func() bool {
		return p.Snapshot().Waiting == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c1.Close())
	require.NoError(t, <-done)
	require.NoError(t, c2.Close())

	// Capacity never exceeded.
	assert.Equal(t, 2, factory.openCount())
}

func TestAcquireServesWaitersInOrder(t *testing.T) {
	factory := &mockFactory{}
	p := newTestPool(t, factory, WithMaxPoolSize(1), WithAcquireTimeout(5*time.Second))

	holder, err := p.Acquire(context.Background())
	require.NoError(t, err)

	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	wait := func(n int) {
		defer wg.Done()
		c, err := p.Acquire(context.Background())
		require.NoError(t, err)
		mu.Lock()
		order = append(order, n)
		mu.Unlock()
		require.NoError(t, c.Close())
	}

	// Enqueue the first waiter and make sure it is queued before the
	// second arrives.
	wg.Add(1)
	go wait(1)
	require.Eventually(t, func() bool {
		return p.Snapshot().Waiting == 1
	}, time.Second, time.Millisecond)

	wg.Add(1)
	go wait(2)
	require.Eventually(t, func() bool {
		return p.Snapshot().Waiting == 2
	}, time.Second, time.Millisecond)

	require.NoError(t, holder.Close())
	wg.Wait()

	assert.Equal(t, []int{1, 2}, order)
}

func TestConcurrentAcquireInvariants(t *testing.T) {
	const maxSize = 4
	factory := &mockFactory{}
	p := newTestPool(t, factory, WithMaxPoolSize(maxSize), WithAcquireTimeout(5*time.Second))

	var inFlight atomic.Int64
	var peak atomic.Int64
	var wg sync.WaitGroup

	// Raw connections currently checked out; two callers holding the
	// same one would be aliasing.
	var heldMu sync.Mutex
	held := make(map[*mockConn]bool)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				c, err := p.Acquire(context.Background())
				require.NoError(t, err)

				raw := c.Raw().(*mockConn)
				heldMu.Lock()
				require.False(t, held[raw], "connection handed to two callers")
				held[raw] = true
				heldMu.Unlock()

				n := inFlight.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inFlight.Add(-1)

				heldMu.Lock()
				delete(held, raw)
				heldMu.Unlock()
				require.NoError(t, c.Close())
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(maxSize))
	assert.LessOrEqual(t, factory.openCount(), maxSize)

	stats := p.Snapshot()
	assert.Equal(t, stats.Total, stats.Idle+stats.InUse)
	assert.LessOrEqual(t, stats.Total, maxSize)
	assert.Equal(t, int64(500), stats.Acquired)
	assert.Equal(t, int64(500), stats.Released)
}

func TestAcquireCreationFailure(t *testing.T) {
	factory := &mockFactory{openErr: errors.New("dial refused")}
	p := newTestPool(t, factory, WithMaxPoolSize(2))

	_, err := p.Acquire(context.Background())
	var cerr *CreationError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorContains(t, cerr, "dial refused")

	stats := p.Snapshot()
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, int64(1), stats.CreationFailures)

	// The failed reservation is rolled back; a working factory fills
	// the slot again.
	factory.mu.Lock()
	factory.openErr = nil
	factory.mu.Unlock()

	c, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestAcquireRacingGrowthWithFailure(t *testing.T) {
	factory := &mockFactory{failNext: 1}
	p := newTestPool(t, factory, WithMaxPoolSize(1), WithAcquireTimeout(2*time.Second))

	var succeeded atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := p.Acquire(context.Background())
			if err != nil {
				return
			}
			succeeded.Add(1)
			time.Sleep(10 * time.Millisecond)
			require.NoError(t, c.Close())
		}()
	}
	wg.Wait()

	// The first open fails, but the freed slot is retried for any
	// queued waiter, so at least one caller gets a connection and the
	// cap is never breached.
	assert.GreaterOrEqual(t, succeeded.Load(), int64(1))
	assert.LessOrEqual(t, p.Snapshot().Total, 1)
}

func TestValidationFailureRetriesTransparently(t *testing.T) {
	factory := &mockFactory{}
	recorder := &eventRecorder{}
	p := newTestPool(t, factory,
		WithMaxPoolSize(3),
		WithTestOnBorrow(true),
		WithEventListener(recorder),
	)

	c, err := p.Acquire(context.Background())
	require.NoError(t, err)
	stale := c.Raw().(*mockConn)
	require.NoError(t, c.Close())

	// Kill the idle connection behind the pool's back.
	stale.valid.Store(false)

	c2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, stale, c2.Raw().(*mockConn))
	require.NoError(t, c2.Close())

	stats := p.Snapshot()
	assert.Equal(t, int64(1), stats.ValidationFailures)
	assert.Equal(t, 1, stats.Total)
	assert.True(t, stale.closed.Load())
	assert.Equal(t, 1, recorder.count(EventClosed))
}

func TestExpiredIdleConnNeverHandedOut(t *testing.T) {
	factory := &mockFactory{}
	p := newTestPool(t, factory, WithMaxPoolSize(2), WithMaxLifetime(30*time.Millisecond))

	c, err := p.Acquire(context.Background())
	require.NoError(t, err)
	old := c.Raw().(*mockConn)
	require.NoError(t, c.Close())

	time.Sleep(50 * time.Millisecond)

	c2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, old, c2.Raw().(*mockConn))
	require.NoError(t, c2.Close())

	assert.True(t, old.closed.Load())
	assert.Equal(t, int64(1), p.Snapshot().LifetimeEvicted)
}

func TestReleaseTwice(t *testing.T) {
	factory := &mockFactory{}
	p := newTestPool(t, factory)

	c, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.ErrorIs(t, c.Close(), ErrConnInvalid)

	// The double release does not corrupt the idle list.
	stats := p.Snapshot()
	assert.Equal(t, 1, stats.Idle)
	assert.Equal(t, int64(1), stats.Released)
}

func TestReleaseForeignConn(t *testing.T) {
	p1 := newTestPool(t, &mockFactory{})
	p2 := newTestPool(t, &mockFactory{})

	c, err := p1.Acquire(context.Background())
	require.NoError(t, err)

	require.ErrorIs(t, p2.Release(c), ErrConnInvalid)
	require.ErrorIs(t, p2.Release(nil), ErrConnInvalid)
	require.NoError(t, c.Close())
}

func TestAcquireContextCanceled(t *testing.T) {
	factory := &mockFactory{}
	p := newTestPool(t, factory, WithMaxPoolSize(1), WithAcquireTimeout(5*time.Second))

	c, err := p.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Acquire(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return p.Snapshot().Waiting == 1
	}, time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, c.Close())

	// The canceled waiter did not leave a dangling entry.
	assert.Equal(t, 0, p.Snapshot().Waiting)
}

func TestMaxWaiters(t *testing.T) {
	factory := &mockFactory{}
	p := newTestPool(t, factory,
		WithMaxPoolSize(1),
		WithMaxWaiters(1),
		WithAcquireTimeout(5*time.Second),
	)

	c, err := p.Acquire(context.Background())
	require.NoError(t, err)

	go func() {
		if c2, err := p.Acquire(context.Background()); err == nil {
			_ = c2.Close()
		}
	}()
	require.Eventually(t, func() bool {
		return p.Snapshot().Waiting == 1
	}, time.Second, time.Millisecond)

	_, err = p.Acquire(context.Background())
	require.ErrorIs(t, err, ErrTooManyWaiters)
	require.NoError(t, c.Close())
}

// denyAll refuses every new connection.
type denyAll struct{}

func (denyAll) Allow() bool { return false }

func TestLimiterDeniesGrowth(t *testing.T) {
	factory := &mockFactory{}
	p := newTestPool(t, factory,
		WithMaxPoolSize(5),
		WithLimiter(denyAll{}),
		WithAcquireTimeout(50*time.Millisecond),
	)

	_, err := p.Acquire(context.Background())
	require.ErrorIs(t, err, ErrAcquireTimeout)
	assert.Equal(t, 0, factory.openCount())
}

func TestShutdown(t *testing.T) {
	factory := &mockFactory{}
	recorder := &eventRecorder{}
	p, err := New(factory,
		WithMaxPoolSize(3),
		WithMaintenanceInterval(time.Hour),
		WithEventListener(recorder),
	)
	require.NoError(t, err)

	held, err := p.Acquire(context.Background())
	require.NoError(t, err)

	idle, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, idle.Close())

	require.NoError(t, p.Shutdown())

	// Idle connections are closed immediately.
	assert.Equal(t, 1, factory.closedCount())

	// New acquires fail fast.
	_, err = p.Acquire(context.Background())
	require.ErrorIs(t, err, ErrPoolClosed)

	// The held connection survives until released, then is closed.
	require.False(t, held.Raw().(*mockConn).closed.Load())
	require.NoError(t, held.Close())
	assert.Equal(t, 2, factory.closedCount())

	// Idempotent.
	require.NoError(t, p.Shutdown())
	assert.Equal(t, 2, recorder.count(EventClosed))
}

func TestShutdownWakesWaiters(t *testing.T) {
	factory := &mockFactory{}
	p, err := New(factory,
		WithMaxPoolSize(1),
		WithMaintenanceInterval(time.Hour),
		WithAcquireTimeout(5*time.Second),
	)
	require.NoError(t, err)

	c, err := p.Acquire(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := p.Acquire(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool {
		return p.Snapshot().Waiting == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, p.Shutdown())
	require.ErrorIs(t, <-done, ErrPoolClosed)
	require.NoError(t, c.Close())
}

func TestLifecycleEvents(t *testing.T) {
	factory := &mockFactory{}
	recorder := &eventRecorder{}
	p := newTestPool(t, factory, WithEventListener(recorder))

	c, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	assert.Equal(t, 1, recorder.count(EventCreated))
	assert.Equal(t, 1, recorder.count(EventAcquired))
	assert.Equal(t, 1, recorder.count(EventReleased))
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		option Option
		field  string
	}{
		{"zero max size", WithMaxPoolSize(0), "MaxPoolSize"},
		{"negative min idle", WithMinIdle(-1), "MinIdle"},
		{"min idle above max", func(c *Config) { c.MaxPoolSize = 2; c.MinIdle = 3 }, "MinIdle"},
		{"negative acquire timeout", WithAcquireTimeout(-time.Second), "AcquireTimeout"},
		{"negative idle timeout", WithIdleTimeout(-time.Second), "IdleTimeout"},
		{"negative lifetime", WithMaxLifetime(-time.Second), "MaxLifetime"},
		{"negative validation timeout", WithValidationTimeout(-time.Second), "ValidationTimeout"},
		{"negative leak threshold", WithLeakThreshold(-time.Second), "LeakThreshold"},
		{"zero maintenance interval", WithMaintenanceInterval(0), "MaintenanceInterval"},
		{"negative max waiters", WithMaxWaiters(-1), "MaxWaiters"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(&mockFactory{}, tc.option)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	p, err := New(&mockFactory{})
	require.NoError(t, err)
	defer p.Shutdown()

	stats := p.Snapshot()
	assert.Equal(t, 10, stats.MaxPoolSize)
	assert.Equal(t, 0, stats.Total)
	assert.False(t, stats.CreatedAt.IsZero())
}
