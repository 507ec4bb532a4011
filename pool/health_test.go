package pool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheckHealthy(t *testing.T) {
	p := newTestPool(t, &mockFactory{}, WithMaxPoolSize(3))

	assert.Equal(t, Healthy, p.HealthCheck(context.Background()))

	// The probe connection went back to the pool.
	stats := p.Snapshot()
	assert.Equal(t, stats.Total, stats.Idle)
}

func TestHealthCheckDegradedWhenSaturated(t *testing.T) {
	p := newTestPool(t, &mockFactory{},
		WithMaxPoolSize(1),
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

	// Probing a saturated pool would only add another waiter; the
	// verdict comes from the snapshot instead.
	assert.Equal(t, Degraded, p.HealthCheck(context.Background()))
	require.NoError(t, c.Close())
}

func TestHealthCheckUnhealthyOnCreationFailure(t *testing.T) {
	factory := &mockFactory{openErr: errors.New("dial refused")}
	p := newTestPool(t, factory, WithMaxPoolSize(2))

	assert.Equal(t, Unhealthy, p.HealthCheck(context.Background()))
}

func TestHealthCheckUnhealthyAfterShutdown(t *testing.T) {
	p, err := New(&mockFactory{}, WithMaintenanceInterval(time.Hour))
	require.NoError(t, err)
	require.NoError(t, p.Shutdown())

	assert.Equal(t, Unhealthy, p.HealthCheck(context.Background()))
}

func TestHealthStrings(t *testing.T) {
	assert.Equal(t, "healthy", Healthy.String())
	assert.Equal(t, "degraded", Degraded.String())
	assert.Equal(t, "unhealthy", Unhealthy.String())
}
