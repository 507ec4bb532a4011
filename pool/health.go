package pool

import (
	"context"
	"time"
)

// healthProbeTimeout bounds the trial acquire performed by HealthCheck.
// A caller context with a sooner deadline takes precedence.
const healthProbeTimeout = time.Second

// HealthCheck derives the pool's health verdict.
//
// A saturated pool (every connection checked out, borrowers queued) is
// Degraded; probing it would only add another starving waiter. An
// unsaturated pool is probed with a trial acquire-and-release through
// the same public contract ordinary callers use, and is Unhealthy when
// the probe fails or times out, Healthy otherwise.
func (p *Pool) HealthCheck(ctx context.Context) Health {
	if p.reg.isClosed() {
		return Unhealthy
	}

	s := p.Snapshot()
	if s.InUse >= s.MaxPoolSize && s.Waiting > 0 {
		return Degraded
	}

	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	c, err := p.Acquire(ctx)
	if err != nil {
		return Unhealthy
	}
	if err := c.Close(); err != nil {
		return Unhealthy
	}
	return Healthy
}
