package pool

import (
	"errors"
	"time"
)

// maintain runs the periodic background sweep until Shutdown.
func (p *Pool) maintain() {
	ticker := time.NewTicker(p.cfg.MaintenanceInterval)
	defer ticker.Stop()

	// Pre-warm toward MinIdle without waiting for the first tick.
	p.replenish()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.sweep(time.Now())
			p.replenish()
		}
	}
}

// sweep performs one maintenance pass: max-lifetime eviction, then
// idle-timeout eviction, then leak detection. Evicted connections are
// collected under the lock and closed outside it.
func (p *Pool) sweep(now time.Time) {
	r := p.reg

	var closing []*conn
	var leaks []string

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	// Idle connections past their lifetime are evicted immediately.
	// In-use connections past their lifetime are flagged and closed on
	// release; killing them mid-use would corrupt the borrower's work.
	if p.cfg.MaxLifetime > 0 {
		for i := 0; i < len(r.idle); i++ {
			pc := r.idle[i]
			if pc.expired(p.cfg.MaxLifetime, now) {
				r.dropIdleLocked(i)
				i--
				r.removeLocked(pc)
				r.lifetimeEvicted++
				closing = append(closing, pc)
			}
		}
		for pc := range r.conns {
			if (pc.state == StateInUse || pc.state == StateValidating) &&
				pc.expired(p.cfg.MaxLifetime, now) {
				pc.markEvict = true
			}
		}
	}

	// The idle list is ordered by return time, coldest first, so the
	// scan stops at the first warm connection. Eviction never drops the
	// idle count below MinIdle.
	if p.cfg.IdleTimeout > 0 {
		for len(r.idle) > p.cfg.MinIdle {
			pc := r.idle[0]
			if !pc.idleFor(p.cfg.IdleTimeout, now) {
				break
			}
			r.dropIdleLocked(0)
			r.removeLocked(pc)
			r.idleEvicted++
			closing = append(closing, pc)
		}
	}

	// Leak detection is advisory: report each over-threshold checkout
	// once, never reclaim it.
	if p.cfg.LeakThreshold > 0 {
		for pc := range r.conns {
			if (pc.state == StateInUse || pc.state == StateValidating) &&
				!pc.leakReported && now.Sub(pc.acquiredAt) >= p.cfg.LeakThreshold {
				pc.leakReported = true
				r.leaksDetected++
				leaks = append(leaks, pc.id)
			}
		}
	}
	r.mu.Unlock()

	for _, pc := range closing {
		p.factory.Close(pc.raw)
		p.notify(EventClosed, pc.id)
	}
	for _, id := range leaks {
		p.notify(EventLeak, id)
	}
}

// replenish opens connections until the idle count reaches MinIdle,
// subject to capacity. Opens run in the maintenance goroutine, never
// under the registry lock. The first open failure ends the pass; the
// next sweep retries rather than hammering a struggling backend.
func (p *Pool) replenish() {
	r := p.reg

	r.mu.Lock()
	shortfall := p.cfg.MinIdle - len(r.idle)
	if headroom := p.cfg.MaxPoolSize - r.numOpen; shortfall > headroom {
		shortfall = headroom
	}
	closed := r.closed
	r.mu.Unlock()

	if closed {
		return
	}

	for i := 0; i < shortfall; i++ {
		if !p.allowGrowth() || !r.reserve() {
			return
		}

		ctx, cancel := p.dialContext()
		pc, err := p.open(ctx)
		cancel()
		if err != nil {
			if !errors.Is(err, ErrPoolClosed) {
				r.unreserve()
			}
			return
		}
		if !r.put(pc) {
			r.remove(pc)
			p.factory.Close(pc.raw)
			p.notify(EventClosed, pc.id)
			return
		}
	}
}
