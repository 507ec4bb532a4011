// Package connlimit rate-limits the opening of new physical
// connections. A limiter plugged into a pool via pool.WithLimiter
// smooths out dial storms: when the budget is exhausted the pool waits
// for a release instead of stacking dials on a struggling backend.
package connlimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates connection creation. Allow must be cheap and must not
// block; it is consulted on the pool's acquire path.
type Limiter interface {
	// Allow reports whether one more connection may be opened now,
	// consuming one permit if so.
	Allow() bool
}

// TokenBucket limits creation to a sustained rate with a burst
// allowance, using the token bucket algorithm.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket creates a limiter allowing r new connections per
// second with bursts of up to burst.
func NewTokenBucket(r float64, burst int) *TokenBucket {
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Limit(r), burst),
	}
}

// Allow consumes one token if available.
func (l *TokenBucket) Allow() bool {
	return l.limiter.Allow()
}

// Window limits creation to at most maxOpens within a sliding window.
type Window struct {
	mu         sync.Mutex
	windowSize time.Duration
	maxOpens   int
	opens      []time.Time
}

// NewWindow creates a limiter allowing at most maxOpens connection
// opens within any windowSize interval.
func NewWindow(windowSize time.Duration, maxOpens int) *Window {
	return &Window{
		windowSize: windowSize,
		maxOpens:   maxOpens,
		opens:      make([]time.Time, 0, maxOpens),
	}
}

// Allow records one open if the window has room.
func (l *Window) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.expireLocked()
	if len(l.opens) >= l.maxOpens {
		return false
	}
	l.opens = append(l.opens, time.Now())
	return true
}

// expireLocked drops records that have slid out of the window.
func (l *Window) expireLocked() {
	windowStart := time.Now().Add(-l.windowSize)
	i := 0
	for ; i < len(l.opens); i++ {
		if l.opens[i].After(windowStart) {
			break
		}
	}
	if i > 0 {
		l.opens = l.opens[i:]
	}
}

// Combined composes two limiters: an open is allowed only when both
// budgets have room. Useful for pairing a sustained-rate bucket with a
// hard per-window cap.
type Combined struct {
	first, second Limiter
}

// NewCombined creates a limiter requiring both first and second to allow.
func NewCombined(first, second Limiter) *Combined {
	return &Combined{first: first, second: second}
}

// Allow consults both limiters. Both are always consulted so their
// bookkeeping stays consistent.
func (l *Combined) Allow() bool {
	a := l.first.Allow()
	b := l.second.Allow()
	return a && b
}
