package pool

import (
	"sync"
	"time"
)

// waiter is a queued acquisition request. ready is buffered so the
// releasing goroutine never blocks on the handoff; the connection sent
// on it is already marked in-use and owned by the receiver.
type waiter struct {
	ready    chan *conn
	enqueued time.Time
}

// registry is the single source of truth for connection state. Every
// state transition is linearized through its mutex; physical I/O (open,
// validate, close) always happens outside of it.
type registry struct {
	cfg *Config

	mu      sync.Mutex
	conns   map[*conn]struct{}
	idle    []*conn   // most recently returned last
	waiters []*waiter // FIFO, head first
	numOpen int       // owned connections plus outstanding reservations
	closed  bool

	createdAt time.Time

	// counters, guarded by mu
	acquired           int64
	released           int64
	timeouts           int64
	creationFailures   int64
	validationFailures int64
	idleEvicted        int64
	lifetimeEvicted    int64
	leaksDetected      int64
}

func newRegistry(cfg *Config) *registry {
	return &registry{
		cfg:       cfg,
		conns:     make(map[*conn]struct{}),
		createdAt: time.Now(),
	}
}

// claimIdle atomically removes the most recently returned idle
// connection and marks it in-use. It returns nil if no idle connection
// exists. Claiming warm connections first lets idle-timeout eviction
// target the cold end of the list.
func (r *registry) claimIdle() *conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	return r.claimIdleLocked()
}

func (r *registry) claimIdleLocked() *conn {
	last := len(r.idle) - 1
	if last < 0 {
		return nil
	}

	pc := r.idle[last]
	r.idle[last] = nil
	r.idle = r.idle[:last]
	pc.state = StateInUse
	pc.acquiredAt = time.Now()
	pc.leakReported = false
	return pc
}

// reserve claims one slot of capacity ahead of a Factory.Open call.
// The open itself runs outside the lock; the reservation guarantees the
// pool never overshoots MaxPoolSize even when many goroutines race to
// grow it. A failed open must be rolled back with unreserve.
func (r *registry) reserve() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.numOpen >= r.cfg.MaxPoolSize {
		return false
	}
	r.numOpen++
	return true
}

// unreserve rolls back a reservation after a failed open.
func (r *registry) unreserve() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.numOpen--
	r.creationFailures++
}

// add inserts a newly opened connection, consuming its reservation.
// It returns false if the pool was shut down while the open was in
// flight; the caller must then close the physical connection.
func (r *registry) add(pc *conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.numOpen--
		return false
	}
	r.conns[pc] = struct{}{}
	return true
}

// put returns a connection to the pool. If a waiter is queued, the
// connection is handed to the head waiter directly, still marked
// in-use, so a later arrival can never steal it. Otherwise it joins the
// idle list. It returns false when the connection must be closed
// instead (pool shut down or the connection flagged for eviction); the
// caller performs the close outside the lock.
func (r *registry) put(pc *conn) bool {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	pc.lastUsedAt = now

	if r.closed || pc.markEvict {
		return false
	}

	if len(r.waiters) > 0 {
		w := r.waiters[0]
		r.waiters[0] = nil
		r.waiters = r.waiters[1:]
		pc.acquiredAt = now
		pc.leakReported = false
		w.ready <- pc
		return true
	}

	pc.state = StateIdle
	r.idle = append(r.idle, pc)
	return true
}

// enqueueOrClaim appends a waiter to the FIFO queue, but first
// re-checks for an idle connection or a free slot under the same lock.
// Without the re-check a release landing between a failed claimIdle
// and the enqueue would idle a connection with nobody to wake for it.
// Exactly one of the returns is set: a claimed connection, a reserved
// slot the caller must fill with open (or roll back with unreserve),
// or a queued waiter. growthAllowed is consulted only when a slot is
// actually free, so waiting does not burn limiter permits.
func (r *registry) enqueueOrClaim(growthAllowed func() bool) (*conn, bool, *waiter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, false, nil, ErrPoolClosed
	}
	if pc := r.claimIdleLocked(); pc != nil {
		return pc, false, nil, nil
	}
	if r.numOpen < r.cfg.MaxPoolSize && growthAllowed() {
		r.numOpen++
		return nil, true, nil, nil
	}
	if r.cfg.MaxWaiters > 0 && len(r.waiters) >= r.cfg.MaxWaiters {
		return nil, false, nil, ErrTooManyWaiters
	}

	w := &waiter{ready: make(chan *conn, 1), enqueued: time.Now()}
	r.waiters = append(r.waiters, w)
	return nil, false, w, nil
}

// cancelWait removes a waiter after a timeout. It returns true if the
// waiter was still queued. A false return means a release raced the
// timeout and a connection is (or is about to be) on w.ready; the
// caller must drain it back into the pool.
func (r *registry) cancelWait(w *waiter) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, queued := range r.waiters {
		if queued == w {
			r.waiters = append(r.waiters[:i], r.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// remove unregisters a connection and gives up its slot. The caller
// owns the physical close, which happens outside the lock.
func (r *registry) remove(pc *conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(pc)
}

func (r *registry) removeLocked(pc *conn) {
	if _, ok := r.conns[pc]; !ok {
		return
	}
	delete(r.conns, pc)
	r.numOpen--
	pc.state = StateClosed
}

// dropIdleLocked removes the idle entry at index i, preserving order.
func (r *registry) dropIdleLocked(i int) {
	copy(r.idle[i:], r.idle[i+1:])
	r.idle[len(r.idle)-1] = nil
	r.idle = r.idle[:len(r.idle)-1]
}

// snapshot returns read-consistent counts without mutating state.
func (r *registry) snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := len(r.conns)
	idle := len(r.idle)
	return Snapshot{
		Total:       total,
		Idle:        idle,
		InUse:       total - idle,
		Waiting:     len(r.waiters),
		MaxPoolSize: r.cfg.MaxPoolSize,
		Utilization: float64(total-idle) / float64(r.cfg.MaxPoolSize),

		Acquired:           r.acquired,
		Released:           r.released,
		Timeouts:           r.timeouts,
		CreationFailures:   r.creationFailures,
		ValidationFailures: r.validationFailures,
		IdleEvicted:        r.idleEvicted,
		LifetimeEvicted:    r.lifetimeEvicted,
		LeaksDetected:      r.leaksDetected,

		CreatedAt: r.createdAt,
	}
}

// markClosed transitions the registry to its terminal state. It empties
// the idle list, flags every in-use connection for close-on-release,
// and fails all queued waiters. The returned connections are closed by
// the caller outside the lock.
func (r *registry) markClosed() (idle []*conn, alreadyClosed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, true
	}
	r.closed = true

	idle = r.idle
	r.idle = nil
	for _, pc := range idle {
		r.removeLocked(pc)
	}

	for pc := range r.conns {
		pc.markEvict = true
	}

	for _, w := range r.waiters {
		close(w.ready)
	}
	r.waiters = nil

	return idle, false
}

func (r *registry) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *registry) hasWaiters() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters) > 0
}

// setState records a state transition for a connection the caller
// already owns exclusively.
func (r *registry) setState(pc *conn, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pc.state = s
}

// shouldEvict reports whether a claimed connection must not be handed
// out: it was flagged for eviction, or has outlived maxLifetime.
func (r *registry) shouldEvict(pc *conn, maxLifetime time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return pc.markEvict || pc.expired(maxLifetime, time.Now())
}

func (r *registry) noteAcquired() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acquired++
}

func (r *registry) noteReleased() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released++
}

func (r *registry) noteTimeout() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeouts++
}

func (r *registry) noteValidationFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validationFailures++
}

func (r *registry) noteLifetimeEvicted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lifetimeEvicted++
}
