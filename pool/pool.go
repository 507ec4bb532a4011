package pool

import (
	"context"
	"errors"
	"time"
)

// Pool manages a bounded set of reusable physical connections. It is
// safe for concurrent use by multiple goroutines. Multiple independent
// pools may coexist; there is no process-wide state.
type Pool struct {
	cfg     *Config
	factory Factory
	reg     *registry

	// done stops the maintenance loop. Closed exactly once, by Shutdown.
	done chan struct{}
}

// New creates a pool backed by factory. The configuration is validated
// up front; a contradictory config returns a *ConfigError and no pool
// is started. The maintenance loop starts immediately and pre-warms the
// pool toward MinIdle in the background.
func New(factory Factory, options ...Option) (*Pool, error) {
	cfg := defaultConfig()
	for _, option := range options {
		option(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:     cfg,
		factory: factory,
		reg:     newRegistry(cfg),
		done:    make(chan struct{}),
	}

	go p.maintain()

	return p, nil
}

// Acquire returns a connection from the pool, opening a new one if the
// pool is under capacity, or blocking in FIFO order behind other
// waiters until a connection is released. The wait is bounded by the
// context deadline, or by AcquireTimeout when the context has none.
//
// Validation failures under TestOnBorrow are retried transparently;
// the retries spend the caller's deadline, they do not get a fresh
// budget.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if p.reg.isClosed() {
		return nil, ErrPoolClosed
	}

	if _, ok := ctx.Deadline(); !ok && p.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}

	for {
		select {
		case <-ctx.Done():
			return nil, p.acquireErr(ctx)
		default:
		}

		// Prefer a warm idle connection.
		if pc := p.reg.claimIdle(); pc != nil {
			if !p.vet(ctx, pc) {
				continue
			}
			return p.handout(pc), nil
		}

		// No idle connection: atomically claim one that slipped in,
		// reserve a free slot, or queue behind earlier waiters. The
		// single lock closes the window where a release between the
		// claim above and the enqueue would go unnoticed.
		pc, reserved, w, err := p.reg.enqueueOrClaim(p.allowGrowth)
		if err != nil {
			return nil, err
		}

		if pc != nil {
			if !p.vet(ctx, pc) {
				continue
			}
			return p.handout(pc), nil
		}

		if reserved {
			pc, err := p.open(ctx)
			if err != nil {
				if errors.Is(err, ErrPoolClosed) {
					return nil, ErrPoolClosed
				}
				p.reg.unreserve()
				// The freed reservation may be the only capacity queued
				// waiters will ever see; let another open try for them.
				p.backfill()
				return nil, &CreationError{Err: err}
			}
			return p.handout(pc), nil
		}

		// Suspend until a release hands us a connection or the
		// deadline elapses.

		select {
		case pc, ok := <-w.ready:
			if !ok {
				return nil, ErrPoolClosed
			}
			if !p.vet(ctx, pc) {
				continue
			}
			return p.handout(pc), nil

		case <-ctx.Done():
			if !p.reg.cancelWait(w) {
				// A release raced the deadline; the connection on the
				// channel is ours to put back so it is not stranded.
				select {
				case pc, ok := <-w.ready:
					if ok {
						p.putBack(pc)
					}
				default:
				}
			}
			return nil, p.acquireErr(ctx)
		}
	}
}

// Release returns a connection to the pool, waking the longest-waiting
// borrower if one is queued. Releasing a connection twice, or releasing
// a connection owned by a different pool, fails with ErrConnInvalid.
func (p *Pool) Release(c *Conn) error {
	if c == nil || c.pool != p {
		return ErrConnInvalid
	}
	if !c.done.CompareAndSwap(false, true) {
		return ErrConnInvalid
	}
	p.reg.noteReleased()
	p.putBack(c.pc)
	return nil
}

// Snapshot returns a point-in-time view of the pool.
func (p *Pool) Snapshot() Snapshot {
	return p.reg.snapshot()
}

// Shutdown moves the pool to its terminal state: queued waiters fail
// with ErrPoolClosed, idle connections are closed immediately, and
// in-use connections are closed as they are released. Shutdown is
// idempotent and never interrupts in-flight use.
func (p *Pool) Shutdown() error {
	idle, alreadyClosed := p.reg.markClosed()
	if alreadyClosed {
		return nil
	}

	close(p.done)
	for _, pc := range idle {
		p.factory.Close(pc.raw)
		p.notify(EventClosed, pc.id)
	}
	return nil
}

// vet decides whether a claimed connection may be handed out. An
// expired or invalid connection is evicted and vet returns false so the
// caller retries; the caller never observes the intermediate failure.
func (p *Pool) vet(ctx context.Context, pc *conn) bool {
	if p.reg.shouldEvict(pc, p.cfg.MaxLifetime) {
		p.reg.noteLifetimeEvicted()
		p.evict(pc)
		return false
	}

	if p.cfg.TestOnBorrow {
		p.reg.setState(pc, StateValidating)
		vctx := ctx
		if p.cfg.ValidationTimeout > 0 {
			var cancel context.CancelFunc
			vctx, cancel = context.WithTimeout(ctx, p.cfg.ValidationTimeout)
			defer cancel()
		}
		if !p.factory.Validate(vctx, pc.raw) {
			p.reg.noteValidationFailure()
			p.evict(pc)
			return false
		}
		p.reg.setState(pc, StateInUse)
	}
	return true
}

// open dials one new connection against a held reservation.
func (p *Pool) open(ctx context.Context) (*conn, error) {
	raw, err := p.factory.Open(ctx)
	if err != nil {
		return nil, err
	}

	pc := newConn(raw, time.Now())
	if !p.reg.add(pc) {
		p.factory.Close(raw)
		return nil, ErrPoolClosed
	}
	p.notify(EventCreated, pc.id)
	return pc, nil
}

// putBack is the single return path for in-use connections. When the
// registry refuses the connection (pool closed or flagged for
// eviction) it is closed instead, and the freed slot is backfilled if
// waiters are queued.
func (p *Pool) putBack(pc *conn) {
	if p.reg.put(pc) {
		p.notify(EventReleased, pc.id)
		return
	}
	p.reg.remove(pc)
	p.factory.Close(pc.raw)
	p.notify(EventClosed, pc.id)
	p.backfill()
}

// evict removes and closes a connection unconditionally, then
// backfills the freed slot if waiters are queued.
func (p *Pool) evict(pc *conn) {
	p.reg.remove(pc)
	p.factory.Close(pc.raw)
	p.notify(EventClosed, pc.id)
	p.backfill()
}

// backfill opens a replacement connection when a slot was freed while
// borrowers are waiting, so no waiter is stranded by an eviction. The
// open runs off the caller's critical path.
func (p *Pool) backfill() {
	if !p.reg.hasWaiters() || !p.allowGrowth() || !p.reg.reserve() {
		return
	}

	go func() {
		ctx, cancel := p.dialContext()
		defer cancel()

		pc, err := p.open(ctx)
		if err != nil {
			if !errors.Is(err, ErrPoolClosed) {
				p.reg.unreserve()
			}
			return
		}
		if !p.reg.put(pc) {
			p.reg.remove(pc)
			p.factory.Close(pc.raw)
			p.notify(EventClosed, pc.id)
		}
	}()
}

// handout wraps a claimed connection for the caller.
func (p *Pool) handout(pc *conn) *Conn {
	p.reg.noteAcquired()
	p.notify(EventAcquired, pc.id)
	return &Conn{pool: p, pc: pc}
}

// dialContext bounds a background open with the acquire timeout.
func (p *Pool) dialContext() (context.Context, context.CancelFunc) {
	if p.cfg.AcquireTimeout > 0 {
		return context.WithTimeout(context.Background(), p.cfg.AcquireTimeout)
	}
	return context.WithCancel(context.Background())
}

// allowGrowth consults the optional growth limiter. When growth is
// denied the acquire path falls through to waiting instead of dialing.
func (p *Pool) allowGrowth() bool {
	return p.cfg.Limiter == nil || p.cfg.Limiter.Allow()
}

// acquireErr maps a context failure to the pool error taxonomy.
func (p *Pool) acquireErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		p.reg.noteTimeout()
		return ErrAcquireTimeout
	}
	return ctx.Err()
}

func (p *Pool) notify(event Event, id string) {
	for _, l := range p.cfg.EventListeners {
		l.OnEvent(event, id)
	}
}
