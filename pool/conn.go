package pool

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// conn wraps one physical connection with pool-management metadata.
// Exactly one of {idle list, one borrower} owns the physical connection
// at any time. All mutable fields are guarded by the registry lock.
type conn struct {
	id        string
	raw       interface{}
	createdAt time.Time

	// guarded by registry.mu
	lastUsedAt   time.Time
	acquiredAt   time.Time
	state        State
	markEvict    bool
	leakReported bool
}

func newConn(raw interface{}, now time.Time) *conn {
	return &conn{
		id:         uuid.NewString(),
		raw:        raw,
		createdAt:  now,
		lastUsedAt: now,
		state:      StateInUse,
	}
}

// expired reports whether the connection has outlived timeout.
// A zero timeout never expires.
func (pc *conn) expired(timeout time.Duration, now time.Time) bool {
	if timeout <= 0 {
		return false
	}
	return now.Sub(pc.createdAt) >= timeout
}

// idleFor reports whether the connection has been idle for at least
// timeout. A zero timeout never matches.
func (pc *conn) idleFor(timeout time.Duration, now time.Time) bool {
	if timeout <= 0 {
		return false
	}
	return now.Sub(pc.lastUsedAt) >= timeout
}

// Conn is a checked-out connection. It must be returned to its pool by
// calling Close (or Pool.Release) exactly once; all use of Raw after
// that is invalid.
type Conn struct {
	pool *Pool
	pc   *conn

	// done transitions from false to true exactly once, on release.
	done atomic.Bool
}

// Raw returns the underlying physical connection. The returned value
// can be type asserted to the actual connection type.
func (c *Conn) Raw() interface{} {
	return c.pc.raw
}

// ID returns the pool-assigned identity of this connection.
func (c *Conn) ID() string {
	return c.pc.id
}

// CreatedAt returns when the underlying connection was opened.
func (c *Conn) CreatedAt() time.Time {
	return c.pc.createdAt
}

// Close returns the connection to its pool. It is equivalent to
// Pool.Release and fails with ErrConnInvalid on a second call.
func (c *Conn) Close() error {
	return c.pool.Release(c)
}
