package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolClosed is returned by operations on a pool after Shutdown.
	ErrPoolClosed = errors.New("pool: pool is closed")

	// ErrAcquireTimeout is returned when no connection became available
	// within the acquire deadline.
	ErrAcquireTimeout = errors.New("pool: timed out waiting for a connection")

	// ErrTooManyWaiters is returned when the waiter queue is at its
	// configured limit.
	ErrTooManyWaiters = errors.New("pool: too many waiters")

	// ErrConnInvalid is returned by Release for a connection that does not
	// belong to this pool or has already been released. Double release is
	// a programming error and is rejected loudly rather than ignored.
	ErrConnInvalid = errors.New("pool: invalid connection release")
)

// ConfigError describes an invalid pool configuration. It is fatal at
// construction: New never starts a pool with a bad config.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("pool: invalid config %s: %s", e.Field, e.Reason)
}

// CreationError wraps a Factory.Open failure. It is propagated to the
// caller of Acquire; the pool itself remains usable and does not retry
// the open on the caller's behalf.
type CreationError struct {
	Err error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("pool: failed to open connection: %v", e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }
