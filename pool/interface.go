package pool

import (
	"context"
	"time"
)

// Factory supplies the pool with physical connections. It is the only
// capability the pool needs from the embedding application: open a new
// connection, check that an existing one is still usable, and dispose
// of one that is no longer needed.
type Factory interface {
	// Open establishes a new physical connection. The returned value is
	// opaque to the pool and can be type asserted by callers via Conn.Raw.
	Open(ctx context.Context) (interface{}, error)

	// Validate reports whether the given physical connection is still
	// usable. The context carries the pool's validation timeout.
	Validate(ctx context.Context, raw interface{}) bool

	// Close disposes of a physical connection. It is best-effort: the
	// pool never inspects a close failure, and Close must always release
	// the underlying resources.
	Close(raw interface{})
}

// State represents the lifecycle state of a pooled connection.
type State int

const (
	// StateIdle indicates the connection is in the pool and not being used.
	StateIdle State = iota

	// StateInUse indicates the connection is checked out by a caller.
	StateInUse

	// StateValidating indicates the connection is being health-checked
	// before being handed to a caller.
	StateValidating

	// StateClosed indicates the connection has been evicted and its
	// physical connection released. A closed connection is never reused.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInUse:
		return "in-use"
	case StateValidating:
		return "validating"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event represents a connection lifecycle event.
type Event int

const (
	// EventCreated is triggered when a new physical connection is opened.
	EventCreated Event = iota

	// EventAcquired is triggered when a connection is handed to a caller.
	EventAcquired

	// EventReleased is triggered when a connection is returned to the pool.
	EventReleased

	// EventClosed is triggered when a connection is evicted and closed.
	EventClosed

	// EventLeak is triggered when a checked-out connection exceeds the
	// leak detection threshold. It is advisory: the connection is not
	// reclaimed.
	EventLeak
)

func (e Event) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventAcquired:
		return "acquired"
	case EventReleased:
		return "released"
	case EventClosed:
		return "closed"
	case EventLeak:
		return "leak"
	default:
		return "unknown"
	}
}

// EventListener is notified about connection lifecycle events.
// Implementations should be lightweight; callbacks may run on hot paths.
type EventListener interface {
	// OnEvent is called when a connection event occurs. id identifies the
	// pooled connection the event refers to.
	OnEvent(event Event, id string)
}

// Snapshot is a read-consistent view of the pool taken at a single
// instant. It is for reporting only; the pool never bases control
// decisions on a snapshot.
type Snapshot struct {
	// Total is the number of connections owned by the pool (Idle + InUse).
	Total int

	// Idle is the number of connections waiting in the pool.
	Idle int

	// InUse is the number of connections checked out by callers.
	InUse int

	// Waiting is the number of callers blocked waiting for a connection.
	Waiting int

	// MaxPoolSize is the configured capacity.
	MaxPoolSize int

	// Utilization is InUse divided by MaxPoolSize.
	Utilization float64

	// Counters accumulated since the pool was created.
	Acquired           int64
	Released           int64
	Timeouts           int64
	CreationFailures   int64
	ValidationFailures int64
	IdleEvicted        int64
	LifetimeEvicted    int64
	LeaksDetected      int64

	// CreatedAt is when the pool was created.
	CreatedAt time.Time
}

// Health is the pool's derived health verdict.
type Health int

const (
	// Healthy indicates a probe acquire/release round trip succeeded and
	// the pool has headroom.
	Healthy Health = iota

	// Degraded indicates the pool is saturated: every connection is
	// checked out and callers are queued.
	Degraded

	// Unhealthy indicates a probe acquire/release failed or timed out.
	Unhealthy
)

func (h Health) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Unhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}
