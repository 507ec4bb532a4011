package poolmanager

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// LoopbackConn is what a loopback "physical connection" hands back:
// enough identity to demonstrate that the pool reuses connections.
type LoopbackConn struct {
	Seq      int64
	OpenedAt time.Time

	closed atomic.Bool
}

// LoopbackFactory simulates a backend in process. Optional artificial
// dial latency and a deterministic failure cadence make it useful for
// demos, benchmarks, and exercising the pool's error paths.
type LoopbackFactory struct {
	openDelay time.Duration
	failEvery int

	seq atomic.Int64
}

// NewLoopbackFactory creates a loopback factory. openDelay is applied
// to every Open; failEvery > 0 makes every n-th Open fail.
func NewLoopbackFactory(openDelay time.Duration, failEvery int) *LoopbackFactory {
	return &LoopbackFactory{
		openDelay: openDelay,
		failEvery: failEvery,
	}
}

// Open produces a new loopback connection.
func (f *LoopbackFactory) Open(ctx context.Context) (interface{}, error) {
	if f.openDelay > 0 {
		select {
		case <-time.After(f.openDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	seq := f.seq.Add(1)
	if f.failEvery > 0 && seq%int64(f.failEvery) == 0 {
		return nil, errors.New("poolmanager: simulated open failure")
	}

	return &LoopbackConn{Seq: seq, OpenedAt: time.Now()}, nil
}

// Validate reports whether the connection is still open.
func (f *LoopbackFactory) Validate(ctx context.Context, raw interface{}) bool {
	conn, ok := raw.(*LoopbackConn)
	return ok && !conn.closed.Load()
}

// Close marks the connection closed.
func (f *LoopbackFactory) Close(raw interface{}) {
	if conn, ok := raw.(*LoopbackConn); ok {
		conn.closed.Store(true)
	}
}
