package adapters

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/gengirish/database-connection-pool/pool"
)

// GRPCConfig configures a gRPC-backed connection factory.
type GRPCConfig struct {
	// Target is the server address in gRPC name resolution syntax.
	Target string

	// TransportCredentials secures the channel. Nil means insecure.
	TransportCredentials credentials.TransportCredentials

	// Keepalive settings. A zero KeepaliveTime disables client keepalive.
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration

	// DialOptions are appended after the options derived above.
	DialOptions []grpc.DialOption
}

// GRPCFactory opens one client channel per pooled connection.
type GRPCFactory struct {
	config *GRPCConfig
}

// NewGRPCFactory creates a factory for config.
func NewGRPCFactory(config *GRPCConfig) *GRPCFactory {
	return &GRPCFactory{config: config}
}

// Open establishes a new client channel to the target.
func (f *GRPCFactory) Open(ctx context.Context) (interface{}, error) {
	dialOpts := make([]grpc.DialOption, 0, len(f.config.DialOptions)+2)

	if f.config.TransportCredentials != nil {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(f.config.TransportCredentials))
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	if f.config.KeepaliveTime > 0 {
		dialOpts = append(dialOpts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    f.config.KeepaliveTime,
			Timeout: f.config.KeepaliveTimeout,
		}))
	}

	dialOpts = append(dialOpts, f.config.DialOptions...)

	conn, err := grpc.NewClient(f.config.Target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("adapters: dial grpc %s: %w", f.config.Target, err)
	}
	conn.Connect()
	return conn, nil
}

// Validate checks the channel's connectivity state. Ready and Idle
// channels are usable; a transient failure is not.
func (f *GRPCFactory) Validate(ctx context.Context, raw interface{}) bool {
	conn, ok := raw.(*grpc.ClientConn)
	if !ok {
		return false
	}
	state := conn.GetState()
	return state == connectivity.Ready || state == connectivity.Idle
}

// Close tears down the channel.
func (f *GRPCFactory) Close(raw interface{}) {
	if conn, ok := raw.(*grpc.ClientConn); ok {
		_ = conn.Close()
	}
}

var _ pool.Factory = (*GRPCFactory)(nil)

// WithGRPCConn acquires a connection from p, exposes it to fn as a
// *grpc.ClientConn, and releases it on return.
func WithGRPCConn(ctx context.Context, p *pool.Pool, fn func(*grpc.ClientConn) error) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	conn, ok := c.Raw().(*grpc.ClientConn)
	if !ok {
		return fmt.Errorf("adapters: pooled connection is %T, not *grpc.ClientConn", c.Raw())
	}
	return fn(conn)
}
