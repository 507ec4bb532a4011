// Package adapters provides pool.Factory implementations for common
// backends: database/sql drivers, Redis, and gRPC.
package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gengirish/database-connection-pool/pool"
)

// SQLConfig configures a SQL-backed connection factory.
type SQLConfig struct {
	// DriverName and DataSourceName are passed to sql.Open.
	DriverName     string
	DataSourceName string

	// PingTimeout bounds the initial reachability check in
	// NewSQLFactory. Zero skips the check.
	PingTimeout time.Duration
}

// SQLFactory opens dedicated *sql.Conn connections from a database
// handle. Each Open pins one physical connection for exclusive use by
// a borrower, so the handle's own pooling stays out of the way.
type SQLFactory struct {
	db     *sql.DB
	ownsDB bool
}

// NewSQLFactory opens a database handle for config and verifies the
// backend is reachable. The returned factory owns the handle and closes
// it in Shutdown.
func NewSQLFactory(config *SQLConfig) (*SQLFactory, error) {
	db, err := sql.Open(config.DriverName, config.DataSourceName)
	if err != nil {
		return nil, fmt.Errorf("adapters: open %s database: %w", config.DriverName, err)
	}

	if config.PingTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), config.PingTimeout)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("adapters: ping %s database: %w", config.DriverName, err)
		}
	}

	return &SQLFactory{db: db, ownsDB: true}, nil
}

// WithDB wraps an existing database handle. The caller keeps ownership
// of the handle.
func WithDB(db *sql.DB) *SQLFactory {
	return &SQLFactory{db: db}
}

// Open pins one physical connection from the database handle.
func (f *SQLFactory) Open(ctx context.Context) (interface{}, error) {
	return f.db.Conn(ctx)
}

// Validate pings the pinned connection.
func (f *SQLFactory) Validate(ctx context.Context, raw interface{}) bool {
	conn, ok := raw.(*sql.Conn)
	if !ok {
		return false
	}
	return conn.PingContext(ctx) == nil
}

// Close returns the pinned connection to the driver.
func (f *SQLFactory) Close(raw interface{}) {
	if conn, ok := raw.(*sql.Conn); ok {
		_ = conn.Close()
	}
}

// Shutdown closes the database handle if the factory owns it.
func (f *SQLFactory) Shutdown() error {
	if f.ownsDB {
		return f.db.Close()
	}
	return nil
}

var _ pool.Factory = (*SQLFactory)(nil)

// WithSQLConn acquires a connection from p, exposes it to fn as a
// *sql.Conn, and releases it on return.
func WithSQLConn(ctx context.Context, p *pool.Pool, fn func(*sql.Conn) error) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	conn, ok := c.Raw().(*sql.Conn)
	if !ok {
		return fmt.Errorf("adapters: pooled connection is %T, not *sql.Conn", c.Raw())
	}
	return fn(conn)
}
