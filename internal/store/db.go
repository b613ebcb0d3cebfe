package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/juju/errors"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB opens a Postgres pool and pings it within timeout. The handle is
// returned even when the ping fails so callers can decide to keep going.
func NewDB(connString string, timeout time.Duration) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, errors.Annotate(err, "open postgres")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return &DB{Client: db}, errors.Annotate(db.PingContext(ctx), "ping postgres")
}

// Healthy verifies database connectivity.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.Client == nil {
		return false
	}
	return d.Client.PingContext(ctx) == nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
