package store

import (
	"context"
	"database/sql"
	"embed"
	"time"

	"github.com/juju/errors"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Logger receives goose progress output. *logrus.Logger satisfies it.
type Logger interface {
	Fatalf(format string, v ...interface{})
	Printf(format string, v ...interface{})
}

func setup(log Logger) error {
	goose.SetBaseFS(migrations)
	if log != nil {
		goose.SetLogger(log)
	}
	return errors.Trace(goose.SetDialect("postgres"))
}

// Migrate applies all pending migrations.
func Migrate(ctx context.Context, db *sql.DB, log Logger) error {
	if err := setup(log); err != nil {
		return err
	}
	return errors.Annotate(goose.UpContext(ctx, db, "migrations"), "migrate up")
}

// MigrateDown rolls back the latest migration.
func MigrateDown(ctx context.Context, db *sql.DB, log Logger) error {
	if err := setup(log); err != nil {
		return err
	}
	return errors.Annotate(goose.DownContext(ctx, db, "migrations"), "migrate down")
}

// MigrationStatus logs the state of every migration.
func MigrationStatus(ctx context.Context, db *sql.DB, log Logger) error {
	if err := setup(log); err != nil {
		return err
	}
	return errors.Annotate(goose.StatusContext(ctx, db, "migrations"), "migration status")
}

// MigrateWhenReady polls the database every interval and migrates as soon as it
// answers. It returns nil without migrating once ctx is done.
func MigrateWhenReady(ctx context.Context, d *DB, interval time.Duration, log Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if d.Healthy(ctx) {
			return Migrate(ctx, d.Client, log)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
