package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// newMigrator builds a goose provider over the embedded migrations. The
// Postgres advisory lock keeps replicas that start together from running the
// same file twice.
func newMigrator(db *sql.DB) (*goose.Provider, error) {
	dir, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, err
	}
	locker, err := lock.NewPostgresSessionLocker()
	if err != nil {
		return nil, fmt.Errorf("migration lock: %w", err)
	}
	return goose.NewProvider(goose.DialectPostgres, db, dir, goose.WithSessionLocker(locker))
}

// Migrate applies the pending embedded migrations and returns the names of
// the applied files.
func Migrate(ctx context.Context, db *sql.DB) ([]string, error) {
	provider, err := newMigrator(db)
	if err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	results, err := provider.Up(ctx)
	applied := make([]string, 0, len(results))
	for _, r := range results {
		applied = append(applied, filepath.Base(r.Source.Path))
	}
	if err != nil {
		return applied, fmt.Errorf("migrations: %w", translateError(err))
	}
	return applied, nil
}
