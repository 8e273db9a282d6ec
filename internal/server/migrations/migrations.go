// Package migrations embeds the goose migrations of the server database.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var Migrations embed.FS

// newProvider is a seam for tests, which have no Postgres to migrate.
var newProvider = func(db *sql.DB) (migrator, error) {
	return goose.NewProvider(goose.DialectPostgres, db, Migrations)
}

type migrator interface {
	Up(ctx context.Context) ([]*goose.MigrationResult, error)
}

// Up applies every pending migration to db.
func Up(ctx context.Context, db *sql.DB) error {
	p, err := newProvider(db)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
