package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/geocoder89/bookstore/internal/db/migrations"
	"github.com/pressly/goose/v3"
)

// gooseUp is swapped in tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// Migrate applies the embedded schema and reference data (roles, categories).
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := gooseUp(ctx, db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
