// Command seed loads the sample catalog into the configured database.
// Running it again only inserts books that are missing.
package main

import (
	"context"
	"os"
	"time"

	"github.com/geocoder89/bookstore/internal/config"
	"github.com/geocoder89/bookstore/internal/db"
	"github.com/geocoder89/bookstore/internal/observability"
	"github.com/geocoder89/bookstore/internal/repo/postgres"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	sqlDB := db.SQLDB(pool)
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB); err != nil {
		log.Error("migrate failed", "err", err)
		os.Exit(1)
	}

	n, err := db.SeedCatalog(ctx, postgres.NewBooksRepo(pool, nil))
	if err != nil {
		log.Error("seeding books failed", "err", err, "inserted", n)
		os.Exit(1)
	}

	log.Info("books seeded", "inserted", n)
}
