package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/bookstore/internal/auth"
	"github.com/geocoder89/bookstore/internal/cache"
	"github.com/geocoder89/bookstore/internal/config"
	"github.com/geocoder89/bookstore/internal/db"
	httpx "github.com/geocoder89/bookstore/internal/http"
	"github.com/geocoder89/bookstore/internal/http/handlers"
	"github.com/geocoder89/bookstore/internal/observability"
	"github.com/geocoder89/bookstore/internal/repo/memory"
	"github.com/geocoder89/bookstore/internal/repo/postgres"
	"github.com/geocoder89/bookstore/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	// refuse to start without a signing secret
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if err := run(log, cfg); err != nil {
		log.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	deps := httpx.Deps{
		Env:            cfg.Env,
		Tokens:         tokens,
		Prom:           prom,
		Gatherer:       reg,
		CORSOrigins:    cfg.CORSOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	// stores

	switch cfg.Storage {
	case config.StoragePostgres:
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		sqlDB := db.SQLDB(pool)
		err = db.Migrate(ctx, sqlDB)
		_ = sqlDB.Close()
		if err != nil {
			return err
		}

		deps.Accounts = postgres.NewAccountsRepo(pool, prom)
		deps.Books = postgres.NewBooksRepo(pool, prom)
		deps.Reviews = postgres.NewReviewsRepo(pool, prom)
		deps.Readiness = append(deps.Readiness, handlers.Pinger{Name: "postgres", Ping: pool.Ping})

	default:
		log.Warn("using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		deps.Accounts = store.Accounts()
		deps.Books = store.Books()
		deps.Reviews = store.Reviews()
	}

	created, err := db.EnsureAdminUser(ctx, deps.Accounts, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		log.Info("bootstrap admin created", "email", cfg.AdminEmail)
	}

	// catalog cache

	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		defer rc.Close()

		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rc.Ping(pctx); err != nil {
			// reads fall through to the store while redis is down
			log.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "err", err)
		}
		cancel()

		deps.Cache = rc
		deps.Readiness = append(deps.Readiness, handlers.Pinger{Name: "redis", Ping: rc.Ping})
	} else {
		deps.Cache = cache.NewMemory(cfg.CacheTTL)
	}

	// cover images

	if cfg.S3Bucket != "" {
		images, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return fmt.Errorf("s3 store: %w", err)
		}
		deps.Images = images
	} else {
		images, err := storage.NewLocalStore(cfg.UploadDir)
		if err != nil {
			return err
		}
		deps.Images = images
		deps.UploadDir = images.Dir()
	}

	router := httpx.NewRouter(log, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server shutting down")

	sctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
