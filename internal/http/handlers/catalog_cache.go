package handlers

import (
	"context"
	"log/slog"

	"github.com/geocoder89/bookstore/internal/cache"
)

type CacheRecorder interface {
	RecordCacheLookup(key, result string)
}

// CatalogCache wraps a cache.Store so that cache failures degrade to store
// reads instead of failing the request. A nil store disables caching.
type CatalogCache struct {
	store   cache.Store
	metrics CacheRecorder
}

func NewCatalogCache(store cache.Store, metrics CacheRecorder) *CatalogCache {
	return &CatalogCache{store: store, metrics: metrics}
}

func (c *CatalogCache) record(key, result string) {
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(key, result)
	}
}

func (c *CatalogCache) load(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}

	body, ok, err := c.store.Get(ctx, key)
	if err != nil {
		slog.Default().WarnContext(ctx, "cache.get_failed", "key", key, "err", err)
		c.record(key, "error")
		return nil, false
	}

	if !ok {
		c.record(key, "miss")
		return nil, false
	}

	c.record(key, "hit")
	return body, true
}

func (c *CatalogCache) save(ctx context.Context, key string, body []byte) {
	if c == nil || c.store == nil {
		return
	}

	if err := c.store.Set(ctx, key, body); err != nil {
		slog.Default().WarnContext(ctx, "cache.set_failed", "key", key, "err", err)
	}
}

// invalidateHome drops the listing after any write that changes books or
// reviews, including account deletes.
func (c *CatalogCache) invalidateHome(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}

	if err := c.store.Delete(ctx, cache.KeyHome); err != nil {
		slog.Default().WarnContext(ctx, "cache.invalidate_failed", "key", cache.KeyHome, "err", err)
	}
}
