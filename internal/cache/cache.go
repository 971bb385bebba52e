// Package cache holds short-lived copies of catalog responses.
package cache

import (
	"context"
	"sync"
	"time"
)

const (
	KeyHome       = "catalog:home:v1"
	KeyCategories = "catalog:categories:v1"
)

// Store is a byte cache with a per-store TTL. A miss is (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, keys ...string) error
}

type Memory struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time
	m   map[string]entry
}

type entry struct {
	val []byte
	exp time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Memory{
		ttl: ttl,
		now: time.Now,
		m:   make(map[string]entry),
	}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if now.After(e.exp) {
		c.mu.Lock()
		// re-check: a Set may have landed between the locks
		if cur, ok := c.m[key]; ok && now.After(cur.exp) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	return e.val, true, nil
}

func (c *Memory) Set(_ context.Context, key string, val []byte) error {
	cp := append([]byte(nil), val...)
	c.mu.Lock()
	c.m[key] = entry{val: cp, exp: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *Memory) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.m, k)
	}
	c.mu.Unlock()
	return nil
}
