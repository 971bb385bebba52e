package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(cfg RedisConfig) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &Redis{rdb: rdb, ttl: ttl}
}

// Ping checks redis connectivity.
func (c *Redis) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Redis) Close() error {
	return c.rdb.Close()
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, val []byte) error {
	return c.rdb.Set(ctx, key, val, c.ttl).Err()
}

func (c *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
