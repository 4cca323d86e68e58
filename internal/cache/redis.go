package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"folio/internal/domain/models/publish"

	"github.com/redis/go-redis/v9"
)

// RedisPointerCache stores pointers as JSON strings with a TTL.
type RedisPointerCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	closed atomic.Bool

	hits   atomic.Int64
	misses atomic.Int64
}

// RedisOptions configures the Redis pointer cache.
type RedisOptions struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379/0)
	URL string

	// Prefix is prepended to all keys
	Prefix string

	// TTL should not exceed the pointer's Cache-Control lifetime by much;
	// a stale entry keeps serving the previous build.
	TTL time.Duration

	ConnectTimeout time.Duration
}

// DefaultRedisOptions returns sensible defaults.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Prefix:         "folio:ptr:",
		TTL:            30 * time.Second,
		ConnectTimeout: 5 * time.Second,
	}
}

// NewRedisPointerCache connects to Redis and verifies the connection.
func NewRedisPointerCache(opts RedisOptions) (*RedisPointerCache, error) {
	if opts.URL == "" {
		return nil, errors.New("redis URL is required")
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.ConnectTimeout > 0 {
		redisOpts.DialTimeout = opts.ConnectTimeout
	}

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), max(opts.ConnectTimeout, time.Second))
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisPointerCacheFromClient(client, opts.Prefix, opts.TTL), nil
}

// NewRedisPointerCacheFromClient wraps an existing client.
func NewRedisPointerCacheFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisPointerCache {
	return &RedisPointerCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisPointerCache) key(host string) string {
	return c.prefix + host
}

func (c *RedisPointerCache) Get(ctx context.Context, host string) (*publish.Pointer, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	val, err := c.client.Get(ctx, c.key(host)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.misses.Add(1)
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var p publish.Pointer
	if err := json.Unmarshal(val, &p); err != nil {
		// Corrupt entries are treated as misses and overwritten on refill
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}
	c.hits.Add(1)
	return &p, nil
}

func (c *RedisPointerCache) Set(ctx context.Context, host string, p *publish.Pointer) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pointer: %w", err)
	}
	return c.client.Set(ctx, c.key(host), data, c.ttl).Err()
}

func (c *RedisPointerCache) Delete(ctx context.Context, host string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	return c.client.Del(ctx, c.key(host)).Err()
}

// Stats returns hit and miss counts since creation.
func (c *RedisPointerCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *RedisPointerCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.client.Close()
}
