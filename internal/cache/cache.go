// Package cache holds short-lived copies of computed read API responses.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adsdsdsdad/uMBLER01/pkg/metrics"
)

// KeyPrefix namespaces every key written by the service.
const KeyPrefix = "support:metrics:"

// Keys for cached rollups.
const (
	KeySystemMetrics     = "system"
	KeySiteCustomerStats = "site_customers:stats"
)

// Cache stores JSON-encoded values with a TTL.
type Cache interface {
	// Get decodes the cached value into dst and reports whether it was found.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// Options configures the Redis cache.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis is a Cache backed by go-redis.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis cache. The connection is established lazily.
func NewRedis(opts Options) *Redis {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		ttl: ttl,
	}
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := r.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup(false)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		metrics.RecordCacheLookup(false)
		return false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}
	metrics.RecordCacheLookup(true)
	return true, nil
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache key %s: %w", key, err)
	}
	if err := r.client.Set(ctx, KeyPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// Delete implements Cache.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = KeyPrefix + k
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

// Ping implements Cache.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close implements Cache.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string, dst any) (bool, error) { return false, nil }
func (Noop) Set(ctx context.Context, key string, value any) error       { return nil }
func (Noop) Delete(ctx context.Context, keys ...string) error           { return nil }
func (Noop) Ping(ctx context.Context) error                             { return nil }
func (Noop) Close() error                                               { return nil }
