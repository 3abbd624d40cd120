// Package cache provides the Redis-backed read path for rate windows.
// The resolver hits this cache on every minute-priced session close, so
// tariff reads must not go to Postgres each time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"cueclub/internal/core/id"
	"cueclub/internal/core/tenant"
	"cueclub/internal/domain/tariff"
	"cueclub/pkg/logger"
)

const (
	keyNamespace = "cueclub"
	tariffPrefix = "tariff"

	// DefaultTTL bounds staleness when an invalidation is lost.
	DefaultTTL = 10 * time.Minute
)

var (
	_ tariff.Catalog          = (*RateWindowCache)(nil)
	_ tariff.CacheInvalidator = (*RateWindowCache)(nil)
)

// cmdable is the slice of the redis client the cache uses.
// *redis.Client satisfies it.
type cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RateWindowCache is a read-through cache over the rate window
// repository. Redis failures degrade to direct repository reads; a
// pricing request never fails because the cache is down.
type RateWindowCache struct {
	client cmdable
	source tariff.Catalog
	ttl    time.Duration
}

// NewRateWindowCache creates a cache over the given source catalog.
func NewRateWindowCache(client cmdable, source tariff.Catalog, ttl time.Duration) *RateWindowCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RateWindowCache{client: client, source: source, ttl: ttl}
}

// ListActiveByTableType implements tariff.Catalog. The cached value
// preserves the source ordering (priority descending, id ascending).
func (c *RateWindowCache) ListActiveByTableType(ctx context.Context, tableTypeID id.ID) ([]tariff.RateWindow, error) {
	key := c.key(ctx, tableTypeID)

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var windows []tariff.RateWindow
		if err := json.Unmarshal([]byte(raw), &windows); err == nil {
			return windows, nil
		}
		logger.Warn(ctx, "rate window cache entry corrupt, refetching", "key", key)
	case errors.Is(err, redis.Nil):
		// cache miss
	default:
		logger.Warn(ctx, "rate window cache read failed", "key", key, "error", err)
	}

	windows, err := c.source.ListActiveByTableType(ctx, tableTypeID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(windows); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			logger.Warn(ctx, "rate window cache write failed", "key", key, "error", err)
		}
	}
	return windows, nil
}

// Invalidate implements tariff.CacheInvalidator. Called by the tariff
// admin service after every window mutation.
func (c *RateWindowCache) Invalidate(ctx context.Context, tableTypeID id.ID) error {
	key := c.key(ctx, tableTypeID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("invalidate rate window cache: %w", err)
	}
	return nil
}

// key namespaces entries per club so tenants sharing one Redis never
// see each other's tariffs.
func (c *RateWindowCache) key(ctx context.Context, tableTypeID id.ID) string {
	parts := []string{keyNamespace, tariffPrefix}
	if clubID := tenant.GetClubID(ctx); clubID != "" {
		parts = append(parts, clubID)
	}
	parts = append(parts, tableTypeID.String())
	return strings.Join(parts, ":")
}

// Ping verifies the Redis connection for health checks.
func (c *RateWindowCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
