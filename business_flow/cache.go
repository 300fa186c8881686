package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/treebio/treebio/config"
)

// Cache key namespace. The flow layer is the only writer of these keys;
// negative lookups are never cached so fast-follow creates stay visible.
func cacheKeyByID(cfg config.CacheConfig, id uint) string {
	return fmt.Sprintf("%slinktree:id:%d", cfg.RedisPrefix, id)
}

func cacheKeyByShortID(cfg config.CacheConfig, shortID string) string {
	return cfg.RedisPrefix + "linktree:shortid:" + shortID
}

func cacheKeyWithLinks(cfg config.CacheConfig, shortID string) string {
	return cfg.RedisPrefix + "linktree:withlinks:" + shortID
}

func cacheKeyListAll(cfg config.CacheConfig, includeAnalytics bool) string {
	if includeAnalytics {
		return cfg.RedisPrefix + "linktree:list:all:analytics"
	}
	return cfg.RedisPrefix + "linktree:list:all"
}

func cacheKeyLinks(cfg config.CacheConfig, linktreeID uint) string {
	return fmt.Sprintf("%slinktree:links:%d", cfg.RedisPrefix, linktreeID)
}

func cacheKeyAnalytics(cfg config.CacheConfig, linktreeID uint) string {
	return fmt.Sprintf("%slinktree:analytics:%d", cfg.RedisPrefix, linktreeID)
}

func cacheKeyAnalyticsTotals(cfg config.CacheConfig) string {
	return cfg.RedisPrefix + "linktree:analytics:totals"
}

// tryCache attempts a cache read into out. Any cache failure is treated as
// a miss so the caller degrades to the durable store.
func tryCache(ctx context.Context, rc *redis.Client, key string, out any) bool {
	if rc == nil {
		return false
	}
	bs, err := rc.Get(ctx, key).Bytes()
	if err != nil || len(bs) == 0 {
		return false
	}
	if err := json.Unmarshal(bs, out); err != nil {
		log.Printf("Cache entry %s is corrupt, treating as miss: %v", key, err)
		return false
	}
	return true
}

// populateCache stores v under key with the given TTL; failures are logged
// and swallowed, the durable store remains the source of truth.
func populateCache(ctx context.Context, rc *redis.Client, key string, v any, ttl time.Duration) {
	if rc == nil {
		return
	}
	bs, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to marshal cache entry %s: %v", key, err)
		return
	}
	if err := rc.Set(ctx, key, bs, ttl).Err(); err != nil {
		log.Printf("Failed to populate cache entry %s: %v", key, err)
	}
}

// invalidateCache deletes the given keys. Errors are demoted to warnings;
// a missed invalidation self-heals at the next TTL expiry.
func invalidateCache(ctx context.Context, rc *redis.Client, keys ...string) {
	if rc == nil || len(keys) == 0 {
		return
	}
	if err := rc.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Cache invalidation failed for %v: %v", keys, err)
	}
}
