package tdee

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"mealsuggest"
)

// kv is the slice of the store this package needs: a TTL'd string cache.
type kv interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// CacheKey returns the cache key for a user's daily target.
func CacheKey(userID string) string {
	return fmt.Sprintf("user:tdee:%s", userID)
}

// CachedTargets is a cache-aside wrapper around Calculate. Cache failures on
// either side are logged and degrade to direct computation; they never fail
// the request. The cached value is the bare calorie number as text.
type CachedTargets struct {
	cache kv
}

// NewCachedTargets wraps the given cache. A nil cache disables caching and
// every call computes directly.
func NewCachedTargets(cache kv) *CachedTargets {
	return &CachedTargets{cache: cache}
}

// DailyTarget returns the user's daily calorie target, from cache when warm.
func (c *CachedTargets) DailyTarget(ctx context.Context, userID string, profile *mealsuggest.UserProfile) (float64, error) {
	key := CacheKey(userID)

	if c.cache != nil {
		raw, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("TDEE: Cache read failed, computing directly", "user_id", userID, "error", err)
		} else if ok {
			if target, perr := strconv.ParseFloat(raw, 64); perr == nil {
				return target, nil
			}
			slog.Warn("TDEE: Cached value unparseable, recomputing", "user_id", userID, "value", raw)
		}
	}

	target, err := Calculate(profile)
	if err != nil {
		return 0, fmt.Errorf("calculate daily target: %w", err)
	}

	if c.cache != nil {
		value := strconv.FormatFloat(target, 'f', -1, 64)
		if err := c.cache.Set(ctx, key, value, mealsuggest.DailyTargetTTL); err != nil {
			slog.Warn("TDEE: Cache write failed", "user_id", userID, "error", err)
		}
	}

	return target, nil
}
