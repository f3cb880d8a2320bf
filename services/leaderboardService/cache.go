package leaderboardService

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"guildXPBot/services/metrics"

	"github.com/redis/go-redis/v9"
)

// Cache is a short-TTL redis cache of serialized leaderboard pages. A nil
// client disables it; every method degrades to a miss or a no-op so callers
// never branch on whether redis is configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache connects to redisURL, or returns a disabled cache when the URL is
// empty. A bad URL is a configuration error.
func NewCache(redisURL string, ttl time.Duration) (*Cache, error) {
	if redisURL == "" {
		return &Cache{}, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	return &Cache{client: redis.NewClient(opts), ttl: ttl}, nil
}

func key(guildID, board string, limit int) string {
	return fmt.Sprintf("xpbot:lb:%s:%s:%d", guildID, board, limit)
}

// Get returns the cached page for the key, or nil on a miss.
func (c *Cache) Get(ctx context.Context, guildID, board string, limit int) []Entry {
	if c.client == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, key(guildID, board, limit)).Bytes()
	if err != nil {
		metrics.LeaderboardCache.WithLabelValues("miss").Inc()
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		metrics.LeaderboardCache.WithLabelValues("miss").Inc()
		return nil
	}
	metrics.LeaderboardCache.WithLabelValues("hit").Inc()
	return entries
}

// Set stores a page under the key with the cache TTL.
func (c *Cache) Set(ctx context.Context, guildID, board string, limit int, entries []Entry) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(guildID, board, limit), raw, c.ttl).Err(); err != nil {
		slog.Warn("leaderboard cache set", "error", err)
	}
}

// Purge drops every cached page for the guild. Called after resets and
// admin writes so stale standings never outlive the TTL window they matter.
func (c *Cache) Purge(ctx context.Context, guildID string) {
	if c.client == nil {
		return
	}
	pattern := fmt.Sprintf("xpbot:lb:%s:*", guildID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.Warn("leaderboard cache purge", "error", err)
	}
}
