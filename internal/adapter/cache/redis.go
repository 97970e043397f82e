package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

const (
	redisKeyPrefix = "wsdash:"
	scanBatch      = 200
)

// Redis is a Store shared between service replicas. Tables are stored as
// JSON. Redis failures are logged and behave like cache misses.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis wraps a go-redis client.
func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// Get loads and decodes a table.
func (r *Redis) Get(ctx context.Context, key string) (domain.Table, bool) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("redis get failed", "key", key, "error", err)
		}
		return domain.Table{}, false
	}
	t, err := decodeTable(data)
	if err != nil {
		r.logger.Warn("redis entry undecodable", "key", key, "error", err)
		return domain.Table{}, false
	}
	return t, true
}

// Set encodes and stores a table with the configured TTL.
func (r *Redis) Set(ctx context.Context, key string, t domain.Table) {
	data, err := json.Marshal(t)
	if err != nil {
		r.logger.Warn("encode cache entry", "key", key, "error", err)
		return
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, data, r.ttl).Err(); err != nil {
		r.logger.Warn("redis set failed", "key", key, "error", err)
	}
}

// InvalidatePrefix deletes every key starting with prefix using SCAN, so the
// server is never blocked by KEYS.
func (r *Redis) InvalidatePrefix(ctx context.Context, prefix string) int {
	pattern := redisKeyPrefix + escapeGlob(prefix) + "*"
	deleted := 0
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			r.logger.Warn("redis scan failed", "prefix", prefix, "error", err)
			return deleted
		}
		if len(keys) > 0 {
			n, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				r.logger.Warn("redis del failed", "prefix", prefix, "error", err)
				return deleted
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted
		}
	}
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func decodeTable(data []byte) (domain.Table, error) {
	var raw domain.Table
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Table{}, err
	}
	return domain.NewTable(raw.Columns, raw.Rows), nil
}

// escapeGlob quotes the characters Redis MATCH treats as wildcards.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
