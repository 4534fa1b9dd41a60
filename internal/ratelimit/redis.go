// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript is the MemoryStore algorithm over a sorted set scored by
// request time in milliseconds. Returns {admitted, countBeforeAppend}.
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)
if count >= limit then
  return {0, count}
end

redis.call('ZADD', key, now, ARGV[5])
redis.call('PEXPIRE', key, ttl)
return {1, count}
`

// DefaultRedisPrefix namespaces limiter keys.
const DefaultRedisPrefix = "ser:rl:"

// RedisStore shares request timestamps between API instances through Redis.
type RedisStore struct {
	rdb    redis.UniversalClient
	script *redis.Script
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store over an existing client.
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		rdb:    rdb,
		script: redis.NewScript(slidingWindowScript),
		prefix: prefix,
	}
}

// NewRedisStoreFromURL parses a redis:// URL and pings the server.
func NewRedisStoreFromURL(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(rdb, ""), nil
}

// Take implements Store.
func (s *RedisStore) Take(ctx context.Context, client string, now time.Time, window time.Duration, limit int) (bool, int, error) {
	nowMs := now.UnixMilli()
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()[:8]

	res, err := s.script.Run(ctx, s.rdb, []string{s.prefix + client},
		nowMs,
		nowMs-window.Milliseconds(),
		limit,
		(2 * window).Milliseconds(),
		member,
	).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("unexpected script reply of length %d", len(res))
	}
	return res[0] == 1, int(res[1]), nil
}

// Sweep implements Store. Keys expire on their own, so there is nothing to do.
func (s *RedisStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}

// Clients implements Store by scanning the key prefix.
func (s *RedisStore) Clients(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, s.prefix+"*", 500).Result()
		if err != nil {
			return 0, err
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
