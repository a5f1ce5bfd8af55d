package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter shared by every replica, keyed
// rl:<window_seconds>:<client>.
type RedisLimiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
}

// NewRedisLimiter pings addr and fails when Redis is unreachable so the
// caller can fall back to a MemoryLimiter.
func NewRedisLimiter(ctx context.Context, addr, password string, db int, cfg Config) (*RedisLimiter, error) {
	cfg = cfg.withDefaults()
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisLimiter{client: client, requests: cfg.Requests, window: cfg.Window}, nil
}

func (l *RedisLimiter) key(ident string) string {
	return "rl:" + strconv.FormatInt(int64(l.window.Seconds()), 10) + ":" + ident
}

func (l *RedisLimiter) Allow(ctx context.Context, ident string) (bool, error) {
	key := l.key(ident)
	val, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", key, err)
	}
	if val == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return true, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return val <= int64(l.requests), nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
