package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore tracks per-client request counts over a fixed window.
// Incr bumps the counter for key, starting a new window when none is
// live, and returns the count within the current window along with the
// time until the window resets.  Implementations must be safe for
// concurrent use; undercounting under load defeats the limiter.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

// RedisCounter implements CounterStore on Redis, sharing counts across
// instances.  INCR is atomic; the expiry set on the first hit defines the
// window.
type RedisCounter struct{ rdb *redis.Client }

func NewRedisCounter(rdb *redis.Client) *RedisCounter { return &RedisCounter{rdb: rdb} }

func (s *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := s.rdb.Expire(ctx, key, window).Err(); err != nil {
			return count, window, err
		}
		return count, window, nil
	}
	ttl, err := s.rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		// Counter key somehow lost its expiry; reinstate the window so
		// the count cannot live forever.
		_ = s.rdb.Expire(ctx, key, window).Err()
		ttl = window
	}
	return count, ttl, nil
}

type windowEntry struct {
	count int64
	reset time.Time
}

// MemoryCounter implements CounterStore in process.  It is the fallback
// when Redis is unavailable and the store used in tests.  Counts are then
// per instance rather than global, which only makes the limits more
// permissive behind a load balancer, never stricter.
type MemoryCounter struct {
	mu sync.Mutex
	m  map[string]windowEntry
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{m: make(map[string]windowEntry)}
}

func (s *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[key]
	if !ok || now.After(e.reset) {
		e = windowEntry{count: 0, reset: now.Add(window)}
	}
	e.count++
	s.m[key] = e
	// Occasional sweep keeps the map from accumulating dead windows.
	if len(s.m) > 4096 {
		for k, v := range s.m {
			if now.After(v.reset) {
				delete(s.m, k)
			}
		}
	}
	return e.count, time.Until(e.reset), nil
}
