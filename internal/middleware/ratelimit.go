// ratelimit.go implements per-IP fixed-window rate limiting at the transport
// layer. Counters live in Redis when configured so every instance shares
// them, otherwise in process memory.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/mealboard/internal/apperror"
	"github.com/keyxmakerx/mealboard/internal/metrics"
)

// CounterStore increments a per-key counter inside a fixed window.
// It returns the count after incrementing and the time left in the window.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimitConfig configures one named limiter.
type RateLimitConfig struct {
	// Name labels the limiter in keys, logs and metrics ("api", "login").
	Name string

	// Max is the number of requests allowed per IP per Window.
	Max int

	// Window is the fixed counting window.
	Window time.Duration

	// Store holds the counters.
	Store CounterStore

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// RateLimit returns middleware that limits requests per IP to cfg.Max
// within cfg.Window. Returns 429 with a Retry-After hint when exceeded.
// Store failures let the request through; the limiter never takes the
// API down with it.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			key := fmt.Sprintf("ratelimit:%s:%s", cfg.Name, ip)

			count, ttl, err := cfg.Store.Incr(c.Request().Context(), key, cfg.Window)
			if err != nil {
				slog.Warn("rate limit store unavailable",
					slog.String("limiter", cfg.Name),
					slog.Any("error", err),
				)
				return next(c)
			}

			if count > int64(cfg.Max) {
				cfg.Metrics.RateLimited(cfg.Name)
				return apperror.NewTooManyRequests("Rate limit exceeded. Please try again later.", ttl)
			}
			return next(c)
		}
	}
}

// --- In-memory store ---

// rateLimitEntry tracks request counts for a single key within a time window.
type rateLimitEntry struct {
	count       int64
	windowStart time.Time
}

// MemoryStore keeps counters in a map. Expired entries are swept lazily.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]*rateLimitEntry
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryStore creates an empty in-process counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*rateLimitEntry),
		now:     time.Now,
	}
}

// Incr implements CounterStore.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > time.Minute {
		for k, entry := range s.entries {
			if now.Sub(entry.windowStart) > window*2 {
				delete(s.entries, k)
			}
		}
		s.lastSweep = now
	}

	entry, exists := s.entries[key]
	if !exists || now.Sub(entry.windowStart) >= window {
		entry = &rateLimitEntry{windowStart: now}
		s.entries[key] = entry
	}
	entry.count++
	return entry.count, entry.windowStart.Add(window).Sub(now), nil
}

// --- Redis store ---

// RedisStore keeps counters in Redis with INCR + PEXPIRE.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a counter store backed by the given client.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// Incr implements CounterStore. The expiry is set when the key is created,
// and repaired if a previous caller died between INCR and PEXPIRE.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("incrementing %s: %w", key, err)
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("reading ttl for %s: %w", key, err)
	}
	if count == 1 || ttl < 0 {
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("setting expiry on %s: %w", key, err)
		}
		ttl = window
	}
	return count, ttl, nil
}
