package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/SahilBhatkande/portfolio/pkg/response"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// Atomic increment with TTL on first hit.
// KEYS[1] = counter key, ARGV[1] = TTL in seconds. Returns {count, ttl}.
const rateLimitLuaScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
return {count, ttl}
`

var rateLimitScript = goredis.NewScript(rateLimitLuaScript)

type RateLimitConfig struct {
	Limit     int
	Window    time.Duration
	KeyPrefix string
	KeyFunc   func(*gin.Context) string
}

type rateLimitEntry struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts requests per key in Redis when a client is given, and
// in process memory otherwise or when Redis errors.
type RateLimiter struct {
	cfg   RateLimitConfig
	redis *goredis.Client
	log   *slog.Logger

	mu      sync.Mutex
	entries map[string]*rateLimitEntry
}

func NewRateLimiter(cfg RateLimitConfig, client *goredis.Client, log *slog.Logger) *RateLimiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl:ip:"
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	return &RateLimiter{
		cfg:     cfg,
		redis:   client,
		log:     log,
		entries: make(map[string]*rateLimitEntry),
	}
}

// Allow records a hit for key and reports whether it is within the limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time) {
	fullKey := rl.cfg.KeyPrefix + key
	now := time.Now()

	var count int
	var resetAt time.Time
	if rl.redis != nil {
		var err error
		count, resetAt, err = rl.checkRedis(ctx, fullKey)
		if err != nil {
			rl.log.Warn("rate limit redis unavailable, using memory", "error", err)
			count, resetAt = rl.checkMemory(fullKey, now)
		}
	} else {
		count, resetAt = rl.checkMemory(fullKey, now)
	}

	remaining := rl.cfg.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= rl.cfg.Limit, remaining, resetAt
}

func (rl *RateLimiter) checkRedis(ctx context.Context, key string) (int, time.Time, error) {
	ttlSeconds := int(rl.cfg.Window.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	result, err := rateLimitScript.Run(ctx, rl.redis, []string{key}, ttlSeconds).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis rate limit eval failed: %w", err)
	}

	arr, ok := result.([]interface{})
	if !ok || len(arr) < 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected redis result format")
	}
	count, _ := arr[0].(int64)
	ttl, _ := arr[1].(int64)

	return int(count), time.Now().Add(time.Duration(ttl) * time.Second), nil
}

func (rl *RateLimiter) checkMemory(key string, now time.Time) (int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.entries[key]
	if !ok || now.After(entry.resetAt) {
		entry = &rateLimitEntry{resetAt: now.Add(rl.cfg.Window)}
		rl.entries[key] = entry
	}
	entry.count++
	return entry.count, entry.resetAt
}

// Cleanup drops expired in-memory entries.
func (rl *RateLimiter) Cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, entry := range rl.entries {
		if now.After(entry.resetAt) {
			delete(rl.entries, key)
		}
	}
}

// Middleware rejects requests over the limit with 429 and rate-limit headers.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, resetAt := rl.Allow(c.Request.Context(), rl.cfg.KeyFunc(c))

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", resetAt.Format(time.RFC3339))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			rl.log.Info("rate limit triggered", "path", c.FullPath(), "request_id", c.GetString("RequestID"))
			response.Error(c, http.StatusTooManyRequests, "Too many messages. Please try again later.", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// NewRedisClient parses a redis:// or rediss:// URL and pings it.
func NewRedisClient(ctx context.Context, rawURL, password string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := goredis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: connection failed: %w", err)
	}
	return client, nil
}
