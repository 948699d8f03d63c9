package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"sweet_shop/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// tokenBucketScript refills one token per interval and takes one if available.
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local interval_ms = tonumber(ARGV[3])
	local ttl_seconds = tonumber(ARGV[4])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 then
		local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + intervals)
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// RateLimiter throttles requests per client IP. It uses Redis when a client is
// given and falls back to in-process limiters otherwise.
type RateLimiter struct {
	cfg    config.RateLimitConfig
	rdb    *redis.Client
	logger zerolog.Logger

	mu        sync.Mutex
	local     map[string]*localBucket
	lastSweep time.Time
	now       func() time.Time
	ttl       time.Duration
	ttlSec    int64
}

// localBucket is dropped once idle for ttl, like the EXPIRE on the Redis key.
type localBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a RateLimiter. rdb may be nil.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, logger zerolog.Logger) *RateLimiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.Every <= 0 {
		cfg.Every = time.Second
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	ttl := 10 * time.Minute
	if floor := 5 * cfg.Every; ttl < floor {
		ttl = floor
	}
	return &RateLimiter{
		cfg:    cfg,
		rdb:    rdb,
		logger: logger,
		local:  make(map[string]*localBucket),
		now:    time.Now,
		ttl:    ttl,
		ttlSec: int64(ttl / time.Second),
	}
}

// Middleware returns the gin handler. A disabled limiter passes everything through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.cfg.Enabled {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:ip:%s:route:%s", rl.cfg.Prefix, c.ClientIP(), c.FullPath())
		allowed, remaining, retryAfter := rl.take(c, key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": secs,
			})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) take(c *gin.Context, key string) (bool, int, time.Duration) {
	if rl.rdb != nil {
		allowed, remaining, retry, err := rl.takeRedis(c, key)
		if err == nil {
			return allowed, remaining, retry
		}
		rl.logger.Warn().Err(err).Str("key", key).Msg("redis rate limit failed, using local limiter")
	}
	return rl.takeLocal(key)
}

func (rl *RateLimiter) takeRedis(c *gin.Context, key string) (bool, int, time.Duration, error) {
	args := []any{
		rl.now().UnixMilli(),
		rl.cfg.Burst,
		rl.cfg.Every.Milliseconds(),
		rl.ttlSec,
	}
	vals, err := tokenBucketScript.Run(c.Request.Context(), rl.rdb, []string{key}, args...).Int64Slice()
	if err != nil {
		return false, 0, 0, err
	}
	if len(vals) != 3 {
		return false, 0, 0, fmt.Errorf("unexpected rate limit script result: %v", vals)
	}
	return vals[0] == 1, int(vals[1]), time.Duration(vals[2]) * time.Millisecond, nil
}

func (rl *RateLimiter) takeLocal(key string) (bool, int, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	rl.sweepLocked(now)
	b, ok := rl.local[key]
	if !ok {
		b = &localBucket{lim: rate.NewLimiter(rate.Every(rl.cfg.Every), rl.cfg.Burst)}
		rl.local[key] = b
	}
	b.lastSeen = now
	lim := b.lim
	rl.mu.Unlock()

	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, 0, delay
	}
	return true, int(lim.TokensAt(now)), 0
}

// sweepLocked drops buckets idle longer than ttl. Runs at most once per ttl.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.ttl {
		return
	}
	rl.lastSweep = now
	for key, b := range rl.local {
		if now.Sub(b.lastSeen) >= rl.ttl {
			delete(rl.local, key)
		}
	}
}
