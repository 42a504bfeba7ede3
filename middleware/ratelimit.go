package middleware

import (
	"strconv"
	"sync"
	"time"

	"docbot-rag/internal/logger"
	"docbot-rag/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitConfig is the per-client budget: Requests per Window.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

func skipRateLimit(c *gin.Context) bool {
	p := c.FullPath()
	return p == "/health" || p == "/" || p == "/rag-status"
}

func tooManyRequests(c *gin.Context, cfg RateLimitConfig) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
	c.Header("X-RateLimit-Remaining", "0")
	c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(cfg.Window).Unix(), 10))
	utils.RespondWithTooManyRequests(c,
		"Too many requests. Please try again later.",
		gin.H{
			"retry_after": int(cfg.Window.Seconds()),
			"limit":       cfg.Requests,
		})
	c.Abort()
}

// RateLimitMiddleware implements fixed-window rate limiting in Redis, keyed
// by client IP and route. It fails open when Redis is unavailable.
func RateLimitMiddleware(rdb *redis.Client, cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipRateLimit(c) {
			c.Next()
			return
		}

		key := "ratelimit:" + c.ClientIP() + ":" + c.FullPath()
		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, cfg.Window)
		}

		if count > int64(cfg.Requests) {
			tooManyRequests(c, cfg)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(cfg.Requests-int(count)))
		c.Next()
	}
}

// limiterIdleTTL is how long an address may stay silent before its bucket is
// dropped. A dropped bucket is recreated full, which is what it would have
// refilled to anyway once the window has passed.
const limiterIdleTTL = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters holds one token bucket per client address and sweeps idle ones.
type ipLimiters struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	every     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newIPLimiters(cfg RateLimitConfig) *ipLimiters {
	idle := max(limiterIdleTTL, cfg.Window)
	return &ipLimiters{
		limiters: make(map[string]*ipLimiter),
		every:    rate.Every(cfg.Window / time.Duration(max(cfg.Requests, 1))),
		burst:    max(cfg.Requests, 1),
		idleTTL:  idle,
		now:      time.Now,
	}
}

func (l *ipLimiters) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}
	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.every, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *ipLimiters) sweep(now time.Time) {
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.idleTTL {
			delete(l.limiters, ip)
		}
	}
	l.lastSweep = now
}

func (l *ipLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// LocalRateLimitMiddleware is the in-process variant used without Redis: a
// token bucket per client IP, dropped after limiterIdleTTL of silence.
func LocalRateLimitMiddleware(cfg RateLimitConfig) gin.HandlerFunc {
	limiters := newIPLimiters(cfg)

	return func(c *gin.Context) {
		if skipRateLimit(c) {
			c.Next()
			return
		}
		if !limiters.allow(c.ClientIP()) {
			tooManyRequests(c, cfg)
			return
		}
		c.Next()
	}
}
