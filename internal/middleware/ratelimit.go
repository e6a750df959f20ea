package middleware

import (
	"sync"
	"time"

	"daloamarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key (user ID, falling back to IP).
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	message  string
	now      func() time.Time
}

// NewRateLimiter creates a limiter allowing perSecond events with the given burst per key.
func NewRateLimiter(perSecond float64, burst int, message string) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		message:  message,
		now:      time.Now,
	}
}

// Allow consumes one token for key.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	now := rl.now()
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Handler rejects with 429 once the caller's bucket is empty.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.IP()
		if u, ok := CurrentUser(c); ok {
			key = u.UserID
		}
		if !rl.Allow(key) {
			log.Warn().Str("key", key).Str("path", c.Path()).Msg("rate limit exceeded")
			return response.Error(c, rl.message, fiber.StatusTooManyRequests, nil)
		}
		return c.Next()
	}
}

// Cleanup removes limiters idle for longer than maxIdle and returns how many were dropped.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	removed := 0
	for key, e := range rl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked keys.
func (rl *RateLimiter) Size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
