// Package middleware holds HTTP middleware for the worker's small API
// surface (webhook ingestion and dashboard streaming).
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per client key. Webhook callers get a
// generous budget; the point is protecting the queue from a runaway gateway,
// not fairness between customers.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	perSecond rate.Limit
	burst     int
}

// NewRateLimiter creates a limiter allowing perSecond sustained requests per
// key with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &RateLimiter{
		limiters:  make(map[string]*rate.Limiter),
		perSecond: rate.Limit(perSecond),
		burst:     burst,
	}
}

// Allow reports whether a request for key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	limiter, ok := rl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rl.perSecond, rl.burst)
		rl.limiters[key] = limiter
	}
	rl.mu.Unlock()
	return limiter.Allow()
}

// Middleware rejects over-limit requests with 429, keyed by client IP.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", "1")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

// PruneIdle drops limiters that have a full bucket again, bounding the map.
// Call periodically from a background goroutine.
func (rl *RateLimiter) PruneIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, limiter := range rl.limiters {
		if limiter.TokensAt(time.Now()) >= float64(rl.burst) {
			delete(rl.limiters, key)
		}
	}
}
