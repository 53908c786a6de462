package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"storyhub/pkg/apperror"
)

const limiterIdleTTL = 10 * time.Minute

type limiterInfo struct {
	limiter      *rate.Limiter
	lastAccessed time.Time
}

// ipRateLimiter hands out one token bucket per client ip. Idle buckets are
// swept on access instead of by a background goroutine.
type ipRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterInfo
	every     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newIPRateLimiter(requestsPerMinute, burst int) *ipRateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &ipRateLimiter{
		limiters: make(map[string]*limiterInfo),
		every:    rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    burst,
		now:      time.Now,
	}
}

func (i *ipRateLimiter) allow(ip string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	if now.Sub(i.lastSweep) > limiterIdleTTL/2 {
		for k, info := range i.limiters {
			if now.Sub(info.lastAccessed) > limiterIdleTTL {
				delete(i.limiters, k)
			}
		}
		i.lastSweep = now
	}

	info, ok := i.limiters[ip]
	if !ok {
		info = &limiterInfo{limiter: rate.NewLimiter(i.every, i.burst)}
		i.limiters[ip] = info
	}
	info.lastAccessed = now
	return info.limiter.AllowN(now, 1)
}

func (i *ipRateLimiter) size() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.limiters)
}

// RateLimit answers 429 once a client ip exceeds requestsPerMinute after its burst.
func RateLimit(requestsPerMinute, burst int) gin.HandlerFunc {
	return rateLimit(newIPRateLimiter(requestsPerMinute, burst))
}

func rateLimit(l *ipRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apperror.ErrorResponse{Error: "too many requests, try again later"})
			return
		}
		c.Next()
	}
}
