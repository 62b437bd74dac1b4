package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipLimiters hands out one token bucket per client IP. The token and
// public-key endpoints sit behind it, so an abusive client throttles only
// itself.
type ipLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	b        int
}

func newIPLimiters(r rate.Limit, b int) *ipLimiters {
	return &ipLimiters{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		b:        b,
	}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(l.r, l.b)
		l.limiters[ip] = limiter
	}
	return limiter
}

// RateLimiter is a middleware for IP-based rate limiting.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	limiters := newIPLimiters(r, b)
	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
