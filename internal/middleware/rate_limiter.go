package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter limits requests per client IP
type RateLimiter struct {
	ipLimiters    map[string]*rate.Limiter
	ipMutex       sync.RWMutex
	ipLimiterRate rate.Limit
	ipBurst       int
	cleanupTicker *time.Ticker
	done          chan struct{}
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(ipRequestsPerSecond float64, ipBurst int) *RateLimiter {
	limiter := &RateLimiter{
		ipLimiters:    make(map[string]*rate.Limiter),
		ipLimiterRate: rate.Limit(ipRequestsPerSecond),
		ipBurst:       ipBurst,
		cleanupTicker: time.NewTicker(5 * time.Minute),
		done:          make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

// cleanup periodically drops all limiters so idle IPs do not accumulate
func (rl *RateLimiter) cleanup() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.ipMutex.Lock()
			rl.ipLimiters = make(map[string]*rate.Limiter)
			rl.ipMutex.Unlock()
		case <-rl.done:
			return
		}
	}
}

// Stop stops the rate limiter cleanup
func (rl *RateLimiter) Stop() {
	rl.cleanupTicker.Stop()
	close(rl.done)
}

// getIPLimiter returns the rate limiter for an IP
func (rl *RateLimiter) getIPLimiter(ip string) *rate.Limiter {
	rl.ipMutex.RLock()
	limiter, exists := rl.ipLimiters[ip]
	rl.ipMutex.RUnlock()
	if exists {
		return limiter
	}

	rl.ipMutex.Lock()
	defer rl.ipMutex.Unlock()
	if limiter, exists = rl.ipLimiters[ip]; !exists {
		limiter = rate.NewLimiter(rl.ipLimiterRate, rl.ipBurst)
		rl.ipLimiters[ip] = limiter
	}
	return limiter
}

// IPRateLimiterMiddleware limits requests based on IP address
func (rl *RateLimiter) IPRateLimiterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getIPLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
