package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// TokenBucket is an in-memory per-client rate limiter. Scan kiosks sit behind
// few addresses, so the limit is generous and only stops runaway readers.
type TokenBucket struct {
	capacity float64
	perSec   float64
	mu       sync.Mutex
	state    map[string]*bucket
	now      func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTokenBucket creates a limiter holding capacity tokens, refilled at
// perMinute tokens per minute.
func NewTokenBucket(capacity, perMinute int) *TokenBucket {
	if perMinute <= 0 {
		perMinute = 120
	}
	if capacity <= 0 {
		capacity = perMinute
	}
	return &TokenBucket{
		capacity: float64(capacity),
		perSec:   float64(perMinute) / 60,
		state:    make(map[string]*bucket),
		now:      time.Now,
	}
}

// GinMiddleware returns gin handler enforcing per-IP limits.
func (l *TokenBucket) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.Allow(ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}

// Allow takes a token for key if one is available.
func (l *TokenBucket) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	b, ok := l.state[key]
	if !ok {
		l.state[key] = &bucket{tokens: l.capacity - 1, last: now}
		return true
	}
	b.tokens += now.Sub(b.last).Seconds() * l.perSec
	if b.tokens > l.capacity {
		b.tokens = l.capacity
	}
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
