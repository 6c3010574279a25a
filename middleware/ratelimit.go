package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a token bucket per caller: the authenticated user when known,
// otherwise the client IP.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	r        rate.Limit
	b        int
	ttl      time.Duration
}

// NewLimiter creates a Limiter allowing r requests per second with burst b.
func NewLimiter(r rate.Limit, b int) *Limiter {
	return &Limiter{visitors: make(map[string]*visitor), r: r, b: b, ttl: 10 * time.Minute}
}

func (l *Limiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.r, l.b)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Sweep drops callers idle for longer than the limiter's TTL.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, k)
			removed++
		}
	}
	return removed
}

// Handler returns the Gin middleware.
func (l *Limiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if uid := GetUserID(c); uid != 0 {
			key = "user:" + strconv.FormatInt(uid, 10)
		}
		if !l.get(key, time.Now()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// RateLimit provides per-caller token-bucket rate limiting with a
// background sweep of idle callers every 5 minutes.
// r = requests per second, b = burst size.
func RateLimit(r rate.Limit, b int) gin.HandlerFunc {
	l := NewLimiter(r, b)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for now := range ticker.C {
			l.Sweep(now)
		}
	}()
	return l.Handler()
}
