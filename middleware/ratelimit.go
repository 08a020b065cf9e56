package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// LimiterSet hands out one token bucket per key (client IP, participant id)
// and forgets keys that have been quiet for idleTTL.
type LimiterSet struct {
	r       rate.Limit
	b       int
	idleTTL time.Duration

	mu       sync.Mutex
	limiters map[string]*keyedLimiter
	lastGC   time.Time
}

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiterSet creates a LimiterSet. r = events per second, b = burst size.
func NewLimiterSet(r rate.Limit, b int) *LimiterSet {
	return &LimiterSet{
		r:        r,
		b:        b,
		idleTTL:  10 * time.Minute,
		limiters: make(map[string]*keyedLimiter),
		lastGC:   time.Now(),
	}
}

// Allow reports whether key may perform one more event now.
func (s *LimiterSet) Allow(key string) bool {
	now := time.Now()
	s.mu.Lock()
	if now.Sub(s.lastGC) > s.idleTTL/2 {
		for k, l := range s.limiters {
			if now.Sub(l.lastSeen) > s.idleTTL {
				delete(s.limiters, k)
			}
		}
		s.lastGC = now
	}
	l, ok := s.limiters[key]
	if !ok {
		l = &keyedLimiter{limiter: rate.NewLimiter(s.r, s.b)}
		s.limiters[key] = l
	}
	l.lastSeen = now
	s.mu.Unlock()
	return l.limiter.AllowN(now, 1)
}

// Forget drops key's bucket, e.g. when a connection closes.
func (s *LimiterSet) Forget(key string) {
	s.mu.Lock()
	delete(s.limiters, key)
	s.mu.Unlock()
}

// Len returns the number of tracked keys.
func (s *LimiterSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// RateLimit provides per-IP token-bucket rate limiting.
// r = requests per second, b = burst size.
func RateLimit(r rate.Limit, b int) gin.HandlerFunc {
	set := NewLimiterSet(r, b)
	return func(c *gin.Context) {
		if !set.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
