package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/use-agent/shelfscout/config"
	"github.com/use-agent/shelfscout/models"
)

// Limiters holds one token bucket per caller identity.
type Limiters struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiters returns per-identity limiters for cfg.
func NewLimiters(cfg config.RateLimitConfig) *Limiters {
	return &Limiters{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		now:     time.Now,
	}
}

// Allow takes a token from identity's bucket.
func (l *Limiters) Allow(identity string) bool {
	l.mu.Lock()
	b, ok := l.buckets[identity]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[identity] = b
	}
	b.lastSeen = l.now()
	l.mu.Unlock()
	return b.limiter.Allow()
}

// Evict drops buckets idle since before cutoff.
func (l *Limiters) Evict(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, id)
		}
	}
}

// RunEviction evicts buckets idle for an hour, every five minutes, until
// ctx ends.
func (l *Limiters) RunEviction(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Evict(l.now().Add(-time.Hour))
		}
	}
}

// RateLimit rejects callers that exceed their bucket. The identity is the
// API key set by Auth, or the client IP when auth is off.
func RateLimit(l *Limiters) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := c.GetString(ContextKeyAPIKey)
		if identity == "" {
			identity = c.ClientIP()
		}
		if !l.Allow(identity) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error: &models.ErrorDetail{Code: models.ErrCodeRateLimited, Message: "rate limit exceeded, please slow down"},
			})
			return
		}
		c.Next()
	}
}
