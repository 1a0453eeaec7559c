package middleware

import (
	"net/http"
	"sync"
	"time"

	"safedrive/pkg/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a client may stay silent before its limiter is dropped.
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterStore stores per-key (for example, per IP) rate limiters.
type rateLimiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rate      rate.Limit
	burstSize int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiterStore(r rate.Limit, burst int) *rateLimiterStore {
	return &rateLimiterStore{
		limiters:  make(map[string]*limiterEntry),
		rate:      r,
		burstSize: burst,
		idleTTL:   limiterIdleTTL,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (s *rateLimiterStore) getLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.idleTTL {
		s.sweep(now)
	}

	entry, exists := s.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(s.rate, s.burstSize)}
		s.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// sweep drops limiters idle for longer than idleTTL. Caller holds mu.
func (s *rateLimiterStore) sweep(now time.Time) {
	for key, entry := range s.limiters {
		if now.Sub(entry.lastSeen) >= s.idleTTL {
			delete(s.limiters, key)
		}
	}
	s.lastSweep = now
}

func retryAfterSeconds(l *rate.Limiter) int {
	r := l.Limit()
	if r <= 0 {
		return 1
	}
	secs := int(time.Duration(float64(time.Second) / float64(r)).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

// NewHTTPRateLimitMiddleware returns Gin middleware that applies simple IP-based rate limiting.
// Clients are keyed by gin's ClientIP, so forwarded headers count only when the
// engine's trusted proxies include the peer.
func NewHTTPRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimiting.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	rps := cfg.RateLimiting.HTTP.RequestsPerSecond
	burst := cfg.RateLimiting.HTTP.Burst

	return newHTTPRateLimitHandler(cfg, newRateLimiterStore(rate.Limit(rps), burst))
}

func newHTTPRateLimitHandler(cfg *config.Config, store *rateLimiterStore) gin.HandlerFunc {
	var globalSem chan struct{}
	if cfg.RateLimiting.HTTP.MaxConcurrent > 0 {
		globalSem = make(chan struct{}, cfg.RateLimiting.HTTP.MaxConcurrent)
	}

	return func(c *gin.Context) {
		// Global concurrent requests throttling
		if globalSem != nil {
			select {
			case globalSem <- struct{}{}:
				defer func() { <-globalSem }()
			default:
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error": "too many concurrent requests",
				})
				return
			}
		}

		limiter := store.getLimiter(c.ClientIP())
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfterSeconds(limiter),
			})
			return
		}
		c.Next()
	}
}
