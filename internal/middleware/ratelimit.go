package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/semester-scheduler/pkg/errors"
	"github.com/noah-isme/semester-scheduler/pkg/response"
)

const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles clients with a token bucket each, keyed by user id
// when authenticated and by client IP otherwise.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewRateLimiter allows perMinute requests per client with bursts of up to burst requests.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether the client may proceed right now.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.prune(now)

	entry, ok := r.clients[key]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.clients[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (r *RateLimiter) prune(now time.Time) {
	for key, entry := range r.clients {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(r.clients, key)
		}
	}
}

// Middleware rejects requests over the limit with 429. A nil limiter lets everything through.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r == nil {
			c.Next()
			return
		}

		key := "ip:" + c.ClientIP()
		if claims := Claims(c); claims != nil && claims.UserID != "" {
			key = "user:" + claims.UserID
		}

		if !r.Allow(key) {
			c.Header("Retry-After", "60")
			response.Error(c, appErrors.Clone(appErrors.ErrTooManyRequests, "too many generation requests, retry later"))
			c.Abort()
			return
		}

		c.Next()
	}
}
