package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc selects the bucket identity of a request.
type KeyFunc func(*gin.Context) string

// KeyByClientIP keys buckets by the address resolved by ClientIP, so clients
// behind a trusted proxy get their own bucket.
func KeyByClientIP() KeyFunc {
	return func(c *gin.Context) string {
		return "ip:" + ClientIPFrom(c)
	}
}

// exhaustedRetry is advertised when a zero-rate bucket has spent its burst.
const exhaustedRetry = time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a process-local per-key token bucket limiter built on
// golang.org/x/time/rate. Buckets idle for longer than the idle TTL are
// swept at most once per TTL. It is safe for concurrent use.
type RateLimiter struct {
	limit rate.Limit
	burst int
	keyFn KeyFunc
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter builds a limiter refilling rps tokens per second with the
// given burst (coerced to at least 1). A nil keyFn keys by client IP.
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByClientIP()
	}
	return &RateLimiter{
		limit:     rate.Limit(rps),
		burst:     burst,
		keyFn:     keyFn,
		idle:      10 * time.Minute,
		now:       time.Now,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

// take spends one token from key's bucket. When the bucket is empty it
// reports how long until a token is available.
func (rl *RateLimiter) take(key string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	if now.Sub(rl.lastSweep) >= rl.idle {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idle {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	lim := b.limiter
	rl.mu.Unlock()

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, exhaustedRetry
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Handler enforces the limit. Refusals get 429, the standard error envelope
// and a Retry-After rounded up to whole seconds.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, wait := rl.take(rl.keyFn(c))
		if allowed {
			c.Next()
			return
		}
		rateLimited.Inc()
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}

func retryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
