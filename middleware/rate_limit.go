package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/MrN7King/BookstorePhase1-sub001/utils"
)

const limiterIdleTTL = 5 * time.Minute

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// limiterStore keeps one token bucket per client IP. Buckets idle for
// limiterIdleTTL are dropped by a sweep that runs at most once per TTL.
type limiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*rateLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

func (s *limiterStore) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= limiterIdleTTL {
		for k, l := range s.limiters {
			if now.After(l.expires) {
				delete(s.limiters, k)
			}
		}
		s.lastSweep = now
	}
	if l, ok := s.limiters[key]; ok {
		l.expires = now.Add(limiterIdleTTL)
		return l.limiter
	}
	l := &rateLimiter{limiter: rate.NewLimiter(s.limit, s.burst), expires: now.Add(limiterIdleTTL)}
	s.limiters[key] = l
	return l.limiter
}

// RateLimitMiddleware applies a per-IP token bucket of perMinute requests with a
// burst of half that.
func RateLimitMiddleware(perMinute int) gin.HandlerFunc {
	perMinute = max(perMinute, 1)
	store := &limiterStore{
		limiters: map[string]*rateLimiter{},
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    max(perMinute/2, 1),
	}

	return func(ctx *gin.Context) {
		if !store.get(ctx.ClientIP(), time.Now()).Allow() {
			utils.Error(ctx, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}
		ctx.Next()
	}
}
