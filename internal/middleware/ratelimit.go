package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/HammerMeetNail/fridgemate/internal/handlers"
	"github.com/HammerMeetNail/fridgemate/internal/logging"
)

// maxLocalLimiters bounds the fallback limiter map; it is reset when exceeded.
const maxLocalLimiters = 10000

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// RateLimiter counts requests per key in fixed Redis windows. When Redis is
// unavailable it falls back to an in-process token bucket per key.
type RateLimiter struct {
	redis   *redis.Client
	limit   int
	window  time.Duration
	prefix  string
	keyFunc KeyFunc
	logger  *logging.Logger

	mu       sync.Mutex
	local    map[string]*rate.Limiter
	degraded bool
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration, prefix string, keyFunc KeyFunc) *RateLimiter {
	if keyFunc == nil {
		keyFunc = KeyByAccount
	}
	return &RateLimiter{
		redis:   redisClient,
		limit:   limit,
		window:  window,
		prefix:  prefix,
		keyFunc: keyFunc,
		logger:  logging.Default,
		local:   make(map[string]*rate.Limiter),
	}
}

// NewRedeemRateLimiter limits friend code redemption attempts per account.
func NewRedeemRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	return NewRateLimiter(redisClient, limit, window, "ratelimit:redeem", KeyByAccount)
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("%s:%s", rl.prefix, rl.keyFunc(r))

		allowed, remaining, resetTime, err := rl.isAllowed(r.Context(), key)
		rl.setDegraded(err)
		if err != nil {
			if !rl.localLimiter(key).Allow() {
				writeRateLimited(w, rl.window)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime))

		if !allowed {
			writeRateLimited(w, time.Until(time.Unix(resetTime, 0)))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// setDegraded logs only when the limiter switches between Redis and the local buckets.
func (rl *RateLimiter) setDegraded(err error) {
	rl.mu.Lock()
	changed := rl.degraded != (err != nil)
	rl.degraded = err != nil
	rl.mu.Unlock()

	if !changed {
		return
	}
	if err != nil {
		rl.logger.Warn("Rate limiter falling back to local bucket", map[string]interface{}{
			"error":  err.Error(),
			"prefix": rl.prefix,
		})
		return
	}
	rl.logger.Info("Rate limiter using Redis again", map[string]interface{}{
		"prefix": rl.prefix,
	})
}

func (rl *RateLimiter) isAllowed(ctx context.Context, key string) (allowed bool, remaining int, resetTime int64, err error) {
	if rl.redis == nil {
		return false, 0, 0, fmt.Errorf("redis not configured")
	}

	windowEnd := time.Now().Truncate(rl.window).Add(rl.window)

	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, 0, err
	}

	count := int(incrCmd.Val())
	remaining = rl.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= rl.limit, remaining, windowEnd.Unix(), nil
}

func (rl *RateLimiter) localLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.local[key]
	if !ok {
		if len(rl.local) >= maxLocalLimiters {
			rl.local = make(map[string]*rate.Limiter)
		}
		every := rl.window
		if rl.limit > 0 {
			every = rl.window / time.Duration(rl.limit)
		}
		limiter = rate.NewLimiter(rate.Every(every), rl.limit)
		rl.local[key] = limiter
	}
	return limiter
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := int(retryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"Rate limit exceeded. Please try again later."}`))
}

// KeyByAccount keys on the authenticated account, or the client IP otherwise.
func KeyByAccount(r *http.Request) string {
	if accountID, ok := handlers.GetAccountIDFromContext(r.Context()); ok {
		return "account:" + accountID.String()
	}
	return "ip:" + GetClientIP(r)
}

func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if host, _, err := net.SplitHostPort(first); err == nil {
			return host
		}
		return first
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
