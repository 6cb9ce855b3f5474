package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for the rate limiter middleware.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate (tokens added per second).
	RequestsPerSecond float64
	// Burst is the maximum number of requests allowed in a burst.
	Burst int
	// IdleTTL is how long an unused bucket is kept. Default: 10 minutes.
	IdleTTL time.Duration
}

// KeyFunc picks the bucket a request is charged against.
type KeyFunc func(r *http.Request) string

// ClientIPKey charges requests to the caller's address. It is the only safe
// key before the caller has authenticated.
func ClientIPKey(r *http.Request) string {
	ip := ClientIPFromContext(r.Context())
	if ip == "" {
		ip = ExtractClientIP(r)
	}
	return "ip:" + ip
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a token bucket per key. Requests over the limit get a
// 429 with a Retry-After header. Stale buckets are swept until ctx is done.
func RateLimiter(ctx context.Context, cfg RateLimitConfig, key KeyFunc) func(http.Handler) http.Handler {
	if cfg.IdleTTL == 0 {
		cfg.IdleTTL = 10 * time.Minute
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*clientLimiter)
	)

	go func() {
		ticker := time.NewTicker(cfg.IdleTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mu.Lock()
				for k, cl := range clients {
					if time.Since(cl.lastSeen) > cfg.IdleTTL {
						delete(clients, k)
					}
				}
				mu.Unlock()
			}
		}
	}()

	getLimiter := func(k string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		cl, ok := clients[k]
		if !ok {
			cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
			clients[k] = cl
		}
		cl.lastSeen = time.Now()
		return cl.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := getLimiter(key(r))

			reservation := limiter.Reserve()
			if !reservation.OK() {
				writeTooManyRequests(w, 0)
				return
			}

			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				writeTooManyRequests(w, int(delay.Seconds())+1)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))

			next.ServeHTTP(w, r)
		})
	}
}

func writeTooManyRequests(w http.ResponseWriter, retryAfterSecs int) {
	if retryAfterSecs > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": "rate limit exceeded"})
}
