package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors keeps one token bucket per client address.
type visitors struct {
	mu    sync.Mutex
	rps   rate.Limit
	burst int
	items map[string]*visitor
}

func (v *visitors) get(key string, now time.Time) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()
	item, ok := v.items[key]
	if !ok {
		item = &visitor{limiter: rate.NewLimiter(v.rps, v.burst)}
		v.items[key] = item
	}
	item.lastSeen = now
	return item.limiter
}

func (v *visitors) sweep(idle time.Duration, now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for key, item := range v.items {
		if now.Sub(item.lastSeen) > idle {
			delete(v.items, key)
		}
	}
}

// RateLimit applies a per-IP token bucket.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 20
	}
	limits := &visitors{rps: rate.Limit(rps), burst: burst, items: make(map[string]*visitor)}
	retryAfter := strconv.Itoa(int(math.Max(1, math.Ceil(1/rps))))

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for now := range ticker.C {
			limits.sweep(3*time.Minute, now)
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limits.get(clientIP(r.RemoteAddr), time.Now()).Allow() {
				w.Header().Set("Retry-After", retryAfter)
				WriteError(w, r, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil || host == "" {
		return remoteAddr
	}
	return host
}
