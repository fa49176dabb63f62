package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// cleanupThreshold is the map size above which idle entries are pruned.
	cleanupThreshold = 500
	maxIdleAge       = 10 * time.Minute
)

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter hands out one token bucket per client address.
type IPRateLimiter struct {
	mu  sync.Mutex
	ips map[string]*ipEntry
	r   rate.Limit
	b   int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*ipEntry),
		r:   r,
		b:   b,
	}
}

func (l *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if len(l.ips) > cleanupThreshold {
		cutoff := now.Add(-maxIdleAge)
		for k, e := range l.ips {
			if e.lastSeen.Before(cutoff) {
				delete(l.ips, k)
			}
		}
	}

	e, ok := l.ips[ip]
	if !ok {
		e = &ipEntry{limiter: rate.NewLimiter(l.r, l.b)}
		l.ips[ip] = e
	}
	e.lastSeen = now
	return e.limiter
}

// RateLimit rejects requests with 429 once a client address runs out of tokens.
func RateLimit(limiter *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !limiter.GetLimiter(ip).Allow() {
				zerolog.Ctx(r.Context()).Warn().Str("ip", ip).Msg("rate limit exceeded")
				w.Header().Set("Retry-After", "1")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
