package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiter is a concurrency-safe, TTL-bounded per-client request
// limiter. Client entries untouched for longer than the TTL are evicted,
// so the map cannot grow without bound.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	logger    *zap.Logger
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing perMinute requests per client
// with the given burst. A perMinute of zero or below returns nil, which
// Wrap treats as "no limiting".
func NewRateLimiter(perMinute, burst int, ttl time.Duration, logger *zap.Logger) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RateLimiter{
		clients:   make(map[string]*clientLimiter),
		limit:     rate.Limit(float64(perMinute) / 60.0),
		burst:     burst,
		ttl:       ttl,
		lastSweep: time.Now(),
		logger:    logger,
	}
}

// Wrap limits the handler per client address, responding 429 when a client
// exceeds its budget. A nil receiver passes the handler through unchanged.
func (l *RateLimiter) Wrap(next http.HandlerFunc) http.HandlerFunc {
	if l == nil {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientAddr(r)) {
			l.logger.Warn("Rate limit exceeded",
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("path", r.URL.Path))
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func (l *RateLimiter) allow(addr string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.ttl {
		for key, c := range l.clients {
			if now.Sub(c.lastSeen) > l.ttl {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[addr]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[addr] = c
	}
	c.lastSeen = now

	return c.limiter.Allow()
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
