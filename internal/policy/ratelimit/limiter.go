// Package ratelimit implements a per-client token bucket for admitting API
// requests. It limits callers of this service, not traffic to the board.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/gallery-resolver/internal/metrics"
)

// Config holds rate limiter configuration.
type Config struct {
	RPS   float64
	Burst int
	// TrustForwarded keys clients on the first X-Forwarded-For hop. Enable it
	// only behind a proxy that overwrites the header.
	TrustForwarded bool
	// MaxClients caps the number of tracked clients.
	MaxClients int
	// IdleTTL is how long an unused client bucket is kept.
	IdleTTL time.Duration
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter manages per-client rate limits.
type Limiter struct {
	mu             sync.Mutex
	clients        map[string]*client
	rate           rate.Limit
	burst          int
	trustForwarded bool
	maxClients     int
	idleTTL        time.Duration
	nextSweep      time.Time
	now            func() time.Time
}

// New creates a new Limiter. A non-positive RPS admits everything.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	maxClients := cfg.MaxClients
	if maxClients <= 0 {
		maxClients = 10000
	}
	idleTTL := cfg.IdleTTL
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &Limiter{
		clients:        make(map[string]*client),
		rate:           r,
		burst:          burst,
		trustForwarded: cfg.TrustForwarded,
		maxClients:     maxClients,
		idleTTL:        idleTTL,
		now:            time.Now,
	}
}

// Allow reports whether a request from key may proceed now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	if now.After(l.nextSweep) {
		l.sweepLocked(now)
	}
	c, exists := l.clients[key]
	if !exists {
		if len(l.clients) >= l.maxClients {
			l.sweepLocked(now)
			if len(l.clients) >= l.maxClients {
				l.evictOldestLocked()
			}
		}
		c = &client{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	l.mu.Unlock()
	return c.limiter.AllowN(now, 1)
}

// Len reports the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// sweepLocked drops buckets idle for longer than the TTL.
func (l *Limiter) sweepLocked(now time.Time) {
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idleTTL {
			delete(l.clients, key)
		}
	}
	l.nextSweep = now.Add(l.idleTTL)
}

func (l *Limiter) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, c := range l.clients {
		if oldestKey == "" || c.lastSeen.Before(oldest) {
			oldestKey, oldest = key, c.lastSeen
		}
	}
	delete(l.clients, oldestKey)
}

// Middleware rejects requests over the client's budget with 429.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(l.clientKey(r)) {
			metrics.ObserveRateLimitRejection()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *Limiter) clientKey(r *http.Request) string {
	if l.trustForwarded {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
