// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var throttledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ordwiz_http_throttled_total",
	Help: "Total number of requests rejected by a keyed token bucket",
}, []string{"scope"})

// ThrottleConfig configures a per-key token bucket. PerSecond 0 disables it.
type ThrottleConfig struct {
	PerSecond float64
	Burst     int
	// IdleTTL drops buckets not touched for this long. Defaults to 10m.
	IdleTTL time.Duration
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter hands out one token bucket per key.
type KeyedLimiter struct {
	cfg ThrottleConfig
	now func() time.Time

	mu          sync.Mutex
	buckets     map[string]*bucket
	lastCleanup time.Time
}

// NewKeyedLimiter returns a limiter for cfg.
func NewKeyedLimiter(cfg ThrottleConfig) *KeyedLimiter {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	return &KeyedLimiter{
		cfg:         cfg,
		now:         time.Now,
		buckets:     make(map[string]*bucket),
		lastCleanup: time.Now(),
	}
}

// Allow takes one token from key's bucket.
func (l *KeyedLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(l.cfg.PerSecond), l.cfg.Burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	if now.Sub(l.lastCleanup) >= l.cfg.IdleTTL {
		for k, v := range l.buckets {
			if now.Sub(v.lastSeen) >= l.cfg.IdleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastCleanup = now
	}

	return b.lim.AllowN(now, 1)
}

// Len reports the number of live buckets.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Throttle rejects requests whose key has no token left. Requests with an
// empty key pass through.
func Throttle(scope string, cfg ThrottleConfig, key func(*http.Request) string) func(http.Handler) http.Handler {
	if cfg.PerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	lim := NewKeyedLimiter(cfg)
	retryAfter := "1"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k != "" && !lim.Allow(k) {
				throttledTotal.WithLabelValues(scope).Inc()
				w.Header().Set("Retry-After", retryAfter)
				writeEnvelope(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many events for this session, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
