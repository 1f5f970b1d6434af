package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/livraison/courier-tracking/internal/metrics"
)

const (
	defaultIdleTTL      = 15 * time.Minute
	defaultCleanupEvery = 2 * time.Minute
)

// LimiterStore keeps one token bucket per client key and forgets keys that
// have been idle for longer than the idle TTL.
type LimiterStore struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewLimiterStore(rps float64, burst int) *LimiterStore {
	return &LimiterStore{
		entries: make(map[string]*limiterEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: defaultIdleTTL,
		now:     time.Now,
	}
}

// Get returns the limiter for key, creating it on first use.
func (s *LimiterStore) Get(key string) *rate.Limiter {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &limiterEntry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup drops limiters not used within the idle TTL.
func (s *LimiterStore) Cleanup() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// Len returns the number of tracked keys.
func (s *LimiterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor runs Cleanup periodically until ctx is cancelled.
func (s *LimiterStore) StartJanitor(ctx context.Context) {
	t := time.NewTicker(defaultCleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// RateLimit rejects requests with 429 once the client IP has used up its
// bucket. A nil store disables limiting.
func RateLimit(store *LimiterStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if store == nil {
			return next
		}
		return func(c echo.Context) error {
			lim := store.Get(c.RealIP())
			if !lim.Allow() {
				metrics.RateLimitedTotal.Inc()
				retry := time.Duration(float64(time.Second) / float64(store.rps))
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
