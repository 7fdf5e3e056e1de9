package handlers

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	domain "github.com/suqline/api/internal/domain"
	"github.com/suqline/api/internal/platform/auth"
	"github.com/suqline/api/internal/platform/config"
	"github.com/suqline/api/internal/platform/httpx"
)

const rateLimitWindow = time.Minute

type rateLimiter interface {
	Allow(key string, limit int) bool
}

type fixedWindowLimiter struct {
	window time.Duration
	clock  func() time.Time
	mu     sync.Mutex
	store  map[string]rateEntry
}

type rateEntry struct {
	count int
	reset time.Time
}

func newFixedWindowLimiter(window time.Duration, clock func() time.Time) *fixedWindowLimiter {
	if window <= 0 {
		window = rateLimitWindow
	}
	if clock == nil {
		clock = time.Now
	}
	return &fixedWindowLimiter{
		window: window,
		clock:  clock,
		store:  make(map[string]rateEntry),
	}
}

func (l *fixedWindowLimiter) Allow(key string, limit int) bool {
	if l == nil || limit <= 0 {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}

	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.store[key]
	if !ok || now.After(entry.reset) {
		l.store[key] = rateEntry{count: 1, reset: now.Add(l.window)}
		l.pruneExpiredLocked(now)
		return true
	}

	if entry.count >= limit {
		return false
	}
	entry.count++
	l.store[key] = entry
	return true
}

func (l *fixedWindowLimiter) pruneExpiredLocked(now time.Time) {
	for key, entry := range l.store {
		if now.After(entry.reset) {
			delete(l.store, key)
		}
	}
}

// RateLimitMiddleware throttles requests per minute. Identified actors are
// keyed by identity and get the authenticated allowance; guests are keyed by
// client IP and get the default allowance.
func RateLimitMiddleware(cfg config.RateLimitConfig, clock func() time.Time) func(http.Handler) http.Handler {
	limiter := newFixedWindowLimiter(rateLimitWindow, clock)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, authenticated := rateLimitKey(r)
			limit := cfg.DefaultPerMinute
			if authenticated {
				limit = cfg.AuthenticatedPerMinute
			}
			if !limiter.Allow(key, limit) {
				httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many requests, slow down", http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) (string, bool) {
	switch a := auth.ActorFromContext(r.Context()).(type) {
	case domain.Customer:
		return fmt.Sprintf("customer:%s", a.ID), true
	case domain.Vendor:
		return fmt.Sprintf("vendor:%s", a.ID), true
	case domain.Administrator:
		return "admin", true
	default:
		return fmt.Sprintf("ip:%s", clientIP(r)), false
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
