package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/rs/zerolog"
)

// RateLimiter implements a per-key sliding window rate limiter, in-memory.
// Reused both as HTTP middleware (keyed by authenticated user, falling
// back to remote address) and directly via Allow for non-HTTP callers —
// the webhook handler keys by provider name to enforce
// "accept >= 60 callbacks/minute per provider endpoint".
type RateLimiter struct {
	logger zerolog.Logger
	enabled bool
	rpm int
	burst int
	mu sync.Mutex
	windows map[string]*slidingWindow
}

type slidingWindow struct {
	tokens []time.Time
	lastClean time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(logger zerolog.Logger, enabled bool, rpm, burst int) *RateLimiter {
	return &RateLimiter{
		logger: logger,
		enabled: enabled,
		rpm: rpm,
		burst: burst,
		windows: make(map[string]*slidingWindow),
	}
}

// Handler returns the rate limiting middleware handler.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.enabled {
			next.ServeHTTP(w, r)
			return
		}

		key := r.RemoteAddr
		if userID, ok := GetUserID(r.Context()); ok {
			key = strconv.FormatInt(userID, 10)
		}

		allowed, remaining, resetAt := rl.Allow(key)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.rpm))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			apperr.WriteJSON(w, apperr.New(apperr.CodeValidation, "rate limit exceeded"))
			rl.logger.Warn().Str("key", key).Int("limit", rl.rpm).Msg("rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Allow reports whether key may proceed under the current window, along
// with the remaining quota and the window's reset time. Exported for
// callers outside the HTTP middleware chain (webhook provider limiting).
func (rl *RateLimiter) Allow(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-1 * time.Minute)
	resetAt := now.Add(1 * time.Minute)

	sw, exists := rl.windows[key]
	if !exists {
		sw = &slidingWindow{
			tokens: make([]time.Time, 0, rl.rpm),
			lastClean: now,
		}
		rl.windows[key] = sw
	}

	if now.Sub(sw.lastClean) > 10*time.Second {
		validTokens := make([]time.Time, 0, len(sw.tokens))
		for _, t := range sw.tokens {
			if t.After(windowStart) {
				validTokens = append(validTokens, t)
			}
		}
		sw.tokens = validTokens
		sw.lastClean = now
	}

	count := 0
	for _, t := range sw.tokens {
		if t.After(windowStart) {
			count++
		}
	}

	remaining := rl.rpm - count
	if remaining <= 0 {
		if len(sw.tokens) > 0 {
			resetAt = sw.tokens[0].Add(1 * time.Minute)
		}
		return false, 0, resetAt
	}

	sw.tokens = append(sw.tokens, now)
	return true, remaining - 1, resetAt
}

// Cleanup removes stale entries. Call periodically.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-2 * time.Minute)
	for key, sw := range rl.windows {
		if len(sw.tokens) == 0 || sw.tokens[len(sw.tokens)-1].Before(cutoff) {
			delete(rl.windows, key)
		}
	}
}
