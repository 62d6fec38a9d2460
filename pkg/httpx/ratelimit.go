package httpx

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/usermgmt/pkg/slogx"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// Name namespaces bucket keys so profiles sharing a backend don't collide.
	Name string
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Common rate limit profiles for different endpoint types.
var (
	// StrictLimit for unauthenticated credential endpoints (register, login,
	// verify-email). 5 requests per minute.
	StrictLimit = RateLimitConfig{Name: "strict", RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit for authenticated mutations. 20 requests per minute.
	ModerateLimit = RateLimitConfig{Name: "moderate", RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LenientLimit for authenticated reads. 100 requests per minute.
	LenientLimit = RateLimitConfig{Name: "lenient", RequestsPerWindow: 100, Window: time.Minute, Burst: 100}
)

func init() {
	// Override defaults from environment if set
	StrictLimit = ParseRateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = ParseRateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = ParseRateLimitFromEnv("LENIENT", LenientLimit)
}

// ParseRateLimitFromEnv overrides a profile from RATELIMIT_{prefix}_REQUESTS,
// RATELIMIT_{prefix}_WINDOW_SEC and RATELIMIT_{prefix}_BURST.
func ParseRateLimitFromEnv(prefix string, def RateLimitConfig) RateLimitConfig {
	config := def

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.RequestsPerWindow = requests
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			config.Burst = burst
		}
	}

	return config
}

// interval is the time it takes to refill one token.
func (c RateLimitConfig) interval() time.Duration {
	if c.RequestsPerWindow <= 0 {
		return c.Window
	}
	return c.Window / time.Duration(c.RequestsPerWindow)
}

// Decision is the outcome of a single rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// LimitBackend stores token buckets. Implementations must be safe for
// concurrent use.
type LimitBackend interface {
	Allow(ctx context.Context, key string, cfg RateLimitConfig) (Decision, error)
}

// KeyExtractor is a function that extracts a unique key from the request
// for rate limiting purposes (e.g., IP address, account ID).
type KeyExtractor func(*http.Request) string

// IPKeyExtractor extracts the client IP address from the request.
// It handles X-Forwarded-For and X-Real-IP headers for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
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

// AccountKeyExtractor extracts the authenticated account ID from the request
// context. Returns empty string for anonymous requests.
func AccountKeyExtractor(r *http.Request) string {
	id, _ := AccountIDFromContext(r.Context())
	return id
}

// CompositeKeyExtractor combines multiple key extractors with a separator,
// skipping empty parts.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// RateLimiter builds rate limiting middleware over a shared backend.
type RateLimiter struct {
	backend LimitBackend
}

// NewRateLimiter returns a RateLimiter using backend.
func NewRateLimiter(backend LimitBackend) *RateLimiter {
	return &RateLimiter{backend: backend}
}

// Middleware limits requests grouped by keyExtractor. Backend errors fail
// open so a cache outage does not take the API down.
func (rl *RateLimiter) Middleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			key := keyExtractor(r)
			if key == "" {
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			decision, err := rl.backend.Allow(ctx, config.Name+":"+key, config)
			if err != nil {
				log.Warn("rate limit backend failed, allowing request", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(decision.Remaining, 0)))

			if !decision.Allowed {
				retryAfter := max(int(decision.RetryAfter.Round(time.Second).Seconds()), 1)

				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				w.Header().Set("X-RateLimit-Window", config.Window.String())

				log.Warn("rate limit exceeded",
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				WriteError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ByIP limits by client IP address only.
func (rl *RateLimiter) ByIP(config RateLimitConfig) Middleware {
	return rl.Middleware(config, IPKeyExtractor)
}

// ByAccount limits by authenticated account, falling back to IP.
func (rl *RateLimiter) ByAccount(config RateLimitConfig) Middleware {
	return rl.Middleware(config, CompositeKeyExtractor(":",
		AccountKeyExtractor,
		IPKeyExtractor,
	))
}
