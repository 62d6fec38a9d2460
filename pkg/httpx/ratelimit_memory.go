package httpx

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryBackend keeps token buckets in process memory. Suitable for a single
// instance; use RedisBackend when running replicas.
type MemoryBackend struct {
	limiters sync.Map // map[string]*rate.Limiter

	mu          sync.Mutex
	lastCleanup time.Time
}

// NewMemoryBackend returns an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{lastCleanup: time.Now()}
}

func (m *MemoryBackend) Allow(_ context.Context, key string, cfg RateLimitConfig) (Decision, error) {
	limiter := m.getLimiter(key, cfg)

	if limiter.Allow() {
		return Decision{Allowed: true, Remaining: int(limiter.Tokens())}, nil
	}

	// Peek at when the next token lands without consuming it.
	reservation := limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()

	return Decision{Allowed: false, RetryAfter: delay}, nil
}

func (m *MemoryBackend) getLimiter(key string, cfg RateLimitConfig) *rate.Limiter {
	if limiter, ok := m.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rate.Every(cfg.interval()), cfg.Burst)
	actual, _ := m.limiters.LoadOrStore(key, limiter)

	m.maybeCleanup()

	return actual.(*rate.Limiter)
}

// maybeCleanup drops buckets that have refilled completely, at most once
// every five minutes.
func (m *MemoryBackend) maybeCleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCleanup) < 5*time.Minute {
		return
	}
	m.lastCleanup = time.Now()

	m.limiters.Range(func(key, value any) bool {
		limiter := value.(*rate.Limiter)
		if limiter.Tokens() >= float64(limiter.Burst()) {
			m.limiters.Delete(key)
		}
		return true
	})
}
