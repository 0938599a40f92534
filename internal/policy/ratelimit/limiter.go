// Package ratelimit spaces out requests to each affiliate platform API.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/performer-crawler/internal/metrics"
	"golang.org/x/time/rate"
)

// Registry hands out one token bucket per platform slug so that consecutive
// runs against the same platform share its spacing.
type Registry struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultDelay time.Duration
}

// Config holds rate limiter configuration.
type Config struct {
	// DefaultDelay applies to platforms that declare no min delay.
	DefaultDelay time.Duration
}

// New creates a new Registry.
func New(cfg Config) *Registry {
	return &Registry{
		limiters:     make(map[string]*rate.Limiter),
		defaultDelay: cfg.DefaultDelay,
	}
}

// For returns the limiter bound to slug. The first call fixes the spacing;
// later calls with a different minDelay adjust it in place.
func (r *Registry) For(slug string, minDelay time.Duration) *Limiter {
	if minDelay <= 0 {
		minDelay = r.defaultDelay
	}
	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	lim, ok := r.limiters[slug]
	if !ok {
		lim = rate.NewLimiter(limit, 1)
		r.limiters[slug] = lim
	} else if lim.Limit() != limit {
		lim.SetLimit(limit)
	}
	return &Limiter{platform: slug, limiter: lim}
}

// Limiter gates requests for a single platform.
type Limiter struct {
	platform string
	limiter  *rate.Limiter
}

// Wait blocks until the platform's next request slot, respecting the context.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", l.platform, err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitWait(l.platform, waited)
	}
	return nil
}
