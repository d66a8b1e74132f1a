// Package ratelimit provides per-provider request throttling shared across
// concurrent account syncs.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Registry hands out one token-bucket limiter per provider name. Accounts
// syncing against the same provider share a bucket, so the aggregate request
// rate stays bounded no matter how many accounts run in parallel.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

func NewRegistry(rps float64, burst int) *Registry {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &Registry{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

func (r *Registry) limiter(provider string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[provider]
	if !ok {
		l = rate.NewLimiter(rate.Limit(r.rps), r.burst)
		r.limiters[provider] = l
	}
	return l
}

// Wait blocks until the provider's bucket permits a request or the context
// is cancelled.
func (r *Registry) Wait(ctx context.Context, provider string) error {
	return r.limiter(provider).Wait(ctx)
}
