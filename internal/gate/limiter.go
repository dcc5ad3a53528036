package gate

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AdaptiveLimiter is a minimum-interval limiter that speeds up while a site
// answers normally and backs off when it signals overload.
// On success the rate grows 20% up to 2x initial; on 429/503 it halves down
// to initial/4.
type AdaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	initial rate.Limit
	current rate.Limit
}

// NewAdaptiveLimiter creates a limiter allowing rps requests per second.
func NewAdaptiveLimiter(rps float64) *AdaptiveLimiter {
	r := rate.Limit(rps)
	return &AdaptiveLimiter{
		limiter: rate.NewLimiter(r, 1),
		initial: r,
		current: r,
	}
}

// Wait blocks until the next request may start.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess raises the rate after a normal response.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.set(min(a.current*1.2, a.initial*2))
}

// OnThrottle lowers the rate after a 429 or 503.
func (a *AdaptiveLimiter) OnThrottle(domain string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.set(max(a.current*0.5, a.initial/4))
	zap.L().Info("gate: throttled, reducing rate",
		zap.String("domain", domain),
		zap.Float64("new_rate", float64(a.current)),
	)
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *AdaptiveLimiter) set(r rate.Limit) {
	a.current = r
	a.limiter.SetLimit(r)
}
