package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes exponential delays with jitter.
type Backoff struct {
	// Initial is the delay before the first retry. Default: 500ms.
	Initial time.Duration
	// Max caps any single delay. Default: 30s.
	Max time.Duration
	// Multiplier scales the delay after each attempt. Default: 2.0.
	Multiplier float64
	// Jitter adds ±Jitter of the computed delay (0.25 = ±25%).
	Jitter float64
}

// DefaultBackoff returns the backoff used for crawl and DNS retries.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:    500 * time.Millisecond,
		Max:        30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.25,
	}
}

func (b Backoff) withDefaults() Backoff {
	if b.Initial <= 0 {
		b.Initial = 500 * time.Millisecond
	}
	if b.Max <= 0 {
		b.Max = 30 * time.Second
	}
	if b.Multiplier <= 0 {
		b.Multiplier = 2.0
	}
	if b.Jitter < 0 {
		b.Jitter = 0
	}
	return b
}

// Delay returns the wait before retry number attempt (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	b = b.withDefaults()
	delay := float64(b.Initial) * math.Pow(b.Multiplier, float64(attempt))
	if delay > float64(b.Max) {
		delay = float64(b.Max)
	}
	if b.Jitter > 0 {
		spread := delay * b.Jitter
		delay += (rand.Float64()*2 - 1) * spread
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Sleep waits for Delay(attempt) and reports false if ctx ended first.
func (b Backoff) Sleep(ctx context.Context, attempt int) bool {
	t := time.NewTimer(b.Delay(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
