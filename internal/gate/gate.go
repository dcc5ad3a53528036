// Package gate provides per-domain politeness: a minimum-interval limiter
// plus a bounded number of in-flight requests.
package gate

import (
	"context"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/semaphore"
)

// Options configures every gate a Registry creates.
type Options struct {
	RequestsPerSecond float64
	MaxConcurrent     int
	// Size bounds how many domains a Registry tracks at once.
	Size int
}

func (o Options) withDefaults() Options {
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 2
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 4
	}
	if o.Size <= 0 {
		o.Size = 256
	}
	return o
}

// Gate throttles requests to a single domain.
type Gate struct {
	domain  string
	limiter *AdaptiveLimiter
	sem     *semaphore.Weighted
}

func newGate(domain string, opts Options) *Gate {
	return &Gate{
		domain:  domain,
		limiter: NewAdaptiveLimiter(opts.RequestsPerSecond),
		sem:     semaphore.NewWeighted(int64(opts.MaxConcurrent)),
	}
}

// Domain returns the domain this gate throttles.
func (g *Gate) Domain() string { return g.domain }

// Acquire waits for a concurrency slot and the next rate-limit tick. The
// caller must invoke release when the request finishes. Exceeding the gate
// waits; it only fails when ctx ends.
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, eris.Wrapf(err, "gate: acquire slot for %s", g.domain)
	}
	if err := g.limiter.Wait(ctx); err != nil {
		g.sem.Release(1)
		return nil, eris.Wrapf(err, "gate: rate wait for %s", g.domain)
	}
	var once sync.Once
	return func() { once.Do(func() { g.sem.Release(1) }) }, nil
}

// OnSuccess reports a normal response.
func (g *Gate) OnSuccess() { g.limiter.OnSuccess() }

// OnThrottle reports a 429 or 503 response.
func (g *Gate) OnThrottle() { g.limiter.OnThrottle(g.domain) }

// Limiter exposes the adaptive limiter.
func (g *Gate) Limiter() *AdaptiveLimiter { return g.limiter }

// Registry hands out one Gate per domain. Gates are created lazily and kept
// in an LRU so a long-lived process does not grow without bound.
type Registry struct {
	opts Options

	mu    sync.Mutex
	gates *lru.Cache[string, *Gate]
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) (*Registry, error) {
	opts = opts.withDefaults()
	cache, err := lru.New[string, *Gate](opts.Size)
	if err != nil {
		return nil, eris.Wrap(err, "gate: create registry")
	}
	return &Registry{opts: opts, gates: cache}, nil
}

// For returns the gate for domain, creating it on first use.
func (r *Registry) For(domain string) *Gate {
	key := strings.ToLower(strings.TrimPrefix(domain, "www."))
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gates.Get(key); ok {
		return g
	}
	g := newGate(key, r.opts)
	r.gates.Add(key, g)
	return g
}

// Len returns the number of tracked domains.
func (r *Registry) Len() int {
	return r.gates.Len()
}
