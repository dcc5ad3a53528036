// Package resilience provides retry, backoff and circuit breaking for calls
// against third-party web and mail servers.
package resilience

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed lets calls through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the cool-down elapses.
	CircuitOpen
	// CircuitHalfOpen lets a probe call through.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a host is skipped because its breaker is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// BreakerConfig controls breaker behavior.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. Default: 3.
	FailureThreshold int
	// Cooldown is how long an open circuit rejects calls. Default: 5m.
	Cooldown time.Duration
	// ShouldTrip decides which errors count as failures. Default: any error.
	ShouldTrip func(err error) bool
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 5 * time.Minute
	}
	if c.ShouldTrip == nil {
		c.ShouldTrip = func(err error) bool { return err != nil }
	}
	return c
}

// Breaker is a circuit breaker for a single remote host.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time

	now func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	return &Breaker{cfg: cfg.withDefaults(), now: time.Now}
}

// Allow reports whether a call may proceed, moving an expired open circuit
// to half-open.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitOpen {
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return ErrCircuitOpen
		}
		b.state = CircuitHalfOpen
	}
	return nil
}

// Record feeds the outcome of a call back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.cfg.ShouldTrip(err) {
		b.state = CircuitClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == CircuitHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.state = CircuitOpen
		b.openedAt = b.now()
	}
}

// State returns the current circuit state.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == CircuitOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return CircuitHalfOpen
	}
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// HostBreakers hands out one Breaker per host, keeping at most size hosts.
type HostBreakers struct {
	cfg BreakerConfig

	mu    sync.Mutex
	cache *lru.Cache[string, *Breaker]
}

// NewHostBreakers creates a bounded registry of per-host breakers.
func NewHostBreakers(cfg BreakerConfig, size int) (*HostBreakers, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[string, *Breaker](size)
	if err != nil {
		return nil, eris.Wrap(err, "resilience: create breaker cache")
	}
	return &HostBreakers{cfg: cfg, cache: cache}, nil
}

// Get returns the breaker for host, creating one if needed.
func (h *HostBreakers) Get(host string) *Breaker {
	h.mu.Lock()
	defer h.mu.Unlock()
	if b, ok := h.cache.Get(host); ok {
		return b
	}
	b := NewBreaker(h.cfg)
	h.cache.Add(host, b)
	return b
}

// Len returns the number of tracked hosts.
func (h *HostBreakers) Len() int {
	return h.cache.Len()
}
