package verify

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rotisserie/eris"

	"github.com/sells-group/email-finder/internal/resilience"
)

// ErrNoMX is returned when a domain accepts no mail.
var ErrNoMX = eris.New("verify: no mail exchanger")

// MXResolver finds the primary mail host for a domain.
type MXResolver interface {
	Resolve(ctx context.Context, domain string) (string, error)
}

// DNSLookup is the subset of *net.Resolver used for MX resolution.
type DNSLookup interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DNSResolver resolves MX records with a per-query timeout, bounded retries
// on temporary failures and a short-lived cache.
type DNSResolver struct {
	lookup  DNSLookup
	timeout time.Duration
	retry   resilience.RetryConfig
	cache   *expirable.LRU[string, string]
}

// DNSOptions configures a DNSResolver.
type DNSOptions struct {
	Timeout   time.Duration
	Retries   int
	CacheSize int
	CacheTTL  time.Duration
	Lookup    DNSLookup
}

// NewDNSResolver creates a DNSResolver. A nil Lookup uses net.DefaultResolver.
func NewDNSResolver(opts DNSOptions) *DNSResolver {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 512
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.Lookup == nil {
		opts.Lookup = net.DefaultResolver
	}
	return &DNSResolver{
		lookup:  opts.Lookup,
		timeout: opts.Timeout,
		retry: resilience.RetryConfig{
			MaxAttempts: opts.Retries + 1,
			Backoff:     resilience.Backoff{Initial: 200 * time.Millisecond, Max: 2 * time.Second, Multiplier: 2},
		},
		cache: expirable.NewLRU[string, string](opts.CacheSize, nil, opts.CacheTTL),
	}
}

// Resolve returns the lowest-preference MX host for domain. A domain with
// no MX but a resolvable address record is its own mail host.
func (r *DNSResolver) Resolve(ctx context.Context, domain string) (string, error) {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	if host, ok := r.cache.Get(domain); ok {
		return host, nil
	}

	cfg := r.retry
	cfg.OnRetry = resilience.RetryLogger("mx", domain)
	host, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		return r.resolveOnce(ctx, domain)
	})
	if err != nil {
		return "", err
	}
	r.cache.Add(domain, host)
	return host, nil
}

func (r *DNSResolver) resolveOnce(ctx context.Context, domain string) (string, error) {
	qctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	records, err := r.lookup.LookupMX(qctx, domain)
	for _, mx := range records {
		host := strings.TrimSuffix(mx.Host, ".")
		// A null MX (RFC 7505) means the domain accepts no mail.
		if host == "" {
			return "", ErrNoMX
		}
		return host, nil
	}
	if err != nil && !isNotFound(err) {
		return "", eris.Wrapf(err, "verify: lookup mx %s", domain)
	}

	addrs, err := r.lookup.LookupHost(qctx, domain)
	if err != nil {
		if isNotFound(err) {
			return "", ErrNoMX
		}
		return "", eris.Wrapf(err, "verify: lookup host %s", domain)
	}
	if len(addrs) == 0 {
		return "", ErrNoMX
	}
	return domain, nil
}

func isNotFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}
