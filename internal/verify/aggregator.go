package verify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sells-group/email-finder/internal/model"
)

// Verifier produces an SMTPSignal for one address.
type Verifier interface {
	Verify(ctx context.Context, addr string) model.SMTPSignal
}

// AggregatorOptions configures an Aggregator.
type AggregatorOptions struct {
	// SMTPEnabled turns on the RCPT probe. With it off, verification stops
	// after MX.
	SMTPEnabled bool
	// Timeout bounds one address end to end. Default: 20s.
	Timeout time.Duration
}

// Aggregator runs syntax, MX and SMTP checks in order and stops at the
// first failure. It records signals and leaves judgement to callers.
type Aggregator struct {
	syntax SyntaxChecker
	mx     MXResolver
	prober Prober
	opts   AggregatorOptions
	now    func() time.Time
}

var _ Verifier = (*Aggregator)(nil)

// NewAggregator creates an Aggregator. prober may be nil when SMTP probing
// is disabled.
func NewAggregator(syntax SyntaxChecker, mx MXResolver, prober Prober, opts AggregatorOptions) *Aggregator {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	return &Aggregator{syntax: syntax, mx: mx, prober: prober, opts: opts, now: time.Now}
}

// Verify checks addr. A failed stage leaves every later field false.
func (a *Aggregator) Verify(ctx context.Context, addr string) model.SMTPSignal {
	addr = strings.ToLower(strings.TrimSpace(addr))
	sig := model.SMTPSignal{Address: addr, CheckedAt: a.now().UTC()}

	if !a.syntax.Valid(addr) {
		return sig
	}
	sig.SyntaxValid = true

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	_, domain, _ := model.SplitAddress(addr)
	host, err := a.mx.Resolve(ctx, domain)
	if err != nil {
		if !errors.Is(err, ErrNoMX) {
			sig.Error = err.Error()
		}
		return sig
	}
	sig.MXValid = true
	sig.MXHost = host

	if !a.opts.SMTPEnabled || a.prober == nil {
		return sig
	}

	res := a.prober.Probe(ctx, host, addr)
	switch {
	case res.Err != nil:
		sig.Error = res.Err.Error()
	case res.Inconclusive:
		sig.Error = "inconclusive: " + res.Message
	default:
		sig.SMTPCode = res.Code
		sig.Greylisted = res.Greylisted
		sig.CatchAll = res.CatchAll
		sig.SMTPAccepts = res.Accepted && !res.Greylisted
	}
	return sig
}
