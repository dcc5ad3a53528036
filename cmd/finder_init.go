package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/email-finder/internal/config"
	"github.com/sells-group/email-finder/internal/discovery"
	"github.com/sells-group/email-finder/internal/extract"
	"github.com/sells-group/email-finder/internal/fetcher"
	"github.com/sells-group/email-finder/internal/finder"
	"github.com/sells-group/email-finder/internal/gate"
	"github.com/sells-group/email-finder/internal/inference"
	"github.com/sells-group/email-finder/internal/resilience"
	"github.com/sells-group/email-finder/internal/store"
	"github.com/sells-group/email-finder/internal/verify"
)

// finderEnv holds everything the discover/find/verify/serve commands need.
type finderEnv struct {
	Store     store.PatternStore
	Tracker   *inference.Tracker
	Discovery *discovery.Engine
	Verifier  verify.Verifier
	Finder    *finder.Finder
}

// Close releases resources held by the environment.
func (fe *finderEnv) Close() {
	if fe.Store != nil {
		_ = fe.Store.Close()
	}
}

// initFinder opens the pattern store and builds the crawl and verification
// stacks from cfg. Callers should defer env.Close().
func initFinder(ctx context.Context) (*finderEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	engine, err := newDiscoveryEngine(cfg.Crawl)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	v, err := newVerifier(cfg.SMTP)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	tracker := inference.NewTracker(st)
	opts := finder.Options{
		Timeout:           time.Duration(cfg.Pipeline.TimeoutSecs) * time.Second,
		VerifyDiscovered:  cfg.Pipeline.VerifyDiscovered,
		VerifyConcurrency: cfg.SMTP.MaxConcurrent,
	}

	return &finderEnv{
		Store:     st,
		Tracker:   tracker,
		Discovery: engine,
		Verifier:  v,
		Finder:    finder.New(engine, v, tracker, opts),
	}, nil
}

// initStore opens and migrates the configured pattern store.
func initStore(ctx context.Context) (store.PatternStore, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func newDiscoveryEngine(c config.CrawlConfig) (*discovery.Engine, error) {
	gates, err := gate.NewRegistry(gate.Options{
		RequestsPerSecond: c.RequestsPerSecond,
		MaxConcurrent:     c.MaxConcurrent,
		Size:              c.GateCacheSize,
	})
	if err != nil {
		return nil, err
	}
	f := fetcher.NewWebFetcher(gates, fetcher.Options{
		UserAgents:   c.UserAgents,
		Timeout:      c.Timeout(),
		MaxRetries:   c.MaxRetries,
		MaxBodyBytes: c.MaxBodyBytes,
	})
	return discovery.NewEngine(f, extract.New(), discovery.Options{
		ExtraPaths:    c.ExtraPaths,
		HTTPFallback:  c.HTTPFallback,
		MaxConcurrent: c.MaxConcurrent,
	}), nil
}

// newVerifier builds the syntax, MX and SMTP chain. With SMTP disabled the
// chain stops after MX.
func newVerifier(c config.SMTPConfig) (*verify.Aggregator, error) {
	mx := verify.NewDNSResolver(verify.DNSOptions{
		Timeout: time.Duration(c.DNSTimeoutSecs) * time.Second,
		Retries: c.DNSRetries,
	})
	timeout := time.Duration(c.TimeoutSecs) * time.Second
	if !c.Enabled {
		zap.L().Info("smtp probing disabled, verification stops at mx")
		return verify.NewAggregator(verify.NewRFCSyntax(), mx, nil, verify.AggregatorOptions{Timeout: timeout}), nil
	}

	breakers, err := resilience.NewHostBreakers(resilience.BreakerConfig{
		FailureThreshold: 3,
		Cooldown:         5 * time.Minute,
	}, 0)
	if err != nil {
		return nil, err
	}
	prober := verify.NewSMTPProber(verify.ProberOptions{
		Port:           c.Port,
		HeloName:       c.HeloName,
		MailFrom:       c.MailFrom,
		Timeout:        timeout,
		CommandTimeout: time.Duration(c.CommandSecs) * time.Second,
		CatchAllProbe:  c.CatchAllProbe,
		Breakers:       breakers,
	})
	return verify.NewAggregator(verify.NewRFCSyntax(), mx, prober, verify.AggregatorOptions{
		SMTPEnabled: true,
		Timeout:     timeout,
	}), nil
}
