// Package discovery crawls a company's public pages and turns what it finds
// into a filtered, classified set of email addresses.
package discovery

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/email-finder/internal/extract"
	"github.com/sells-group/email-finder/internal/fetcher"
	"github.com/sells-group/email-finder/internal/model"
)

// Options configures the discovery engine.
type Options struct {
	// Paths overrides DefaultPaths.
	Paths []string
	// ExtraPaths are appended to the catalog.
	ExtraPaths []string
	// HTTPFallback retries the catalog over plain HTTP when HTTPS yields
	// no page at all.
	HTTPFallback bool
	// MaxConcurrent bounds page fetches in flight for one run. The per-domain
	// gate applies on top.
	MaxConcurrent int
}

// Engine runs discovery for one domain at a time. It is safe for
// concurrent use across domains.
type Engine struct {
	fetcher   fetcher.Fetcher
	extractor *extract.Extractor
	opts      Options
}

// NewEngine creates a discovery engine.
func NewEngine(f fetcher.Fetcher, x *extract.Extractor, opts Options) *Engine {
	if len(opts.Paths) == 0 {
		opts.Paths = DefaultPaths
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 8
	}
	if x == nil {
		x = extract.New()
	}
	return &Engine{fetcher: f, extractor: x, opts: opts}
}

// PageOutcome records what happened to one catalog URL.
type PageOutcome struct {
	URL      string                `json:"url"`
	PageType model.PageType        `json:"page_type"`
	Failure  fetcher.FailureReason `json:"failure"`
	Emails   int                   `json:"emails"`
}

// Result is the output of one discovery run.
type Result struct {
	Domain  string                  `json:"domain"`
	Emails  []model.DiscoveredEmail `json:"emails"`
	Names   []string                `json:"names,omitempty"`
	Pages   []PageOutcome           `json:"pages"`
	Dropped int                     `json:"dropped"`
	Stats   model.RunStats          `json:"stats"`
}

// Work returns the non-personal entries, including generated fallbacks.
func (r *Result) Work() []model.DiscoveredEmail {
	var out []model.DiscoveredEmail
	for _, e := range r.Emails {
		if e.Type == model.EmailTypeWork {
			out = append(out, e)
		}
	}
	return out
}

// Discovered returns the entries found in public content.
func (r *Result) Discovered() []model.DiscoveredEmail {
	var out []model.DiscoveredEmail
	for _, e := range r.Emails {
		if !e.IsGenerated() {
			out = append(out, e)
		}
	}
	return out
}

// FoundWork reports whether any real work email was discovered.
func (r *Result) FoundWork() bool {
	for _, e := range r.Emails {
		if e.Type == model.EmailTypeWork && !e.IsGenerated() {
			return true
		}
	}
	return false
}

// pageResult is sent from fetch workers to the merging goroutine.
type pageResult struct {
	url      string
	pageType model.PageType
	fetch    fetcher.Result
	extract  extract.Result
}

// run is the single-writer merge state for one discovery run.
type run struct {
	domain string
	merged map[string]*sighting
	names  []string
	seen   map[string]bool
	pages  []PageOutcome
	stats  model.RunStats
}

// Discover crawls domain and returns the filtered email set. The only error
// is an empty domain; network trouble is reported through Result.Stats.
func (e *Engine) Discover(ctx context.Context, domain string) (*Result, error) {
	domain = extract.NormalizeDomain(domain)
	if domain == "" {
		return nil, model.ErrEmptyDomain
	}

	started := time.Now()
	r := &run{
		domain: domain,
		merged: make(map[string]*sighting),
		seen:   make(map[string]bool),
		stats: model.RunStats{
			RunID:     uuid.New().String(),
			Domain:    domain,
			StartedAt: started.UTC(),
		},
	}

	e.crawl(ctx, r, "https")
	if e.opts.HTTPFallback && r.stats.PagesFetched == 0 && !r.policyOnly() && ctx.Err() == nil {
		zap.L().Info("discovery: https yielded nothing, retrying over http",
			zap.String("domain", domain),
		)
		r.stats.UsedHTTP = true
		e.crawl(ctx, r, "http")
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		r.stats.TimedOut = true
	}

	kept, dropped := filterNoise(r.merged)
	res := &Result{
		Domain:  domain,
		Names:   r.names,
		Pages:   r.pages,
		Dropped: dropped,
	}
	res.Emails = kept
	if !res.FoundWork() {
		res.Emails = append(res.Emails, roleFallbacks(domain)...)
	}

	discovered := 0
	for _, em := range res.Emails {
		if em.IsGenerated() {
			continue
		}
		discovered++
		if em.Type == model.EmailTypePersonal {
			r.stats.PersonalCount++
		} else {
			r.stats.WorkCount++
		}
	}
	r.stats.Status = RunStatusFor(r.stats, discovered)
	r.stats.Duration = time.Since(started)
	res.Stats = r.stats

	zap.L().Info("discovery: run complete",
		zap.String("domain", domain),
		zap.String("run_id", r.stats.RunID),
		zap.String("status", string(r.stats.Status)),
		zap.Int("pages_fetched", r.stats.PagesFetched),
		zap.Int("pages_failed", r.stats.PagesFailed),
		zap.Int("work", r.stats.WorkCount),
		zap.Int("personal", r.stats.PersonalCount),
		zap.Int("dropped", dropped),
	)
	return res, nil
}

// crawl fetches every catalog path over scheme. Workers only fetch and
// extract; merging happens on the calling goroutine.
func (e *Engine) crawl(ctx context.Context, r *run, scheme string) {
	paths := append(append([]string{}, e.opts.Paths...), e.opts.ExtraPaths...)
	results := make(chan pageResult)

	go func() {
		var g errgroup.Group
		g.SetLimit(e.opts.MaxConcurrent)
		for _, p := range paths {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				results <- e.fetchPage(ctx, scheme, r.domain, p)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	for pr := range results {
		r.merge(pr)
	}
}

func (e *Engine) fetchPage(ctx context.Context, scheme, domain, path string) pageResult {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := scheme + "://" + domain + path
	pr := pageResult{url: u, pageType: model.PageTypeForPath(path)}
	pr.fetch = e.fetcher.Fetch(ctx, u)
	if pr.fetch.OK() {
		pr.extract = e.extractor.Extract(pr.fetch.Body, domain, pr.pageType)
	} else {
		zap.L().Debug("discovery: page fetch failed",
			zap.String("url", u),
			zap.String("failure", string(pr.fetch.Failure)),
			zap.Error(pr.fetch.Err),
		)
	}
	return pr
}

func (r *run) merge(pr pageResult) {
	r.stats.PagesAttempted++
	r.pages = append(r.pages, PageOutcome{
		URL:      pr.url,
		PageType: pr.pageType,
		Failure:  pr.fetch.Failure,
		Emails:   len(pr.extract.Emails),
	})

	switch pr.fetch.Failure {
	case fetcher.FailureNone:
		r.stats.PagesFetched++
	case fetcher.FailureRobots:
		r.stats.RobotsSkipped++
		return
	case fetcher.FailureBlocked:
		r.stats.Blocked++
		r.stats.PagesFailed++
		return
	case fetcher.FailureTimeout:
		r.stats.Timeouts++
		r.stats.PagesFailed++
		return
	default:
		r.stats.PagesFailed++
		return
	}

	for _, m := range pr.extract.Emails {
		s, ok := r.merged[m.Address]
		if !ok {
			_, host, _ := model.SplitAddress(m.Address)
			s = &sighting{email: model.DiscoveredEmail{
				Address:   m.Address,
				Domain:    host,
				Source:    m.Source,
				SourceURL: pr.url,
				Type:      m.Type,
				RoleBased: m.RoleBased,
				Boost:     m.Source.Boost(),
				PageType:  pr.pageType,
			}}
			r.merged[m.Address] = s
		} else if m.Source.Outranks(s.email.Source) {
			s.email.Source = m.Source
			s.email.SourceURL = pr.url
			s.email.Boost = m.Source.Boost()
			s.email.PageType = pr.pageType
		}
		s.email.Occurrences++
		if pr.pageType.IsProminent() || m.Source == model.SourceMailto {
			s.prominent = true
		}
	}

	for _, n := range pr.extract.Names {
		if !r.seen[n] {
			r.seen[n] = true
			r.names = append(r.names, n)
		}
	}
}

// policyOnly reports whether every attempted page was skipped by robots.txt,
// in which case retrying over HTTP would hit the same policy.
func (r *run) policyOnly() bool {
	return r.stats.PagesAttempted > 0 && r.stats.RobotsSkipped == r.stats.PagesAttempted
}
