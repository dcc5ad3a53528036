// Package finder runs the full search: discovery, pattern learning,
// candidate generation or fallback, verification, scoring and rule
// enforcement, all under one wall-clock budget.
package finder

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/email-finder/internal/confidence"
	"github.com/sells-group/email-finder/internal/discovery"
	"github.com/sells-group/email-finder/internal/extract"
	"github.com/sells-group/email-finder/internal/inference"
	"github.com/sells-group/email-finder/internal/model"
	"github.com/sells-group/email-finder/internal/verify"
)

// Discoverer crawls a domain for public addresses.
type Discoverer interface {
	Discover(ctx context.Context, domain string) (*discovery.Result, error)
}

// Options configures a Finder.
type Options struct {
	// Timeout bounds one search end to end. Default: 90s.
	Timeout time.Duration
	// VerifyDiscovered also runs SMTP checks on discovered addresses.
	VerifyDiscovered bool
	// VerifyConcurrency bounds concurrent SMTP checks. Default: 5.
	VerifyConcurrency int
}

// Request is one search. Leave the name empty for a domain search. Name is
// split into first and last when both halves are blank.
type Request struct {
	Domain        string `json:"domain" yaml:"domain" validate:"required"`
	FirstName     string `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	Name          string `json:"name,omitempty" yaml:"name,omitempty"`
	AllowFallback bool   `json:"allow_fallback" yaml:"allow_fallback"`
}

// Finder wires the pipeline stages together.
type Finder struct {
	discoverer Discoverer
	verifier   verify.Verifier
	batch      *verify.Batch
	tracker    *inference.Tracker
	detector   *inference.Detector
	generator  *inference.Generator
	fallback   *inference.Fallback
	engine     *confidence.Engine
	decay      *confidence.DecayEngine
	enforcer   *confidence.Enforcer
	opts       Options
	now        func() time.Time
}

// New creates a Finder. v may be nil to skip verification entirely, and
// tracker may be nil to run without pattern memory.
func New(d Discoverer, v verify.Verifier, tracker *inference.Tracker, opts Options) *Finder {
	if opts.Timeout <= 0 {
		opts.Timeout = 90 * time.Second
	}
	f := &Finder{
		discoverer: d,
		verifier:   v,
		tracker:    tracker,
		detector:   inference.NewDetector(),
		generator:  inference.NewGenerator(),
		engine:     confidence.NewEngine(),
		decay:      confidence.NewDecayEngine(),
		enforcer:   confidence.NewEnforcer(),
		opts:       opts,
		now:        time.Now,
	}
	if v != nil {
		f.batch = verify.NewBatch(v, opts.VerifyConcurrency)
		f.fallback = inference.NewFallback(v)
	}
	return f
}

// Search runs one domain or person search. Only an empty domain or a
// half-filled name is an error; everything else degrades into the result.
// When the budget runs out, whatever completed is returned with
// Stats.TimedOut set.
func (f *Finder) Search(ctx context.Context, req Request) (*model.SearchResult, error) {
	domain := extract.NormalizeDomain(req.Domain)
	if domain == "" {
		return nil, model.ErrEmptyDomain
	}
	name := model.PersonName{First: strings.TrimSpace(req.FirstName), Last: strings.TrimSpace(req.LastName)}
	if name.IsZero() {
		name.First, name.Last = inference.SplitFullName(req.Name)
	}
	person := !name.IsZero()
	if person && !name.Complete() {
		return nil, model.ErrEmptyName
	}

	started := f.now()
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	disc, err := f.discoverer.Discover(ctx, domain)
	if err != nil {
		return nil, err
	}

	res := &model.SearchResult{
		Domain:     domain,
		Discovered: disc.Emails,
		Names:      disc.Names,
		Stats:      disc.Stats,
	}
	if person {
		res.Person = &name
	}

	work, _ := f.enforcer.LearningInput(disc.Emails)
	pattern := f.learnPattern(ctx, domain, work)
	res.Pattern = pattern

	records := f.discoveredRecords(ctx, disc, person)

	if person {
		switch {
		case pattern != nil && pattern.Confidence >= inference.MinConfidence:
			cands, recs := f.inferred(ctx, name, domain, pattern)
			res.Candidates = cands
			records = append(records, recs...)
		case f.enforcer.UseFallback(disc.Stats.WorkCount, req.AllowFallback) && f.fallback != nil && !model.IsPersonalDomain(domain):
			cands, recs := f.fallbackRecords(ctx, name, domain)
			res.Candidates = cands
			records = append(records, recs...)
			res.Stats.FallbackUsed = true
		}
	}

	records, err = f.enforcer.Enforce(records)
	if err != nil {
		return nil, err
	}
	res.Records = records

	res.Stats.AllFacts = true
	for _, r := range records {
		if !r.IsFact() {
			res.Stats.AllFacts = false
			break
		}
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.Stats.TimedOut = true
	}
	res.Stats.Duration = f.now().Sub(started)

	zap.L().Info("finder: search complete",
		zap.String("domain", domain),
		zap.Bool("person", person),
		zap.String("status", string(res.Stats.Status)),
		zap.Int("records", len(records)),
		zap.Bool("fallback_used", res.Stats.FallbackUsed),
		zap.Bool("timed_out", res.Stats.TimedOut),
		zap.Duration("duration", res.Stats.Duration),
	)
	return res, nil
}

// learnPattern detects a convention from eligible addresses and merges it
// with pattern memory. Store trouble is logged and never fails the search.
// A tracked confidence below inference.MinConfidence yields no pattern.
func (f *Finder) learnPattern(ctx context.Context, domain string, work []model.DiscoveredEmail) *model.Pattern {
	detected, _ := f.detector.Detect(domain, work)
	if f.tracker == nil {
		return detected
	}
	p, err := f.tracker.Resolve(ctx, domain, detected)
	if err != nil {
		zap.L().Warn("finder: pattern store unavailable", zap.String("domain", domain), zap.Error(err))
		return detected
	}
	if p != nil && p.Confidence < inference.MinConfidence {
		zap.L().Debug("finder: tracked pattern below threshold",
			zap.String("domain", domain),
			zap.String("template", string(p.Template)),
			zap.Float64("confidence", p.Confidence),
		)
		return nil
	}
	return p
}

func (f *Finder) discoveredRecords(ctx context.Context, disc *discovery.Result, person bool) []model.EmailRecord {
	var found []model.DiscoveredEmail
	for _, d := range disc.Emails {
		if !d.IsGenerated() {
			found = append(found, d)
		}
	}

	var signals map[string]model.SMTPSignal
	if f.opts.VerifyDiscovered && f.batch != nil {
		addrs := make([]string, 0, len(found))
		for _, d := range found {
			addrs = append(addrs, d.Address)
		}
		signals = f.verifyAll(ctx, addrs)
	}

	records := make([]model.EmailRecord, 0, len(found))
	for _, d := range found {
		rec := model.EmailRecord{
			Address:     d.Address,
			Domain:      d.Domain,
			Origin:      model.OriginDiscovered,
			Source:      d.Source,
			Type:        d.Type,
			RoleBased:   d.RoleBased,
			Occurrences: d.Occurrences,
			Status:      model.StatusUnverified,
		}
		var sig *model.SMTPSignal
		if s, ok := signals[d.Address]; ok {
			sig = &s
			rec.Status = verify.Interpret(s)
			rec.VerifiedAt = s.CheckedAt
		}
		rec.Layers = f.engine.Score(confidence.Input{
			Origin:       model.OriginDiscovered,
			Signal:       sig,
			PersonSearch: person,
		})
		records = append(records, rec)
	}
	return records
}

// inferred renders candidates from a confirmed pattern, verifies them when
// possible and feeds the primary candidate's outcome back to the tracker.
func (f *Finder) inferred(ctx context.Context, name model.PersonName, domain string, p *model.Pattern) ([]model.Candidate, []model.EmailRecord) {
	cands := f.generator.Generate(name, domain, p)
	if len(cands) == 0 {
		return nil, nil
	}

	var signals map[string]model.SMTPSignal
	if f.batch != nil {
		addrs := make([]string, 0, len(cands))
		for _, c := range cands {
			addrs = append(addrs, c.Address)
		}
		signals = f.verifyAll(ctx, addrs)
	}

	records := make([]model.EmailRecord, 0, len(cands))
	for i := range cands {
		c := &cands[i]
		var sig *model.SMTPSignal
		if s, ok := signals[c.Address]; ok {
			sig = &s
			c.Status = verify.Interpret(s)
		}
		layers := f.engine.Score(confidence.Input{
			Origin:            model.OriginInferred,
			Signal:            sig,
			PatternUsed:       c.PatternUsed,
			PatternConfidence: c.PatternConfidence,
			PersonSearch:      true,
		})
		c.Confidence = layers.Association

		rec := model.EmailRecord{
			Address:     c.Address,
			Domain:      domain,
			Origin:      model.OriginInferred,
			Source:      model.SourceGenerated,
			Type:        model.EmailTypeWork,
			PatternUsed: c.PatternUsed,
			Status:      c.Status,
			Confidence:  c.Confidence,
			Layers:      layers,
		}
		if sig != nil {
			rec.VerifiedAt = sig.CheckedAt
		}
		records = append(records, rec)

		if c.Primary && sig != nil {
			f.recordTest(ctx, domain, c.Status)
		}
	}
	return cands, records
}

func (f *Finder) fallbackRecords(ctx context.Context, name model.PersonName, domain string) ([]model.Candidate, []model.EmailRecord) {
	matches, err := f.fallback.Infer(ctx, name, domain)
	if err != nil {
		zap.L().Warn("finder: fallback inference failed", zap.String("domain", domain), zap.Error(err))
		return nil, nil
	}

	cands := make([]model.Candidate, 0, len(matches))
	records := make([]model.EmailRecord, 0, len(matches))
	for _, m := range matches {
		sig := m.Signal
		c := m.Candidate
		c.Status = verify.Interpret(sig)
		c.Confidence = inference.FallbackConfidence
		cands = append(cands, c)

		records = append(records, model.EmailRecord{
			Address:     c.Address,
			Domain:      domain,
			Origin:      model.OriginVerificationInferred,
			Source:      model.SourceGenerated,
			Type:        model.EmailTypeWork,
			PatternUsed: c.PatternUsed,
			Status:      c.Status,
			Confidence:  c.Confidence,
			VerifiedAt:  sig.CheckedAt,
			Layers: f.engine.Score(confidence.Input{
				Origin:       model.OriginVerificationInferred,
				Signal:       &sig,
				PatternUsed:  c.PatternUsed,
				PersonSearch: true,
			}),
		})
	}
	return cands, records
}

func (f *Finder) verifyAll(ctx context.Context, addrs []string) map[string]model.SMTPSignal {
	out := make(map[string]model.SMTPSignal, len(addrs))
	for _, s := range f.batch.VerifyAll(ctx, addrs) {
		out[s.Address] = s
	}
	return out
}

// recordTest updates pattern memory outside the search budget so a late
// verification still counts.
func (f *Finder) recordTest(ctx context.Context, domain string, status model.VerificationStatus) {
	if f.tracker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := f.tracker.RecordTest(ctx, domain, status); err != nil {
		zap.L().Warn("finder: record pattern test", zap.String("domain", domain), zap.Error(err))
	}
}

// Rescore ages previously returned records to now, flags those due for
// re-verification and re-applies the output rules.
func (f *Finder) Rescore(records []model.EmailRecord) ([]model.EmailRecord, error) {
	for i := range records {
		records[i].Reverify = f.decay.Refresh(&records[i])
	}
	return f.enforcer.Enforce(records)
}
