// Package inference learns local-part conventions from discovered addresses
// and renders candidate addresses for people.
package inference

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/email-finder/internal/model"
)

// Detection thresholds.
const (
	MinSamples    = 2
	MinDominance  = 0.7
	MinConfidence = 0.6
	dampingSize   = 3.0
)

// strictPattern is one anchored template matcher. Name segments require at
// least two characters so initials-only noise never matches first.last.
type strictPattern struct {
	template model.Template
	re       *regexp.Regexp
}

// strictPatterns is evaluated in order; the first match wins and ties in the
// tally go to the earlier entry.
var strictPatterns = []strictPattern{
	{model.TemplateFirstDotLast, regexp.MustCompile(`^[a-z]{2,}\.[a-z]{2,}$`)},
	{model.TemplateFirstUnderLast, regexp.MustCompile(`^[a-z]{2,}_[a-z]{2,}$`)},
	{model.TemplateFirstDashLast, regexp.MustCompile(`^[a-z]{2,}-[a-z]{2,}$`)},
	{model.TemplateFDotLast, regexp.MustCompile(`^[a-z]\.[a-z]{2,}$`)},
	{model.TemplateFLast, regexp.MustCompile(`^[a-z][a-z]{2,}$`)},
}

// Detector learns the dominant local-part template for a domain. It never
// guesses: any failed gate yields no pattern.
type Detector struct{}

// NewDetector creates a Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Eligible returns the local parts usable for learning: non-generated,
// non-role work addresses on domain.
func Eligible(domain string, emails []model.DiscoveredEmail) []string {
	domain = strings.ToLower(domain)
	var out []string
	for _, e := range emails {
		if !e.EligibleForLearning() {
			continue
		}
		if d := strings.ToLower(e.Domain); d != domain && !strings.HasSuffix(d, "."+domain) {
			continue
		}
		out = append(out, strings.ToLower(e.LocalPart()))
	}
	return out
}

// Detect learns a pattern from discovered emails. It returns (nil, 0) when
// any gate refuses.
func (d *Detector) Detect(domain string, emails []model.DiscoveredEmail) (*model.Pattern, float64) {
	return d.DetectLocalParts(domain, Eligible(domain, emails))
}

// DetectLocalParts runs the three gates over already-filtered local parts.
func (d *Detector) DetectLocalParts(domain string, locals []string) (*model.Pattern, float64) {
	n := len(locals)
	if n < MinSamples {
		zap.L().Debug("inference: too few samples for pattern",
			zap.String("domain", domain),
			zap.Int("samples", n),
		)
		return nil, 0
	}

	matches := make(map[model.Template]int)
	total := 0
	for _, local := range locals {
		local = strings.ToLower(local)
		for _, p := range strictPatterns {
			if p.re.MatchString(local) {
				matches[p.template]++
				total++
				break
			}
		}
	}
	if total == 0 {
		return nil, 0
	}

	var best model.Template
	bestCount := 0
	for _, p := range strictPatterns {
		if c := matches[p.template]; c > bestCount {
			best, bestCount = p.template, c
		}
	}

	dominance := float64(bestCount) / float64(total)
	if dominance < MinDominance {
		zap.L().Debug("inference: no dominant pattern",
			zap.String("domain", domain),
			zap.Float64("dominance", dominance),
		)
		return nil, 0
	}

	raw := float64(bestCount) / float64(n)
	damping := float64(n) / dampingSize
	if damping > 1 {
		damping = 1
	}
	confidence := raw * damping
	if confidence < MinConfidence {
		zap.L().Debug("inference: pattern confidence below threshold",
			zap.String("domain", domain),
			zap.String("template", string(best)),
			zap.Float64("confidence", confidence),
		)
		return nil, 0
	}

	zap.L().Info("inference: pattern learned",
		zap.String("domain", domain),
		zap.String("template", string(best)),
		zap.Int("matches", bestCount),
		zap.Int("samples", n),
		zap.Float64("confidence", confidence),
	)
	return &model.Pattern{
		Domain:     domain,
		Template:   best,
		Confidence: confidence,
		SampleSize: n,
		Matches:    matches,
	}, confidence
}
