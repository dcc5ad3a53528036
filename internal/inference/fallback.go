package inference

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/email-finder/internal/model"
)

// FallbackConfidence caps verification-inferred addresses below anything
// discovered.
const FallbackConfidence = 0.65

// FallbackTemplates are tried, in order, when no public email exists.
var FallbackTemplates = []model.Template{
	model.TemplateFirstDotLast,
	model.TemplateFirstUnderLast,
	model.TemplateFirstDashLast,
	model.TemplateFirstLast,
	model.TemplateFDotLast,
	model.TemplateFLast,
}

// Verifier checks a single address and reports raw signals.
type Verifier interface {
	Verify(ctx context.Context, address string) model.SMTPSignal
}

// FallbackMatch is a generated address the mail server accepted.
type FallbackMatch struct {
	Candidate model.Candidate  `json:"candidate"`
	Signal    model.SMTPSignal `json:"signal"`
}

// Fallback generates common conventions without a pattern and keeps only
// those the mail server explicitly accepts.
type Fallback struct {
	verifier Verifier
}

// NewFallback creates a Fallback backed by v.
func NewFallback(v Verifier) *Fallback {
	return &Fallback{verifier: v}
}

// Infer verifies each fallback template for name at domain, sequentially.
// Catch-all acceptance proves nothing and is discarded.
func (f *Fallback) Infer(ctx context.Context, name model.PersonName, domain string) ([]FallbackMatch, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, model.ErrEmptyDomain
	}
	first := NormalizeName(name.First)
	last := NormalizeName(name.Last)
	if first == "" || last == "" {
		return nil, model.ErrEmptyName
	}

	zap.L().Info("inference: no public emails, trying verification-led fallback",
		zap.String("domain", domain),
	)

	var out []FallbackMatch
	seen := make(map[string]bool)
	for _, t := range FallbackTemplates {
		if ctx.Err() != nil {
			break
		}
		local, ok := Render(t, first, last)
		if !ok {
			continue
		}
		addr := local + "@" + domain
		if seen[addr] {
			continue
		}
		seen[addr] = true

		sig := f.verifier.Verify(ctx, addr)
		if !sig.SMTPAccepts || sig.CatchAll {
			zap.L().Debug("inference: fallback candidate not accepted",
				zap.String("address", addr),
				zap.Bool("catch_all", sig.CatchAll),
				zap.Int("smtp_code", sig.SMTPCode),
			)
			continue
		}
		out = append(out, FallbackMatch{
			Candidate: model.Candidate{
				Address:     addr,
				PatternUsed: t,
				Status:      model.StatusValid,
				Confidence:  FallbackConfidence,
			},
			Signal: sig,
		})
		zap.L().Info("inference: fallback candidate accepted", zap.String("address", addr))
	}
	return out, nil
}
