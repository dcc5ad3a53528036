package inference

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/email-finder/internal/model"
	"github.com/sells-group/email-finder/internal/store"
)

// Tracker bounds.
const (
	trackerMinVerifications = 2
	trackerBoostAfter       = 3
	trackerBoostRate        = 0.8
	trackerPenaltyRate      = 0.6
	trackerBoost            = 0.05
	trackerPenalty          = 0.10
	trackerCeiling          = 0.95
	trackerFloor            = 0.5
)

// AdjustConfidence nudges a pattern confidence from verification history.
// Fewer than two verifications leave it untouched.
func AdjustConfidence(current float64, s model.PatternStats) float64 {
	if s.Verifications < trackerMinVerifications {
		return current
	}
	rate := s.SuccessRate()
	switch {
	case rate >= trackerBoostRate && s.Verifications >= trackerBoostAfter:
		return math.Min(current+trackerBoost, trackerCeiling)
	case rate < trackerPenaltyRate:
		return math.Max(current-trackerPenalty, trackerFloor)
	default:
		return current
	}
}

// Tracker persists learned patterns and evolves their confidence from
// post-hoc verification results. Updates are eventually consistent with
// concurrent readers.
type Tracker struct {
	store store.PatternStore
}

// NewTracker creates a Tracker over s.
func NewTracker(s store.PatternStore) *Tracker {
	return &Tracker{store: s}
}

// Resolve merges a freshly detected pattern with what is stored for domain.
// A detection is persisted; a stored pattern with the same template keeps
// its tracked confidence. With no detection the stored pattern is returned.
// A store failure still returns the detection alongside the error.
func (t *Tracker) Resolve(ctx context.Context, domain string, detected *model.Pattern) (*model.Pattern, error) {
	if detected == nil {
		rec, err := t.store.GetPattern(ctx, domain)
		if err != nil {
			return nil, eris.Wrap(err, "inference: load pattern")
		}
		if rec == nil {
			return nil, nil
		}
		p := rec.Pattern
		return &p, nil
	}
	rec, err := t.store.SavePattern(ctx, *detected)
	if err != nil {
		return detected, eris.Wrap(err, "inference: save pattern")
	}
	p := *detected
	p.Confidence = rec.Pattern.Confidence
	return &p, nil
}

// RecordTest feeds one verification outcome back into the domain pattern.
// Only decisive outcomes count: valid is a success, invalid a failure.
func (t *Tracker) RecordTest(ctx context.Context, domain string, status model.VerificationStatus) (*model.PatternStats, error) {
	if status != model.StatusValid && status != model.StatusInvalid {
		return t.Stats(ctx, domain)
	}
	rec, err := t.store.RecordVerification(ctx, domain, status == model.StatusValid)
	if err != nil {
		return nil, eris.Wrap(err, "inference: record test")
	}
	if rec == nil {
		return nil, nil
	}

	stats := rec.Stats()
	next := AdjustConfidence(stats.Confidence, stats)
	if next != stats.Confidence {
		if err := t.store.SetConfidence(ctx, domain, next); err != nil {
			return nil, eris.Wrap(err, "inference: update pattern confidence")
		}
		zap.L().Info("inference: pattern confidence adjusted",
			zap.String("domain", domain),
			zap.String("template", string(stats.Template)),
			zap.Float64("from", stats.Confidence),
			zap.Float64("to", next),
			zap.Int("verifications", stats.Verifications),
			zap.Int("successes", stats.Successes),
		)
		stats.Confidence = next
	}
	return &stats, nil
}

// Stats returns the tracked history for domain, or nil when none exists.
func (t *Tracker) Stats(ctx context.Context, domain string) (*model.PatternStats, error) {
	rec, err := t.store.GetPattern(ctx, domain)
	if err != nil {
		return nil, eris.Wrap(err, "inference: pattern stats")
	}
	if rec == nil {
		return nil, nil
	}
	s := rec.Stats()
	return &s, nil
}
