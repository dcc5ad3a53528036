package confidence

import (
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/email-finder/internal/model"
)

// ErrRuleViolation marks a record that breaks an output invariant. It is a
// programming error upstream, never a data condition.
var ErrRuleViolation = eris.New("confidence: rule violation")

// ShowThreshold is the least confidence a pattern guess needs to be shown
// by default.
const ShowThreshold = 0.75

// Labels shown next to each record.
const (
	LabelDiscovered         = "Found on company website"
	LabelDiscoveredPersonal = "Found on company website (personal email)"
	LabelFallback           = "Generated and verified (no public emails found)"
	LabelHidden             = "Generated (unverified) - not shown by default"
)

// GeneratedLabel is the label of a pattern guess shown by default.
func GeneratedLabel(confidence float64) string {
	return fmt.Sprintf("Generated + verified (%d%% confidence)", int(math.Round(confidence*100)))
}

// Enforcer applies the final output rules. It runs last and overrides
// anything upstream.
type Enforcer struct{}

// NewEnforcer creates an Enforcer.
func NewEnforcer() *Enforcer {
	return &Enforcer{}
}

// UseFallback reports whether blind fallback inference may run. Any
// discovered work address rules it out.
func (e *Enforcer) UseFallback(workCount int, allowed bool) bool {
	return allowed && workCount == 0
}

// LearningInput splits discovered addresses into those that may feed
// pattern learning and the personal ones that are shown but never learned
// from. Generated and role addresses are dropped from both.
func (e *Enforcer) LearningInput(emails []model.DiscoveredEmail) (work, personal []model.DiscoveredEmail) {
	for _, d := range emails {
		switch {
		case d.Type == model.EmailTypePersonal:
			personal = append(personal, d)
		case d.EligibleForLearning():
			work = append(work, d)
		}
	}
	return work, personal
}

// Enforce rewrites records in place per their origin, checks invariants and
// returns them in display order: discovered, then verification-inferred,
// then inferred, each by descending confidence. The sort is stable.
func (e *Enforcer) Enforce(records []model.EmailRecord) ([]model.EmailRecord, error) {
	for i := range records {
		r := &records[i]
		if err := check(r); err != nil {
			zap.L().Error("confidence: rule violation", zap.String("address", r.Address), zap.Error(err))
			return nil, err
		}
		switch r.Origin {
		case model.OriginDiscovered:
			enforceDiscovered(r)
		case model.OriginVerificationInferred:
			enforceFallback(r)
		default:
			enforceInferred(r)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		gi, gj := records[i].Origin.SortGroup(), records[j].Origin.SortGroup()
		if gi != gj {
			return gi < gj
		}
		return records[i].Confidence > records[j].Confidence
	})
	return records, nil
}

func check(r *model.EmailRecord) error {
	switch {
	case r.Layers.Association >= 1.0:
		return eris.Wrapf(ErrRuleViolation, "%s: association reached certainty", r.Address)
	case r.Origin == model.OriginVerificationInferred && r.Status != model.StatusValid:
		return eris.Wrapf(ErrRuleViolation, "%s: fallback address without server acceptance", r.Address)
	case r.Origin != model.OriginDiscovered && r.Type == model.EmailTypePersonal:
		return eris.Wrapf(ErrRuleViolation, "%s: generated address on a personal domain", r.Address)
	case r.Origin == model.OriginInferred && r.PatternUsed == "":
		return eris.Wrapf(ErrRuleViolation, "%s: inferred address without a pattern", r.Address)
	}
	return nil
}

func enforceDiscovered(r *model.EmailRecord) {
	r.Layers.Exists = true
	r.Layers.Existence = 1.0
	r.Layers.IsFactual = true
	r.Layers.NoDecay = true
	r.Layers.SkipWeighting = true
	r.Layers.Displayable = true
	r.Confidence = 1.0
	r.ShowByDefault = true
	if r.Type == model.EmailTypePersonal {
		r.Label = LabelDiscoveredPersonal
	} else {
		r.Label = LabelDiscovered
	}
}

func enforceFallback(r *model.EmailRecord) {
	r.Confidence = math.Min(r.Confidence, Ceiling)
	r.ShowByDefault = true
	r.Label = LabelFallback
}

func enforceInferred(r *model.EmailRecord) {
	r.Confidence = math.Min(r.Confidence, Ceiling)
	r.Layers.IsFactual = false
	r.ShowByDefault = r.Confidence >= ShowThreshold
	if r.ShowByDefault {
		r.Label = GeneratedLabel(r.Confidence)
	} else {
		r.Label = LabelHidden
	}
}
