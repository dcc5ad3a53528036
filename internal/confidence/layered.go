// Package confidence scores addresses on three independent layers:
// existence (fact), association with a person (probability) and
// deliverability (practical, decays). It also enforces the output rules
// that keep facts and guesses apart.
package confidence

import (
	"math"
	"time"

	"github.com/sells-group/email-finder/internal/model"
)

// Layer constants.
const (
	// MinPatternConfidence is the least pattern confidence that may feed
	// person association.
	MinPatternConfidence = 0.6
	// Ceiling bounds every probabilistic score. Only existence reaches 1.0.
	Ceiling = 0.95

	associationPatternWeight = 0.4
	associationAcceptBoost   = 0.55
	associationCatchAllBoost = 0.10

	deliverabilityFresh    = 0.95
	deliverabilityAged     = 0.90
	deliverabilityStale    = 0.85
	deliverabilityCatchAll = 0.5
	deliverabilityUnknown  = 0.3

	agedAfter  = 30 * 24 * time.Hour
	staleAfter = 180 * 24 * time.Hour
)

// Input is everything the engine needs to score one address.
type Input struct {
	Origin            model.Origin
	Signal            *model.SMTPSignal
	PatternUsed       model.Template
	PatternConfidence float64
	PersonSearch      bool
}

// Existence reports whether the address is known to exist. Discovered
// addresses always exist. Fallback addresses exist once a server accepted
// them. Pattern guesses never do.
func Existence(origin model.Origin, sig *model.SMTPSignal) (bool, float64) {
	switch origin {
	case model.OriginDiscovered:
		return true, 1.0
	case model.OriginVerificationInferred:
		if sig != nil && sig.SMTPAccepts {
			return true, 1.0
		}
	}
	return false, 0
}

// Association scores how likely a generated address belongs to the
// searched person. It is zero without a confirmed pattern and never
// exceeds Ceiling.
func Association(pattern model.Template, patternConfidence float64, sig *model.SMTPSignal) float64 {
	if pattern == "" || patternConfidence < MinPatternConfidence {
		return 0
	}
	score := patternConfidence * associationPatternWeight
	if sig != nil {
		switch {
		case sig.CatchAll:
			score += associationCatchAllBoost
		case sig.SMTPAccepts:
			score += associationAcceptBoost
		}
	}
	return math.Min(score, Ceiling)
}

// Deliverability scores whether mail sent today would arrive. The second
// result is false when no verification signal exists.
func Deliverability(sig *model.SMTPSignal, age time.Duration) (float64, bool) {
	if sig == nil {
		return 0, false
	}
	switch {
	case !sig.SyntaxValid, !sig.MXValid, sig.Rejected():
		return 0, true
	case sig.CatchAll:
		return deliverabilityCatchAll, true
	case sig.SMTPAccepts:
		switch {
		case age > staleAfter:
			return deliverabilityStale, true
		case age > agedAfter:
			return deliverabilityAged, true
		default:
			return deliverabilityFresh, true
		}
	default:
		return deliverabilityUnknown, true
	}
}

// Engine combines the layers into a ConfidenceRecord.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an Engine.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Score computes all applicable layers for in. A record whose existence is
// not established carries its scores but is not displayable.
func (e *Engine) Score(in Input) model.ConfidenceRecord {
	now := e.now().UTC()
	rec := model.ConfidenceRecord{AsOf: now, DecayFactor: 1}

	var age time.Duration
	if in.Signal != nil && !in.Signal.CheckedAt.IsZero() {
		age = now.Sub(in.Signal.CheckedAt)
	}
	if d, ok := Deliverability(in.Signal, age); ok {
		rec.Deliverability = d
	}

	associated := in.PersonSearch && in.Origin != model.OriginDiscovered
	if associated {
		rec.Association = Association(in.PatternUsed, in.PatternConfidence, in.Signal)
	}

	exists, existence := Existence(in.Origin, in.Signal)
	if !exists {
		return rec
	}

	rec.Exists = true
	rec.Existence = existence
	rec.IsFactual = true
	rec.Displayable = true
	if associated {
		yes := true
		match := rec.Association
		rec.Display = model.Display{Exists: &yes, MatchesPerson: &match}
	} else {
		one := 1.0
		rec.Display = model.Display{Confidence: &one}
	}
	return rec
}
