package confidence

import (
	"math"
	"time"

	"github.com/sells-group/email-finder/internal/model"
)

// MaxDecay caps the total fraction any score can lose to age.
const MaxDecay = 0.5

const day = 24 * time.Hour

// Rate is a decay of Fraction per Period.
type Rate struct {
	Fraction float64
	Period   time.Duration
}

// PerDay returns the daily decay fraction.
func (r Rate) PerDay() float64 {
	if r.Period <= 0 {
		return 0
	}
	return r.Fraction / (float64(r.Period) / float64(day))
}

// RateFor returns the decay rate for an origin and verification status.
// Verified addresses decay slowly and guesses that were never confirmed
// decay fast.
func RateFor(origin model.Origin, status model.VerificationStatus) Rate {
	valid := status == model.StatusValid
	if origin == model.OriginDiscovered {
		if valid {
			return Rate{Fraction: 0.05, Period: 90 * day}
		}
		return Rate{Fraction: 0.10, Period: 30 * day}
	}
	if valid {
		return Rate{Fraction: 0.05, Period: 180 * day}
	}
	return Rate{Fraction: 0.20, Period: 7 * day}
}

// Reverification thresholds.
const (
	reverifyDiscoveredAfter = 180 * day
	reverifyInferredAfter   = 30 * day
	reverifyDeliverability  = 0.5
)

// DecayEngine ages association and deliverability. Existence is outside
// its reach: a record that exists keeps existence 1.0 at any age.
type DecayEngine struct {
	now func() time.Time
}

// NewDecayEngine creates a DecayEngine.
func NewDecayEngine() *DecayEngine {
	return &DecayEngine{now: time.Now}
}

// Factor returns the multiplier for a score of the given origin and status
// last confirmed at ref. A zero ref means fresh.
func (d *DecayEngine) Factor(origin model.Origin, status model.VerificationStatus, ref time.Time) float64 {
	if ref.IsZero() {
		return 1
	}
	days := math.Floor(d.now().Sub(ref).Hours() / 24)
	if days <= 0 {
		return 1
	}
	total := math.Min(RateFor(origin, status).PerDay()*days, MaxDecay)
	return 1 - total
}

// Apply decays a score. A discovered fact of 1.0 is returned untouched.
func (d *DecayEngine) Apply(base float64, origin model.Origin, status model.VerificationStatus, ref time.Time) float64 {
	if origin == model.OriginDiscovered && base == 1.0 {
		return base
	}
	return base * d.Factor(origin, status, ref)
}

// ShouldReverify reports whether an address is due for another SMTP check.
// Only status, age and deliverability matter. Existence and association
// never trigger it.
func (d *DecayEngine) ShouldReverify(origin model.Origin, status model.VerificationStatus, verifiedAt time.Time, deliverability float64) bool {
	if status != model.StatusValid {
		return true
	}
	age := d.now().Sub(verifiedAt)
	if verifiedAt.IsZero() {
		age = 0
	}
	switch {
	case origin == model.OriginDiscovered && age > reverifyDiscoveredAfter:
		return true
	case origin != model.OriginDiscovered && age > reverifyInferredAfter:
		return true
	}
	return deliverability < reverifyDeliverability
}

// Refresh re-ages rec as of now from its VerifiedAt time and reports whether
// it should be re-verified. Repeated calls do not compound: the previous
// factor is divided out before the new one is applied.
func (d *DecayEngine) Refresh(rec *model.EmailRecord) bool {
	layers := &rec.Layers
	prev := layers.DecayFactor
	if prev <= 0 {
		prev = 1
	}
	factor := d.Factor(rec.Origin, rec.Status, rec.VerifiedAt)

	layers.Deliverability = layers.Deliverability / prev * factor
	layers.Association = layers.Association / prev * factor
	layers.DecayFactor = factor
	layers.AsOf = d.now().UTC()
	if layers.Exists {
		layers.Existence = 1.0
	}
	if layers.Display.MatchesPerson != nil {
		match := layers.Association
		layers.Display.MatchesPerson = &match
	}
	if rec.Origin == model.OriginInferred {
		rec.Confidence = layers.Association
	}

	return d.ShouldReverify(rec.Origin, rec.Status, rec.VerifiedAt, layers.Deliverability)
}
