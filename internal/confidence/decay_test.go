package confidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/email-finder/internal/model"
)

func newTestDecay() *DecayEngine {
	d := NewDecayEngine()
	d.now = func() time.Time { return fixedNow }
	return d
}

func TestRateFor(t *testing.T) {
	tests := []struct {
		origin model.Origin
		status model.VerificationStatus
		perDay float64
	}{
		{model.OriginDiscovered, model.StatusValid, 0.05 / 90},
		{model.OriginDiscovered, model.StatusUnverified, 0.10 / 30},
		{model.OriginInferred, model.StatusValid, 0.05 / 180},
		{model.OriginInferred, model.StatusCatchAll, 0.20 / 7},
		{model.OriginVerificationInferred, model.StatusValid, 0.05 / 180},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.perDay, RateFor(tt.origin, tt.status).PerDay(), 1e-12, "%s/%s", tt.origin, tt.status)
	}
}

func TestDecayEngine_Factor(t *testing.T) {
	d := newTestDecay()

	assert.Equal(t, 1.0, d.Factor(model.OriginInferred, model.StatusValid, time.Time{}))
	assert.Equal(t, 1.0, d.Factor(model.OriginInferred, model.StatusValid, fixedNow.Add(-time.Hour)))
	assert.InDelta(t, 1-0.05/90*90, d.Factor(model.OriginDiscovered, model.StatusValid, fixedNow.Add(-90*day)), 1e-9)
	assert.InDelta(t, 0.5, d.Factor(model.OriginInferred, model.StatusUnverified, fixedNow.Add(-60*day)), 1e-9, "capped at 50%")
}

func TestDecayEngine_DiscoveredExistenceNeverDecays(t *testing.T) {
	d := newTestDecay()

	for _, age := range []time.Duration{0, 30 * day, 400 * day, 5000 * day} {
		got := d.Apply(1.0, model.OriginDiscovered, model.StatusUnverified, fixedNow.Add(-age))
		assert.Equal(t, 1.0, got)
	}
}

func TestDecayEngine_RefreshDiscoveredValidOldRecord(t *testing.T) {
	d := newTestDecay()
	rec := model.EmailRecord{
		Address:    "info@acme.com",
		Origin:     model.OriginDiscovered,
		Status:     model.StatusValid,
		VerifiedAt: fixedNow.Add(-400 * day),
		Layers: model.ConfidenceRecord{
			Exists:         true,
			Existence:      1.0,
			Deliverability: 0.85,
			DecayFactor:    1,
		},
	}

	reverify := d.Refresh(&rec)

	want := 0.85 * (1 - 0.05/90*400)
	assert.Equal(t, 1.0, rec.Layers.Existence)
	assert.InDelta(t, want, rec.Layers.Deliverability, 1e-9)
	assert.GreaterOrEqual(t, rec.Layers.Deliverability, 0.85*(1-MaxDecay))
	assert.True(t, reverify, "older than 180 days")
}

func TestDecayEngine_RefreshDoesNotCompound(t *testing.T) {
	d := newTestDecay()
	rec := model.EmailRecord{
		Origin:      model.OriginInferred,
		PatternUsed: model.TemplateFirstDotLast,
		Status:      model.StatusValid,
		VerifiedAt:  fixedNow.Add(-90 * day),
		Confidence:  0.9,
		Layers:      model.ConfidenceRecord{Association: 0.9, Deliverability: 0.9, DecayFactor: 1},
	}

	d.Refresh(&rec)
	first := rec.Layers.Association
	d.Refresh(&rec)

	assert.InDelta(t, first, rec.Layers.Association, 1e-12)
	assert.InDelta(t, 0.9*(1-0.05/180*90), first, 1e-9)
	assert.InDelta(t, first, rec.Confidence, 1e-12)
}

func TestDecayEngine_ShouldReverify(t *testing.T) {
	d := newTestDecay()
	tests := []struct {
		name           string
		origin         model.Origin
		status         model.VerificationStatus
		age            time.Duration
		deliverability float64
		want           bool
	}{
		{"not valid", model.OriginDiscovered, model.StatusCatchAll, 0, 0.9, true},
		{"fresh discovered", model.OriginDiscovered, model.StatusValid, 10 * day, 0.95, false},
		{"old discovered", model.OriginDiscovered, model.StatusValid, 181 * day, 0.95, true},
		{"discovered at 100 days", model.OriginDiscovered, model.StatusValid, 100 * day, 0.9, false},
		{"inferred at 31 days", model.OriginInferred, model.StatusValid, 31 * day, 0.9, true},
		{"low deliverability", model.OriginInferred, model.StatusValid, day, 0.49, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.ShouldReverify(tt.origin, tt.status, fixedNow.Add(-tt.age), tt.deliverability))
		})
	}
}
