package confidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/email-finder/internal/model"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func signal(mut func(*model.SMTPSignal)) *model.SMTPSignal {
	s := &model.SMTPSignal{SyntaxValid: true, MXValid: true, MXHost: "mx.acme.com", CheckedAt: fixedNow}
	if mut != nil {
		mut(s)
	}
	return s
}

func accepted(s *model.SMTPSignal) { s.SMTPAccepts = true; s.SMTPCode = 250 }
func catchAll(s *model.SMTPSignal) { s.SMTPAccepts = true; s.CatchAll = true; s.SMTPCode = 250 }
func rejected(s *model.SMTPSignal) { s.SMTPCode = 550 }

func TestExistence(t *testing.T) {
	tests := []struct {
		name   string
		origin model.Origin
		sig    *model.SMTPSignal
		exists bool
	}{
		{"discovered without signal", model.OriginDiscovered, nil, true},
		{"discovered even when rejected", model.OriginDiscovered, signal(rejected), true},
		{"fallback accepted", model.OriginVerificationInferred, signal(accepted), true},
		{"fallback unverified", model.OriginVerificationInferred, signal(nil), false},
		{"inferred accepted", model.OriginInferred, signal(accepted), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exists, conf := Existence(tt.origin, tt.sig)
			assert.Equal(t, tt.exists, exists)
			if tt.exists {
				assert.Equal(t, 1.0, conf)
			} else {
				assert.Zero(t, conf)
			}
		})
	}
}

func TestAssociation(t *testing.T) {
	tests := []struct {
		name    string
		pattern model.Template
		conf    float64
		sig     *model.SMTPSignal
		want    float64
	}{
		{"no pattern", "", 0.9, signal(accepted), 0},
		{"weak pattern", model.TemplateFirstDotLast, 0.59, signal(accepted), 0},
		{"pattern only", model.TemplateFirstDotLast, 0.8, nil, 0.32},
		{"accepted", model.TemplateFirstDotLast, 0.8, signal(accepted), 0.87},
		{"catch-all", model.TemplateFirstDotLast, 0.8, signal(catchAll), 0.42},
		{"capped", model.TemplateFirstDotLast, 1.0, signal(accepted), 0.95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Association(tt.pattern, tt.conf, tt.sig)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.Less(t, got, 1.0)
		})
	}
}

func TestDeliverability(t *testing.T) {
	tests := []struct {
		name string
		sig  *model.SMTPSignal
		age  time.Duration
		want float64
		ok   bool
	}{
		{"no signal", nil, 0, 0, false},
		{"bad syntax", &model.SMTPSignal{}, 0, 0, true},
		{"no mx", &model.SMTPSignal{SyntaxValid: true}, 0, 0, true},
		{"rejected", signal(rejected), 0, 0, true},
		{"catch-all", signal(catchAll), 0, 0.5, true},
		{"fresh", signal(accepted), time.Hour, 0.95, true},
		{"aged", signal(accepted), 31 * day, 0.90, true},
		{"stale", signal(accepted), 181 * day, 0.85, true},
		{"greylisted", signal(func(s *model.SMTPSignal) { s.Greylisted = true; s.SMTPCode = 451 }), 0, 0.3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Deliverability(tt.sig, tt.age)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func newTestEngine() *Engine {
	e := NewEngine()
	e.now = func() time.Time { return fixedNow }
	return e
}

func TestEngine_ScoreDiscoveredDomainSearch(t *testing.T) {
	rec := newTestEngine().Score(Input{Origin: model.OriginDiscovered})

	assert.True(t, rec.Exists)
	assert.Equal(t, 1.0, rec.Existence)
	assert.True(t, rec.Displayable)
	require.NotNil(t, rec.Display.Confidence)
	assert.Equal(t, 1.0, *rec.Display.Confidence)
	assert.Nil(t, rec.Display.MatchesPerson)
	assert.Zero(t, rec.Association)
}

func TestEngine_ScoreFallbackPersonSearch(t *testing.T) {
	rec := newTestEngine().Score(Input{
		Origin:       model.OriginVerificationInferred,
		Signal:       signal(accepted),
		PersonSearch: true,
	})

	assert.True(t, rec.Exists)
	assert.Equal(t, 0.95, rec.Deliverability)
	require.NotNil(t, rec.Display.Exists)
	assert.True(t, *rec.Display.Exists)
	require.NotNil(t, rec.Display.MatchesPerson)
	assert.Zero(t, *rec.Display.MatchesPerson, "no pattern means no association")
}

func TestEngine_ScoreInferredIsNotDisplayable(t *testing.T) {
	rec := newTestEngine().Score(Input{
		Origin:            model.OriginInferred,
		Signal:            signal(catchAll),
		PatternUsed:       model.TemplateFLast,
		PatternConfidence: 0.8,
		PersonSearch:      true,
	})

	assert.False(t, rec.Exists)
	assert.Zero(t, rec.Existence)
	assert.False(t, rec.Displayable)
	assert.InDelta(t, 0.42, rec.Association, 1e-9)
	assert.Equal(t, 0.5, rec.Deliverability)
	assert.Equal(t, 1.0, rec.DecayFactor)
	assert.Equal(t, fixedNow, rec.AsOf)
}
