package model

import "time"

// Template is a local-part naming convention such as "first.last".
type Template string

const (
	TemplateFirstDotLast   Template = "first.last"
	TemplateFirstUnderLast Template = "first_last"
	TemplateFirstDashLast  Template = "first-last"
	TemplateFDotLast       Template = "f.last"
	TemplateFLast          Template = "flast"
	TemplateFirstLast      Template = "firstlast"
	TemplateFUnderLast     Template = "f_last"
	TemplateLastDotFirst   Template = "last.first"
	TemplateLastFirst      Template = "lastfirst"
	TemplateFirst          Template = "first"
)

// Pattern is a learned local-part convention for a domain.
type Pattern struct {
	Domain     string           `json:"domain" yaml:"domain"`
	Template   Template         `json:"template" yaml:"template"`
	Confidence float64          `json:"confidence" yaml:"confidence"`
	SampleSize int              `json:"sample_size" yaml:"sample_size"`
	Matches    map[Template]int `json:"matches,omitempty" yaml:"matches,omitempty"`
}

// PatternStats tracks post-hoc verification outcomes for a domain pattern.
type PatternStats struct {
	Domain        string    `json:"domain" yaml:"domain"`
	Template      Template  `json:"template" yaml:"template"`
	Confidence    float64   `json:"confidence" yaml:"confidence"`
	Verifications int       `json:"verifications" yaml:"verifications"`
	Successes     int       `json:"successes" yaml:"successes"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at"`
}

// SuccessRate returns the share of verifications that succeeded.
func (s PatternStats) SuccessRate() float64 {
	if s.Verifications == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Verifications)
}

// Candidate is a generated address awaiting or carrying verification.
type Candidate struct {
	Address           string             `json:"address" yaml:"address"`
	PatternUsed       Template           `json:"pattern_used" yaml:"pattern_used"`
	PatternConfidence float64            `json:"pattern_confidence" yaml:"pattern_confidence"`
	Status            VerificationStatus `json:"verification_status" yaml:"verification_status"`
	Confidence        float64            `json:"confidence" yaml:"confidence"`
	Primary           bool               `json:"primary" yaml:"primary"`
}
