package model

import "time"

// Origin separates facts from guesses.
type Origin string

const (
	// OriginDiscovered addresses were found in public content.
	OriginDiscovered Origin = "discovered"
	// OriginVerificationInferred addresses were generated without a pattern
	// and kept only because the mail server accepted them.
	OriginVerificationInferred Origin = "verification_inferred"
	// OriginInferred addresses were rendered from a learned pattern.
	OriginInferred Origin = "inferred"
)

// SortGroup returns the output group index: facts first, pure guesses last.
func (o Origin) SortGroup() int {
	switch o {
	case OriginDiscovered:
		return 0
	case OriginVerificationInferred:
		return 1
	default:
		return 2
	}
}

// ConfidenceRecord holds the three independent confidence layers for one
// address. Existence is factual, association is probabilistic and
// deliverability is practical and decays.
type ConfidenceRecord struct {
	Exists         bool      `json:"exists" yaml:"exists"`
	Existence      float64   `json:"existence_confidence" yaml:"existence_confidence"`
	Association    float64   `json:"association_confidence" yaml:"association_confidence"`
	Deliverability float64   `json:"deliverability_confidence" yaml:"deliverability_confidence"`
	DecayFactor    float64   `json:"decay_factor" yaml:"decay_factor"`
	IsFactual      bool      `json:"is_factual" yaml:"is_factual"`
	NoDecay        bool      `json:"no_decay" yaml:"no_decay"` // existence is exempt from decay
	SkipWeighting  bool      `json:"skip_pattern_weighting" yaml:"skip_pattern_weighting"`
	Displayable    bool      `json:"displayable" yaml:"displayable"`
	Display        Display   `json:"display_confidence" yaml:"display_confidence"`
	AsOf           time.Time `json:"as_of" yaml:"as_of"`
}

// Display is the user-facing confidence shape: a scalar for domain search
// or an exists/matches-person pair for person search.
type Display struct {
	Confidence    *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Exists        *bool    `json:"exists,omitempty" yaml:"exists,omitempty"`
	MatchesPerson *float64 `json:"matches_person,omitempty" yaml:"matches_person,omitempty"`
}

// EmailRecord is one entry of the final, ordered result list.
type EmailRecord struct {
	Address       string             `json:"address" yaml:"address"`
	Domain        string             `json:"domain" yaml:"domain"`
	Origin        Origin             `json:"origin" yaml:"origin"`
	Source        Source             `json:"source,omitempty" yaml:"source,omitempty"`
	Type          EmailType          `json:"email_type" yaml:"email_type"`
	RoleBased     bool               `json:"role_based" yaml:"role_based"`
	Occurrences   int                `json:"occurrences,omitempty" yaml:"occurrences,omitempty"`
	PatternUsed   Template           `json:"pattern_used,omitempty" yaml:"pattern_used,omitempty"`
	Status        VerificationStatus `json:"verification_status" yaml:"verification_status"`
	Confidence    float64            `json:"confidence" yaml:"confidence"`
	Layers        ConfidenceRecord   `json:"layers" yaml:"layers"`
	ShowByDefault bool               `json:"show_by_default" yaml:"show_by_default"`
	Label         string             `json:"label" yaml:"label"`
	VerifiedAt    time.Time          `json:"verified_at,omitempty" yaml:"verified_at,omitempty"`
	Reverify      bool               `json:"reverify,omitempty" yaml:"reverify,omitempty"`
}

// IsFact reports whether the record is backed by public content or an
// explicit server acceptance.
func (r EmailRecord) IsFact() bool {
	return r.Origin == OriginDiscovered || r.Origin == OriginVerificationInferred
}
