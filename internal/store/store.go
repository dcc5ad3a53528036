// Package store persists learned email patterns and their verification
// counters across searches.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/email-finder/internal/model"
)

// Record is the persisted state of one domain's pattern.
type Record struct {
	Pattern       model.Pattern `json:"pattern" yaml:"pattern"`
	Verifications int           `json:"verifications" yaml:"verifications"`
	Successes     int           `json:"successes" yaml:"successes"`
	UpdatedAt     time.Time     `json:"updated_at" yaml:"updated_at"`
}

// Stats returns the tracker view of the record.
func (r Record) Stats() model.PatternStats {
	return model.PatternStats{
		Domain:        r.Pattern.Domain,
		Template:      r.Pattern.Template,
		Confidence:    r.Pattern.Confidence,
		Verifications: r.Verifications,
		Successes:     r.Successes,
		UpdatedAt:     r.UpdatedAt,
	}
}

// PatternStore persists patterns keyed by domain.
type PatternStore interface {
	// GetPattern returns nil, nil when the domain has no pattern.
	GetPattern(ctx context.Context, domain string) (*Record, error)
	// SavePattern upserts p. A domain that keeps its template keeps its
	// tracked confidence and counters; a new template starts fresh.
	SavePattern(ctx context.Context, p model.Pattern) (*Record, error)
	// ImportPatterns overwrites template and confidence for each pattern.
	ImportPatterns(ctx context.Context, patterns []model.Pattern) (int64, error)
	// RecordVerification bumps the counters and returns the updated record,
	// or nil, nil when the domain has no pattern.
	RecordVerification(ctx context.Context, domain string, success bool) (*Record, error)
	SetConfidence(ctx context.Context, domain string, confidence float64) error
	ListPatterns(ctx context.Context, limit int) ([]Record, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store for driver.
func Open(ctx context.Context, driver, databaseURL string) (PatternStore, error) {
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(databaseURL)
	case "postgres":
		return NewPostgres(ctx, databaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

func normalizeDomain(domain string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
}

const defaultListLimit = 100
