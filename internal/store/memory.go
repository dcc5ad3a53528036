package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sells-group/email-finder/internal/model"
)

// MemoryStore keeps patterns in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	now     func() time.Time
}

var _ PatternStore = (*MemoryStore)(nil)

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record), now: time.Now}
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }
func (s *MemoryStore) Close() error                  { return nil }

func (s *MemoryStore) GetPattern(_ context.Context, domain string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[normalizeDomain(domain)]
	if !ok {
		return nil, nil
	}
	return copyRecord(r), nil
}

func (s *MemoryStore) SavePattern(_ context.Context, p model.Pattern) (*Record, error) {
	p.Domain = normalizeDomain(p.Domain)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[p.Domain]
	if ok && r.Pattern.Template == p.Template {
		r.Pattern.SampleSize = p.SampleSize
		r.Pattern.Matches = p.Matches
		r.UpdatedAt = s.now().UTC()
		return copyRecord(r), nil
	}
	r = &Record{Pattern: p, UpdatedAt: s.now().UTC()}
	s.records[p.Domain] = r
	return copyRecord(r), nil
}

func (s *MemoryStore) ImportPatterns(_ context.Context, patterns []model.Pattern) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range patterns {
		p.Domain = normalizeDomain(p.Domain)
		r, ok := s.records[p.Domain]
		if !ok {
			r = &Record{}
			s.records[p.Domain] = r
		}
		r.Pattern = p
		r.UpdatedAt = s.now().UTC()
	}
	return int64(len(patterns)), nil
}

func (s *MemoryStore) RecordVerification(_ context.Context, domain string, success bool) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[normalizeDomain(domain)]
	if !ok {
		return nil, nil
	}
	r.Verifications++
	if success {
		r.Successes++
	}
	r.UpdatedAt = s.now().UTC()
	return copyRecord(r), nil
}

func (s *MemoryStore) SetConfidence(_ context.Context, domain string, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[normalizeDomain(domain)]; ok {
		r.Pattern.Confidence = confidence
		r.UpdatedAt = s.now().UTC()
	}
	return nil
}

func (s *MemoryStore) ListPatterns(_ context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, *copyRecord(r))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Pattern.Domain < out[j].Pattern.Domain })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyRecord(r *Record) *Record {
	c := *r
	if r.Pattern.Matches != nil {
		c.Pattern.Matches = make(map[model.Template]int, len(r.Pattern.Matches))
		for k, v := range r.Pattern.Matches {
			c.Pattern.Matches[k] = v
		}
	}
	return &c
}
