package model

import "time"

// RunStatus summarizes how a discovery run went from aggregate counts.
type RunStatus string

const (
	RunStatusSuccess   RunStatus = "success"
	RunStatusPartial   RunStatus = "partial"
	RunStatusBlocked   RunStatus = "blocked"
	RunStatusFailed    RunStatus = "failed"
	RunStatusNoContent RunStatus = "no_content"
)

// RunStats aggregates counters for one search.
type RunStats struct {
	RunID          string        `json:"run_id" yaml:"run_id"`
	Domain         string        `json:"domain" yaml:"domain"`
	Status         RunStatus     `json:"status" yaml:"status"`
	PagesAttempted int           `json:"pages_attempted" yaml:"pages_attempted"`
	PagesFetched   int           `json:"pages_fetched" yaml:"pages_fetched"`
	PagesFailed    int           `json:"pages_failed" yaml:"pages_failed"`
	RobotsSkipped  int           `json:"robots_skipped" yaml:"robots_skipped"`
	Blocked        int           `json:"blocked" yaml:"blocked"`
	Timeouts       int           `json:"timeouts" yaml:"timeouts"`
	UsedHTTP       bool          `json:"used_http_fallback" yaml:"used_http_fallback"`
	WorkCount      int           `json:"work_count" yaml:"work_count"`
	PersonalCount  int           `json:"personal_count" yaml:"personal_count"`
	FallbackUsed   bool          `json:"fallback_used" yaml:"fallback_used"`
	AllFacts       bool          `json:"all_facts" yaml:"all_facts"`
	TimedOut       bool          `json:"timed_out" yaml:"timed_out"`
	StartedAt      time.Time     `json:"started_at" yaml:"started_at"`
	Duration       time.Duration `json:"duration" yaml:"duration"`
}

// SearchResult is the full output of one domain or person search.
type SearchResult struct {
	Domain     string            `json:"domain" yaml:"domain"`
	Person     *PersonName       `json:"person,omitempty" yaml:"person,omitempty"`
	Discovered []DiscoveredEmail `json:"discovered" yaml:"discovered"`
	Names      []string          `json:"names,omitempty" yaml:"names,omitempty"`
	Pattern    *Pattern          `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Candidates []Candidate       `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	Records    []EmailRecord     `json:"records" yaml:"records"`
	Stats      RunStats          `json:"stats" yaml:"stats"`
}
