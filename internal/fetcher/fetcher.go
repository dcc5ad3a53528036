// Package fetcher retrieves company web pages politely: robots.txt aware,
// throttled per domain and retried on overload. Failures are returned as
// data, never as errors.
package fetcher

import "context"

// FailureReason explains why a fetch produced no content.
type FailureReason string

const (
	FailureNone    FailureReason = "none"
	FailureRobots  FailureReason = "robots"
	FailureTimeout FailureReason = "timeout"
	FailureError   FailureReason = "error"
	FailureBlocked FailureReason = "blocked"
)

// Result is the outcome of fetching one URL.
type Result struct {
	URL        string        `json:"url"`
	FinalURL   string        `json:"final_url,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
	Body       string        `json:"-"`
	Failure    FailureReason `json:"failure"`
	Block      BlockType     `json:"block,omitempty"`
	Attempts   int           `json:"attempts"`
	Err        error         `json:"-"`
}

// OK reports whether the fetch produced content.
func (r Result) OK() bool {
	return r.Failure == FailureNone
}

// Fetcher retrieves a single page.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) Result
}
