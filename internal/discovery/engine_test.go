package discovery

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/email-finder/internal/fetcher"
	"github.com/sells-group/email-finder/internal/model"
)

// fakeFetcher serves canned results keyed by URL.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	fail  func(url string) fetcher.FailureReason
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) fetcher.Result {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	if f.fail != nil {
		if reason := f.fail(url); reason != fetcher.FailureNone {
			return fetcher.Result{URL: url, Failure: reason, Err: eris.New("fake failure")}
		}
	}
	body, ok := f.pages[url]
	if !ok {
		body = "<html><body><p>Nothing here.</p></body></html>"
	}
	return fetcher.Result{URL: url, FinalURL: url, StatusCode: 200, Body: body, Failure: fetcher.FailureNone}
}

func (f *fakeFetcher) called(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

var testPaths = []string{"/", "/contact", "/about"}

func findEmail(t *testing.T, emails []model.DiscoveredEmail, addr string) model.DiscoveredEmail {
	t.Helper()
	for _, e := range emails {
		if e.Address == addr {
			return e
		}
	}
	require.Failf(t, "email not found", "%s not in result", addr)
	return model.DiscoveredEmail{}
}

func TestDiscover_CountsOccurrencesPerPage(t *testing.T) {
	footer := `<html><body><main>Welcome</main><footer>Reach us at sales@acme.com</footer></body></html>`
	f := &fakeFetcher{pages: map[string]string{
		"https://acme.com/":        footer,
		"https://acme.com/contact": footer,
		"https://acme.com/about":   footer,
	}}
	e := NewEngine(f, nil, Options{Paths: testPaths})

	res, err := e.Discover(context.Background(), "acme.com")
	require.NoError(t, err)

	got := findEmail(t, res.Emails, "sales@acme.com")
	assert.Equal(t, 3, got.Occurrences)
	assert.Equal(t, model.SourceFooter, got.Source)
	assert.Equal(t, model.EmailTypeWork, got.Type)
	assert.True(t, got.RoleBased)
	assert.InDelta(t, 0.15, got.Boost, 0.0001)
	assert.Equal(t, model.RunStatusSuccess, res.Stats.Status)
	assert.Equal(t, 3, res.Stats.PagesFetched)
	assert.Equal(t, 1, res.Stats.WorkCount)
	assert.NotEmpty(t, res.Stats.RunID)
}

func TestDiscover_NoiseFilter(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://acme.com/":        `<html><body><p>Old note from jane.doe@acme.com</p><a href="mailto:john.smith@acme.com">Email John</a></body></html>`,
		"https://acme.com/contact": `<html><body><p>Our founder: founder.personal@gmail.com</p></body></html>`,
	}}
	e := NewEngine(f, nil, Options{Paths: testPaths})

	res, err := e.Discover(context.Background(), "acme.com")
	require.NoError(t, err)

	addrs := make([]string, 0, len(res.Emails))
	for _, em := range res.Emails {
		addrs = append(addrs, em.Address)
	}
	assert.Contains(t, addrs, "john.smith@acme.com")
	assert.Contains(t, addrs, "founder.personal@gmail.com")
	assert.NotContains(t, addrs, "jane.doe@acme.com")
	assert.Equal(t, 1, res.Dropped)

	// mailto outranks contact-page text.
	assert.Equal(t, "john.smith@acme.com", res.Emails[0].Address)
	personal := findEmail(t, res.Emails, "founder.personal@gmail.com")
	assert.Equal(t, model.EmailTypePersonal, personal.Type)
	assert.Equal(t, 1, res.Stats.PersonalCount)
}

func TestDiscover_RoleFallbacksWhenNoWorkEmail(t *testing.T) {
	f := &fakeFetcher{}
	e := NewEngine(f, nil, Options{Paths: testPaths})

	res, err := e.Discover(context.Background(), "www.Acme.com")
	require.NoError(t, err)

	assert.Equal(t, "acme.com", res.Domain)
	require.Len(t, res.Emails, len(FallbackLocalParts))
	for i, em := range res.Emails {
		assert.Equal(t, FallbackLocalParts[i]+"@acme.com", em.Address)
		assert.True(t, em.IsGenerated())
		assert.True(t, em.RoleBased)
	}
	assert.Empty(t, res.Discovered())
	assert.False(t, res.FoundWork())
	assert.Equal(t, model.RunStatusNoContent, res.Stats.Status)
}

func TestDiscover_HTTPFallback(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]string{
			"http://acme.com/contact": `<a href="mailto:hello@acme.com">hello@acme.com</a>`,
		},
		fail: func(url string) fetcher.FailureReason {
			if strings.HasPrefix(url, "https://") {
				return fetcher.FailureError
			}
			return fetcher.FailureNone
		},
	}
	e := NewEngine(f, nil, Options{Paths: testPaths, HTTPFallback: true})

	res, err := e.Discover(context.Background(), "acme.com")
	require.NoError(t, err)

	assert.True(t, res.Stats.UsedHTTP)
	assert.Equal(t, 3, f.called("https://"))
	assert.Equal(t, 3, f.called("http://"))
	got := findEmail(t, res.Emails, "hello@acme.com")
	assert.Equal(t, model.SourceMailto, got.Source)
	assert.Equal(t, "http://acme.com/contact", got.SourceURL)
	assert.Equal(t, model.RunStatusSuccess, res.Stats.Status)
}

func TestDiscover_NoHTTPFallbackWhenRobotsDisallow(t *testing.T) {
	f := &fakeFetcher{fail: func(string) fetcher.FailureReason { return fetcher.FailureRobots }}
	e := NewEngine(f, nil, Options{Paths: testPaths, HTTPFallback: true})

	res, err := e.Discover(context.Background(), "acme.com")
	require.NoError(t, err)

	assert.False(t, res.Stats.UsedHTTP)
	assert.Zero(t, f.called("http://"))
	assert.Equal(t, 3, res.Stats.RobotsSkipped)
	assert.Equal(t, model.RunStatusBlocked, res.Stats.Status)
}

func TestDiscover_BlockedEverywhere(t *testing.T) {
	f := &fakeFetcher{fail: func(string) fetcher.FailureReason { return fetcher.FailureBlocked }}
	e := NewEngine(f, nil, Options{Paths: testPaths, HTTPFallback: true})

	res, err := e.Discover(context.Background(), "acme.com")
	require.NoError(t, err)

	assert.True(t, res.Stats.UsedHTTP)
	assert.Equal(t, 6, res.Stats.Blocked)
	assert.Equal(t, model.RunStatusBlocked, res.Stats.Status)
}

func TestDiscover_FailedEverywhere(t *testing.T) {
	f := &fakeFetcher{fail: func(string) fetcher.FailureReason { return fetcher.FailureError }}
	e := NewEngine(f, nil, Options{Paths: testPaths})

	res, err := e.Discover(context.Background(), "acme.com")
	require.NoError(t, err)

	assert.False(t, res.Stats.UsedHTTP)
	assert.Equal(t, 3, res.Stats.PagesFailed)
	assert.Equal(t, model.RunStatusFailed, res.Stats.Status)
	// Fallbacks still fill the gap.
	assert.Len(t, res.Work(), len(FallbackLocalParts))
}

func TestDiscover_ExtraPaths(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://acme.com/offices": `<a href="mailto:offices@acme.com">Offices</a>`,
	}}
	e := NewEngine(f, nil, Options{Paths: testPaths, ExtraPaths: []string{"offices"}})

	res, err := e.Discover(context.Background(), "acme.com")
	require.NoError(t, err)

	assert.Equal(t, 4, res.Stats.PagesAttempted)
	findEmail(t, res.Emails, "offices@acme.com")
}

func TestDiscover_EmptyDomain(t *testing.T) {
	e := NewEngine(&fakeFetcher{}, nil, Options{})

	_, err := e.Discover(context.Background(), "  ")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrEmptyDomain)
}

func TestDiscover_DeadlineMarksTimedOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	e := NewEngine(&fakeFetcher{}, nil, Options{Paths: testPaths})
	res, err := e.Discover(ctx, "acme.com")
	require.NoError(t, err)
	assert.True(t, res.Stats.TimedOut)
}

func TestRunStatusFor(t *testing.T) {
	tests := []struct {
		name       string
		stats      model.RunStats
		discovered int
		want       model.RunStatus
	}{
		{"nothing attempted", model.RunStats{}, 0, model.RunStatusFailed},
		{"all robots", model.RunStats{PagesAttempted: 4, RobotsSkipped: 4}, 0, model.RunStatusBlocked},
		{"robots and blocks", model.RunStats{PagesAttempted: 4, RobotsSkipped: 2, Blocked: 2, PagesFailed: 2}, 0, model.RunStatusBlocked},
		{"errors", model.RunStats{PagesAttempted: 4, PagesFailed: 4}, 0, model.RunStatusFailed},
		{"no content", model.RunStats{PagesAttempted: 4, PagesFetched: 4}, 0, model.RunStatusNoContent},
		{"mostly failed", model.RunStats{PagesAttempted: 10, PagesFetched: 3, PagesFailed: 7}, 1, model.RunStatusPartial},
		{"timed out", model.RunStats{PagesAttempted: 4, PagesFetched: 4, TimedOut: true}, 2, model.RunStatusPartial},
		{"success", model.RunStats{PagesAttempted: 10, PagesFetched: 8, PagesFailed: 2}, 3, model.RunStatusSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RunStatusFor(tt.stats, tt.discovered))
		})
	}
}
