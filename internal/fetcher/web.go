package fetcher

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/email-finder/internal/gate"
	"github.com/sells-group/email-finder/internal/resilience"
)

// Options configures the web fetcher.
type Options struct {
	UserAgents []string
	// RobotsAgent is the product token matched against robots.txt groups.
	RobotsAgent  string
	Timeout      time.Duration
	MaxRetries   int
	MaxBodyBytes int64
	Backoff      resilience.Backoff
	RobotsTTL    time.Duration
	Client       *http.Client
}

func (o Options) withDefaults() Options {
	if o.RobotsAgent == "" {
		o.RobotsAgent = "emailfinder"
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 2 << 20
	}
	if o.Backoff == (resilience.Backoff{}) {
		o.Backoff = resilience.Backoff{Initial: time.Second, Max: 30 * time.Second, Multiplier: 2, Jitter: 0.25}
	}
	if o.RobotsTTL <= 0 {
		o.RobotsTTL = time.Hour
	}
	return o
}

// WebFetcher fetches company pages through a per-domain gate.
type WebFetcher struct {
	client *http.Client
	opts   Options
	gates  *gate.Registry
	agents *agentPool
	robots *robotsCache
}

// NewWebFetcher creates a WebFetcher that throttles through gates.
func NewWebFetcher(gates *gate.Registry, opts Options) *WebFetcher {
	opts = opts.withDefaults()
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: opts.Timeout,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}
	f := &WebFetcher{
		client: client,
		opts:   opts,
		gates:  gates,
		agents: newAgentPool(opts.UserAgents),
	}
	f.robots = newRobotsCache(opts.RobotsAgent, opts.RobotsTTL, 256, f.loadRobots)
	return f
}

// Fetch retrieves rawURL. It never returns an error: every failure is
// reported through Result.Failure.
func (f *WebFetcher) Fetch(ctx context.Context, rawURL string) Result {
	res := Result{URL: rawURL, Failure: FailureError}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		res.Err = eris.Errorf("fetcher: invalid url %q", rawURL)
		return res
	}

	if !f.robots.Allowed(ctx, u) {
		zap.L().Info("fetcher: disallowed by robots.txt", zap.String("url", rawURL))
		res.Failure = FailureRobots
		return res
	}

	g := f.gates.For(u.Hostname())
	timeouts := 0
	throttled := 0
	for {
		res.Attempts++
		status, header, body, finalURL, err := f.attempt(ctx, g, rawURL)
		if err != nil {
			res.Err = err
			if resilience.IsTimeout(err) {
				res.Failure = FailureTimeout
				timeouts++
				// One more try after a timeout, then give up.
				if timeouts <= 1 && ctx.Err() == nil {
					continue
				}
				return res
			}
			res.Failure = FailureError
			return res
		}

		res.StatusCode = status
		res.FinalURL = finalURL

		if block := DetectBlock(status, header, body); block != BlockNone {
			res.Failure = FailureBlocked
			res.Block = block
			res.Err = eris.Errorf("fetcher: %s block on %s", block, rawURL)
			return res
		}

		if resilience.IsRetryableStatus(status) {
			g.OnThrottle()
			res.Err = resilience.NewTransientError(eris.Errorf("http %d from %s", status, rawURL), status)
			res.Failure = FailureError
			if throttled >= f.opts.MaxRetries {
				return res
			}
			zap.L().Debug("fetcher: throttled, backing off",
				zap.String("url", rawURL),
				zap.Int("status", status),
				zap.Int("attempt", res.Attempts),
			)
			if !f.opts.Backoff.Sleep(ctx, throttled) {
				res.Failure = FailureTimeout
				return res
			}
			throttled++
			continue
		}

		if status != http.StatusOK {
			res.Failure = FailureError
			res.Err = eris.Errorf("fetcher: unexpected status %d from %s", status, rawURL)
			return res
		}

		if !isMarkup(header.Get("Content-Type")) {
			res.Failure = FailureError
			res.Err = eris.Errorf("fetcher: unsupported content type %q", header.Get("Content-Type"))
			return res
		}

		g.OnSuccess()
		res.Body = string(body)
		res.Failure = FailureNone
		res.Err = nil
		return res
	}
}

// attempt performs one gated GET with its own timeout.
func (f *WebFetcher) attempt(ctx context.Context, g *gate.Gate, rawURL string) (int, http.Header, []byte, string, error) {
	release, err := g.Acquire(ctx)
	if err != nil {
		return 0, nil, nil, "", err
	}
	defer release()

	reqCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, nil, "", eris.Wrap(err, "fetcher: create request")
	}
	setBrowserHeaders(req, f.agents.pick())

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, nil, "", eris.Wrapf(err, "fetcher: get %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return 0, nil, nil, "", eris.Wrapf(err, "fetcher: read %s", rawURL)
	}
	return resp.StatusCode, resp.Header, body, resp.Request.URL.String(), nil
}

func (f *WebFetcher) loadRobots(ctx context.Context, robotsURL string) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return 0, nil, eris.Wrap(err, "fetcher: create robots request")
	}
	setBrowserHeaders(req, f.agents.pick())

	resp, err := f.client.Do(req)
	if err != nil {
		zap.L().Debug("fetcher: robots.txt unavailable, allowing all",
			zap.String("url", robotsURL),
			zap.Error(err),
		)
		return 0, nil, eris.Wrap(err, "fetcher: get robots.txt")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := readRobots(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, eris.Wrap(err, "fetcher: read robots.txt")
	}
	return resp.StatusCode, body, nil
}

// isMarkup reports whether a Content-Type can hold extractable text. A
// missing header is accepted.
func isMarkup(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return true
	}
	return strings.HasPrefix(mt, "text/") || strings.Contains(mt, "html") || strings.Contains(mt, "xml")
}
