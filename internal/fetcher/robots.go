package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// robotsEntry holds the parsed robots.txt for one origin. data is nil when
// the file was missing or unreadable, which allows everything.
type robotsEntry struct {
	once      sync.Once
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// robotsCache fetches robots.txt at most once per origin per TTL.
type robotsCache struct {
	agent string
	ttl   time.Duration
	load  func(ctx context.Context, robotsURL string) (int, []byte, error)

	mu      sync.Mutex
	entries *lru.Cache[string, *robotsEntry]
}

func newRobotsCache(agent string, ttl time.Duration, size int, load func(ctx context.Context, robotsURL string) (int, []byte, error)) *robotsCache {
	if size <= 0 {
		size = 256
	}
	entries, _ := lru.New[string, *robotsEntry](size)
	return &robotsCache{agent: agent, ttl: ttl, load: load, entries: entries}
}

func (c *robotsCache) entry(origin string) *robotsEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries.Get(origin); ok {
		if c.ttl <= 0 || time.Since(e.fetchedAt) < c.ttl {
			return e
		}
	}
	e := &robotsEntry{fetchedAt: time.Now()}
	c.entries.Add(origin, e)
	return e
}

// Allowed reports whether u may be crawled. Any failure to fetch or parse
// robots.txt allows the request.
func (c *robotsCache) Allowed(ctx context.Context, u *url.URL) bool {
	origin := u.Scheme + "://" + u.Host
	e := c.entry(origin)
	e.once.Do(func() {
		status, body, err := c.load(ctx, origin+"/robots.txt")
		if err != nil || status != http.StatusOK {
			return
		}
		data, err := robotstxt.FromBytes(body)
		if err != nil {
			zap.L().Debug("robots: parse failed, allowing all",
				zap.String("origin", origin),
				zap.Error(err),
			)
			return
		}
		e.data = data
	})
	if e.data == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return e.data.TestAgent(path, c.agent)
}

// readRobots reads at most 512KB of a robots.txt body.
func readRobots(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, 512<<10))
}
