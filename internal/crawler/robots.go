package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RawFetcher fetches a URL without interpreting the status code.
type RawFetcher interface {
	Get(ctx context.Context, rawURL string) (int, []byte, error)
}

// Robots holds robots.txt rules per host for one user agent.
type Robots struct {
	agent  string
	logger *slog.Logger

	mu     sync.RWMutex
	groups map[string]*robotstxt.Group
}

// NewRobots returns an empty rule set for agent. Hosts without loaded
// rules are allowed.
func NewRobots(agent string, logger *slog.Logger) *Robots {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Robots{
		agent:  agent,
		logger: logger,
		groups: make(map[string]*robotstxt.Group),
	}
}

// Load fetches robots.txt for the host of urlKey. Network failures leave
// the host unrestricted.
func (r *Robots) Load(ctx context.Context, fetcher RawFetcher, urlKey string) error {
	u, err := url.Parse(urlKey)
	if err != nil {
		return err
	}
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"

	status, body, err := fetcher.Get(ctx, robotsURL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Warn("robots.txt unavailable", "url", robotsURL, "error", err)
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		r.logger.Warn("robots.txt unparseable", "url", robotsURL, "error", err)
		return nil
	}

	group := data.FindGroup(r.agent)
	if group == nil {
		return nil
	}

	r.mu.Lock()
	r.groups[hostOf(urlKey)] = group
	r.mu.Unlock()

	r.logger.Debug("robots.txt loaded", "url", robotsURL, "crawl_delay", group.CrawlDelay)
	return nil
}

// Allowed reports whether urlKey may be fetched.
func (r *Robots) Allowed(urlKey string) bool {
	if r == nil {
		return true
	}
	u, err := url.Parse(urlKey)
	if err != nil {
		return false
	}

	r.mu.RLock()
	group, ok := r.groups[hostOf(urlKey)]
	r.mu.RUnlock()
	if !ok {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path)
}

// CrawlDelay returns the largest crawl-delay over all loaded hosts.
func (r *Robots) CrawlDelay() time.Duration {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var delay time.Duration
	for _, g := range r.groups {
		if g.CrawlDelay > delay {
			delay = g.CrawlDelay
		}
	}
	return delay
}
