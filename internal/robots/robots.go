// Package robots decides whether a page may be scraped according to its origin's
// robots.txt. Any failure to obtain a policy permits scraping.
package robots

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"github.com/jonathan/news-digest/internal/fetch"
	"github.com/jonathan/news-digest/internal/ratelimit"
	"github.com/temoto/robotstxt"
)

// Checker evaluates robots.txt rules. Parsed policies are cached per origin for
// the lifetime of the Checker.
type Checker struct {
	agent   string
	opts    *fetch.Options
	limiter *ratelimit.Limiter
	retrier ratelimit.Retrier
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData // nil entry means allow everything
}

// Config wires a Checker.
type Config struct {
	// UserAgent is the product token matched against robots.txt groups.
	UserAgent string
	Options   *fetch.Options
	Limiter   *ratelimit.Limiter
	Retrier   ratelimit.Retrier
	Logger    *slog.Logger
}

// NewChecker creates a Checker.
func NewChecker(cfg Config) *Checker {
	if cfg.UserAgent == "" {
		cfg.UserAgent = fetch.UserAgentName
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Checker{
		agent:   cfg.UserAgent,
		opts:    cfg.Options,
		limiter: cfg.Limiter,
		retrier: cfg.Retrier,
		logger:  cfg.Logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether pageURL may be fetched.
func (c *Checker) Allowed(ctx context.Context, pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return true
	}

	policy := c.policy(ctx, u.Scheme+"://"+u.Host)
	if policy == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return policy.TestAgent(path, c.agent)
}

func (c *Checker) policy(ctx context.Context, origin string) *robotstxt.RobotsData {
	c.mu.Lock()
	cached, ok := c.cache[origin]
	c.mu.Unlock()
	if ok {
		return cached
	}

	policy := c.load(ctx, origin)

	c.mu.Lock()
	c.cache[origin] = policy
	c.mu.Unlock()
	return policy
}

func (c *Checker) load(ctx context.Context, origin string) *robotstxt.RobotsData {
	robotsURL := origin + "/robots.txt"

	result, err := ratelimit.Call(ctx, c.limiter, c.retrier, func(ctx context.Context) (*fetch.Result, error) {
		result, err := fetch.URL(ctx, robotsURL, c.opts)
		if result != nil {
			// An HTTP status is a definitive answer and is not retried
			return result, nil
		}
		return nil, err
	})
	if err != nil {
		c.logger.Debug("robots.txt unavailable, allowing", "url", robotsURL, "error", err)
		return nil
	}
	if result.StatusCode < 200 || result.StatusCode > 299 {
		c.logger.Debug("robots.txt returned non-success status, allowing", "url", robotsURL, "status", result.StatusCode)
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(result.StatusCode, []byte(result.HTML))
	if err != nil {
		c.logger.Debug("robots.txt could not be parsed, allowing", "url", robotsURL, "error", err)
		return nil
	}
	return data
}
