// Package search collects article candidates from a web search API.
package search

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/news-digest/internal/ratelimit"
	"github.com/jonathan/news-digest/internal/types"
	"golang.org/x/sync/errgroup"
)

// PageSize is the number of results requested per search page.
const PageSize = 10

// Item is one search result.
type Item struct {
	Title   string
	Link    string
	Snippet string
}

// Searcher runs one page of a query. start is the 1-based index of the first result.
type Searcher interface {
	Search(ctx context.Context, query string, start int64) ([]Item, error)
}

// Resolver returns the final URL behind a redirector link.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}

// DefaultRedirectors are click-through hosts whose links hide the article URL.
var DefaultRedirectors = []string{
	"news.google.com",
	"google.com",
	"bing.com",
	"t.co",
	"lnkd.in",
	"feedproxy.google.com",
}

// DefaultJobPathPatterns mark job postings rather than articles.
var DefaultJobPathPatterns = []string{"/jobs/", "/job/", "/career/", "/careers/"}

// Config wires a Collector.
type Config struct {
	Searcher Searcher
	// Resolver may be nil, in which case redirector links are dropped.
	Resolver    Resolver
	Limiter     *ratelimit.Limiter
	Retrier     ratelimit.Retrier
	Redirectors []string
	// Blacklist holds origins or hosts whose results are dropped.
	Blacklist []string
	// Now supplies the clock used for the month term.
	Now    func() time.Time
	Logger *slog.Logger
}

// Collector runs queries and turns results into raw candidates.
type Collector struct {
	searcher    Searcher
	resolver    Resolver
	limiter     *ratelimit.Limiter
	retrier     ratelimit.Retrier
	redirectors []string
	blacklist   map[string]bool
	now         func() time.Time
	logger      *slog.Logger
}

// NewCollector creates a Collector.
func NewCollector(cfg Config) *Collector {
	if cfg.Redirectors == nil {
		cfg.Redirectors = DefaultRedirectors
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	blacklist := make(map[string]bool, len(cfg.Blacklist))
	for _, entry := range cfg.Blacklist {
		if host := normalizeHost(entry); host != "" {
			blacklist[host] = true
		}
	}

	return &Collector{
		searcher:    cfg.Searcher,
		resolver:    cfg.Resolver,
		limiter:     cfg.Limiter,
		retrier:     cfg.Retrier,
		redirectors: cfg.Redirectors,
		blacklist:   blacklist,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}
}

// WithBlacklist returns a copy of c that also drops results from entries.
func (c *Collector) WithBlacklist(entries []string) *Collector {
	cp := *c
	cp.blacklist = make(map[string]bool, len(c.blacklist)+len(entries))
	for host := range c.blacklist {
		cp.blacklist[host] = true
	}
	for _, entry := range entries {
		if host := normalizeHost(entry); host != "" {
			cp.blacklist[host] = true
		}
	}
	return &cp
}

// Collect runs each query for the given number of result pages. Query pages
// that fail are logged and skipped.
func (c *Collector) Collect(ctx context.Context, queries []string, pages int) []types.RawCandidate {
	if pages <= 0 {
		pages = 1
	}
	month := c.now().Month().String()

	var all []types.RawCandidate
	for _, query := range queries {
		scoped := strings.TrimSpace(query) + " " + month
		for p := 0; p < pages; p++ {
			start := int64(1 + p*PageSize)
			items, err := ratelimit.Call(ctx, c.limiter, c.retrier, func(ctx context.Context) ([]Item, error) {
				return c.searcher.Search(ctx, scoped, start)
			})
			if err != nil {
				c.logger.Warn("search page failed, skipping", "query", scoped, "start", start,
					"error", &types.ExternalServiceError{Service: "search api", Cause: err})
				continue
			}
			all = append(all, c.processItems(ctx, items)...)
		}
	}
	return all
}

// processItems filters and resolves one page of results, keeping result order.
func (c *Collector) processItems(ctx context.Context, items []Item) []types.RawCandidate {
	results := make([]*types.RawCandidate, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			results[i] = c.processItem(gctx, item)
			return nil
		})
	}
	_ = g.Wait()

	var out []types.RawCandidate
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (c *Collector) processItem(ctx context.Context, item Item) *types.RawCandidate {
	u, err := url.Parse(strings.TrimSpace(item.Link))
	if err != nil || u.Host == "" || isBareRoot(u) {
		return nil
	}

	if c.isRedirector(u.Host) {
		if c.resolver == nil {
			return nil
		}
		target := u.String()
		resolved, err := ratelimit.Do(ctx, c.limiter, func(ctx context.Context) (string, error) {
			return c.resolver.Resolve(ctx, target)
		})
		if err != nil {
			c.logger.Debug("redirect resolution failed, dropping", "url", item.Link, "error", err)
			return nil
		}
		if u, err = url.Parse(resolved); err != nil || u.Host == "" || isBareRoot(u) {
			return nil
		}
	}

	if isJobPath(u.Path) || c.isBlacklisted(u.Host) {
		return nil
	}

	return &types.RawCandidate{
		SourceURL: u.Scheme + "://" + u.Host,
		Link:      types.String(u.String()),
		Title:     types.String(item.Title),
		Snippet:   types.String(item.Snippet),
	}
}

func (c *Collector) isRedirector(host string) bool {
	host = normalizeHost(host)
	for _, r := range c.redirectors {
		if host == r {
			return true
		}
	}
	return false
}

// isBlacklisted matches the host and any of its parent domains.
func (c *Collector) isBlacklisted(host string) bool {
	host = normalizeHost(host)
	for host != "" {
		if c.blacklist[host] {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return false
}

func isBareRoot(u *url.URL) bool {
	return u.Path == "" || u.Path == "/"
}

func isJobPath(path string) bool {
	lower := strings.ToLower(path)
	if !strings.HasSuffix(lower, "/") {
		lower += "/"
	}
	for _, pattern := range DefaultJobPathPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// normalizeHost reduces an origin, URL or host to a lowercase host without "www.".
func normalizeHost(entry string) string {
	entry = strings.ToLower(strings.TrimSpace(entry))
	if entry == "" {
		return ""
	}
	if strings.Contains(entry, "://") {
		if u, err := url.Parse(entry); err == nil {
			entry = u.Host
		}
	}
	entry = strings.TrimSuffix(entry, "/")
	return strings.TrimPrefix(entry, "www.")
}
