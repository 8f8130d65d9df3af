package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonathan/news-digest/internal/logging"
	"github.com/jonathan/news-digest/internal/ratelimit"
	"github.com/jonathan/news-digest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSearcher struct {
	mu         sync.Mutex
	SearchFunc func(query string, start int64) ([]Item, error)
	queries    []string
	starts     []int64
}

func (m *mockSearcher) Search(_ context.Context, query string, start int64) ([]Item, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.starts = append(m.starts, start)
	m.mu.Unlock()
	return m.SearchFunc(query, start)
}

type resolverFunc func(url string) (string, error)

func (f resolverFunc) Resolve(_ context.Context, url string) (string, error) { return f(url) }

func fixedClock() time.Time { return time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC) }

func newCollector(searcher Searcher, resolver Resolver, blacklist ...string) *Collector {
	return NewCollector(Config{
		Searcher:  searcher,
		Resolver:  resolver,
		Retrier:   ratelimit.Retrier{MaxAttempts: 1},
		Blacklist: blacklist,
		Now:       fixedClock,
		Logger:    logging.Discard(),
	})
}

func links(candidates []types.RawCandidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, *c.Link)
	}
	return out
}

func TestCollect_QueryScopingAndPaging(t *testing.T) {
	searcher := &mockSearcher{SearchFunc: func(string, int64) ([]Item, error) { return nil, nil }}
	c := newCollector(searcher, nil)

	c.Collect(context.Background(), []string{"carbon markets"}, 3)

	assert.Equal(t, []string{"carbon markets October", "carbon markets October", "carbon markets October"}, searcher.queries)
	assert.Equal(t, []int64{1, 11, 21}, searcher.starts)
}

func TestCollect_Filtering(t *testing.T) {
	searcher := &mockSearcher{SearchFunc: func(string, int64) ([]Item, error) {
		return []Item{
			{Title: "Article", Link: "https://news.example.com/2026/10/article", Snippet: "snip"},
			{Title: "Homepage", Link: "https://example.com/"},
			{Title: "Job", Link: "https://example.com/careers/analyst"},
			{Title: "Job 2", Link: "https://example.com/jobs/123"},
			{Title: "Blocked", Link: "https://www.blocked.org/story"},
			{Title: "Blocked sub", Link: "https://news.blocked.org/story"},
			{Title: "Redirected", Link: "https://news.google.com/articles/abc"},
			{Title: "Broken redirect", Link: "https://t.co/broken"},
		}, nil
	}}
	resolver := resolverFunc(func(url string) (string, error) {
		if url == "https://t.co/broken" {
			return "", errors.New("navigation failed")
		}
		return "https://publisher.com/story", nil
	})
	c := newCollector(searcher, resolver, "https://blocked.org")

	candidates := c.Collect(context.Background(), []string{"q"}, 1)
	require.Equal(t, []string{"https://news.example.com/2026/10/article", "https://publisher.com/story"}, links(candidates))

	first := candidates[0]
	assert.Equal(t, "Article", *first.Title)
	assert.Equal(t, "snip", *first.Snippet)
	assert.Nil(t, first.Description)
	assert.Equal(t, "https://news.example.com", first.SourceURL)
}

func TestCollect_RedirectToRootDropped(t *testing.T) {
	searcher := &mockSearcher{SearchFunc: func(string, int64) ([]Item, error) {
		return []Item{{Title: "R", Link: "https://bing.com/ck/a?x=1"}}, nil
	}}
	c := newCollector(searcher, resolverFunc(func(string) (string, error) { return "https://publisher.com/", nil }))

	assert.Empty(t, c.Collect(context.Background(), []string{"q"}, 1))
}

func TestCollect_FailingPageSkipped(t *testing.T) {
	searcher := &mockSearcher{SearchFunc: func(query string, start int64) ([]Item, error) {
		if start == 1 && query == "first October" {
			return nil, errors.New("quota exceeded")
		}
		return []Item{{Title: query, Link: "https://a.com/" + query[:5]}}, nil
	}}
	c := newCollector(searcher, nil)

	candidates := c.Collect(context.Background(), []string{"first", "second"}, 2)
	assert.Equal(t, []string{"https://a.com/first", "https://a.com/secon", "https://a.com/secon"}, links(candidates))
}

func TestCollect_NoResolverDropsRedirectors(t *testing.T) {
	searcher := &mockSearcher{SearchFunc: func(string, int64) ([]Item, error) {
		return []Item{{Title: "R", Link: "https://news.google.com/articles/abc"}}, nil
	}}
	c := newCollector(searcher, nil)

	assert.Empty(t, c.Collect(context.Background(), []string{"q"}, 1))
}

func TestNormalizeHost(t *testing.T) {
	assert.Equal(t, "example.com", normalizeHost("https://www.Example.com/"))
	assert.Equal(t, "example.com", normalizeHost("example.com"))
	assert.Equal(t, "", normalizeHost("  "))
}

func TestWithBlacklist_AddsToConfiguredEntries(t *testing.T) {
	searcher := &mockSearcher{SearchFunc: func(string, int64) ([]Item, error) {
		return []Item{
			{Title: "A", Link: "https://configured.com/a"},
			{Title: "B", Link: "https://runtime.net/b"},
			{Title: "C", Link: "https://open.org/c"},
		}, nil
	}}
	base := newCollector(searcher, nil, "configured.com")
	scoped := base.WithBlacklist([]string{"https://runtime.net"})

	assert.Equal(t, []string{"https://open.org/c"}, links(scoped.Collect(context.Background(), []string{"q"}, 1)))
	assert.Equal(t, []string{"https://runtime.net/b", "https://open.org/c"}, links(base.Collect(context.Background(), []string{"q"}, 1)))
}

func TestCollect_RedirectResolutionUsesLimiter(t *testing.T) {
	var items []Item
	for i := 0; i < 6; i++ {
		items = append(items, Item{Title: fmt.Sprintf("R%d", i), Link: fmt.Sprintf("https://news.google.com/articles/%d", i)})
	}
	searcher := &mockSearcher{SearchFunc: func(string, int64) ([]Item, error) { return items, nil }}

	var running, peak atomic.Int32
	resolver := resolverFunc(func(url string) (string, error) {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return "https://publisher.com/story/" + url[len(url)-1:], nil
	})

	c := NewCollector(Config{
		Searcher: searcher,
		Resolver: resolver,
		Limiter:  ratelimit.NewLimiter("fetch", ratelimit.Config{MaxConcurrent: 1}),
		Retrier:  ratelimit.Retrier{MaxAttempts: 1},
		Now:      fixedClock,
		Logger:   logging.Discard(),
	})

	got := c.Collect(context.Background(), []string{"q"}, 1)
	assert.Len(t, got, 6)
	assert.Equal(t, int32(1), peak.Load())
}
