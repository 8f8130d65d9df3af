package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/news-digest/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePage struct {
	nav    *Navigation
	err    error
	urls   []string
	closed bool
}

func (p *fakePage) Navigate(_ context.Context, url string) (*Navigation, error) {
	p.urls = append(p.urls, url)
	return p.nav, p.err
}

func (p *fakePage) Close() { p.closed = true }

type fakeBrowser struct {
	mu    sync.Mutex
	pages []*fakePage
	next  func() *fakePage
}

func (b *fakeBrowser) NewPage(context.Context) (Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.next()
	b.pages = append(b.pages, p)
	return p, nil
}

var noRetry = ratelimit.Retrier{MaxAttempts: 1}

func TestFetcher_DirectRequestWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>static</html>"))
	}))
	defer server.Close()

	browser := &fakeBrowser{next: func() *fakePage { return &fakePage{} }}
	f := NewFetcher(FetcherConfig{Browser: browser, Retrier: noRetry})

	html, err := f.Fetch(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "<html>static</html>", html)
	assert.Empty(t, browser.pages, "browser must not be used when the direct request succeeds")
}

func TestFetcher_FallsBackToBrowser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	browser := &fakeBrowser{next: func() *fakePage {
		return &fakePage{nav: &Navigation{Status: 200, HTML: "<html>rendered</html>"}}
	}}
	f := NewFetcher(FetcherConfig{Browser: browser, Retrier: noRetry})

	html, err := f.Fetch(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "<html>rendered</html>", html)
	require.Len(t, browser.pages, 1)
	assert.True(t, browser.pages[0].closed)
}

func TestFetcher_UsesSuppliedPage(t *testing.T) {
	browser := &fakeBrowser{next: func() *fakePage { return &fakePage{} }}
	page := &fakePage{nav: &Navigation{Status: 200, HTML: "<p>page</p>"}}
	f := NewFetcher(FetcherConfig{Browser: browser, Retrier: noRetry})

	html, err := f.Fetch(context.Background(), "http://127.0.0.1:1/unreachable", page)
	require.NoError(t, err)
	assert.Equal(t, "<p>page</p>", html)
	assert.Empty(t, browser.pages)
	assert.False(t, page.closed, "caller owns the supplied page")
}

func TestFetcher_BothPathsFail(t *testing.T) {
	browser := &fakeBrowser{next: func() *fakePage {
		return &fakePage{err: errors.New("navigation timeout")}
	}}
	f := NewFetcher(FetcherConfig{Browser: browser, Retrier: noRetry})

	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1/unreachable", nil)
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "both failed")
	assert.Contains(t, err.Error(), "navigation timeout")
}

func TestFetcher_BrowserErrorStatus(t *testing.T) {
	browser := &fakeBrowser{next: func() *fakePage {
		return &fakePage{nav: &Navigation{Status: 503}}
	}}
	f := NewFetcher(FetcherConfig{Browser: browser, Retrier: noRetry})

	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1/unreachable", nil)
	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
}

func TestFetcher_NoBrowserReturnsDirectError(t *testing.T) {
	f := NewFetcher(FetcherConfig{Retrier: noRetry})

	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1/unreachable", nil)
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "HTTP request failed")
}

func TestFetcher_RetriesWholeFetch(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := NewFetcher(FetcherConfig{Retrier: ratelimit.Retrier{
		MaxAttempts: 3,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}})

	html, err := f.Fetch(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", html)
	assert.Equal(t, 2, calls)
}
