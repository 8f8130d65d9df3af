package scraper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/news-digest/internal/fetch"
	"github.com/jonathan/news-digest/internal/logging"
	"github.com/jonathan/news-digest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	FetchFunc func(ctx context.Context, url string) (string, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, url string, _ fetch.Page) (string, error) {
	return m.FetchFunc(ctx, url)
}

type robotsFunc func(url string) bool

func (f robotsFunc) Allowed(_ context.Context, url string) bool { return f(url) }

func TestScrapeSource_RobotsDisallowed(t *testing.T) {
	fetcher := &mockFetcher{FetchFunc: func(context.Context, string) (string, error) {
		t.Fatal("fetch must not be called when robots.txt disallows")
		return "", nil
	}}
	s := New(fetcher, robotsFunc(func(string) bool { return false }), 1, logging.Discard())

	candidates, err := s.ScrapeSource(context.Background(), listingSpec)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestCollect_PreservesSourceOrderAndSkipsFailures(t *testing.T) {
	specA := listingSpec
	specA.Name, specA.BaseURL = "a", "https://a.com/news/"
	specB := listingSpec
	specB.Name, specB.BaseURL = "b", "https://b.com/news/"
	specC := listingSpec
	specC.Name, specC.BaseURL = "c", "https://c.com/news/"

	fetcher := &mockFetcher{FetchFunc: func(_ context.Context, url string) (string, error) {
		switch url {
		case specB.BaseURL:
			return "", &fetch.Error{URL: url, Message: "boom", Cause: errors.New("refused")}
		default:
			return `<div class="story"><a href="item">x</a><h2>` + url + `</h2></div>`, nil
		}
	}}
	s := New(fetcher, nil, 3, logging.Discard())

	candidates := s.Collect(context.Background(), []types.SourceSpec{specA, specB, specC})
	require.Len(t, candidates, 2)
	assert.Equal(t, "https://a.com/news/item", *candidates[0].Link)
	assert.Equal(t, "https://c.com/news/item", *candidates[1].Link)
}

func TestScrapeSource_Feed(t *testing.T) {
	fetcher := &mockFetcher{FetchFunc: func(context.Context, string) (string, error) {
		return feedXML, nil
	}}
	s := New(fetcher, robotsFunc(func(string) bool { return true }), 1, logging.Discard())
	spec := types.SourceSpec{Name: "feed", Kind: types.SourceKindFeed, BaseURL: "https://x.com/feed.xml"}

	candidates, err := s.ScrapeSource(context.Background(), spec)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	content := `
sources:
  - name: example
    base_url: https://x.com/news/
    require_date: true
    selectors:
      container: div.story
      link: a
      title: h2
  - name: feed
    kind: feed
    base_url: https://x.com/feed.xml
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	specs, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "div.story", specs[0].Selectors.Container)
	assert.True(t, specs[0].RequireDate)
	assert.Equal(t, types.SourceKindFeed, specs[1].EffectiveKind())
}

func TestParseSources_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "empty", content: "sources: []", wantErr: "no sources"},
		{name: "missing selectors", content: "sources:\n  - name: a\n    base_url: https://a.com/\n", wantErr: "selectors are required"},
		{name: "bad url", content: "sources:\n  - name: a\n    kind: feed\n    base_url: nope\n", wantErr: "source \"a\""},
		{name: "duplicate", content: "sources:\n  - name: a\n    kind: feed\n    base_url: https://a.com/\n  - name: a\n    kind: feed\n    base_url: https://b.com/\n", wantErr: "duplicate"},
		{name: "bad yaml", content: "sources: [", wantErr: "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSources([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadSources_MissingFile(t *testing.T) {
	_, err := LoadSources(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
