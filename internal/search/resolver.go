package search

import (
	"context"
	"fmt"

	"github.com/jonathan/news-digest/internal/fetch"
)

// BrowserResolver follows redirects by navigating a browser page.
// Every resolution opens its own page, so concurrent resolutions never share a tab.
type BrowserResolver struct {
	browser fetch.Browser
}

var _ Resolver = (*BrowserResolver)(nil)

// NewBrowserResolver creates a BrowserResolver.
func NewBrowserResolver(browser fetch.Browser) *BrowserResolver {
	return &BrowserResolver{browser: browser}
}

// Resolve returns the URL the browser ends up on after loading rawURL.
func (r *BrowserResolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	page, err := r.browser.NewPage(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	nav, err := page.Navigate(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if nav.Status != 0 && (nav.Status < 200 || nav.Status > 299) {
		return "", fmt.Errorf("redirect resolution returned status %d", nav.Status)
	}
	if nav.FinalURL == "" {
		return "", fmt.Errorf("redirect resolution produced no URL")
	}
	return nav.FinalURL, nil
}
