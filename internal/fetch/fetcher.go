package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonathan/news-digest/internal/ratelimit"
)

// Fetcher retrieves page markup: a direct request first, the browser only when
// that request fails. Every attempt runs on the fetch limiter and is retried.
type Fetcher struct {
	opts    *Options
	browser Browser
	limiter *ratelimit.Limiter
	retrier ratelimit.Retrier
	logger  *slog.Logger
}

// FetcherConfig wires a Fetcher. Browser may be nil to disable the fallback.
type FetcherConfig struct {
	Options *Options
	Browser Browser
	Limiter *ratelimit.Limiter
	Retrier ratelimit.Retrier
	Logger  *slog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Options == nil {
		cfg.Options = DefaultOptions()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Fetcher{
		opts:    cfg.Options,
		browser: cfg.Browser,
		limiter: cfg.Limiter,
		retrier: cfg.Retrier,
		logger:  cfg.Logger,
	}
}

// Fetch returns the markup of url. page is optional; when nil and the browser
// fallback is needed, a fresh page is taken from the browser and closed after use.
// When both paths fail the error is an *Error.
func (f *Fetcher) Fetch(ctx context.Context, url string, page Page) (string, error) {
	return ratelimit.RetryValue(ctx, f.retrier, func(ctx context.Context) (string, error) {
		return f.fetchOnce(ctx, url, page)
	})
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string, page Page) (string, error) {
	html, directErr := ratelimit.Do(ctx, f.limiter, func(ctx context.Context) (string, error) {
		result, err := URL(ctx, url, f.opts)
		if err != nil {
			return "", err
		}
		return result.HTML, nil
	})
	if directErr == nil {
		return html, nil
	}

	if f.browser == nil && page == nil {
		return "", directErr
	}

	f.logger.Debug("direct request failed, using browser", "url", url, "error", directErr)
	html, browserErr := ratelimit.Do(ctx, f.limiter, func(ctx context.Context) (string, error) {
		return f.render(ctx, url, page)
	})
	if browserErr == nil {
		return html, nil
	}

	return "", &Error{
		URL:     url,
		Message: "direct request and browser rendering both failed",
		Cause:   errors.Join(directErr, browserErr),
	}
}

func (f *Fetcher) render(ctx context.Context, url string, page Page) (string, error) {
	if page == nil {
		p, err := f.browser.NewPage(ctx)
		if err != nil {
			return "", err
		}
		defer p.Close()
		page = p
	}

	nav, err := page.Navigate(ctx, url)
	if err != nil {
		return "", err
	}
	if nav.Status >= 400 {
		return "", fmt.Errorf("browser navigation returned status %d", nav.Status)
	}
	return nav.HTML, nil
}
