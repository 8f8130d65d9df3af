// Package scraper collects article previews from configured news sources.
package scraper

import (
	"context"
	"log/slog"

	"github.com/jonathan/news-digest/internal/fetch"
	"github.com/jonathan/news-digest/internal/types"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is how many sources are scraped at once.
const DefaultConcurrency = 4

// PageFetcher returns page markup.
type PageFetcher interface {
	Fetch(ctx context.Context, url string, page fetch.Page) (string, error)
}

// RobotsChecker reports whether a URL may be scraped.
type RobotsChecker interface {
	Allowed(ctx context.Context, pageURL string) bool
}

// Scraper turns SourceSpecs into raw candidates.
type Scraper struct {
	fetcher     PageFetcher
	robots      RobotsChecker
	concurrency int
	logger      *slog.Logger
}

// New creates a Scraper. A nil robots checker allows every page.
func New(fetcher PageFetcher, robots RobotsChecker, concurrency int, logger *slog.Logger) *Scraper {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{
		fetcher:     fetcher,
		robots:      robots,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Collect scrapes every source and concatenates the results in source order.
// A source that fails is logged and contributes nothing.
func (s *Scraper) Collect(ctx context.Context, specs []types.SourceSpec) []types.RawCandidate {
	results := make([][]types.RawCandidate, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, spec := range specs {
		g.Go(func() error {
			candidates, err := s.ScrapeSource(gctx, spec)
			if err != nil {
				s.logger.Warn("source scrape failed", "source", spec.Name, "url", spec.BaseURL, "error", err)
				return nil
			}
			s.logger.Debug("source scraped", "source", spec.Name, "candidates", len(candidates))
			results[i] = candidates
			return nil
		})
	}
	_ = g.Wait()

	var all []types.RawCandidate
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

// ScrapeSource scrapes one source. A robots.txt refusal yields no candidates and no error.
func (s *Scraper) ScrapeSource(ctx context.Context, spec types.SourceSpec) ([]types.RawCandidate, error) {
	if s.robots != nil && !s.robots.Allowed(ctx, spec.BaseURL) {
		s.logger.Info("robots.txt disallows source, skipping", "source", spec.Name, "url", spec.BaseURL)
		return nil, nil
	}

	body, err := s.fetcher.Fetch(ctx, spec.BaseURL, nil)
	if err != nil {
		return nil, err
	}

	if spec.EffectiveKind() == types.SourceKindFeed {
		return ExtractFeed(body, spec)
	}
	return Extract(body, spec)
}
