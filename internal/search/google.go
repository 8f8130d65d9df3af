package search

import (
	"context"
	"fmt"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// GoogleSearcher queries a Programmable Search Engine.
type GoogleSearcher struct {
	svc *customsearch.Service
	cx  string
}

var _ Searcher = (*GoogleSearcher)(nil)

// NewGoogleSearcher creates a GoogleSearcher for the engine cx.
func NewGoogleSearcher(ctx context.Context, apiKey, cx string, opts ...option.ClientOption) (*GoogleSearcher, error) {
	if cx == "" {
		return nil, fmt.Errorf("search engine id is required")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &GoogleSearcher{svc: svc, cx: cx}, nil
}

// Search returns one page of results starting at the 1-based index start.
func (g *GoogleSearcher) Search(ctx context.Context, query string, start int64) ([]Item, error) {
	resp, err := g.svc.Cse.List().Cx(g.cx).Q(query).Start(start).Num(PageSize).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	items := make([]Item, 0, len(resp.Items))
	for _, r := range resp.Items {
		items = append(items, Item{Title: r.Title, Link: r.Link, Snippet: r.Snippet})
	}
	return items, nil
}
