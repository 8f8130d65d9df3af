package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/jonathan/news-digest/internal/types"
	"github.com/mmcdole/gofeed"
)

// Extract applies spec's selectors to html. Every Container match yields one
// candidate; a sub-selector without a match leaves that field nil.
func Extract(html string, spec types.SourceSpec) ([]types.RawCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	sel := spec.Selectors
	var candidates []types.RawCandidate
	doc.Find(sel.Container).Each(func(_ int, item *goquery.Selection) {
		candidate := types.RawCandidate{SourceURL: spec.BaseURL, SourceName: spec.Name}

		if link := find(item, sel.Link); link != nil {
			href, _ := link.Attr("href")
			candidate.Link = ConstructFullURL(spec.BaseURL, types.String(href))
		}
		if title := find(item, sel.Title); title != nil {
			candidate.Title = types.String(collapse(title.Text()))
		}
		if desc := find(item, sel.Description); desc != nil {
			candidate.Description = types.String(collapse(desc.Text()))
		}
		if date := find(item, sel.Date); date != nil {
			raw, ok := date.Attr("datetime")
			if !ok {
				raw = date.Text()
			}
			candidate.Date = ParseDate(raw)
		}

		candidates = append(candidates, candidate)
	})
	return candidates, nil
}

// ExtractFeed parses an RSS or Atom document into candidates.
func ExtractFeed(body string, spec types.SourceSpec) ([]types.RawCandidate, error) {
	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	candidates := make([]types.RawCandidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		link := item.Link
		candidate := types.RawCandidate{
			SourceURL:   spec.BaseURL,
			SourceName:  spec.Name,
			Link:        ConstructFullURL(spec.BaseURL, &link),
			Title:       types.String(collapse(item.Title)),
			Description: types.String(stripHTML(item.Description)),
		}
		switch {
		case item.PublishedParsed != nil:
			t := *item.PublishedParsed
			candidate.Date = &t
		case item.UpdatedParsed != nil:
			t := *item.UpdatedParsed
			candidate.Date = &t
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// ParseDate parses a date in any common layout. Unparseable or blank input gives nil.
func ParseDate(raw string) *time.Time {
	raw = collapse(raw)
	if raw == "" {
		return nil
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil
	}
	return &t
}

// find returns the first match of selector inside item, or nil when the selector
// is empty or matches nothing.
func find(item *goquery.Selection, selector string) *goquery.Selection {
	if selector == "" {
		return nil
	}
	match := item.Find(selector).First()
	if match.Length() == 0 {
		return nil
	}
	return match
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func stripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return collapse(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapse(s)
	}
	return collapse(doc.Text())
}
