// Package types provides type definitions for the records that flow through the digest pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"net/url"
	"strings"
	"time"
)

// RawCandidate is an article preview as produced by scraping or search.
// Every field except SourceURL may be missing. SourceName is set only by the
// site scraper and names the configured source; search results leave it empty.
type RawCandidate struct {
	SourceURL   string     `json:"source_url"`
	SourceName  string     `json:"source_name,omitempty"`
	Link        *string    `json:"link,omitempty"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Snippet     *string    `json:"snippet,omitempty"`
}

// ValidCandidate is a RawCandidate with a non-empty title and an absolute link.
type ValidCandidate struct {
	SourceURL   string     `json:"source_url"`
	SourceName  string     `json:"source_name,omitempty"`
	Link        string     `json:"link"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Snippet     string     `json:"snippet,omitempty"`
}

// Source returns the publisher host of the candidate, used for per-source caps.
func (c ValidCandidate) Source() string {
	if u, err := url.Parse(c.Link); err == nil && u.Host != "" {
		return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	}
	return c.SourceURL
}

// CountedCandidate carries how many raw candidates collapsed into it during deduplication.
type CountedCandidate struct {
	ValidCandidate
	OccurrenceCount int `json:"occurrence_count"`
}

// RankedArticle is a candidate selected and ordered by the ranker.
type RankedArticle struct {
	ValidCandidate
}

// EnrichedArticle always has a plain-text description.
type EnrichedArticle struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
}

// CategorizedArticle is an enriched article with exactly one category.
type CategorizedArticle struct {
	EnrichedArticle
	Category Category `json:"category"`
}

// ValidateCandidate refines a raw candidate. It reports false when the title is
// blank or the link is not an absolute, scheme-qualified URL.
func ValidateCandidate(raw RawCandidate) (ValidCandidate, bool) {
	title := strings.TrimSpace(deref(raw.Title))
	link := strings.TrimSpace(deref(raw.Link))
	if title == "" || link == "" {
		return ValidCandidate{}, false
	}

	u, err := url.Parse(link)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ValidCandidate{}, false
	}

	return ValidCandidate{
		SourceURL:   raw.SourceURL,
		SourceName:  raw.SourceName,
		Link:        link,
		Title:       title,
		Description: strings.TrimSpace(deref(raw.Description)),
		Date:        raw.Date,
		Snippet:     strings.TrimSpace(deref(raw.Snippet)),
	}, true
}

// ValidateCandidates keeps the raw candidates that pass ValidateCandidate, in order.
func ValidateCandidates(raw []RawCandidate) []ValidCandidate {
	out := make([]ValidCandidate, 0, len(raw))
	for _, r := range raw {
		if v, ok := ValidateCandidate(r); ok {
			out = append(out, v)
		}
	}
	return out
}

// String returns a pointer to s, or nil when s is empty after trimming.
func String(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// TitleKey normalizes a title for matching AI output back to candidates:
// lowercase with runs of whitespace collapsed.
func TitleKey(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}
