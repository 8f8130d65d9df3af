package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gorilla/feeds"

	"github.com/jonathan/news-digest/internal/types"
)

// FeedMeta describes the feed a digest is published into.
type FeedMeta struct {
	Title   string
	Link    string
	Author  string
	Created time.Time
}

// BuildFeed converts a digest into a feed with one item per article.
// The summary becomes the feed description and each item is tagged with its category.
func BuildFeed(digest *types.DigestResult, meta FeedMeta) *feeds.Feed {
	created := meta.Created
	if created.IsZero() {
		created = time.Now()
	}

	feed := &feeds.Feed{
		Title:       meta.Title,
		Link:        &feeds.Link{Href: meta.Link},
		Description: digest.Summary,
		Author:      &feeds.Author{Name: meta.Author},
		Created:     created,
	}

	for _, a := range digest.Flatten() {
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       fmt.Sprintf("[%s] %s", a.Category, a.Title),
			Link:        &feeds.Link{Href: a.Link},
			Description: a.Description,
			Id:          a.Link,
			Created:     created,
		})
	}
	return feed
}

// WriteAtom writes the digest as an Atom feed.
func WriteAtom(w io.Writer, digest *types.DigestResult, meta FeedMeta) error {
	if digest == nil {
		return fmt.Errorf("digest is nil")
	}
	if err := BuildFeed(digest, meta).WriteAtom(w); err != nil {
		return fmt.Errorf("failed to write atom feed: %w", err)
	}
	return nil
}

// WriteJSON writes the digest as indented JSON.
func WriteJSON(w io.Writer, digest *types.DigestResult) error {
	if digest == nil {
		return fmt.Errorf("digest is nil")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(digest); err != nil {
		return fmt.Errorf("failed to encode digest: %w", err)
	}
	return nil
}
