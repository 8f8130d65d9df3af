// Package enrich writes missing article descriptions and the digest summary.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/news-digest/internal/fetch"
	"github.com/jonathan/news-digest/internal/llm"
	"github.com/jonathan/news-digest/internal/prompts"
	"github.com/jonathan/news-digest/internal/types"
	"golang.org/x/sync/errgroup"
)

// FallbackDescription replaces a description that could not be generated.
const FallbackDescription = "Description unavailable. Follow the link to read the full article."

const (
	// DefaultMaxChars caps a generated description.
	DefaultMaxChars = 300
	// maxSourceWords caps the article text sent to the model.
	maxSourceWords = 1500
)

// PageFetcher returns page markup.
type PageFetcher interface {
	Fetch(ctx context.Context, url string, page fetch.Page) (string, error)
}

// Enricher fills in missing descriptions.
type Enricher struct {
	fetcher  PageFetcher
	client   llm.Client
	maxChars int
	logger   *slog.Logger
}

// NewEnricher creates an Enricher. maxChars <= 0 uses DefaultMaxChars.
func NewEnricher(fetcher PageFetcher, client llm.Client, maxChars int, logger *slog.Logger) *Enricher {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{fetcher: fetcher, client: client, maxChars: maxChars, logger: logger}
}

// Enrich returns one EnrichedArticle per ranked article, in the same order.
// Articles without a description get a generated one, or FallbackDescription
// when any step of generating it fails.
func (e *Enricher) Enrich(ctx context.Context, ranked []types.RankedArticle) []types.EnrichedArticle {
	out := make([]types.EnrichedArticle, len(ranked))

	var g errgroup.Group
	for i, article := range ranked {
		out[i] = types.EnrichedArticle{Title: article.Title, Link: article.Link, Description: article.Description}
		if article.Description != "" {
			continue
		}
		g.Go(func() error {
			desc, err := e.describe(ctx, article)
			if err != nil {
				e.logger.Warn("description generation failed, using fallback", "url", article.Link, "error", err)
				desc = FallbackDescription
			}
			out[i].Description = desc
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (e *Enricher) describe(ctx context.Context, article types.RankedArticle) (string, error) {
	html, err := e.fetcher.Fetch(ctx, article.Link, nil)
	if err != nil {
		return "", err
	}

	text, err := fetch.ExtractArticleText(html, article.Link)
	if err != nil {
		return "", err
	}
	text = fetch.TruncateWords(text, maxSourceWords)
	if text == "" {
		return "", fmt.Errorf("no readable text")
	}

	prompt, err := prompts.Render(prompts.DigestFile, prompts.KeyDescribeArticle, map[string]string{
		"MaxChars": strconv.Itoa(e.maxChars),
		"Title":    article.Title,
		"Text":     text,
	})
	if err != nil {
		return "", err
	}

	raw, err := e.client.GenerateContent(ctx, llm.PlainTextOnly(prompt), llm.TierLite)
	if err != nil {
		return "", err
	}

	desc := CleanText(raw, e.maxChars)
	if desc == "" {
		return "", fmt.Errorf("empty description")
	}
	return desc, nil
}

// CleanText normalizes model output to a single plain-text line of at most
// maxChars characters, cut at a word boundary.
func CleanText(raw string, maxChars int) string {
	text := strings.Join(strings.Fields(raw), " ")
	text = strings.Trim(text, "\"'`*# ")
	if maxChars <= 0 {
		return text
	}

	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	cut := string(runes[:maxChars])
	if i := strings.LastIndex(cut, ". "); i >= 0 && utf8.RuneCountInString(cut[:i]) > maxChars/2 {
		return cut[:i+1]
	}
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, ",;:") + "..."
}
