package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jonathan/news-digest/internal/llm"
	"github.com/jonathan/news-digest/internal/prompts"
	"github.com/jonathan/news-digest/internal/schemas"
	"github.com/jonathan/news-digest/internal/types"
)

// article is both the prompt payload and the expected response item.
type article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Relevance is the AI-assisted Stage B filter.
type Relevance struct {
	client llm.Client
	topic  string
	window time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewRelevance creates a Stage B filter for topic.
func NewRelevance(client llm.Client, topic string, window time.Duration, logger *slog.Logger) *Relevance {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relevance{
		client: client,
		topic:  topic,
		window: window,
		now:    time.Now,
		logger: logger,
	}
}

// WithWindow returns a copy of r that describes the given recency window to the model.
func (r *Relevance) WithWindow(window time.Duration) *Relevance {
	cp := *r
	cp.window = window
	return &cp
}

// StageB keeps the candidates the model names in its response, in input order.
// A failed AI call returns *types.ExternalServiceError; a malformed response
// returns *types.ParseError.
func (r *Relevance) StageB(ctx context.Context, candidates []types.CountedCandidate) ([]types.CountedCandidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	payload := make([]article, len(candidates))
	for i, c := range candidates {
		payload[i] = article{Title: c.Title, Description: describe(c.ValidCandidate)}
	}
	articlesJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode articles: %w", err)
	}

	prompt, err := prompts.Render(prompts.DigestFile, prompts.KeyFilterArticles, map[string]string{
		"Topic":      r.topic,
		"WindowDays": strconv.Itoa(int(r.window.Hours() / 24)),
		"Today":      r.now().Format("January 2, 2006"),
		"Articles":   string(articlesJSON),
	})
	if err != nil {
		return nil, err
	}

	raw, err := r.client.GenerateJSON(ctx, llm.JSONOnly(prompt), llm.TierLite)
	if err != nil {
		return nil, llm.ServiceError("ai relevance filter", err)
	}

	result := llm.DecodeJSON[[]article](raw, schemas.FilteredArticles)
	if !result.OK {
		return nil, result.Err()
	}

	keep := make(map[string]bool, len(result.Value))
	for _, a := range result.Value {
		keep[types.TitleKey(a.Title)] = true
	}

	out := make([]types.CountedCandidate, 0, len(keep))
	for _, c := range candidates {
		if keep[types.TitleKey(c.Title)] {
			out = append(out, c)
		}
	}
	r.logger.Debug("relevance filter applied", "in", len(candidates), "named", len(result.Value), "kept", len(out))
	return out, nil
}

// describe prefers the description and falls back to the search snippet.
func describe(c types.ValidCandidate) string {
	if c.Description != "" {
		return c.Description
	}
	return c.Snippet
}
