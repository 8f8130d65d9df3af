package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonathan/news-digest/internal/llm"
	"github.com/jonathan/news-digest/internal/prompts"
	"github.com/jonathan/news-digest/internal/types"
)

// Summarizer writes the introductory paragraph of a digest.
type Summarizer struct {
	client llm.Client
	topic  string
	logger *slog.Logger
}

// NewSummarizer creates a Summarizer.
func NewSummarizer(client llm.Client, topic string, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{client: client, topic: topic, logger: logger}
}

// Summarize makes one AI call over all grouped articles. Unlike descriptions the
// summary is mandatory: a failed call or an empty answer is an
// *types.ExternalServiceError.
func (s *Summarizer) Summarize(ctx context.Context, groups []types.CategoryGroup) (string, error) {
	var b strings.Builder
	for _, g := range groups {
		fmt.Fprintf(&b, "%s:\n", g.Category)
		for _, a := range g.Articles {
			fmt.Fprintf(&b, "- %s: %s\n", a.Title, a.Description)
		}
	}

	prompt, err := prompts.Render(prompts.DigestFile, prompts.KeySummarizeDigest, map[string]string{
		"Topic":    s.topic,
		"Articles": b.String(),
	})
	if err != nil {
		return "", err
	}

	raw, err := s.client.GenerateContent(ctx, llm.PlainTextOnly(prompt), llm.TierStandard)
	if err != nil {
		return "", llm.ServiceError("ai summarizer", err)
	}

	summary := CleanText(raw, 0)
	if summary == "" {
		return "", &types.ExternalServiceError{Service: "ai summarizer", Cause: errors.New("empty summary")}
	}
	s.logger.Debug("summary generated", "chars", len(summary))
	return summary, nil
}
