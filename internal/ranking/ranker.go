// Package ranking selects and orders the articles that make up a digest.
package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/jonathan/news-digest/internal/llm"
	"github.com/jonathan/news-digest/internal/prompts"
	"github.com/jonathan/news-digest/internal/schemas"
	"github.com/jonathan/news-digest/internal/types"
)

// MaxSourceShare is the largest fraction of the target one source may fill.
const MaxSourceShare = 0.4

// Options controls ranking.
type Options struct {
	Topic   string
	Target  int
	Minimum int
	// MaxPerSource overrides the cap derived from MaxSourceShare when positive.
	MaxPerSource  int
	NumCategories int
}

// SourceCap returns the per-source article cap.
func (o Options) SourceCap() int {
	if o.MaxPerSource > 0 {
		return o.MaxPerSource
	}
	return max(1, int(math.Ceil(float64(o.Target)*MaxSourceShare)))
}

// PerCategory returns the soft per-category ceiling ceil(Target / NumCategories).
func (o Options) PerCategory() int {
	n := o.NumCategories
	if n <= 0 {
		n = len(types.AllCategories())
	}
	return int(math.Ceil(float64(o.Target) / float64(n)))
}

// Validate checks that 0 < Minimum < Target.
func (o Options) Validate() error {
	if o.Target <= 0 {
		return fmt.Errorf("target must be positive, got %d", o.Target)
	}
	if o.Minimum <= 0 || o.Minimum >= o.Target {
		return fmt.Errorf("minimum must be at least 1 and below target (%d), got %d", o.Target, o.Minimum)
	}
	return nil
}

// promptArticle is the prompt payload for one candidate.
type promptArticle struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	Description string `json:"description,omitempty"`
	Mentions    int    `json:"mentions"`
}

// rankedItem is one entry of the model's response.
type rankedItem struct {
	Title  string `json:"title"`
	Source string `json:"source,omitempty"`
}

// Ranker orders candidates with the AI model.
type Ranker struct {
	client llm.Client
	logger *slog.Logger
}

// NewRanker creates a Ranker.
func NewRanker(client llm.Client, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{client: client, logger: logger}
}

// Rank asks the model for the most important candidates, matches the answer back
// to the candidate records by title and truncates to Target. Names that match no
// candidate are dropped. Fewer than Minimum results is an
// *types.InsufficientResultsError; a failed AI call is an *types.ExternalServiceError.
func (r *Ranker) Rank(ctx context.Context, candidates []types.CountedCandidate, opts Options) ([]types.RankedArticle, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(candidates) < opts.Minimum {
		return nil, &types.InsufficientResultsError{Stage: "ranking", Got: len(candidates), Want: opts.Minimum}
	}

	prompt, err := r.buildPrompt(candidates, opts)
	if err != nil {
		return nil, err
	}

	raw, err := r.client.GenerateJSON(ctx, llm.JSONOnly(prompt), llm.TierStandard)
	if err != nil {
		return nil, llm.ServiceError("ai ranker", err)
	}

	result := llm.DecodeJSON[[]rankedItem](raw, schemas.RankedArticles)
	if !result.OK {
		return nil, result.Err()
	}

	ranked := match(candidates, result.Value, opts.Target, opts.SourceCap())
	r.logger.Debug("ranking complete", "candidates", len(candidates), "named", len(result.Value), "ranked", len(ranked))

	if len(ranked) < opts.Minimum {
		return nil, &types.InsufficientResultsError{Stage: "ranking", Got: len(ranked), Want: opts.Minimum}
	}
	return ranked, nil
}

// match maps ranked titles back to candidates: exact title first, then the
// normalized title. Candidates sharing a title are taken in order, so a title
// named twice selects the next unused one. Unmatched names are skipped, sources
// over sourceCap are skipped, and the result stops at target.
func match(candidates []types.CountedCandidate, items []rankedItem, target, sourceCap int) []types.RankedArticle {
	exact := make(map[string][]int, len(candidates))
	normalized := make(map[string][]int, len(candidates))
	for i, c := range candidates {
		exact[c.Title] = append(exact[c.Title], i)
		key := types.TitleKey(c.Title)
		normalized[key] = append(normalized[key], i)
	}

	used := make(map[int]bool, len(items))
	perSource := make(map[string]int)
	pick := func(indexes []int) (int, bool) {
		for _, i := range indexes {
			if used[i] {
				continue
			}
			if sourceCap > 0 && perSource[candidates[i].Source()] >= sourceCap {
				continue
			}
			return i, true
		}
		return 0, false
	}

	out := make([]types.RankedArticle, 0, target)
	for _, item := range items {
		if len(out) >= target {
			break
		}
		i, ok := pick(exact[item.Title])
		if !ok {
			i, ok = pick(normalized[types.TitleKey(item.Title)])
		}
		if !ok {
			continue
		}

		c := candidates[i]
		used[i] = true
		perSource[c.Source()]++
		out = append(out, types.RankedArticle{ValidCandidate: c.ValidCandidate})
	}
	return out
}

func (r *Ranker) buildPrompt(candidates []types.CountedCandidate, opts Options) (string, error) {
	payload := make([]promptArticle, len(candidates))
	for i, c := range candidates {
		desc := c.Description
		if desc == "" {
			desc = c.Snippet
		}
		payload[i] = promptArticle{
			Title:       c.Title,
			Source:      c.Source(),
			Description: desc,
			Mentions:    c.OccurrenceCount,
		}
	}
	articlesJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode candidates: %w", err)
	}

	names := make([]string, 0, len(types.AllCategories()))
	for _, c := range types.AllCategories() {
		names = append(names, string(c))
	}

	return prompts.Render(prompts.DigestFile, prompts.KeyRankArticles, map[string]string{
		"Target":       strconv.Itoa(opts.Target),
		"Topic":        opts.Topic,
		"Categories":   strings.Join(names, ", "),
		"MaxPerSource": strconv.Itoa(opts.SourceCap()),
		"PerCategory":  strconv.Itoa(opts.PerCategory()),
		"Articles":     string(articlesJSON),
	})
}
