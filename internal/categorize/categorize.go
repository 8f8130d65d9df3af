// Package categorize assigns each digest article to one category.
//
// The AI model only proposes affinities; Distribute enforces the per-category
// balance deterministically.
package categorize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/jonathan/news-digest/internal/llm"
	"github.com/jonathan/news-digest/internal/prompts"
	"github.com/jonathan/news-digest/internal/schemas"
	"github.com/jonathan/news-digest/internal/types"
)

// MaxProposals is the number of categories the model may propose per article.
const MaxProposals = 3

type promptArticle struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type proposal struct {
	Index      int      `json:"index"`
	Categories []string `json:"categories"`
}

// Categorizer proposes, distributes and shuffles.
type Categorizer struct {
	client     llm.Client
	categories []types.Category
	rng        *rand.Rand
	logger     *slog.Logger
}

// New creates a Categorizer over the full category enumeration. A nil rng uses
// a randomly seeded source.
func New(client llm.Client, rng *rand.Rand, logger *slog.Logger) *Categorizer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Categorizer{
		client:     client,
		categories: types.AllCategories(),
		rng:        rng,
		logger:     logger,
	}
}

// Categorize assigns categories and shuffles the result. Fewer than minimum
// articles is an *types.InsufficientResultsError.
func (c *Categorizer) Categorize(ctx context.Context, articles []types.EnrichedArticle, minimum int) ([]types.CategorizedArticle, error) {
	if len(articles) < minimum {
		return nil, &types.InsufficientResultsError{Stage: "categorization", Got: len(articles), Want: minimum}
	}
	if len(articles) == 0 {
		return nil, nil
	}

	proposals, err := c.Propose(ctx, articles)
	if err != nil {
		return nil, err
	}

	distributed := Distribute(articles, proposals, c.categories)
	if len(distributed) < minimum {
		return nil, &types.InsufficientResultsError{Stage: "categorization", Got: len(distributed), Want: minimum}
	}

	c.logger.Debug("articles categorized", "articles", len(distributed),
		"capacity", Capacity(len(articles), len(c.categories)))
	return Shuffle(c.rng, distributed), nil
}

// Propose asks the model for up to MaxProposals categories per article, best
// first. Unknown names are discarded and an article left with no proposal gets
// the catch-all. The result is indexed like articles.
func (c *Categorizer) Propose(ctx context.Context, articles []types.EnrichedArticle) ([][]types.Category, error) {
	payload := make([]promptArticle, len(articles))
	for i, a := range articles {
		payload[i] = promptArticle{Index: i, Title: a.Title, Description: a.Description}
	}
	articlesJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode articles: %w", err)
	}

	names := make([]string, len(c.categories))
	for i, cat := range c.categories {
		names[i] = string(cat)
	}
	prompt, err := prompts.Render(prompts.DigestFile, prompts.KeyCategorizeArticles, map[string]string{
		"Categories": strings.Join(names, ", "),
		"CatchAll":   string(types.CatchAll),
		"Articles":   string(articlesJSON),
	})
	if err != nil {
		return nil, err
	}

	raw, err := c.client.GenerateJSON(ctx, llm.JSONOnly(prompt), llm.TierLite)
	if err != nil {
		return nil, llm.ServiceError("ai categorizer", err)
	}

	result := llm.DecodeJSON[[]proposal](raw, schemas.CategoryProposals)
	if !result.OK {
		return nil, result.Err()
	}

	proposals := make([][]types.Category, len(articles))
	for _, p := range result.Value {
		if p.Index < 0 || p.Index >= len(articles) || proposals[p.Index] != nil {
			continue
		}
		proposals[p.Index] = parseProposal(p.Categories)
	}
	for i := range proposals {
		if len(proposals[i]) == 0 {
			proposals[i] = []types.Category{types.CatchAll}
		}
	}
	return proposals, nil
}

// Group builds category groups in enumeration order.
func Group(items []types.CategorizedArticle) []types.CategoryGroup {
	return types.GroupByCategory(items)
}

func parseProposal(names []string) []types.Category {
	out := make([]types.Category, 0, MaxProposals)
	seen := make(map[types.Category]bool, MaxProposals)
	for _, name := range names {
		cat, err := types.ParseCategory(name)
		if err != nil || seen[cat] {
			continue
		}
		seen[cat] = true
		out = append(out, cat)
		if len(out) == MaxProposals {
			break
		}
	}
	return out
}
