package categorize

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/jonathan/news-digest/internal/llm"
	"github.com/jonathan/news-digest/internal/llm/llmtest"
	"github.com/jonathan/news-digest/internal/logging"
	"github.com/jonathan/news-digest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCategorizer(response string, err error) (*Categorizer, *llmtest.MockClient) {
	mock := &llmtest.MockClient{
		GenerateJSONFunc: func(context.Context, string, llm.ModelTier) (string, error) { return response, err },
	}
	return New(mock, rand.New(rand.NewPCG(1, 2)), logging.Discard()), mock
}

func TestPropose(t *testing.T) {
	c, mock := newCategorizer(`[
		{"index": 0, "categories": ["markets", "Policy"]},
		{"index": 1, "categories": ["Sports", "Weather"]},
		{"index": 1, "categories": ["Policy"]},
		{"index": 9, "categories": ["Policy"]},
		{"index": 2, "categories": ["Technology", "Technology", "Research"]}
	]`, nil)

	proposals, err := c.Propose(context.Background(), articles(4))
	require.NoError(t, err)
	assert.Equal(t, [][]types.Category{
		{market, policy},
		{other},
		{tech, resrch},
		{other},
	}, proposals)

	prompt := mock.Prompts()[0]
	assert.Contains(t, prompt, "Policy, Markets, Technology, Research, Other")
	assert.Contains(t, prompt, `"index": 3`)
}

func TestPropose_Errors(t *testing.T) {
	c, _ := newCategorizer("", errors.New("unavailable"))
	_, err := c.Propose(context.Background(), articles(2))
	var ext *types.ExternalServiceError
	assert.ErrorAs(t, err, &ext)

	c, _ = newCategorizer(`[{"index": 0, "categories": ["a", "b", "c", "d"]}]`, nil)
	_, err = c.Propose(context.Background(), articles(2))
	var parseErr *types.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestCategorize(t *testing.T) {
	c, _ := newCategorizer(`[
		{"index": 0, "categories": ["Policy"]},
		{"index": 1, "categories": ["Policy"]},
		{"index": 2, "categories": ["Policy"]},
		{"index": 3, "categories": ["Markets"]},
		{"index": 4, "categories": ["Technology"]}
	]`, nil)

	got, err := c.Categorize(context.Background(), articles(5), 3)
	require.NoError(t, err)
	require.Len(t, got, 5)

	counts := map[types.Category]int{}
	titles := map[string]bool{}
	for _, item := range got {
		counts[item.Category]++
		titles[item.Title] = true
	}
	assert.Equal(t, 1, counts[policy])
	assert.Equal(t, 2, counts[other])
	assert.Len(t, titles, 5)
}

func TestCategorize_BelowMinimum(t *testing.T) {
	c, mock := newCategorizer(`[]`, nil)
	_, err := c.Categorize(context.Background(), articles(2), 3)

	var insufficient *types.InsufficientResultsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "categorization", insufficient.Stage)
	assert.Equal(t, 0, mock.Calls())
}

func TestGroup(t *testing.T) {
	items := []types.CategorizedArticle{
		{EnrichedArticle: types.EnrichedArticle{Title: "x"}, Category: other},
		{EnrichedArticle: types.EnrichedArticle{Title: "y"}, Category: policy},
		{EnrichedArticle: types.EnrichedArticle{Title: "z"}, Category: other},
	}

	groups := Group(items)
	require.Len(t, groups, 2)
	assert.Equal(t, policy, groups[0].Category)
	assert.Equal(t, other, groups[1].Category)
	assert.Len(t, groups[1].Articles, 2)
}
