package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/jonathan/news-digest/internal/llm"
	"github.com/jonathan/news-digest/internal/llm/llmtest"
	"github.com/jonathan/news-digest/internal/logging"
	"github.com/jonathan/news-digest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var groups = []types.CategoryGroup{
	{Category: types.CategoryPolicy, Articles: []types.CategorizedArticle{
		{EnrichedArticle: types.EnrichedArticle{Title: "New rules", Description: "Rules were approved."}, Category: types.CategoryPolicy},
	}},
	{Category: types.CategoryOther, Articles: []types.CategorizedArticle{
		{EnrichedArticle: types.EnrichedArticle{Title: "Misc", Description: "Something else."}, Category: types.CategoryOther},
	}},
}

func TestSummarize(t *testing.T) {
	mock := &llmtest.MockClient{
		GenerateContentFunc: func(context.Context, string, llm.ModelTier) (string, error) {
			return "This week regulators\napproved new rules.", nil
		},
	}

	summary, err := NewSummarizer(mock, "carbon markets", logging.Discard()).Summarize(context.Background(), groups)
	require.NoError(t, err)
	assert.Equal(t, "This week regulators approved new rules.", summary)
	require.Equal(t, 1, mock.Calls())

	prompt := mock.Prompts()[0]
	assert.Contains(t, prompt, "carbon markets")
	assert.Contains(t, prompt, "Policy:\n- New rules: Rules were approved.")
	assert.Contains(t, prompt, "Other:\n- Misc: Something else.")
}

func TestSummarize_Failures(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{name: "empty", response: "  \n "},
		{name: "error", err: errors.New("unavailable")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &llmtest.MockClient{
				GenerateContentFunc: func(context.Context, string, llm.ModelTier) (string, error) {
					return tt.response, tt.err
				},
			}
			summary, err := NewSummarizer(mock, "t", logging.Discard()).Summarize(context.Background(), groups)
			assert.Empty(t, summary)
			var ext *types.ExternalServiceError
			assert.ErrorAs(t, err, &ext)
		})
	}
}
