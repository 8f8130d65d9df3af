package llm

import (
	"errors"
	"testing"

	"github.com/jonathan/news-digest/internal/schemas"
	"github.com/jonathan/news-digest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type titled struct {
	Title string `json:"title"`
}

func TestDecodeJSON_Valid(t *testing.T) {
	res := DecodeJSON[[]titled]("```json\n[{\"title\":\"A\"},{\"title\":\"B\"}]\n```", schemas.RankedArticles)
	require.True(t, res.OK, res.Reason)
	assert.Len(t, res.Value, 2)
	assert.NoError(t, res.Err())
}

func TestDecodeJSON_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		schema string
		reason string
	}{
		{"empty", "  ", schemas.RankedArticles, "empty response"},
		{"schema mismatch", `{"title":"A"}`, schemas.RankedArticles, "does not match"},
		{"unmarshal failure without schema", `[{"title": 5}]`, "", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := DecodeJSON[[]titled](tt.raw, tt.schema)
			assert.False(t, res.OK)
			assert.Contains(t, res.Reason, tt.reason)

			var parseErr *types.ParseError
			assert.True(t, errors.As(res.Err(), &parseErr))
		})
	}
}

func TestReject(t *testing.T) {
	res := Reject[int]("bad %d", 3)
	assert.False(t, res.OK)
	assert.Equal(t, "bad 3", res.Reason)
}
