package filter

import (
	"testing"
	"time"

	"github.com/jonathan/news-digest/internal/types"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func counted(title, source string, date *time.Time) types.CountedCandidate {
	return types.CountedCandidate{
		ValidCandidate: types.ValidCandidate{
			SourceURL:  "https://" + source,
			SourceName: source,
			Link:       "https://x.com/" + title,
			Title:      title,
			Date:       date,
		},
		OccurrenceCount: 1,
	}
}

func daysAgo(n int) *time.Time {
	t := now.AddDate(0, 0, -n)
	return &t
}

func titles(cs []types.CountedCandidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Title
	}
	return out
}

func TestWindow(t *testing.T) {
	assert.Equal(t, 7*24*time.Hour, Window(1))
	assert.Equal(t, 14*24*time.Hour, Window(2))
	assert.Equal(t, 7*24*time.Hour, Window(0))
}

func TestStageA(t *testing.T) {
	strict := "strict.com"
	loose := "loose.com"
	input := []types.CountedCandidate{
		counted("fresh", loose, daysAgo(2)),
		counted("stale", loose, daysAgo(30)),
		counted("dateless", loose, nil),
		counted("strict-dateless", strict, nil),
		counted("strict-dated", strict, daysAgo(1)),
		{ValidCandidate: types.ValidCandidate{SourceName: loose, Title: "no-link"}},
		{ValidCandidate: types.ValidCandidate{SourceName: loose, Link: "https://x.com/nt"}},
	}

	out := StageA(input, Options{
		Window:      Window(1),
		Now:         func() time.Time { return now },
		RequireDate: map[string]bool{strict: true},
	})

	assert.Equal(t, []string{"fresh", "dateless", "strict-dated"}, titles(out))
}

func TestStageA_RequireDateProperty(t *testing.T) {
	strict := "strict.com"
	var input []types.CountedCandidate
	for i := 0; i < 20; i++ {
		var date *time.Time
		if i%3 == 0 {
			date = daysAgo(i % 5)
		}
		input = append(input, counted(string(rune('a'+i)), strict, date))
	}

	out := StageA(input, Options{
		Window:      Window(1),
		Now:         func() time.Time { return now },
		RequireDate: RequireDateSources([]types.SourceSpec{{Name: strict, BaseURL: "https://" + strict, RequireDate: true}}),
	})

	assert.NotEmpty(t, out)
	for _, c := range out {
		assert.NotNil(t, c.Date)
	}
}

func TestRequireDateSources(t *testing.T) {
	got := RequireDateSources([]types.SourceSpec{
		{Name: "A", BaseURL: "https://a.com", RequireDate: true},
		{Name: "B", BaseURL: "https://b.com"},
	})
	assert.Equal(t, map[string]bool{"A": true}, got)
}

func TestStageA_RequireDateIgnoresSearchResultsFromSameOrigin(t *testing.T) {
	specs := []types.SourceSpec{{Name: "Strict", BaseURL: "https://strict.com", RequireDate: true}}
	scraped := types.CountedCandidate{ValidCandidate: types.ValidCandidate{
		SourceURL: "https://strict.com", SourceName: "Strict", Link: "https://strict.com/a", Title: "scraped",
	}}
	searched := types.CountedCandidate{ValidCandidate: types.ValidCandidate{
		SourceURL: "https://strict.com", Link: "https://strict.com/b", Title: "searched",
	}}

	out := StageA([]types.CountedCandidate{scraped, searched}, Options{
		Window:      Window(1),
		Now:         func() time.Time { return now },
		RequireDate: RequireDateSources(specs),
	})

	assert.Equal(t, []string{"searched"}, titles(out))
}
