package categorize

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/jonathan/news-digest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	policy = types.CategoryPolicy
	market = types.CategoryMarkets
	tech   = types.CategoryTechnology
	resrch = types.CategoryResearch
	other  = types.CategoryOther
)

func articles(n int) []types.EnrichedArticle {
	out := make([]types.EnrichedArticle, n)
	for i := range out {
		out[i] = types.EnrichedArticle{Title: fmt.Sprintf("a%d", i), Link: fmt.Sprintf("https://x.com/%d", i), Description: "d"}
	}
	return out
}

func categoriesOf(items []types.CategorizedArticle) []types.Category {
	out := make([]types.Category, len(items))
	for i, it := range items {
		out[i] = it.Category
	}
	return out
}

func TestCapacity(t *testing.T) {
	assert.Equal(t, 2, Capacity(10, 5))
	assert.Equal(t, 3, Capacity(11, 5))
	assert.Equal(t, 1, Capacity(3, 5))
	assert.Equal(t, 0, Capacity(0, 5))
}

func TestDistribute_GreedyWithOverflow(t *testing.T) {
	// 5 articles, 5 categories: capacity 1
	proposals := [][]types.Category{
		{policy, market},
		{policy, market},
		{policy, market},
		{tech},
		{},
	}

	got := Distribute(articles(5), proposals, types.AllCategories())
	assert.Equal(t, []types.Category{policy, market, other, tech, other}, categoriesOf(got))
	assert.Equal(t, "a0", got[0].Title)
}

func TestDistribute_CatchAllOverflowsWhenForced(t *testing.T) {
	// capacity 1: policy fills on the first article, the rest have nowhere else to go
	proposals := [][]types.Category{{policy}, {policy}, {policy}, {}, {policy}}
	got := Distribute(articles(5), proposals, types.AllCategories())
	assert.Equal(t, []types.Category{policy, other, other, other, other}, categoriesOf(got))
}

func TestDistribute_ProposedCatchAllRespectsCapacity(t *testing.T) {
	tests := []struct {
		name      string
		proposals [][]types.Category
		want      []types.Category
	}{
		{
			name:      "full catch-all falls through to next proposal",
			proposals: [][]types.Category{{other}, {other, policy}, {}, {}, {}},
			want:      []types.Category{other, policy, other, other, other},
		},
		{
			name:      "catch-all only proposal is forced",
			proposals: [][]types.Category{{other}, {other}, {tech}, {tech, other}, {}},
			want:      []types.Category{other, other, tech, other, other},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distribute(articles(5), tt.proposals, types.AllCategories())
			assert.Equal(t, tt.want, categoriesOf(got))
		})
	}
}

func TestDistribute_MissingProposals(t *testing.T) {
	got := Distribute(articles(3), [][]types.Category{{resrch}}, types.AllCategories())
	assert.Equal(t, []types.Category{resrch, other, other}, categoriesOf(got))
}

func TestDistribute_IgnoresCategoriesOutsideSet(t *testing.T) {
	got := Distribute(articles(2), [][]types.Category{{"Sports", policy}, {"Sports"}}, types.AllCategories())
	assert.Equal(t, []types.Category{policy, other}, categoriesOf(got))
}

func TestDistribute_BalanceProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	all := types.AllCategories()

	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.IntN(25)
		proposals := make([][]types.Category, n)
		for i := range proposals {
			k := rng.IntN(4)
			for j := 0; j < k; j++ {
				proposals[i] = append(proposals[i], all[rng.IntN(len(all))])
			}
		}

		got := Distribute(articles(n), proposals, all)
		require.Len(t, got, n)

		capacity := Capacity(n, len(all))
		counts := map[types.Category]int{}
		for _, item := range got {
			require.True(t, item.Category.IsValid())
			counts[item.Category]++
		}
		for cat, count := range counts {
			if cat != types.CatchAll {
				assert.LessOrEqual(t, count, capacity, "category %s over capacity", cat)
			}
		}

		// past the ceiling, the catch-all only holds articles with no open proposal
		seen := map[types.Category]int{}
		for i, item := range got {
			if item.Category == types.CatchAll && seen[types.CatchAll] >= capacity {
				for _, c := range proposals[i] {
					assert.GreaterOrEqual(t, seen[c], capacity, "article %d skipped open category %s", i, c)
				}
			}
			seen[item.Category]++
		}
	}
}

func TestShuffle(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	rng := rand.New(rand.NewPCG(1, 2))

	shuffled := Shuffle(rng, items)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, items, "input untouched")

	sorted := append([]int(nil), shuffled...)
	sort.Ints(sorted)
	assert.Equal(t, items, sorted, "shuffle is a permutation")
}

func TestShuffle_Uniform(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	items := []int{0, 1, 2}
	firstPositions := make([]int, 3)

	const trials = 30000
	for i := 0; i < trials; i++ {
		firstPositions[Shuffle(rng, items)[0]]++
	}
	for _, c := range firstPositions {
		assert.InDelta(t, trials/3, c, trials/30)
	}
}

func TestShuffle_Empty(t *testing.T) {
	assert.Empty(t, Shuffle(rand.New(rand.NewPCG(1, 1)), []int{}))
}
