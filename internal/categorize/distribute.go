package categorize

import (
	"math"
	"math/rand/v2"

	"github.com/jonathan/news-digest/internal/types"
)

// Capacity returns the per-category ceiling ceil(n / numCategories).
func Capacity(n, numCategories int) int {
	if numCategories <= 0 {
		return n
	}
	return int(math.Ceil(float64(n) / float64(numCategories)))
}

// Distribute assigns each article, in order, the first proposed category whose
// running count is still below Capacity(len(articles), len(categories)). The
// catch-all is capped like any other proposal; only an article with no
// qualifying proposal is forced into it past the ceiling. A missing proposal
// list counts as empty.
func Distribute(articles []types.EnrichedArticle, proposals [][]types.Category, categories []types.Category) []types.CategorizedArticle {
	capacity := Capacity(len(articles), len(categories))
	allowed := make(map[types.Category]bool, len(categories))
	for _, c := range categories {
		allowed[c] = true
	}

	counts := make(map[types.Category]int, len(categories))
	out := make([]types.CategorizedArticle, len(articles))
	for i, article := range articles {
		assigned := types.CatchAll
		if i < len(proposals) {
			for _, c := range proposals[i] {
				if allowed[c] && counts[c] < capacity {
					assigned = c
					break
				}
			}
		}
		counts[assigned]++
		out[i] = types.CategorizedArticle{EnrichedArticle: article, Category: assigned}
	}
	return out
}

// Shuffle returns a uniformly random permutation of items (Fisher-Yates).
// items is not modified.
func Shuffle[T any](rng *rand.Rand, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
