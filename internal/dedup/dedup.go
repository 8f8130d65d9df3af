// Package dedup folds repeated candidates into counted records.
package dedup

import (
	"sort"
	"strings"

	"github.com/jonathan/news-digest/internal/types"
)

// KeyField selects a candidate field that takes part in the identity key.
type KeyField string

const (
	KeyTitle       KeyField = "title"
	KeyLink        KeyField = "link"
	KeyDescription KeyField = "description"
	KeySource      KeyField = "source"
)

// DefaultKey identifies candidates by title and link.
var DefaultKey = []KeyField{KeyTitle, KeyLink}

// Deduplicate folds candidates that share a key. The first occurrence keeps its
// field values and position; OccurrenceCount counts every occurrence.
func Deduplicate(candidates []types.ValidCandidate, keyFields ...KeyField) []types.CountedCandidate {
	if len(keyFields) == 0 {
		keyFields = DefaultKey
	}

	index := make(map[string]int, len(candidates))
	out := make([]types.CountedCandidate, 0, len(candidates))
	for _, c := range candidates {
		k := key(c, keyFields)
		if i, ok := index[k]; ok {
			out[i].OccurrenceCount++
			continue
		}
		index[k] = len(out)
		out = append(out, types.CountedCandidate{ValidCandidate: c, OccurrenceCount: 1})
	}
	return out
}

// SortByCount returns a copy ordered by OccurrenceCount, highest first. Ties keep
// their first-seen order.
func SortByCount(counted []types.CountedCandidate) []types.CountedCandidate {
	sorted := make([]types.CountedCandidate, len(counted))
	copy(sorted, counted)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurrenceCount > sorted[j].OccurrenceCount
	})
	return sorted
}

func key(c types.ValidCandidate, fields []KeyField) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		switch f {
		case KeyTitle:
			parts[i] = c.Title
		case KeyLink:
			parts[i] = c.Link
		case KeyDescription:
			parts[i] = c.Description
		case KeySource:
			parts[i] = c.SourceURL
		}
	}
	return strings.Join(parts, "\x00")
}
