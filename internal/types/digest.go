package types

// CategoryGroup holds the articles assigned to one category.
type CategoryGroup struct {
	Category Category             `json:"category"`
	Articles []CategorizedArticle `json:"articles"`
}

// DigestResult is the terminal artifact of a pipeline run.
type DigestResult struct {
	Summary    string          `json:"summary"`
	Categories []CategoryGroup `json:"categories"`
}

// Flatten returns all articles in group order.
func (d *DigestResult) Flatten() []CategorizedArticle {
	if d == nil {
		return nil
	}
	var out []CategorizedArticle
	for _, g := range d.Categories {
		out = append(out, g.Articles...)
	}
	return out
}

// GroupByCategory builds groups in enumeration order, skipping empty categories.
// Within a group, articles keep their relative order from items.
func GroupByCategory(items []CategorizedArticle) []CategoryGroup {
	byCategory := make(map[Category][]CategorizedArticle)
	for _, item := range items {
		byCategory[item.Category] = append(byCategory[item.Category], item)
	}

	groups := make([]CategoryGroup, 0, len(byCategory))
	for _, c := range allCategories {
		if articles, ok := byCategory[c]; ok {
			groups = append(groups, CategoryGroup{Category: c, Articles: articles})
		}
	}
	return groups
}
