package types

import (
	"fmt"
	"strings"
)

// Category is one of the fixed digest sections.
type Category string

// The enumeration order is the display order of the digest.
const (
	CategoryPolicy     Category = "Policy"
	CategoryMarkets    Category = "Markets"
	CategoryTechnology Category = "Technology"
	CategoryResearch   Category = "Research"
	CategoryOther      Category = "Other"
)

// CatchAll is used when no better category fits or capacity is exhausted.
const CatchAll = CategoryOther

var allCategories = []Category{
	CategoryPolicy,
	CategoryMarkets,
	CategoryTechnology,
	CategoryResearch,
	CategoryOther,
}

// AllCategories returns the ordered category enumeration.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// IsValid reports whether c belongs to the enumeration.
func (c Category) IsValid() bool {
	for _, known := range allCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(name string) (Category, error) {
	name = strings.TrimSpace(name)
	for _, known := range allCategories {
		if strings.EqualFold(name, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", name)
}
