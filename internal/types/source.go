package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// SourceKind selects how a source page is interpreted.
type SourceKind string

const (
	// SourceKindHTML extracts previews with CSS selectors.
	SourceKindHTML SourceKind = "html"
	// SourceKindFeed parses an RSS or Atom feed.
	SourceKindFeed SourceKind = "feed"
)

// Selectors are the CSS selectors used to extract one article preview.
// Sub-selectors are evaluated relative to each Container match.
type Selectors struct {
	Container   string `yaml:"container" json:"container"`
	Link        string `yaml:"link" json:"link"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Date        string `yaml:"date,omitempty" json:"date,omitempty"`
}

// SourceSpec is a configured scraping target. It is plain data; the scraper interprets it.
type SourceSpec struct {
	Name        string     `yaml:"name" json:"name" validate:"required"`
	Kind        SourceKind `yaml:"kind,omitempty" json:"kind,omitempty" validate:"omitempty,oneof=html feed"`
	BaseURL     string     `yaml:"base_url" json:"base_url" validate:"required,url"`
	Selectors   Selectors  `yaml:"selectors" json:"selectors"`
	RequireDate bool       `yaml:"require_date,omitempty" json:"require_date,omitempty"`
}

var validate = validator.New()

// EffectiveKind defaults an empty kind to html.
func (s SourceSpec) EffectiveKind() SourceKind {
	if s.Kind == "" {
		return SourceKindHTML
	}
	return s.Kind
}

// Validate checks required fields and that html sources carry container, link and title selectors.
func (s SourceSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("source %q: %w", s.Name, err)
	}
	if s.EffectiveKind() == SourceKindHTML {
		if s.Selectors.Container == "" || s.Selectors.Link == "" || s.Selectors.Title == "" {
			return fmt.Errorf("source %q: container, link and title selectors are required", s.Name)
		}
	}
	return nil
}
