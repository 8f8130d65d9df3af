// Package schemas checks AI responses against embedded JSON Schemas.
package schemas

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed digest/*.json
var schemaFiles embed.FS

// Schema names for the AI responses the pipeline accepts.
const (
	FilteredArticles  = "filtered_articles"
	RankedArticles    = "ranked_articles"
	CategoryProposals = "category_proposals"
)

// Violation is one place where a document departs from its schema.
type Violation struct {
	Path    string
	Message string
}

// MismatchError lists every violation found in a document.
type MismatchError struct {
	Schema     string
	Violations []Violation
}

func (e *MismatchError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Path + ": " + v.Message
	}
	return fmt.Sprintf("%s mismatch: %s", e.Schema, strings.Join(parts, "; "))
}

// LoadError means a schema could not be found or compiled.
type LoadError struct {
	Name  string
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load schema %s: %v", e.Name, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

var (
	mu       sync.Mutex
	compiled = make(map[string]*gojsonschema.Schema)
)

// Source returns the embedded schema document for name.
func Source(name string) (string, error) {
	data, err := schemaFiles.ReadFile("digest/" + name + ".schema.json")
	if err != nil {
		return "", &LoadError{Name: name, Cause: err}
	}
	return string(data), nil
}

// schemaFor compiles the named schema once and reuses it.
func schemaFor(name string) (*gojsonschema.Schema, error) {
	mu.Lock()
	defer mu.Unlock()

	if s, ok := compiled[name]; ok {
		return s, nil
	}
	src, err := Source(name)
	if err != nil {
		return nil, err
	}
	s, err := Compile(name, src)
	if err != nil {
		return nil, err
	}
	compiled[name] = s
	return s, nil
}

// Compile parses a schema document.
func Compile(name, source string) (*gojsonschema.Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		return nil, &LoadError{Name: name, Cause: err}
	}
	return s, nil
}

// Validate checks doc against the embedded schema called name. A document
// that parses but does not conform returns a *MismatchError.
func Validate(name, doc string) error {
	s, err := schemaFor(name)
	if err != nil {
		return err
	}
	return check(name, s, doc)
}

func check(name string, s *gojsonschema.Schema, doc string) error {
	result, err := s.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("document is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	mismatch := &MismatchError{Schema: name, Violations: make([]Violation, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		path := desc.Field()
		if path == "" {
			path = "(root)"
		}
		mismatch.Violations = append(mismatch.Violations, Violation{Path: path, Message: desc.Description()})
	}
	return mismatch
}
