// Package prompts holds the AI prompt templates embedded with the binary.
// Each JSON file maps a prompt key to a template with {{.Name}} placeholders.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// Prompt files and keys used by the pipeline stages.
const (
	DigestFile = "digest.json"

	KeyFilterArticles     = "filter-articles"
	KeyRankArticles       = "rank-articles"
	KeyCategorizeArticles = "categorize-articles"
	KeyDescribeArticle    = "describe-article"
	KeySummarizeDigest    = "summarize-digest"
)

var placeholder = regexp.MustCompile(`\{\{\.(\w+)\}\}`)

// Template is one parsed prompt.
type Template struct {
	Key    string
	text   string
	fields []string
}

func parse(key, text string) *Template {
	t := &Template{Key: key, text: text}
	seen := make(map[string]bool)
	for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			t.fields = append(t.fields, m[1])
		}
	}
	return t
}

// Fields returns the placeholder names in order of first appearance.
func (t *Template) Fields() []string {
	return slices.Clone(t.fields)
}

// Execute fills every placeholder from data in a single pass, so values that
// themselves contain placeholder syntax are left alone. A placeholder without
// a value is an error.
func (t *Template) Execute(data map[string]string) (string, error) {
	var missing []string
	pairs := make([]string, 0, 2*len(t.fields))
	for _, f := range t.fields {
		v, ok := data[f]
		if !ok {
			missing = append(missing, f)
			continue
		}
		pairs = append(pairs, "{{."+f+"}}", v)
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("prompt %s: missing values for %s", t.Key, strings.Join(missing, ", "))
	}
	return strings.NewReplacer(pairs...).Replace(t.text), nil
}

var (
	mu    sync.Mutex
	files = make(map[string]map[string]*Template)
)

func load(filename string) (map[string]*Template, error) {
	mu.Lock()
	defer mu.Unlock()

	if templates, ok := files[filename]; ok {
		return templates, nil
	}

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	templates := make(map[string]*Template, len(raw))
	for key, text := range raw {
		templates[key] = parse(key, text)
	}
	files[filename] = templates
	return templates, nil
}

// Lookup returns the template stored under key in filename.
func Lookup(filename, key string) (*Template, error) {
	templates, err := load(filename)
	if err != nil {
		return nil, err
	}
	t, ok := templates[key]
	if !ok {
		return nil, fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return t, nil
}

// Render looks up a template and executes it with data.
func Render(filename, key string, data map[string]string) (string, error) {
	t, err := Lookup(filename, key)
	if err != nil {
		return "", err
	}
	return t.Execute(data)
}

// Keys returns the template keys in filename, sorted.
func Keys(filename string) ([]string, error) {
	templates, err := load(filename)
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(templates)), nil
}
