package scraper

import (
	"fmt"
	"os"

	"github.com/jonathan/news-digest/internal/types"
	"gopkg.in/yaml.v3"
)

// sourcesFile is the on-disk layout of a sources file.
type sourcesFile struct {
	Sources []types.SourceSpec `yaml:"sources"`
}

// LoadSources reads and validates source specs from a YAML file.
func LoadSources(path string) ([]types.SourceSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file %s: %w", path, err)
	}
	return ParseSources(data)
}

// ParseSources decodes and validates YAML source specs.
func ParseSources(data []byte) ([]types.SourceSpec, error) {
	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources: %w", err)
	}
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("no sources defined")
	}

	seen := make(map[string]bool, len(file.Sources))
	for _, spec := range file.Sources {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("duplicate source name %q", spec.Name)
		}
		seen[spec.Name] = true
	}
	return file.Sources, nil
}
