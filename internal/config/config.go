// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the digest run configuration. It can be loaded from a JSON, YAML
// or TOML file; missing values use defaults or CLI flags.
type Config struct {
	// Content
	Topic       string   `json:"topic,omitempty" yaml:"topic,omitempty" toml:"topic" validate:"required"`
	Sources     string   `json:"sources,omitempty" yaml:"sources,omitempty" toml:"sources"` // Path to the sources YAML file
	Queries     []string `json:"queries,omitempty" yaml:"queries,omitempty" toml:"queries" validate:"dive,required"`
	SearchPages int      `json:"search_pages,omitempty" yaml:"search_pages,omitempty" toml:"search_pages" validate:"gte=0,lte=10"`
	Blacklist   []string `json:"blacklist,omitempty" yaml:"blacklist,omitempty" toml:"blacklist"` // Origins excluded from search results

	// Limits
	TargetCount    int `json:"target_count,omitempty" yaml:"target_count,omitempty" toml:"target_count" validate:"gte=1"`
	MinCount       int `json:"min_count,omitempty" yaml:"min_count,omitempty" toml:"min_count" validate:"gte=1,ltfield=TargetCount"`
	FrequencyWeeks int `json:"frequency_weeks,omitempty" yaml:"frequency_weeks,omitempty" toml:"frequency_weeks" validate:"gte=0"`
	MaxPerSource   int `json:"max_per_source,omitempty" yaml:"max_per_source,omitempty" toml:"max_per_source" validate:"gte=0"`

	// Throttling
	AIMaxConcurrent    int `json:"ai_max_concurrent,omitempty" yaml:"ai_max_concurrent,omitempty" toml:"ai_max_concurrent" validate:"gte=0"`
	AIMinTimeMS        int `json:"ai_min_time_ms,omitempty" yaml:"ai_min_time_ms,omitempty" toml:"ai_min_time_ms" validate:"gte=0"`
	FetchMaxConcurrent int `json:"fetch_max_concurrent,omitempty" yaml:"fetch_max_concurrent,omitempty" toml:"fetch_max_concurrent" validate:"gte=0"`
	FetchMinTimeMS     int `json:"fetch_min_time_ms,omitempty" yaml:"fetch_min_time_ms,omitempty" toml:"fetch_min_time_ms" validate:"gte=0"`
	RetryAttempts      int `json:"retry_attempts,omitempty" yaml:"retry_attempts,omitempty" toml:"retry_attempts" validate:"gte=0,lte=10"`

	// Services
	APIKey         string `json:"api_key,omitempty" yaml:"api_key,omitempty" toml:"api_key"`                            // Gemini API key
	SearchAPIKey   string `json:"search_api_key,omitempty" yaml:"search_api_key,omitempty" toml:"search_api_key"`       // Custom Search API key
	SearchEngineID string `json:"search_engine_id,omitempty" yaml:"search_engine_id,omitempty" toml:"search_engine_id"` // Custom Search engine ID
	DatabaseURL    string `json:"database_url,omitempty" yaml:"database_url,omitempty" toml:"database_url"`             // PostgreSQL connection URL

	// Behavior
	UseBrowser bool   `json:"use_browser,omitempty" yaml:"use_browser,omitempty" toml:"use_browser"` // Allow the headless browser fallback
	LogLevel   string `json:"log_level,omitempty" yaml:"log_level,omitempty" toml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	Verbose    bool   `json:"verbose,omitempty" yaml:"verbose,omitempty" toml:"verbose"`
}

var validate = validator.New()

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Sources:            "sources.yaml",
		SearchPages:        1,
		TargetCount:        10,
		MinCount:           5,
		FrequencyWeeks:     1,
		AIMaxConcurrent:    2,
		AIMinTimeMS:        500,
		FetchMaxConcurrent: 4,
		FetchMinTimeMS:     250,
		RetryAttempts:      3,
		UseBrowser:         true,
		LogLevel:           "info",
	}
}

// LoadConfig loads configuration from a file. The format follows the extension:
// .json, .yaml/.yml or .toml.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	return &cfg, nil
}

// Validate checks field ranges and that the sources file exists when set.
// Call it after merging defaults and flags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if c.Sources == "" && len(c.Queries) == 0 {
		return fmt.Errorf("config error: at least one of 'sources' or 'queries' is required")
	}
	if c.Sources != "" {
		if _, err := os.Stat(c.Sources); os.IsNotExist(err) {
			return fmt.Errorf("config error: sources file not found: %s", c.Sources)
		}
	}
	if len(c.Queries) > 0 && (c.SearchAPIKey == "" || c.SearchEngineID == "") {
		return fmt.Errorf("config error: 'queries' requires 'search_api_key' and 'search_engine_id'")
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Topic == "" {
		result.Topic = defaults.Topic
	}
	if result.Sources == "" {
		result.Sources = defaults.Sources
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.SearchAPIKey == "" {
		result.SearchAPIKey = defaults.SearchAPIKey
	}
	if result.SearchEngineID == "" {
		result.SearchEngineID = defaults.SearchEngineID
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}

	// Slices
	if len(result.Queries) == 0 {
		result.Queries = defaults.Queries
	}
	if len(result.Blacklist) == 0 {
		result.Blacklist = defaults.Blacklist
	}

	// Int fields: use default if zero
	fill := func(v *int, d int) {
		if *v == 0 {
			*v = d
		}
	}
	fill(&result.SearchPages, defaults.SearchPages)
	fill(&result.TargetCount, defaults.TargetCount)
	fill(&result.MinCount, defaults.MinCount)
	fill(&result.FrequencyWeeks, defaults.FrequencyWeeks)
	fill(&result.MaxPerSource, defaults.MaxPerSource)
	fill(&result.AIMaxConcurrent, defaults.AIMaxConcurrent)
	fill(&result.AIMinTimeMS, defaults.AIMinTimeMS)
	fill(&result.FetchMaxConcurrent, defaults.FetchMaxConcurrent)
	fill(&result.FetchMinTimeMS, defaults.FetchMinTimeMS)
	fill(&result.RetryAttempts, defaults.RetryAttempts)

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Environment variables read by ApplyEnv.
const (
	EnvAPIKey         = "GEMINI_API_KEY"
	EnvSearchAPIKey   = "SEARCH_API_KEY"
	EnvSearchEngineID = "SEARCH_ENGINE_ID"
	EnvDatabaseURL    = "DATABASE_URL"
)

// ApplyEnv fills empty credentials from the environment.
func (c *Config) ApplyEnv() {
	c.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(field *string, key string) {
		if *field == "" {
			*field = getenv(key)
		}
	}
	set(&c.APIKey, EnvAPIKey)
	set(&c.SearchAPIKey, EnvSearchAPIKey)
	set(&c.SearchEngineID, EnvSearchEngineID)
	set(&c.DatabaseURL, EnvDatabaseURL)
}
