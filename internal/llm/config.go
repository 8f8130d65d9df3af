// Package llm wraps the AI model used to judge, rank, categorize and describe articles.
// The model is treated as an untrusted oracle: callers validate every response.
package llm

import "maps"

// ModelTier selects a model by the difficulty of the task.
type ModelTier string

const (
	// TierLite handles bulk classification (relevance filtering, category proposals, descriptions)
	TierLite ModelTier = "lite"
	// TierStandard handles ranking and the digest summary
	TierStandard ModelTier = "standard"
	// TierAdvanced is available for prompts that need deeper reasoning
	TierAdvanced ModelTier = "advanced"
)

// Provider names an AI provider.
type Provider string

// ProviderGemini is the only provider currently wired.
const ProviderGemini Provider = "gemini"

// Config maps tiers to provider model names.
type Config struct {
	Provider        Provider
	Models          map[ModelTier]string
	Temperature     float32
	MaxOutputTokens int32 // 0 leaves the provider default
}

// DefaultConfig returns the Gemini model set.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature:     0.2,
		MaxOutputTokens: 8192,
	}
}

// GetModel returns the model for tier, falling back to standard and then lite.
func (c *Config) GetModel(tier ModelTier) string {
	for _, t := range []ModelTier{tier, TierStandard, TierLite} {
		if model := c.Models[t]; model != "" {
			return model
		}
	}
	return ""
}

// WithModel returns a copy of c with tier mapped to model.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	next := *c
	next.Models = maps.Clone(c.Models)
	if next.Models == nil {
		next.Models = make(map[ModelTier]string, 1)
	}
	next.Models[tier] = model
	return &next
}
