package search

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/searchbridge/searchbridge/pkg/cache"
	"github.com/searchbridge/searchbridge/pkg/ratelimit"
)

const (
	ProviderPerplexity = "perplexity"
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderModelBox   = "modelbox"

	DefaultProvider    = ProviderPerplexity
	DefaultTimeoutSecs = 30
)

// ProviderOrder is the fixed preference order used for fallback. It is
// deliberately not latency-based so that fallback behavior is deterministic.
var ProviderOrder = []string{
	ProviderPerplexity,
	ProviderGemini,
	ProviderOpenAI,
	ProviderOpenRouter,
	ProviderModelBox,
}

// Config controls provider selection, credentials, rate limits, and caching.
type Config struct {
	// Provider is the default provider for requests that do not name one.
	Provider string `yaml:"provider"`
	// Fallbacks optionally overrides the fallback preference order.
	Fallbacks []string `yaml:"fallbacks"`

	Cache cache.Config `yaml:"cache"`

	Perplexity ProviderConfig `yaml:"perplexity"`
	Gemini     ProviderConfig `yaml:"gemini"`
	OpenAI     ProviderConfig `yaml:"openai"`
	OpenRouter ProviderConfig `yaml:"openrouter"`
	ModelBox   ProviderConfig `yaml:"modelbox"`
}

// ProviderConfig holds one provider's credentials and tuning.
type ProviderConfig struct {
	Enabled     *bool            `yaml:"enabled"`
	APIKey      string           `yaml:"api_key"`
	BaseURL     string           `yaml:"base_url"`
	Model       string           `yaml:"model"`
	TimeoutSecs int              `yaml:"timeout_seconds"`
	RateLimit   ratelimit.Config `yaml:"rate_limit"`
}

// Load reads a yaml config file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg.WithDefaults(), nil
}

// WithDefaults fills unset fields with defaults and returns the config.
func (c *Config) WithDefaults() *Config {
	if c == nil {
		c = &Config{}
	}
	if strings.TrimSpace(c.Provider) == "" {
		c.Provider = DefaultProvider
	}
	if len(c.Fallbacks) == 0 {
		c.Fallbacks = append([]string{}, ProviderOrder...)
	}
	c.Perplexity = c.Perplexity.withDefaults("https://api.perplexity.ai", "sonar-pro", 20, 0.5)
	c.Gemini = c.Gemini.withDefaults("https://generativelanguage.googleapis.com/v1beta", "gemini-2.0-flash", 15, 0.25)
	c.OpenAI = c.OpenAI.withDefaults("", "gpt-4o-search-preview", 20, 0.5)
	c.OpenRouter = c.OpenRouter.withDefaults("https://openrouter.ai/api/v1", "perplexity/sonar", 20, 0.5)
	c.ModelBox = c.ModelBox.withDefaults("https://api.model.box/v1", "perplexity/sonar-pro", 20, 0.5)
	return c
}

func (c ProviderConfig) withDefaults(baseURL, model string, maxTokens, refillRate float64) ProviderConfig {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs <= 0 {
		c.TimeoutSecs = DefaultTimeoutSecs
	}
	if c.RateLimit.MaxTokens <= 0 {
		c.RateLimit.MaxTokens = maxTokens
	}
	if c.RateLimit.RefillRate <= 0 {
		c.RateLimit.RefillRate = refillRate
	}
	return c
}

// providerConfig returns the section for a known provider name.
func (c *Config) providerConfig(name string) (ProviderConfig, bool) {
	switch name {
	case ProviderPerplexity:
		return c.Perplexity, true
	case ProviderGemini:
		return c.Gemini, true
	case ProviderOpenAI:
		return c.OpenAI, true
	case ProviderOpenRouter:
		return c.OpenRouter, true
	case ProviderModelBox:
		return c.ModelBox, true
	}
	return ProviderConfig{}, false
}

func isEnabled(flag *bool, fallback bool) bool {
	if flag == nil {
		return fallback
	}
	return *flag
}
