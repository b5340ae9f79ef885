package search

import (
	"os"
	"strings"

	"github.com/searchbridge/searchbridge/pkg/shared/stringutil"
)

// ConfigFromEnv builds a config using environment variables.
func ConfigFromEnv() *Config {
	cfg := &Config{}

	if provider := strings.TrimSpace(os.Getenv("SEARCH_PROVIDER")); provider != "" {
		cfg.Provider = provider
	}
	if fallbacks := strings.TrimSpace(os.Getenv("SEARCH_FALLBACKS")); fallbacks != "" {
		cfg.Fallbacks = stringutil.SplitCSV(fallbacks)
	}
	if dir := strings.TrimSpace(os.Getenv("SEARCH_CACHE_DIR")); dir != "" {
		cfg.Cache.Dir = dir
	}

	cfg.Perplexity.APIKey = stringutil.EnvOr(cfg.Perplexity.APIKey, os.Getenv("PERPLEXITY_API_KEY"))
	cfg.Perplexity.BaseURL = stringutil.EnvOr(cfg.Perplexity.BaseURL, os.Getenv("PERPLEXITY_BASE_URL"))
	cfg.Perplexity.Model = stringutil.EnvOr(cfg.Perplexity.Model, os.Getenv("PERPLEXITY_MODEL"))

	cfg.Gemini.APIKey = stringutil.EnvOr(cfg.Gemini.APIKey, os.Getenv("GEMINI_API_KEY"))
	cfg.Gemini.BaseURL = stringutil.EnvOr(cfg.Gemini.BaseURL, os.Getenv("GEMINI_BASE_URL"))
	cfg.Gemini.Model = stringutil.EnvOr(cfg.Gemini.Model, os.Getenv("GEMINI_MODEL"))

	cfg.OpenAI.APIKey = stringutil.EnvOr(cfg.OpenAI.APIKey, os.Getenv("OPENAI_API_KEY"))
	cfg.OpenAI.BaseURL = stringutil.EnvOr(cfg.OpenAI.BaseURL, os.Getenv("OPENAI_BASE_URL"))
	cfg.OpenAI.Model = stringutil.EnvOr(cfg.OpenAI.Model, os.Getenv("OPENAI_MODEL"))

	cfg.OpenRouter.APIKey = stringutil.EnvOr(cfg.OpenRouter.APIKey, os.Getenv("OPENROUTER_API_KEY"))
	cfg.OpenRouter.BaseURL = stringutil.EnvOr(cfg.OpenRouter.BaseURL, os.Getenv("OPENROUTER_BASE_URL"))
	cfg.OpenRouter.Model = stringutil.EnvOr(cfg.OpenRouter.Model, os.Getenv("OPENROUTER_MODEL"))

	cfg.ModelBox.APIKey = stringutil.EnvOr(cfg.ModelBox.APIKey, os.Getenv("MODELBOX_API_KEY"))
	cfg.ModelBox.BaseURL = stringutil.EnvOr(cfg.ModelBox.BaseURL, os.Getenv("MODELBOX_BASE_URL"))
	cfg.ModelBox.Model = stringutil.EnvOr(cfg.ModelBox.Model, os.Getenv("MODELBOX_MODEL"))

	return cfg.WithDefaults()
}

// ApplyEnvDefaults fills empty config fields from environment variables.
// Values already present in the config win over the environment.
func ApplyEnvDefaults(cfg *Config) *Config {
	if cfg == nil {
		return ConfigFromEnv()
	}
	current := cfg.WithDefaults()
	envCfg := ConfigFromEnv()

	fillProvider := func(dst *ProviderConfig, src ProviderConfig) {
		if dst.APIKey == "" {
			dst.APIKey = src.APIKey
		}
	}
	fillProvider(&current.Perplexity, envCfg.Perplexity)
	fillProvider(&current.Gemini, envCfg.Gemini)
	fillProvider(&current.OpenAI, envCfg.OpenAI)
	fillProvider(&current.OpenRouter, envCfg.OpenRouter)
	fillProvider(&current.ModelBox, envCfg.ModelBox)

	if current.Cache.Dir == "" {
		current.Cache.Dir = envCfg.Cache.Dir
	}

	return current
}
