package search

import (
	"os"
	"path/filepath"
	"testing"

	"go.mau.fi/util/ptr"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := (&Config{}).WithDefaults()

	if cfg.Provider != DefaultProvider {
		t.Fatalf("unexpected default provider %q", cfg.Provider)
	}
	if len(cfg.Fallbacks) != len(ProviderOrder) {
		t.Fatalf("unexpected fallback order %v", cfg.Fallbacks)
	}
	if cfg.Perplexity.Model != "sonar-pro" {
		t.Fatalf("unexpected perplexity model %q", cfg.Perplexity.Model)
	}
	if cfg.Perplexity.RateLimit.MaxTokens <= 0 || cfg.Perplexity.RateLimit.RefillRate <= 0 {
		t.Fatalf("rate limit defaults missing: %+v", cfg.Perplexity.RateLimit)
	}
	if cfg.Gemini.BaseURL == "" || cfg.ModelBox.BaseURL == "" {
		t.Fatalf("base URL defaults missing")
	}
	if cfg.OpenAI.TimeoutSecs != DefaultTimeoutSecs {
		t.Fatalf("unexpected timeout default %d", cfg.OpenAI.TimeoutSecs)
	}
}

func TestConfigExplicitValuesWin(t *testing.T) {
	cfg := (&Config{
		Provider: ProviderGemini,
		Gemini:   ProviderConfig{Model: "gemini-custom", Enabled: ptr.Ptr(true)},
	}).WithDefaults()

	if cfg.Provider != ProviderGemini {
		t.Fatalf("explicit provider overwritten: %q", cfg.Provider)
	}
	if cfg.Gemini.Model != "gemini-custom" {
		t.Fatalf("explicit model overwritten: %q", cfg.Gemini.Model)
	}
}

func TestLoadYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
provider: openrouter
fallbacks: [openrouter, perplexity]
cache:
  max_age_seconds: 3600
openrouter:
  api_key: or-key
  model: custom/model
  rate_limit:
    max_tokens: 5
    refill_rate: 0.1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider != ProviderOpenRouter {
		t.Fatalf("unexpected provider %q", cfg.Provider)
	}
	if cfg.OpenRouter.APIKey != "or-key" || cfg.OpenRouter.Model != "custom/model" {
		t.Fatalf("unexpected openrouter config %+v", cfg.OpenRouter)
	}
	if cfg.OpenRouter.RateLimit.MaxTokens != 5 {
		t.Fatalf("unexpected rate limit %+v", cfg.OpenRouter.RateLimit)
	}
	if cfg.Cache.MaxAgeSecs != 3600 {
		t.Fatalf("unexpected cache config %+v", cfg.Cache)
	}
	if len(cfg.Fallbacks) != 2 {
		t.Fatalf("unexpected fallbacks %v", cfg.Fallbacks)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for a missing config file")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("SEARCH_PROVIDER", "gemini")
	t.Setenv("SEARCH_FALLBACKS", "gemini,openai")
	t.Setenv("PERPLEXITY_API_KEY", "pplx-env")
	t.Setenv("GEMINI_API_KEY", "gm-env")
	t.Setenv("MODELBOX_API_KEY", "mb-env")

	cfg := ConfigFromEnv()
	if cfg.Provider != ProviderGemini {
		t.Fatalf("unexpected provider %q", cfg.Provider)
	}
	if cfg.Perplexity.APIKey != "pplx-env" || cfg.Gemini.APIKey != "gm-env" || cfg.ModelBox.APIKey != "mb-env" {
		t.Fatalf("environment keys not applied: %+v", cfg)
	}
	if len(cfg.Fallbacks) != 2 {
		t.Fatalf("unexpected fallbacks %v", cfg.Fallbacks)
	}
}

func TestApplyEnvDefaultsConfigWins(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg := ApplyEnvDefaults(&Config{OpenAI: ProviderConfig{APIKey: "file-key"}})
	if cfg.OpenAI.APIKey != "file-key" {
		t.Fatalf("config value should win over environment, got %q", cfg.OpenAI.APIKey)
	}

	cfg = ApplyEnvDefaults(&Config{})
	if cfg.OpenAI.APIKey != "env-key" {
		t.Fatalf("environment should fill empty fields, got %q", cfg.OpenAI.APIKey)
	}
}
