package search

import (
	"github.com/rs/zerolog"
)

// ModelBox exposes an OpenAI-compatible chat completions API, so it reuses
// the SDK-backed provider with its own name and base URL.
func newModelBoxProvider(cfg ProviderConfig, log zerolog.Logger) Provider {
	return &openaiChatProvider{
		name: ProviderModelBox,
		cfg:  cfg,
		log:  log.With().Str("provider", ProviderModelBox).Logger(),
	}
}
