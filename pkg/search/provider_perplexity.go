package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchbridge/searchbridge/pkg/shared/httputil"
)

type perplexityProvider struct {
	cfg   ProviderConfig
	log   zerolog.Logger
	state providerState
}

func newPerplexityProvider(cfg ProviderConfig, log zerolog.Logger) Provider {
	return &perplexityProvider{
		cfg: cfg,
		log: log.With().Str("provider", ProviderPerplexity).Logger(),
	}
}

func (p *perplexityProvider) Name() string {
	return ProviderPerplexity
}

func (p *perplexityProvider) Initialize(ctx context.Context) error {
	p.state.ensure(p.checkCredentials)
	return nil
}

func (p *perplexityProvider) Available() bool {
	return p.state.ensure(p.checkCredentials)
}

func (p *perplexityProvider) checkCredentials() bool {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		p.log.Warn().Msg(missingKeyWarning(ProviderPerplexity))
		return false
	}
	return isEnabled(p.cfg.Enabled, true)
}

func (p *perplexityProvider) Search(ctx context.Context, req Request) (*Result, error) {
	if !p.Available() {
		return nil, &AuthError{Provider: ProviderPerplexity}
	}
	timeout := callTimeout(req, p.cfg)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model := resolveModel(req, p.cfg)
	prompt := buildPrompt(req)
	payload := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	}
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"
	data, _, err := httputil.PostJSON(ctx, endpoint, map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", p.cfg.APIKey),
	}, payload)
	if err != nil {
		return nil, classifyError(ProviderPerplexity, err, timeout)
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Citations []string `json:"citations"`
		Usage     struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &ProviderError{Provider: ProviderPerplexity, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: ProviderPerplexity, Err: fmt.Errorf("empty response")}
	}

	content, sources := extractSources(resp.Choices[0].Message.Content)
	// The API's own citation list wins over the heuristic scan when present.
	if len(resp.Citations) > 0 {
		sources = make([]Source, 0, len(resp.Citations))
		for _, citation := range resp.Citations {
			sources = append(sources, Source{Title: siteName(citation), URL: citation})
		}
	}

	usage := TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if usage.TotalTokens == 0 {
		usage = estimateUsage(prompt, content, model)
	}

	return &Result{
		Content: content,
		Metadata: Metadata{
			Model:      model,
			Provider:   ProviderPerplexity,
			Sources:    sources,
			TokenUsage: usage,
			Timestamp:  time.Now(),
		},
	}, nil
}
