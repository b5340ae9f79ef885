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

type openRouterProvider struct {
	cfg   ProviderConfig
	log   zerolog.Logger
	state providerState
}

func newOpenRouterProvider(cfg ProviderConfig, log zerolog.Logger) Provider {
	return &openRouterProvider{
		cfg: cfg,
		log: log.With().Str("provider", ProviderOpenRouter).Logger(),
	}
}

func (p *openRouterProvider) Name() string {
	return ProviderOpenRouter
}

func (p *openRouterProvider) Initialize(ctx context.Context) error {
	p.state.ensure(p.checkCredentials)
	return nil
}

func (p *openRouterProvider) Available() bool {
	return p.state.ensure(p.checkCredentials)
}

func (p *openRouterProvider) checkCredentials() bool {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		p.log.Warn().Msg(missingKeyWarning(ProviderOpenRouter))
		return false
	}
	return isEnabled(p.cfg.Enabled, true)
}

func (p *openRouterProvider) Search(ctx context.Context, req Request) (*Result, error) {
	if !p.Available() {
		return nil, &AuthError{Provider: ProviderOpenRouter}
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
		// The web plugin makes non-search models usable for live queries.
		"plugins": []map[string]any{
			{"id": "web"},
		},
	}
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"
	data, _, err := httputil.PostJSON(ctx, endpoint, map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", p.cfg.APIKey),
	}, payload)
	if err != nil {
		return nil, classifyError(ProviderOpenRouter, err, timeout)
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content     string `json:"content"`
				Annotations []struct {
					Type        string `json:"type"`
					URLCitation struct {
						URL   string `json:"url"`
						Title string `json:"title"`
					} `json:"url_citation"`
				} `json:"annotations"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &ProviderError{Provider: ProviderOpenRouter, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: ProviderOpenRouter, Err: fmt.Errorf("empty response")}
	}

	message := resp.Choices[0].Message
	content, sources := extractSources(message.Content)
	if len(message.Annotations) > 0 {
		sources = make([]Source, 0, len(message.Annotations))
		for _, annotation := range message.Annotations {
			if annotation.Type != "url_citation" || annotation.URLCitation.URL == "" {
				continue
			}
			sources = append(sources, Source{
				Title: annotation.URLCitation.Title,
				URL:   annotation.URLCitation.URL,
			})
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
			Provider:   ProviderOpenRouter,
			Sources:    sources,
			TokenUsage: usage,
			Timestamp:  time.Now(),
		},
	}, nil
}
