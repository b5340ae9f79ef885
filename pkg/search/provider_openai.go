package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"
)

// openaiChatProvider serves OpenAI and any OpenAI-compatible endpoint
// (ModelBox) through the official SDK; compatible backends only differ in
// name and base URL.
type openaiChatProvider struct {
	name  string
	cfg   ProviderConfig
	log   zerolog.Logger
	state providerState

	client openai.Client
}

func newOpenAIProvider(cfg ProviderConfig, log zerolog.Logger) Provider {
	return &openaiChatProvider{
		name: ProviderOpenAI,
		cfg:  cfg,
		log:  log.With().Str("provider", ProviderOpenAI).Logger(),
	}
}

func (p *openaiChatProvider) Name() string {
	return p.name
}

func (p *openaiChatProvider) Initialize(ctx context.Context) error {
	p.state.ensure(p.buildClient)
	return nil
}

func (p *openaiChatProvider) Available() bool {
	return p.state.ensure(p.buildClient)
}

func (p *openaiChatProvider) buildClient() bool {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		p.log.Warn().Msg(missingKeyWarning(p.name))
		return false
	}
	if !isEnabled(p.cfg.Enabled, true) {
		return false
	}
	opts := []option.RequestOption{
		option.WithAPIKey(p.cfg.APIKey),
	}
	if p.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(p.cfg.BaseURL))
	}
	p.client = openai.NewClient(opts...)
	return true
}

func (p *openaiChatProvider) Search(ctx context.Context, req Request) (*Result, error) {
	if !p.Available() {
		return nil, &AuthError{Provider: p.name}
	}
	timeout := callTimeout(req, p.cfg)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model := resolveModel(req, p.cfg)
	prompt := buildPrompt(req)
	params := openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	// Search-preview models reject temperature overrides.
	if !strings.Contains(model, "search-preview") && req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyError(p.name, err, timeout)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: p.name, Err: fmt.Errorf("empty response")}
	}

	content, sources := extractSources(resp.Choices[0].Message.Content)
	if annotations := resp.Choices[0].Message.Annotations; len(annotations) > 0 {
		sources = make([]Source, 0, len(annotations))
		for _, annotation := range annotations {
			if annotation.URLCitation.URL == "" {
				continue
			}
			sources = append(sources, Source{
				Title: annotation.URLCitation.Title,
				URL:   annotation.URLCitation.URL,
			})
		}
	}

	usage := TokenUsage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	if usage.TotalTokens == 0 {
		usage = estimateUsage(prompt, content, model)
	}

	return &Result{
		Content: content,
		Metadata: Metadata{
			Model:      model,
			Provider:   p.name,
			Sources:    sources,
			TokenUsage: usage,
			Timestamp:  time.Now(),
		},
	}, nil
}
