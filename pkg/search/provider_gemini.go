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

type geminiProvider struct {
	cfg   ProviderConfig
	log   zerolog.Logger
	state providerState
}

func newGeminiProvider(cfg ProviderConfig, log zerolog.Logger) Provider {
	return &geminiProvider{
		cfg: cfg,
		log: log.With().Str("provider", ProviderGemini).Logger(),
	}
}

func (p *geminiProvider) Name() string {
	return ProviderGemini
}

func (p *geminiProvider) Initialize(ctx context.Context) error {
	p.state.ensure(p.checkCredentials)
	return nil
}

func (p *geminiProvider) Available() bool {
	return p.state.ensure(p.checkCredentials)
}

func (p *geminiProvider) checkCredentials() bool {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		p.log.Warn().Msg(missingKeyWarning(ProviderGemini))
		return false
	}
	return isEnabled(p.cfg.Enabled, true)
}

func (p *geminiProvider) Search(ctx context.Context, req Request) (*Result, error) {
	if !p.Available() {
		return nil, &AuthError{Provider: ProviderGemini}
	}
	timeout := callTimeout(req, p.cfg)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model := resolveModel(req, p.cfg)
	prompt := buildPrompt(req)
	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"maxOutputTokens": req.MaxTokens,
			"temperature":     req.Temperature,
		},
		// Ask Gemini to ground the answer in live search results so that
		// groundingMetadata carries real citations.
		"tools": []map[string]any{
			{"google_search": map[string]any{}},
		},
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"), model, p.cfg.APIKey)
	data, _, err := httputil.PostJSON(ctx, endpoint, nil, payload)
	if err != nil {
		return nil, classifyError(ProviderGemini, err, timeout)
	}

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			GroundingMetadata struct {
				GroundingChunks []struct {
					Web struct {
						URI   string `json:"uri"`
						Title string `json:"title"`
					} `json:"web"`
				} `json:"groundingChunks"`
			} `json:"groundingMetadata"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &ProviderError{Provider: ProviderGemini, Err: err}
	}
	if len(resp.Candidates) == 0 {
		return nil, &ProviderError{Provider: ProviderGemini, Err: fmt.Errorf("no candidates in response")}
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	content, sources := extractSources(b.String())

	// Native grounding citations win over the heuristic scan.
	if chunks := resp.Candidates[0].GroundingMetadata.GroundingChunks; len(chunks) > 0 {
		sources = make([]Source, 0, len(chunks))
		for _, chunk := range chunks {
			if chunk.Web.URI == "" {
				continue
			}
			sources = append(sources, Source{Title: chunk.Web.Title, URL: chunk.Web.URI})
		}
	}

	usage := TokenUsage{
		PromptTokens:     resp.UsageMetadata.PromptTokenCount,
		CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      resp.UsageMetadata.TotalTokenCount,
	}
	if usage.TotalTokens == 0 {
		usage = estimateUsage(prompt, content, model)
	}

	return &Result{
		Content: content,
		Metadata: Metadata{
			Model:      model,
			Provider:   ProviderGemini,
			Sources:    sources,
			TokenUsage: usage,
			Timestamp:  time.Now(),
		},
	}, nil
}
