package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPerplexitySearchParsesAnswerAndCitations(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices":[{"message":{"content":"Paris is the capital of France."}}],
			"citations":["https://en.wikipedia.org/wiki/Paris","https://www.britannica.com/place/Paris"],
			"usage":{"prompt_tokens":20,"completion_tokens":9,"total_tokens":29}
		}`))
	}))
	defer server.Close()

	provider := newPerplexityProvider(ProviderConfig{
		APIKey:  "pplx-test",
		BaseURL: server.URL,
		Model:   "sonar-pro",
	}, zerolog.Nop())

	result, err := provider.Search(context.Background(), Request{Query: "capital of France"}.withDefaults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer pplx-test" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody["model"] != "sonar-pro" {
		t.Fatalf("unexpected model %v", gotBody["model"])
	}
	if int(gotBody["max_tokens"].(float64)) != DefaultMaxTokens {
		t.Fatalf("expected default max_tokens, got %v", gotBody["max_tokens"])
	}
	if result.Content != "Paris is the capital of France." {
		t.Fatalf("unexpected content %q", result.Content)
	}
	if len(result.Metadata.Sources) != 2 {
		t.Fatalf("expected 2 citation sources, got %#v", result.Metadata.Sources)
	}
	if result.Metadata.Sources[0].URL != "https://en.wikipedia.org/wiki/Paris" {
		t.Fatalf("citation order must be preserved, got %q", result.Metadata.Sources[0].URL)
	}
	if result.Metadata.TokenUsage.TotalTokens != 29 {
		t.Fatalf("unexpected usage %#v", result.Metadata.TokenUsage)
	}
	if result.Metadata.Cached {
		t.Fatalf("live results must not be marked cached")
	}
}

func TestPerplexitySearchFallsBackToSourcesSection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Answer.\n\nSOURCES:\nhttps://example.com/a"}}]}`))
	}))
	defer server.Close()

	provider := newPerplexityProvider(ProviderConfig{APIKey: "k", BaseURL: server.URL, Model: "sonar"}, zerolog.Nop())
	result, err := provider.Search(context.Background(), Request{Query: "q"}.withDefaults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "Answer." {
		t.Fatalf("SOURCES section must be stripped, got %q", result.Content)
	}
	if len(result.Metadata.Sources) != 1 || result.Metadata.Sources[0].URL != "https://example.com/a" {
		t.Fatalf("unexpected sources %#v", result.Metadata.Sources)
	}
	if result.Metadata.TokenUsage.TotalTokens == 0 {
		t.Fatalf("usage should be estimated when the API omits it")
	}
}

func TestPerplexitySearchClassifiesStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"auth", http.StatusUnauthorized, func(err error) bool {
			var e *AuthError
			return errors.As(err, &e)
		}},
		{"rate limit", http.StatusTooManyRequests, func(err error) bool {
			var e *RateLimitError
			return errors.As(err, &e)
		}},
		{"server error", http.StatusInternalServerError, func(err error) bool {
			var e *ProviderError
			return errors.As(err, &e)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			provider := newPerplexityProvider(ProviderConfig{APIKey: "k", BaseURL: server.URL, Model: "sonar"}, zerolog.Nop())
			_, err := provider.Search(context.Background(), Request{Query: "q"}.withDefaults())
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected classification for %d: %T %v", tt.status, err, err)
			}
		})
	}
}

func TestPerplexitySearchTimeoutCancelsRequest(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	provider := newPerplexityProvider(ProviderConfig{APIKey: "k", BaseURL: server.URL, Model: "sonar"}, zerolog.Nop())
	start := time.Now()
	_, err := provider.Search(context.Background(), Request{Query: "q", Timeout: 100 * time.Millisecond}.withDefaults())
	elapsed := time.Since(start)

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
	if timeoutErr.Timeout != 100*time.Millisecond {
		t.Fatalf("timeout error must carry the configured timeout, got %s", timeoutErr.Timeout)
	}
	if elapsed > time.Second {
		t.Fatalf("client-side timeout must cancel the in-flight request, took %s", elapsed)
	}
}

func TestPerplexityUnavailableWithoutKey(t *testing.T) {
	provider := newPerplexityProvider(ProviderConfig{Model: "sonar"}, zerolog.Nop())
	if err := provider.Initialize(context.Background()); err != nil {
		t.Fatalf("missing key must not error on initialize: %v", err)
	}
	if provider.Available() {
		t.Fatalf("provider without a key must report unavailable")
	}
	_, err := provider.Search(context.Background(), Request{Query: "q"}.withDefaults())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("searching without a key should yield AuthError, got %T", err)
	}
}
