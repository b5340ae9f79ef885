// Package search turns a single logical search request into a reliable call
// against one of several interchangeable AI-backed search providers, with
// per-provider rate limiting, a dual-tier result cache, and ordered fallback.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Provider is implemented by each search backend.
type Provider interface {
	// Name returns the provider name, e.g. "perplexity".
	Name() string
	// Initialize reads credentials from config and prepares the provider.
	// It is idempotent. A missing credential is not an error: the provider
	// marks itself unavailable and logs a warning instead.
	Initialize(ctx context.Context) error
	// Available reports whether the provider can serve searches,
	// initializing lazily if needed.
	Available() bool
	// Search executes the query. Failures are returned as the typed errors
	// in this package (AuthError, RateLimitError, TimeoutError, ProviderError).
	Search(ctx context.Context, req Request) (*Result, error)
}

// providerState holds the shared lazy-initialization bookkeeping of a
// provider: Initialize is idempotent and Available triggers it on demand.
type providerState struct {
	mu          sync.Mutex
	initialized bool
	available   bool
}

// ensure runs init exactly once and returns the resulting availability.
func (s *providerState) ensure(init func() bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		s.available = init()
		s.initialized = true
	}
	return s.available
}

// buildPrompt shapes the query into the instruction sent to a provider.
// Every variant asks for a trailing SOURCES: section so that citation
// extraction works uniformly even without a native citation API.
func buildPrompt(req Request) string {
	var b strings.Builder
	if req.Detailed {
		b.WriteString("Provide a detailed, well-structured answer with relevant context and examples.\n\n")
	} else {
		b.WriteString("Answer concisely and factually.\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(req.Query)
	b.WriteString("\n\nEnd your answer with a line starting with \"SOURCES:\" followed by the URLs you relied on, one per line.")
	return b.String()
}

// callTimeout resolves the effective deadline for a provider call: the
// request's timeout when set, otherwise the provider's configured one.
func callTimeout(req Request, cfg ProviderConfig) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	if cfg.TimeoutSecs > 0 {
		return time.Duration(cfg.TimeoutSecs) * time.Second
	}
	return DefaultTimeout
}

// resolveModel picks the request's model override or the provider default.
func resolveModel(req Request, cfg ProviderConfig) string {
	if req.Model != "" {
		return req.Model
	}
	return cfg.Model
}

func missingKeyWarning(provider string) string {
	return fmt.Sprintf("No API key configured for %s, provider will be unavailable", provider)
}
