package search

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/searchbridge/searchbridge/pkg/cache"
	"github.com/searchbridge/searchbridge/pkg/ratelimit"
)

// Engine is the orchestration entry point: it consults the cache, selects a
// provider, rate-limits the call, executes the search, walks the fallback
// chain on classified failures, and writes the result back to the cache.
type Engine struct {
	cfg      *Config
	log      zerolog.Logger
	registry *Registry
	cache    *cache.Cache

	limiterMu sync.Mutex
	limiters  map[string]*ratelimit.Limiter
}

// NewEngine creates an engine over the given config.
func NewEngine(cfg *Config, log zerolog.Logger) *Engine {
	cfg = cfg.WithDefaults()
	engineLog := log.With().Str("component", "search").Logger()
	return &Engine{
		cfg:      cfg,
		log:      engineLog,
		registry: NewRegistry(cfg, log),
		cache:    cache.New(cfg.Cache, log),
		limiters: make(map[string]*ratelimit.Limiter),
	}
}

// Registry exposes the provider registry for diagnostics.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// ClearCache empties both cache tiers.
func (e *Engine) ClearCache() error {
	return e.cache.Clear()
}

// Execute runs one search request end to end.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	req = req.withDefaults()

	log := e.log.With().Str("request_id", uuid.NewString()).Logger()
	key := e.cacheKey(req)

	if !req.NoCache {
		if result := e.cacheLookup(key); result != nil {
			log.Debug().Str("cache_key", key).Msg("Serving search result from cache")
			return result, nil
		}
	}

	primary := e.registry.Get(req.Provider)
	result, primaryErr := e.attempt(ctx, primary, req)
	if primaryErr != nil {
		if !IsFallbackEligible(primaryErr) {
			return nil, primaryErr
		}
		log.Warn().Err(primaryErr).Str("search_provider", primary.Name()).
			Msg("Provider failed with a transient error, trying fallbacks")
		result = e.tryFallbacks(ctx, log, primary.Name(), req)
		if result == nil {
			// The chain is exhausted: surface the original provider's error,
			// not the last fallback's, so the caller sees the root cause for
			// the provider it actually asked for.
			return nil, primaryErr
		}
	}

	if !req.NoCache {
		e.cacheStore(key, result)
	}
	return result, nil
}

// attempt performs one provider call: idempotent initialize, local rate
// limit, then the search itself.
func (e *Engine) attempt(ctx context.Context, provider Provider, req Request) (*Result, error) {
	if err := provider.Initialize(ctx); err != nil {
		return nil, classifyError(provider.Name(), err, req.Timeout)
	}
	if err := e.limiter(provider.Name()).AcquireToken(ctx); err != nil {
		return nil, classifyError(provider.Name(), err, req.Timeout)
	}
	return provider.Search(ctx, req)
}

// tryFallbacks walks the remaining providers in preference order and returns
// the first success, or nil when every candidate failed. Fallback attempts
// are best-effort: any failure, classified or not, just moves on to the next
// candidate.
func (e *Engine) tryFallbacks(ctx context.Context, log zerolog.Logger, failed string, req Request) *Result {
	for _, fallback := range e.registry.Fallbacks(failed) {
		result, err := e.attempt(ctx, fallback, req)
		if err == nil {
			log.Info().Str("search_provider", fallback.Name()).Msg("Fallback provider succeeded")
			return result
		}
		log.Warn().Err(err).Str("search_provider", fallback.Name()).Msg("Fallback provider failed")
	}
	return nil
}

// limiter returns the per-provider token bucket, creating it on first use.
func (e *Engine) limiter(name string) *ratelimit.Limiter {
	e.limiterMu.Lock()
	defer e.limiterMu.Unlock()
	if limiter, ok := e.limiters[name]; ok {
		return limiter
	}
	cfg, _ := e.cfg.providerConfig(name)
	limiter := ratelimit.New(name, cfg.RateLimit, e.log)
	e.limiters[name] = limiter
	return limiter
}

// cacheKey hashes the normalized query plus the option fields that affect
// provider output. Fields like the timeout deliberately do not participate:
// two requests differing only in those are cache-equivalent.
func (e *Engine) cacheKey(req Request) string {
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" {
		provider = e.cfg.Provider
	}
	return cache.Key(req.Query, map[string]string{
		"provider":   provider,
		"model":      req.Model,
		"detailed":   strconv.FormatBool(req.Detailed),
		"max_tokens": strconv.Itoa(req.MaxTokens),
	})
}

func (e *Engine) cacheLookup(key string) *Result {
	data := e.cache.Get(key)
	if data == nil {
		return nil
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		e.log.Warn().Err(err).Str("cache_key", key).Msg("Discarding undecodable cached result")
		return nil
	}
	result.Metadata.Cached = true
	return &result
}

func (e *Engine) cacheStore(key string, result *Result) {
	data, err := json.Marshal(result)
	if err != nil {
		e.log.Warn().Err(err).Str("cache_key", key).Msg("Failed to encode result for caching")
		return
	}
	e.cache.Set(key, data)
}

func validate(req Request) error {
	if strings.TrimSpace(req.Query) == "" {
		return &ValidationError{Field: "query", Reason: "must not be empty"}
	}
	if req.Temperature < 0 || req.Temperature > 1 {
		return &ValidationError{Field: "temperature", Reason: "must be between 0 and 1"}
	}
	return nil
}
