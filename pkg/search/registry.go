package search

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// providerFactories maps names to constructors. The set is closed: unknown
// names resolve to the configured default provider.
var providerFactories = map[string]func(ProviderConfig, zerolog.Logger) Provider{
	ProviderPerplexity: newPerplexityProvider,
	ProviderGemini:     newGeminiProvider,
	ProviderOpenAI:     newOpenAIProvider,
	ProviderOpenRouter: newOpenRouterProvider,
	ProviderModelBox:   newModelBoxProvider,
}

// Registry lazily constructs and memoizes one provider instance per name.
// Construction is guarded so concurrent first accesses for the same name
// resolve to exactly one instance.
type Registry struct {
	cfg *Config
	log zerolog.Logger

	mu        sync.Mutex
	providers map[string]Provider
}

// NewRegistry creates a registry over the given config.
func NewRegistry(cfg *Config, log zerolog.Logger) *Registry {
	return &Registry{
		cfg:       cfg.WithDefaults(),
		log:       log.With().Str("component", "registry").Logger(),
		providers: make(map[string]Provider),
	}
}

// Get returns the provider for name, constructing it on first access. An
// empty name means the configured default; unrecognized names also resolve
// to the default with a logged warning, never an error.
func (r *Registry) Get(name string) Provider {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = r.cfg.Provider
	}
	if _, known := providerFactories[name]; !known {
		r.log.Warn().Err(&UnknownProviderError{Name: name}).
			Str("default", r.cfg.Provider).
			Msg("Unknown provider requested, using default")
		name = r.cfg.Provider
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if provider, ok := r.providers[name]; ok {
		return provider
	}
	cfg, _ := r.cfg.providerConfig(name)
	provider := providerFactories[name](cfg, r.log)
	r.providers[name] = provider
	return provider
}

// Available returns the names of providers that currently report themselves
// available, in preference order. A provider that panics during the check
// counts as unavailable.
func (r *Registry) Available() []string {
	available := make([]string, 0, len(r.cfg.Fallbacks))
	for _, name := range r.order() {
		if r.safeAvailable(name) {
			available = append(available, name)
		}
	}
	return available
}

// Fallbacks returns the available providers excluding the one that just
// failed, preserving the fixed preference order.
func (r *Registry) Fallbacks(exclude string) []Provider {
	fallbacks := make([]Provider, 0, len(r.cfg.Fallbacks))
	for _, name := range r.order() {
		if name == exclude {
			continue
		}
		if r.safeAvailable(name) {
			fallbacks = append(fallbacks, r.Get(name))
		}
	}
	return fallbacks
}

// Status reports every known provider's availability, for diagnostics.
func (r *Registry) Status() map[string]bool {
	status := make(map[string]bool, len(providerFactories))
	for name := range providerFactories {
		status[name] = r.safeAvailable(name)
	}
	return status
}

// order returns the configured fallback order restricted to known names,
// deduplicated.
func (r *Registry) order() []string {
	seen := make(map[string]bool, len(r.cfg.Fallbacks))
	order := make([]string, 0, len(r.cfg.Fallbacks))
	for _, name := range r.cfg.Fallbacks {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		if _, known := providerFactories[name]; !known {
			continue
		}
		seen[name] = true
		order = append(order, name)
	}
	if len(order) == 0 {
		return ProviderOrder
	}
	return order
}

// safeAvailable treats any panic from a provider's availability check as
// "unavailable" instead of taking down the request.
func (r *Registry) safeAvailable(name string) (available bool) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.log.Warn().Interface("panic", recovered).Str("checked_provider", name).
				Msg("Provider availability check panicked")
			available = false
		}
	}()
	return r.Get(name).Available()
}
