package search

import "time"

const (
	// DefaultMaxTokens is the completion budget when the request does not set one.
	DefaultMaxTokens = 150
	// DefaultTemperature is used when the request does not set a temperature.
	DefaultTemperature = 0.7
	// DefaultTimeout is the client-side deadline for a single provider call.
	DefaultTimeout = 30 * time.Second
)

// Request describes a single logical search. It is constructed per call and
// never mutated after construction.
type Request struct {
	// Query is the question to answer. Must be non-empty.
	Query string
	// Provider optionally names the provider to use. Empty means the
	// configured default; unknown names also resolve to the default.
	Provider string
	// Model optionally overrides the provider's default model.
	Model string
	// MaxTokens bounds the completion size. Zero means DefaultMaxTokens.
	MaxTokens int
	// Temperature in [0,1]. Zero means DefaultTemperature; use a small
	// positive value for deterministic output.
	Temperature float64
	// Detailed asks for a longer, more thorough answer.
	Detailed bool
	// Timeout is the client-side deadline. Zero means DefaultTimeout.
	Timeout time.Duration
	// NoCache skips both cache lookup and cache write.
	NoCache bool

	// temperatureSet distinguishes an explicit 0 from an unset temperature.
	temperatureSet bool
}

// WithTemperature returns a copy of the request with an explicit temperature.
func (r Request) WithTemperature(temperature float64) Request {
	r.Temperature = temperature
	r.temperatureSet = true
	return r
}

// withDefaults fills unset fields. The original request is left untouched.
func (r Request) withDefaults() Request {
	if r.MaxTokens <= 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	if r.Temperature == 0 && !r.temperatureSet {
		r.Temperature = DefaultTemperature
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultTimeout
	}
	return r
}

// Source is a citation attached to a result. Providers may cite the same
// URL more than once; order is preserved as returned.
type Source struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// TokenUsage is the token accounting reported (or estimated) for a call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Metadata describes how a result was produced.
type Metadata struct {
	Model      string     `json:"model"`
	Provider   string     `json:"provider"`
	Sources    []Source   `json:"sources,omitempty"`
	TokenUsage TokenUsage `json:"token_usage"`
	Timestamp  time.Time  `json:"timestamp"`
	// Cached is true when the result was served from the cache rather than
	// a live provider call.
	Cached bool `json:"cached"`
}

// Result is the answer to a search request.
type Result struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}
