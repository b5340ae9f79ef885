// Package ratelimit implements a token-bucket limiter for provider API calls.
//
// Refill is computed lazily on each access rather than by a background
// timer, so a limiter that sits idle for hours still reports the correct
// token count on its next use.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxWait bounds the total time Acquire will spend waiting for tokens.
	DefaultMaxWait = 30 * time.Second
	// maxSleepPerIteration caps a single wait so refill is re-checked regularly.
	maxSleepPerIteration = time.Second
)

// LimitError is returned when tokens are insufficient and waiting is disabled.
type LimitError struct {
	Name      string
	Requested int
	Available float64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: requested %d tokens, %.2f available", e.Name, e.Requested, e.Available)
}

// WaitTimeoutError is returned when the cumulative wait for tokens exceeds MaxWait.
type WaitTimeoutError struct {
	Name   string
	Waited time.Duration
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for %s rate limit tokens after %s", e.Name, e.Waited)
}

// Config holds the tunable parameters of a limiter.
type Config struct {
	// MaxTokens is the bucket capacity.
	MaxTokens float64 `yaml:"max_tokens"`
	// RefillRate is the number of tokens added per second.
	RefillRate float64 `yaml:"refill_rate"`
	// WaitForTokens controls whether Acquire blocks when tokens are short.
	WaitForTokens *bool `yaml:"wait_for_tokens"`
	// MaxWaitSecs bounds the total blocking time per Acquire call.
	MaxWaitSecs int `yaml:"max_wait_seconds"`
}

// Limiter is a mutex-protected token bucket. The zero value is not usable;
// construct with New.
type Limiter struct {
	name          string
	mu            sync.Mutex
	tokens        float64
	maxTokens     float64
	refillRate    float64
	lastRefill    time.Time
	waitForTokens bool
	maxWait       time.Duration
	log           zerolog.Logger

	// now is swapped out in tests to simulate time passing.
	now func() time.Time
}

// New creates a limiter named after the provider or resource it guards.
func New(name string, cfg Config, log zerolog.Logger) *Limiter {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 10
	}
	refillRate := cfg.RefillRate
	if refillRate <= 0 {
		refillRate = 1
	}
	maxWait := DefaultMaxWait
	if cfg.MaxWaitSecs > 0 {
		maxWait = time.Duration(cfg.MaxWaitSecs) * time.Second
	}
	waitForTokens := true
	if cfg.WaitForTokens != nil {
		waitForTokens = *cfg.WaitForTokens
	}
	l := &Limiter{
		name:          name,
		tokens:        maxTokens,
		maxTokens:     maxTokens,
		refillRate:    refillRate,
		waitForTokens: waitForTokens,
		maxWait:       maxWait,
		log:           log.With().Str("component", "ratelimit").Str("limiter", name).Logger(),
		now:           time.Now,
	}
	l.lastRefill = l.now()
	return l
}

// Name returns the limiter's name.
func (l *Limiter) Name() string {
	return l.name
}

// refill adds whole tokens accrued since lastRefill, capped at maxTokens.
// lastRefill only advances when tokens were actually added, so sub-token
// accumulation is never discarded. Callers must hold l.mu.
func (l *Limiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.lastRefill)
	if elapsed <= 0 {
		return
	}
	added := math.Floor(elapsed.Seconds() * l.refillRate)
	if added <= 0 {
		return
	}
	l.tokens = math.Min(l.tokens+added, l.maxTokens)
	l.lastRefill = now
}

// AcquireToken consumes a single token.
func (l *Limiter) AcquireToken(ctx context.Context) error {
	return l.Acquire(ctx, 1)
}

// Acquire consumes cost tokens, waiting for refill when the limiter is
// configured to block. The internal lock is never held across a sleep.
func (l *Limiter) Acquire(ctx context.Context, cost int) error {
	if cost <= 0 {
		cost = 1
	}
	var waited time.Duration
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= float64(cost) {
			l.tokens -= float64(cost)
			l.mu.Unlock()
			return nil
		}
		if !l.waitForTokens {
			available := l.tokens
			l.mu.Unlock()
			return &LimitError{Name: l.name, Requested: cost, Available: available}
		}
		missing := float64(cost) - l.tokens
		l.mu.Unlock()

		if waited >= l.maxWait {
			l.log.Warn().Dur("waited", waited).Int("cost", cost).Msg("Gave up waiting for rate limit tokens")
			return &WaitTimeoutError{Name: l.name, Waited: waited}
		}

		sleep := time.Duration(math.Ceil(missing/l.refillRate*1000)) * time.Millisecond
		if sleep > maxSleepPerIteration {
			sleep = maxSleepPerIteration
		}
		if remaining := l.maxWait - waited; sleep > remaining {
			sleep = remaining
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		waited += sleep
	}
}

// Available reports the current token count after lazy refill. It never
// consumes tokens.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return l.tokens
}
