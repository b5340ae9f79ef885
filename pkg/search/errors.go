package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"

	"github.com/searchbridge/searchbridge/pkg/ratelimit"
	"github.com/searchbridge/searchbridge/pkg/shared/httputil"
)

// AuthError means the provider rejected (or is missing) a credential.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: missing or invalid API key", e.Provider)
	}
	return fmt.Sprintf("%s: authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RateLimitError means the remote API (or a local limiter) throttled the call.
type RateLimitError struct {
	Provider string
	// Waited is how long was spent waiting for local tokens, if any.
	Waited time.Duration
	Err    error
}

func (e *RateLimitError) Error() string {
	msg := fmt.Sprintf("%s: rate limited", e.Provider)
	if e.Waited > 0 {
		msg += fmt.Sprintf(" (waited %s)", e.Waited)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// TimeoutError means the call did not complete within the configured timeout.
type TimeoutError struct {
	Provider string
	// Timeout is the configured client-side deadline, for diagnostics.
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: request timed out after %s", e.Provider, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ProviderError wraps any other provider failure with the provider name.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ValidationError means the request itself is malformed. It is never
// retried and never triggers fallback.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// UnknownProviderError names an unrecognized provider. The registry logs it
// and substitutes the default provider instead of surfacing it to callers.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q", e.Name)
}

// IsFallbackEligible reports whether a provider failure is transient enough
// to try the fallback chain: auth, rate-limit, and timeout errors qualify.
// Anything else propagates to the caller untouched.
func IsFallbackEligible(err error) bool {
	var authErr *AuthError
	var rateErr *RateLimitError
	var timeoutErr *TimeoutError
	return errors.As(err, &authErr) || errors.As(err, &rateErr) || errors.As(err, &timeoutErr)
}

// classifyError converts a raw transport or SDK failure into one of the
// typed provider errors.
func classifyError(provider string, err error, timeout time.Duration) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Provider: provider, Timeout: timeout, Err: err}
	}

	var limitErr *ratelimit.LimitError
	var waitErr *ratelimit.WaitTimeoutError
	if errors.As(err, &limitErr) {
		return &RateLimitError{Provider: provider, Err: err}
	}
	if errors.As(err, &waitErr) {
		return &RateLimitError{Provider: provider, Waited: waitErr.Waited, Err: err}
	}

	status := 0
	var statusErr *httputil.StatusError
	var apiErr *openai.Error
	if errors.As(err, &statusErr) {
		status = statusErr.StatusCode
	} else if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}

	switch {
	case status == 401 || status == 403:
		return &AuthError{Provider: provider, Err: err}
	case status == 429 || isRateLimitMessage(err):
		return &RateLimitError{Provider: provider, Err: err}
	case status == 408 || status == 504 || isTimeoutMessage(err):
		return &TimeoutError{Provider: provider, Timeout: timeout, Err: err}
	case isAuthMessage(err):
		return &AuthError{Provider: provider, Err: err}
	}
	return &ProviderError{Provider: provider, Err: err}
}

// containsAnyPattern checks if the lowercased error message contains any of
// the given patterns.
func containsAnyPattern(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range patterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func isRateLimitMessage(err error) bool {
	return containsAnyPattern(err, []string{
		"rate limit",
		"rate_limit",
		"too many requests",
		"resource_exhausted",
		"quota exceeded",
		"exceeded your current quota",
	})
}

func isTimeoutMessage(err error) bool {
	return containsAnyPattern(err, []string{
		"timeout",
		"timed out",
		"deadline exceeded",
	})
}

func isAuthMessage(err error) bool {
	return containsAnyPattern(err, []string{
		"invalid api key",
		"invalid_api_key",
		"incorrect api key",
		"unauthorized",
		"forbidden",
		"access denied",
	})
}
