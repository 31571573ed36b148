package providers

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"
)

// ErrorCategory classifies a provider failure so the caller knows whether
// to retry, compact the conversation, or give up.
type ErrorCategory int

const (
	// CategoryRetryable covers transient network/5xx failures retried silently.
	CategoryRetryable ErrorCategory = iota
	// CategoryTransient covers failures retried a bounded, smaller number of times.
	CategoryTransient
	// CategoryInputTooLong means the request exceeded the model's context window.
	CategoryInputTooLong
	// CategoryTerminal means the request must not be retried (auth, schema, 4xx other than 429).
	CategoryTerminal
)

// ClassifiedError wraps a provider error with its retry category.
type ClassifiedError struct {
	Category ErrorCategory
	Err      error
}

func (e *ClassifiedError) Error() string { return e.Err.Error() }
func (e *ClassifiedError) Unwrap() error { return e.Err }

// HTTPError is returned by a provider's transport layer for non-2xx responses.
type HTTPError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return "http " + strconv.Itoa(e.Status) + ": " + e.Body
}

// ParseRetryAfter parses a Retry-After header value (seconds, the only form
// providers in this module send) into a duration. Empty or unparseable
// values return 0, signaling "use backoff instead".
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// ClassifyError maps a raw provider error to a retry category. Substring
// matching on the error text mirrors the loose classification upstream
// providers' own error strings require — none expose a stable machine code
// for every condition callers care about.
func ClassifyError(err error) ErrorCategory {
	if err == nil {
		return CategoryTerminal
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Category
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.Status == 429 || httpErr.Status >= 500:
			return CategoryRetryable
		case httpErr.Status == 408:
			return CategoryTransient
		}
	}

	msg := err.Error()
	for _, s := range []string{"too long", "maximum context", "context length"} {
		if containsFold(msg, s) {
			return CategoryInputTooLong
		}
	}
	for _, s := range []string{"rate limit", "overloaded", "timeout", "connection reset", "EOF"} {
		if containsFold(msg, s) {
			return CategoryRetryable
		}
	}
	return CategoryTerminal
}

func containsFold(haystack, needle string) bool {
	h, n := []rune(haystack), []rune(needle)
	if len(n) == 0 || len(n) > len(h) {
		return len(n) == 0
	}
	lower := func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}
	for i := 0; i+len(n) <= len(h); i++ {
		match := true
		for j, nr := range n {
			if lower(h[i+j]) != lower(nr) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// RetryConfig controls RetryDo's attempt ceiling and exponential backoff.
type RetryConfig struct {
	MaxRetryableAttempts int
	MaxTransientAttempts int
	InitialBackoff       time.Duration
	Multiplier           float64
	MaxBackoff           time.Duration
	// OnRetry, if set, is called before sleeping for each retried attempt.
	OnRetry func(attempt, max int, err error, backoff time.Duration)
}

// DefaultRetryConfig matches the retry/backoff contract every provider
// adapter in this module shares: up to 1000 attempts for transient
// network/5xx errors, 10 for other retryable conditions, backoff
// 100ms * 2.0^attempt capped at 1000ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetryableAttempts: 1000,
		MaxTransientAttempts: 10,
		InitialBackoff:       100 * time.Millisecond,
		Multiplier:           2.0,
		MaxBackoff:           1000 * time.Millisecond,
	}
}

// WithRetryHook returns a copy of cfg with OnRetry set, for callers (the
// chat actor) that need a RetryAttempt event emitted per retry.
func WithRetryHook(cfg RetryConfig, hook func(attempt, max int, err error, backoff time.Duration)) RetryConfig {
	cfg.OnRetry = hook
	return cfg
}

func (c RetryConfig) backoffFor(attempt int) time.Duration {
	d := float64(c.InitialBackoff) * math.Pow(c.Multiplier, float64(attempt))
	if d > float64(c.MaxBackoff) {
		d = float64(c.MaxBackoff)
	}
	return time.Duration(d)
}

// RetryDo runs fn, retrying on CategoryRetryable/CategoryTransient errors
// per cfg's attempt ceilings and backoff schedule. CategoryInputTooLong and
// CategoryTerminal errors are returned immediately without retrying.
func RetryDo[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	attempt := 0
	for {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		category := ClassifyError(err)
		if category == CategoryInputTooLong || category == CategoryTerminal {
			return zero, err
		}

		maxAttempts := cfg.MaxTransientAttempts
		if category == CategoryRetryable {
			maxAttempts = cfg.MaxRetryableAttempts
		}
		attempt++
		if attempt >= maxAttempts {
			return zero, err
		}

		backoff := cfg.backoffFor(attempt)
		if httpErr, ok := err.(*HTTPError); ok && httpErr.RetryAfter > 0 {
			backoff = httpErr.RetryAfter
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, maxAttempts, err, backoff)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
