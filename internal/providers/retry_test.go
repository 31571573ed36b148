package providers

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestRetryDo_SucceedsAfterRetryableErrors(t *testing.T) {
	attempts := 0
	result, err := RetryDo(context.Background(), fastRetryConfig(), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", &HTTPError{Status: 503, Body: "overloaded"}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("RetryDo: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %q, want ok", result)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryDo_TerminalErrorNotRetried(t *testing.T) {
	attempts := 0
	_, err := RetryDo(context.Background(), fastRetryConfig(), func() (string, error) {
		attempts++
		return "", &HTTPError{Status: 401, Body: "unauthorized"}
	})
	if err == nil {
		t.Fatal("expected terminal error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on terminal)", attempts)
	}
}

func TestRetryDo_InputTooLongNotRetried(t *testing.T) {
	attempts := 0
	_, err := RetryDo(context.Background(), fastRetryConfig(), func() (string, error) {
		attempts++
		return "", errors.New("maximum context length exceeded")
	})
	if err == nil {
		t.Fatal("expected input-too-long error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if ClassifyError(err) != CategoryInputTooLong {
		t.Errorf("category = %v, want CategoryInputTooLong", ClassifyError(err))
	}
}

func TestRetryDo_TransientAttemptsCapped(t *testing.T) {
	cfg := fastRetryConfig()
	cfg.MaxTransientAttempts = 3
	attempts := 0
	_, err := RetryDo(context.Background(), cfg, func() (string, error) {
		attempts++
		return "", &HTTPError{Status: 408, Body: "timeout"}
	})
	if err == nil {
		t.Fatal("expected exhausted-retries error")
	}
	if attempts != cfg.MaxTransientAttempts {
		t.Errorf("attempts = %d, want %d", attempts, cfg.MaxTransientAttempts)
	}
}

func TestRetryDo_ContextCancellationStopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetryConfig()
	cfg.InitialBackoff = 50 * time.Millisecond
	cfg.MaxBackoff = 50 * time.Millisecond

	attempts := 0
	cancel()
	_, err := RetryDo(ctx, cfg, func() (string, error) {
		attempts++
		return "", &HTTPError{Status: 503, Body: "overloaded"}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRetryDo_OnRetryHookInvoked(t *testing.T) {
	cfg := fastRetryConfig()
	var seen []int
	cfg = WithRetryHook(cfg, func(attempt, max int, err error, backoff time.Duration) {
		seen = append(seen, attempt)
	})

	attempts := 0
	_, _ = RetryDo(context.Background(), cfg, func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", &HTTPError{Status: 500, Body: "err"}
		}
		return "ok", nil
	})
	if len(seen) != 2 {
		t.Errorf("hook invocations = %d, want 2", len(seen))
	}
}

func TestParseRetryAfter(t *testing.T) {
	cases := map[string]time.Duration{
		"":     0,
		"5":    5 * time.Second,
		"-1":   0,
		"abc":  0,
	}
	for in, want := range cases {
		if got := ParseRetryAfter(in); got != want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestClassifyError_Categories(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"429", &HTTPError{Status: 429}, CategoryRetryable},
		{"503", &HTTPError{Status: 503}, CategoryRetryable},
		{"408", &HTTPError{Status: 408}, CategoryTransient},
		{"401", &HTTPError{Status: 401}, CategoryTerminal},
		{"too long substring", errors.New("the request is too long"), CategoryInputTooLong},
		{"rate limit text", errors.New("rate limit exceeded"), CategoryRetryable},
	}
	for _, tc := range cases {
		if got := ClassifyError(tc.err); got != tc.want {
			t.Errorf("%s: ClassifyError = %v, want %v", tc.name, got, tc.want)
		}
	}
}
