package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxRetries != 5 {
		t.Errorf("expected MaxRetries=5, got %d", cfg.MaxRetries)
	}
	if cfg.InitialDelay != 250*time.Millisecond {
		t.Errorf("expected InitialDelay=250ms, got %v", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 5*time.Second {
		t.Errorf("expected MaxDelay=5s, got %v", cfg.MaxDelay)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("expected Multiplier=2.0, got %f", cfg.Multiplier)
	}
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	callCount := 0
	err := Do(context.Background(), fastConfig(), func() error {
		callCount++
		if callCount < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDo_MaxRetriesExhausted(t *testing.T) {
	callCount := 0
	expected := errors.New("still down")
	err := Do(context.Background(), fastConfig(), func() error {
		callCount++
		return expected
	})

	if !errors.Is(err, expected) {
		t.Errorf("expected %v, got %v", expected, err)
	}
	if callCount != 4 {
		t.Errorf("expected 4 calls (1 + 3 retries), got %d", callCount)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig()
	cfg.InitialDelay = time.Second
	cfg.MaxDelay = time.Second

	callCount := 0
	err := Do(ctx, cfg, func() error {
		callCount++
		cancel()
		return errors.New("connection refused")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestDo_OnRetry(t *testing.T) {
	var attempts []int
	cfg := fastConfig()
	cfg.OnRetry = func(attempt int, err error) {
		attempts = append(attempts, attempt)
	}

	_ = Do(context.Background(), cfg, func() error {
		return errors.New("connection refused")
	})

	if fmt.Sprint(attempts) != "[1 2 3]" {
		t.Errorf("expected OnRetry for attempts [1 2 3], got %v", attempts)
	}
}

func TestDo_NilConfig(t *testing.T) {
	if err := Do(context.Background(), nil, func() error { return nil }); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestDoWithResult_SuccessAfterRetries(t *testing.T) {
	callCount := 0
	result, err := DoWithResult(context.Background(), fastConfig(), func() (string, error) {
		callCount++
		if callCount < 2 {
			return "", errors.New("i/o timeout")
		}
		return "pool", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "pool" {
		t.Errorf("expected result 'pool', got %q", result)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), true},
		{"Connection Refused (uppercase)", errors.New("Connection Refused"), true},
		{"connection reset", errors.New("connection reset by peer"), true},
		{"no such host", errors.New("dial tcp: lookup postgres: no such host"), true},
		{"i/o timeout", errors.New("i/o timeout"), true},
		{"postgres starting up", errors.New("FATAL: the database system is starting up (SQLSTATE 57P03)"), true},
		{"redis loading", errors.New("LOADING Redis is loading the dataset in memory"), true},
		{"too many connections", errors.New("sorry, too many connections"), true},
		{"wrapped", fmt.Errorf("ping: %w", errors.New("connection refused")), true},
		{"auth error", errors.New("password authentication failed for user \"catalog\""), false},
		{"unknown database", errors.New("database \"pattern_catalog\" does not exist"), false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", fmt.Errorf("connect: %w", context.DeadlineExceeded), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsRetryable(tt.err)
			if result != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, expected %v", tt.err, result, tt.expected)
			}
		})
	}
}

type declaredError struct{ retryable bool }

func (e declaredError) Error() string     { return "declared" }
func (e declaredError) IsRetryable() bool { return e.retryable }

func TestIsRetryable_DeclaredError(t *testing.T) {
	if !IsRetryable(declaredError{retryable: true}) {
		t.Error("expected declared retryable error to be retryable")
	}
	if IsRetryable(fmt.Errorf("wrapped: %w", declaredError{retryable: false})) {
		t.Error("expected declared permanent error to be permanent")
	}
}

func TestDoIfRetryable_NonRetryableError(t *testing.T) {
	callCount := 0
	err := DoIfRetryable(context.Background(), fastConfig(), func() error {
		callCount++
		return errors.New("password authentication failed")
	})

	if err == nil {
		t.Error("expected error, got nil")
	}
	if callCount != 1 {
		t.Errorf("expected 1 call for a permanent error, got %d", callCount)
	}
}

func TestDoIfRetryable_RetryableThenSuccess(t *testing.T) {
	callCount := 0
	err := DoIfRetryable(context.Background(), fastConfig(), func() error {
		callCount++
		if callCount < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDoIfRetryable_EscalatesRepeatedErrorType(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxRetries = 10
	cfg.MaxSameErrorType = 2

	callCount := 0
	err := DoIfRetryable(context.Background(), cfg, func() error {
		callCount++
		return errors.New("connection refused")
	})

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if callCount != 2 {
		t.Errorf("expected escalation after 2 calls, got %d", callCount)
	}
}

func TestClassifyErrorType(t *testing.T) {
	tests := map[string]string{
		"connection refused":                 "connection",
		"i/o timeout":                        "timeout",
		"no such host":                       "dns",
		"the database system is starting up": "starting",
		"too many connections":               "saturated",
		"something else":                     "unknown",
	}
	for msg, want := range tests {
		if got := classifyErrorType(errors.New(msg)); got != want {
			t.Errorf("classifyErrorType(%q) = %q, want %q", msg, got, want)
		}
	}
	if got := classifyErrorType(nil); got != "nil" {
		t.Errorf("classifyErrorType(nil) = %q, want nil", got)
	}
}
