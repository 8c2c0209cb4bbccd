package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, BackoffFactor: 2.0}
}

func TestRetry_SucceedsAfterRetry(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastRetry(3), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("temporary error")
		}
		return "success", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %s", result)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_ReturnsLastError(t *testing.T) {
	testErr := errors.New("persistent error")
	calls := 0
	_, err := Retry(context.Background(), fastRetry(3), func() (int, error) {
		calls++
		return 0, testErr
	})

	if !errors.Is(err, testErr) {
		t.Errorf("expected testErr, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_RespectsContext(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 10, InitialBackoff: 100 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	calls := 0
	_, err := Retry(ctx, cfg, func() (string, error) {
		calls++
		return "", errors.New("error")
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if calls >= 10 {
		t.Errorf("expected fewer than 10 calls, got %d", calls)
	}
}

func TestRetry_RetryIfFilter(t *testing.T) {
	permanent := errors.New("permanent")
	cfg := fastRetry(3)
	cfg.RetryIf = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	_, err := Retry(context.Background(), cfg, func() (string, error) {
		calls++
		return "", permanent
	})
	if calls != 1 {
		t.Errorf("expected 1 call for a permanent error, got %d", calls)
	}
	if !errors.Is(err, permanent) {
		t.Errorf("expected permanent error, got %v", err)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := fastRetry(3)
	cfg.OnRetry = func(attempt int, _ error, _ time.Duration) {
		attempts = append(attempts, attempt)
	}

	_, _ = Retry(context.Background(), cfg, func() (string, error) {
		return "", errors.New("error")
	})

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected OnRetry for attempts [1 2], got %v", attempts)
	}
}

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
		BackoffFactor:  2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
	}
	for _, tt := range tests {
		if got := cfg.Backoff(tt.attempt); got != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.MaxAttempts)
	}
	if cfg.RetryIf == nil || cfg.RetryIf(context.Canceled) {
		t.Error("expected cancellation not to be retried")
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
