package wiki

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eddowding/mothersalmanac-sub002/internal/log"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("googleai: rate limit exceeded"), true},
		{"http 429", errors.New("unexpected status 429"), true},
		{"server error", errors.New("503 Service Unavailable"), true},
		{"timeout", errors.New("dial tcp: i/o timeout"), true},
		{"validation", errors.New("query must not be empty"), false},
		{"auth", errors.New("invalid API key"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RetryableError(tt.err); got != tt.want {
				t.Errorf("RetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetryConfig(), log.NewNop(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("503 unavailable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_NonRetryableFailsImmediately(t *testing.T) {
	attempts := 0
	wantErr := errors.New("malformed request")
	err := Retry(context.Background(), fastRetryConfig(), log.NewNop(), func(context.Context) error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Retry() error = %v, want %v", err, wantErr)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retries for permanent errors)", attempts)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetryConfig(), log.NewNop(), func(context.Context) error {
		attempts++
		return errors.New("connection reset by peer")
	})
	if err == nil {
		t.Fatal("Retry() should fail after exhausting attempts")
	}
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4 (initial try plus 3 retries)", attempts)
	}
}

func TestRetry_CancellationAbortsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetryConfig()
	cfg.InitialInterval = time.Minute
	cfg.MaxInterval = time.Minute

	errs := make(chan error, 1)
	go func() {
		errs <- Retry(ctx, cfg, log.NewNop(), func(context.Context) error {
			return errors.New("timeout")
		})
	}()

	cancel()
	select {
	case err := <-errs:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Retry() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Retry() did not return after cancellation")
	}
}
