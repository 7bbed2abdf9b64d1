package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"
)

// RetryConfig configures the boundary-layer retry helper. The pipeline
// itself never retries a generation inline; callers (batch jobs, queue
// workers) wrap GenerateSync with Retry instead.
type RetryConfig struct {
	MaxRetries      int           // retry attempts after the first try
	InitialInterval time.Duration // first backoff delay
	MaxInterval     time.Duration // backoff cap
	Retryable       func(error) bool
}

// DefaultRetryConfig returns sensible defaults for LLM-backed calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Retryable:       RetryableError,
	}
}

// retryablePatterns groups error substrings by category.
// Matched case-insensitively against err.Error().
//
// String matching is used because Genkit and LLM provider SDKs do not
// expose typed errors for transient failures. Re-evaluate if Genkit adds
// structured error types in a future version.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},      // rate limiting
	{"500", "502", "503", "504", "unavailable"},  // transient server errors
	{"connection reset", "timeout", "temporary"}, // network errors
}

// RetryableError reports whether err looks transient.
func RetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, sub := range group {
			if strings.Contains(errStr, sub) {
				return true
			}
		}
	}
	return false
}

// Retry runs op with exponential backoff and jitter. Non-retryable errors
// fail immediately; context cancellation aborts the wait.
func Retry(ctx context.Context, cfg RetryConfig, logger *slog.Logger, op func(context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = RetryableError
	}

	var lastErr error
	delay := cfg.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Debug("operation succeeded after retry",
					"attempts", attempt+1, "elapsed", time.Since(start))
			}
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		// Equal jitter keeps simultaneous retriers from thundering together
		// while preserving at least half the nominal delay.
		half := delay / 2
		wait := half + time.Duration(rand.Int63n(int64(half)+1))
		logger.Debug("retrying after transient error",
			"attempt", attempt+1, "delay", wait, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("canceled during retry backoff: %w", ctx.Err())
		case <-time.After(wait):
			delay = min(delay*2, cfg.MaxInterval)
		}
	}

	return fmt.Errorf("after %d retries (elapsed %v): %w",
		cfg.MaxRetries, time.Since(start), lastErr)
}
