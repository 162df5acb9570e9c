package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy re-invokes an operation on transient failure with
// exponential backoff. Every attempt goes through whatever wrapping the
// operation itself carries, so an attempt against an open breaker fails
// fast without consuming the remote dependency.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt; each further
	// delay doubles.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration

	logger *slog.Logger
}

// DefaultRetryPolicy returns the standard policy: 3 attempts with
// exponential backoff starting at 1s, capped at 5s.
func DefaultRetryPolicy(logger *slog.Logger) *RetryPolicy {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     5 * time.Second,
		logger:         logger.With(slog.String("component", "retry_policy")),
	}
}

// NewRetryPolicy creates a policy with explicit parameters.
// If logger is nil, the default logger is used.
func NewRetryPolicy(maxAttempts int, initialBackoff, maxBackoff time.Duration, logger *slog.Logger) *RetryPolicy {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryPolicy{
		MaxAttempts:    maxAttempts,
		InitialBackoff: initialBackoff,
		MaxBackoff:     maxBackoff,
		logger:         logger.With(slog.String("component", "retry_policy")),
	}
}

// Do runs op until it succeeds, the attempts are exhausted, or retryable
// reports an error as permanent. The last error is returned. A nil
// retryable treats every error as transient.
func (p *RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error, retryable func(error) bool) error {
	backoff := p.InitialBackoff

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}

		if retryable != nil && !retryable(err) {
			return err
		}

		if attempt == p.MaxAttempts {
			break
		}

		p.logger.Warn("attempt failed, retrying after backoff",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}

		backoff *= 2
		if backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}

	return fmt.Errorf("exhausted %d attempts: %w", p.MaxAttempts, err)
}
