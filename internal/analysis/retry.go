package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/angadjosan/Claimd/internal/llm"
)

// RetryPolicy bounds repeated attempts at an LLM stage. Parse failures and
// transient gateway failures are retried alike; fatal API errors
// (authentication, billing) abort immediately.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy matches the stage budget: 2 attempts, 1s apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Delay: time.Second}
}

// Do runs fn up to MaxAttempts times, sleeping Delay between attempts.
// The last error is returned on exhaustion.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, llm.ErrFatalAPI) {
			return lastErr
		}

		slog.Warn("stage attempt failed", "op", op, "attempt", attempt, "max_attempts", attempts, "error", lastErr)

		if attempt == attempts {
			break
		}

		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
	}
	return lastErr
}
