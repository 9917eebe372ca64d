package adapter

import (
	"context"
	"fmt"
	"time"
)

// backoffBase is the delay before the first retry; it doubles per attempt.
const backoffBase = 500 * time.Millisecond

// Retry runs publish up to 1+retries times, sleeping with exponential
// backoff before each retry. When the optional fatal predicate reports an
// error as non-retriable, that error is returned without further attempts.
// Context cancellation aborts both the attempt loop and any backoff sleep.
func Retry(ctx context.Context, retries int, publish func(context.Context) error, fatal func(error) bool) error {
	var lastErr error
	attempts := 1 + retries

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context canceled: %w", err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * backoffBase
			select {
			case <-ctx.Done():
				return fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = publish(ctx)
		if lastErr == nil {
			return nil
		}
		if fatal != nil && fatal(lastErr) {
			return fmt.Errorf("non-retriable error: %w", lastErr)
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
