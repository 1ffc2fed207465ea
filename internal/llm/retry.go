package llm

import (
	"context"
	"time"

	"audit-backend/internal/shared/telemetry"
)

const maxAttempts = 3

// backoffSchedule holds the fixed wait before each retry attempt.
var backoffSchedule = []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}

// RetryingClient wraps a Client with bounded retries on transient failures.
// Non-retryable errors fail immediately. The terminal error is always a
// *GenerationError carrying the failure classification.
type RetryingClient struct {
	inner Client
	sleep func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps client in the standard retry policy.
func WithRetry(client Client) *RetryingClient {
	return &RetryingClient{inner: client, sleep: sleepCtx}
}

// GenerateReport attempts the generation up to maxAttempts times.
func (c *RetryingClient) GenerateReport(ctx context.Context, combinedText string) (Report, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		report, err := c.inner.GenerateReport(ctx, combinedText)
		if err == nil {
			return report, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			telemetry.Error("llm.generate.aborted", map[string]any{
				"attempt":        attempt,
				"classification": Classify(err),
				"error":          err.Error(),
			})
			return Report{}, newGenerationError(err)
		}
		if attempt == maxAttempts {
			break
		}

		wait := backoffSchedule[attempt-1]
		telemetry.Warn("llm.generate.retry", map[string]any{
			"attempt":        attempt,
			"waitMs":         wait.Milliseconds(),
			"classification": Classify(err),
			"error":          err.Error(),
		})
		if err := c.sleep(ctx, wait); err != nil {
			return Report{}, newGenerationError(lastErr)
		}
	}

	telemetry.Error("llm.generate.exhausted", map[string]any{
		"attempts":       maxAttempts,
		"classification": Classify(lastErr),
		"error":          lastErr.Error(),
	})
	return Report{}, newGenerationError(lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
