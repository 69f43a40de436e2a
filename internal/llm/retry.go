package llm

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy controls Retry. Only rate-limit errors are retried.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   int

	// Sleep waits between attempts; nil uses a timer that honours ctx.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *slog.Logger
}

// DefaultRetryPolicy is 3 retries starting at 1s, doubling each time.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialDelay: time.Second, Multiplier: 2}
}

// Retry runs op, retrying it while it fails with a rate-limit signal and the
// retry budget lasts. Any other error, or the last rate-limit error once the
// budget is spent, is returned unchanged.
func Retry[T any](ctx context.Context, p RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}

	var zero T
	delay := p.InitialDelay
	retries := p.MaxRetries
	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if retries <= 0 || !IsRateLimited(err) {
			return zero, err
		}

		logger.Warn("llm.retry.wait",
			"attempt", attempt,
			"retries_left", retries,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)
		if serr := sleep(ctx, delay); serr != nil {
			return zero, serr
		}
		retries--
		delay *= time.Duration(mult)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
