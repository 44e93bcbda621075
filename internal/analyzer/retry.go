package analyzer

import (
	"context"
	"errors"
	"time"

	"github.com/IshaanNene/ReviewGoat/internal/ai"
)

// RetryPolicy bounds how often a rate-limited batch is resubmitted.
type RetryPolicy struct {
	MaxRetries int
	// Backoff returns the pause before retry n (1-based).
	Backoff func(retry int) time.Duration
}

// LinearBackoff waits step, 2*step, 3*step, ...
func LinearBackoff(step time.Duration) func(int) time.Duration {
	return func(retry int) time.Duration {
		return time.Duration(retry) * step
	}
}

// DefaultRetryPolicy retries three times after 5s, 10s and 15s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Backoff: LinearBackoff(5 * time.Second)}
}

// wait returns the pause before retry n, stretched to any server-sent Retry-After.
func (p RetryPolicy) wait(retry int, err error) time.Duration {
	var d time.Duration
	if p.Backoff != nil {
		d = p.Backoff(retry)
	}
	var apiErr *ai.APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > d {
		d = apiErr.RetryAfter
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
