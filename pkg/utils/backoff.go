package utils

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy is a bounded exponential backoff with jitter. It takes the
// operation as a closure so backoff behavior stays a single reusable unit
// instead of retry-via-recursion scattered through call sites.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	JitterFraction float64
}

// DefaultRetryPolicy matches the provider clients' needs: a few quick
// attempts, capped well below any request deadline.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    4,
		BaseDelay:      300 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		JitterFraction: 0.2,
	}
}

// Do runs op up to MaxAttempts times. Between attempts it sleeps the
// backoff delay, honoring ctx cancellation. Errors for which retryable
// returns false propagate immediately without another attempt.
func (p RetryPolicy) Do(ctx context.Context, op func() error, retryable func(error) bool) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay(attempt)):
		}
	}
	return err
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.JitterFraction > 0 {
		jitter := time.Duration(float64(d) * p.JitterFraction * (rand.Float64()*2 - 1))
		d += jitter
		if d < 0 {
			d = 0
		}
	}
	return d
}
