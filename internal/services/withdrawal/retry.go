package withdrawal

import (
	"context"
	"math/rand"
	"time"

	apperr "ledgerpay/internal/errors"
)

// RetryPolicy drives gateway transfer attempts. Delays grow exponentially
// from BaseDelay up to MaxDelay, with jitter so simultaneous retries spread
// out. Only errors marked retryable are attempted again.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
	Jitter         float64
}

// DefaultRetryPolicy matches typical gateway behavior: transient faults
// clear within a few seconds or not at all.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		AttemptTimeout: 15 * time.Second,
		Jitter:         0.2,
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, exhausts
// the attempt budget, or the context is cancelled.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.delay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		attemptCtx := ctx
		if p.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
			err = fn(attemptCtx)
			cancel()
		} else {
			err = fn(attemptCtx)
		}

		if err == nil || !apperr.Retryable(err) {
			return err
		}
	}
	return err
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		spread := float64(d) * p.Jitter
		d = time.Duration(float64(d) - spread/2 + rand.Float64()*spread)
	}
	return d
}
