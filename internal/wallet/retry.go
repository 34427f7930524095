package wallet

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy re-runs an operation that failed with ErrConflict.
type RetryPolicy struct {
	// MaxRetries is the number of extra attempts after the first one.
	MaxRetries int
	// Backoff is multiplied by the attempt number between tries.
	Backoff time.Duration
	// OnRetry, when set, is called before each retry.
	OnRetry func(attempt int, err error)
}

// Do runs fn until it succeeds, fails with a non-conflict error, or the
// retry budget is spent. The last conflict error is returned in that case.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, ErrConflict) || attempt >= p.MaxRetries {
			return err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}
		if p.Backoff > 0 {
			timer := time.NewTimer(time.Duration(attempt+1) * p.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}
	}
}
