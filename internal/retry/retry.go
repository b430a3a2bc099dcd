// Package retry wraps specific blocking calls in a bounded, fixed-delay retry.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how often and when a call is retried.
type Policy struct {
	// MaxAttempts counts the first call; values below 1 are treated as 1.
	MaxAttempts int
	// Delay is the fixed cooldown between attempts.
	Delay time.Duration
	// Retryable decides which errors qualify for another attempt. Nil means none.
	Retryable func(error) bool
	// OnRetry is called before each cooldown.
	OnRetry func(err error, attempt int, wait time.Duration)
}

// Do runs op until it succeeds, returns a non-retryable error, attempts are
// exhausted or ctx is done. The last error from op is returned.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var b backoff.BackOff = backoff.NewConstantBackOff(p.Delay)
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(err, attempt, wait)
		}
	}
	return backoff.RetryNotify(operation, b, notify)
}
