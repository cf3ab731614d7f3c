// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	pollInitialInterval = 100 * time.Millisecond
	pollMultiplier      = 1.5
	pollMaxInterval     = time.Second
)

// checkFunc is one observation of a poll loop. done ends the loop with
// value; a non-nil err aborts it immediately.
type checkFunc[T any] func(ctx context.Context) (value T, done bool, err error)

// newPollBackOff returns the poll interval schedule: 100ms, growing by 1.5x,
// capped at 1s, without jitter. The deadline is enforced by poll itself.
func newPollBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = pollInitialInterval
	b.Multiplier = pollMultiplier
	b.MaxInterval = pollMaxInterval
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// poll invokes check until it reports done, returns an error, or timeout
// elapses. Sleeps between checks follow newPollBackOff, clamped to the
// deadline, and every check runs on a context bounded by the same deadline,
// so a hung engine call cannot stretch the wait. On expiry the returned
// error is a *TimeoutError carrying only Elapsed; callers fill in the rest.
// Cancellation of ctx itself is returned as ctx's error.
func poll[T any](ctx context.Context, timeout time.Duration, check checkFunc[T]) (T, error) {
	var zero T
	start := time.Now()
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	deadline, _ := pollCtx.Deadline()
	b := newPollBackOff()

	expired := func(err error) (T, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if pollCtx.Err() != nil {
			return zero, &TimeoutError{Elapsed: time.Since(start)}
		}
		return zero, err
	}

	for {
		v, done, err := check(pollCtx)
		if err != nil {
			return expired(err)
		}
		if done {
			return v, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zero, &TimeoutError{Elapsed: time.Since(start)}
		}
		if err := sleepContext(pollCtx, min(b.NextBackOff(), remaining)); err != nil {
			return expired(err)
		}
	}
}

// sleepContext pauses for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
