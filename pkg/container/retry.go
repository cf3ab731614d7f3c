// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// transientRetryAttempts is the total number of attempts (initial + retries)
	// for create/run operations that fail with transient engine errors.
	transientRetryAttempts = 3
	// transientRetryBase is the delay before the first retry; it doubles
	// on each subsequent attempt (250ms, 500ms).
	transientRetryBase = 250 * time.Millisecond
)

// retryTransient runs op, retrying it while it fails with a transient engine
// error (see IsTransientError). Permanent failures are returned immediately;
// on exhaustion the last error is returned. Context cancellation between
// attempts ends the retry with the context error.
func retryTransient(ctx context.Context, logger *slog.Logger, name string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = transientRetryBase
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(b, transientRetryAttempts-1), ctx)
	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !IsTransientError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, next time.Duration) {
		logger.Debug("transient engine failure, retrying", "op", name, "backoff", next, "error", err)
	})
}
