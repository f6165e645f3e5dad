package github

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryAfterCap bounds the server-requested wait so a hostile Retry-After
// header cannot stall a run.
const retryAfterCap = time.Minute

// newRetryBackOff returns the bounded retry policy for one remote call.
// BackOff implementations are stateful; always build a fresh instance.
func (c *Client) newRetryBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	bo.MaxInterval = 30 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx)
}

// withRetry runs op under the retry policy. Rate-limit and transport
// failures are retried; everything else stops immediately. When a rate-limit
// response names its own wait, that wait is honored before the next attempt.
func (c *Client) withRetry(ctx context.Context, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if Retryable(err) {
			if wait, ok := retryAfterHint(err); ok {
				sleepCtx(ctx, min(wait, retryAfterCap))
			}
			return err
		}
		return backoff.Permanent(err)
	}, c.newRetryBackOff(ctx))
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
