package client

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	retryInitialInterval = 200 * time.Millisecond
	retryMaxInterval     = 2 * time.Second
)

// ConnectWithRetry connects c, retrying a failed dial up to retries more
// times with exponential backoff. notify, if set, is called before each
// retry. Only the initial connection is retried; a session that later drops
// is not re-established.
func ConnectWithRetry(ctx context.Context, c Client, retries int, notify backoff.Notify) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = retryInitialInterval
	eb.MaxInterval = retryMaxInterval

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(max(retries, 0))), ctx)

	op := func() error {
		err := c.Connect(ctx)
		if errors.Is(err, ErrAlreadyConnected) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotify(op, b, notify)
}
