package listener

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultMaxDelay     = 30 * time.Second
)

// NewBackoff builds the reconnect policy. The delay doubles from initial up
// to max without jitter. maxAttempts of zero retries forever.
func NewBackoff(initial, max time.Duration, maxAttempts int) backoff.BackOff {
	if initial <= 0 {
		initial = DefaultInitialDelay
	}
	if max < initial {
		max = initial
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	if maxAttempts > 0 {
		return backoff.WithMaxRetries(b, uint64(maxAttempts))
	}
	return b
}

func DefaultBackoff() backoff.BackOff {
	return NewBackoff(DefaultInitialDelay, DefaultMaxDelay, 0)
}
