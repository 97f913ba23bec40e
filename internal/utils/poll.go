package utils

import (
	"context"
	"errors"
	"time"
)

// ErrPollBudgetExhausted is returned when every attempt of a polling loop
// reported "not done yet". Callers wrap it into their own timeout error
// naming the attempt count.
var ErrPollBudgetExhausted = errors.New("poll budget exhausted")

// PollFunc is one polling attempt. Return (true, nil) when the awaited
// condition holds, (false, nil) to keep polling, or a non-nil error to
// abort immediately. Retryable failures are the attempt's own business:
// swallow them and return (false, nil).
type PollFunc func(attempt int) (done bool, err error)

// Poll runs fn up to maxAttempts times with a fixed delay between attempts
// (no backoff). It returns the number of attempts made. Both polling loops
// in this system, attestation retrieval and call-status resolution, run
// through here so their budget semantics cannot drift apart.
func Poll(ctx context.Context, maxAttempts int, delay time.Duration, fn PollFunc) (int, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		done, err := fn(attempt)
		if err != nil {
			return attempt, err
		}
		if done {
			return attempt, nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(delay):
		}
	}
	return maxAttempts, ErrPollBudgetExhausted
}
