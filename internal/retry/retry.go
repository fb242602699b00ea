// Package retry runs an operation a bounded number of times and keeps the
// history of every attempt for logging.
//
// Waiting between attempts is delegated to a cenkalti/backoff BackOff, so the
// SteamCMD updater can use a constant delay while tests use none.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/xoxserver/xox-server/internal/errors"
)

// Policy bounds a retry loop.
type Policy struct {
	// Operation names the work in errors and logs.
	Operation string
	// MaxAttempts is the total number of attempts, at least 1.
	MaxAttempts int
	// BackOff decides the wait before each further attempt. Nil means no wait.
	BackOff backoff.BackOff
	// Notify, if set, is called after a failed attempt that will be retried.
	Notify func(attempt Attempt, next time.Duration)
}

// Constant returns a policy waiting delay between attempts.
func Constant(operation string, attempts int, delay time.Duration) Policy {
	return Policy{
		Operation:   operation,
		MaxAttempts: attempts,
		BackOff:     backoff.NewConstantBackOff(delay),
	}
}

// Attempt records one run of the operation.
type Attempt struct {
	Number   int
	Err      error
	Duration time.Duration
}

// History lists the attempts of one Do call in order.
type History []Attempt

// Failures returns the number of failed attempts.
func (h History) Failures() int {
	n := 0
	for _, a := range h {
		if a.Err != nil {
			n++
		}
	}
	return n
}

// Do runs op until it succeeds, returns a non-retryable error, ctx is done,
// or the policy's attempts are used up. In the last case the error is an
// *errors.ExhaustedRetriesError wrapping the final attempt's error.
//
// Whether an error is retried is decided by errors.IsRetryable.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context, attempt int) error) (History, error) {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	bo := policy.BackOff
	if bo == nil {
		bo = &backoff.ZeroBackOff{}
	}

	var (
		history   History
		lastErr   error
		permanent bool
	)

	operation := func() (struct{}, error) {
		number := len(history) + 1
		started := time.Now()
		err := op(ctx, number)
		history = append(history, Attempt{Number: number, Err: err, Duration: time.Since(started)})
		if err == nil {
			return struct{}{}, nil
		}
		lastErr = err
		if !errors.IsRetryable(err) {
			permanent = true
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
	}
	if policy.Notify != nil {
		opts = append(opts, backoff.WithNotify(func(_ error, next time.Duration) {
			policy.Notify(history[len(history)-1], next)
		}))
	}

	_, err := backoff.Retry(ctx, operation, opts...)
	switch {
	case err == nil:
		return history, nil
	case permanent:
		return history, lastErr
	case ctx.Err() != nil:
		return history, ctx.Err()
	default:
		return history, errors.NewExhaustedRetriesError(policy.Operation, len(history), lastErr)
	}
}
