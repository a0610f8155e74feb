package orchestrator

import (
	"context"
	"strings"
	"time"

	"ledger-swap/pkg/errs"
)

// BackoffKind selects the delay growth between retry attempts.
type BackoffKind string

const (
	BackoffConstant    BackoffKind = "constant"
	BackoffLinear      BackoffKind = "linear"
	BackoffExponential BackoffKind = "exponential"
)

// RetryPolicy is a pure value describing the retry behavior.
type RetryPolicy struct {
	MaxAttempts  int
	Backoff      BackoffKind
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryPolicy matches the engine's standard execution retry.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		Backoff:      BackoffExponential,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// Delay returns the sleep before the given attempt number (1-based).
//
//	constant:    initial
//	linear:      min(initial * attempt, max)
//	exponential: min(initial * 2^(attempt-1), max)
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	var d time.Duration
	switch p.Backoff {
	case BackoffLinear:
		d = p.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		if attempt > 30 {
			return p.MaxDelay
		}
		d = p.InitialDelay * time.Duration(1<<(attempt-1))
	default:
		return p.InitialDelay
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// nonRetryable lists cause substrings that make a failure permanent:
// retrying cannot change the outcome.
var nonRetryable = []string{
	"insufficient balance",
	"insufficient funds",
	"wallet not connected",
	"user rejected",
	"cancelled",
	"invalid token",
	"same token",
}

// retryable reports whether a failed attempt is worth repeating.
func retryable(err error) bool {
	lower := strings.ToLower(err.Error())
	for _, s := range nonRetryable {
		if strings.Contains(lower, s) {
			return false
		}
	}
	return true
}

// ExecuteWithRetry runs op up to policy.MaxAttempts times, sleeping the
// policy's delay between attempts. Non-retryable failures are returned
// immediately; exhaustion wraps the last cause.
func ExecuteWithRetry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return "", err
		}
		lastErr = err

		if attempt < policy.MaxAttempts {
			select {
			case <-time.After(policy.Delay(attempt + 1)):
			case <-ctx.Done():
				return "", errs.ErrCancelled
			}
		}
	}

	return "", &errs.ExhaustedRetriesError{Attempts: policy.MaxAttempts, Last: lastErr}
}
