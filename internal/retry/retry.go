package retry

import (
	"context"
	"math"
	"time"
)

// Policy holds configuration for a bounded retry loop with backoff.
// The same policy is shared by the order monitor, cancel and status lookups,
// and the exchange client.
type Policy struct {
	MaxAttempts   int           // total attempts, including the first
	InitialDelay  time.Duration // delay after the first failure
	MaxDelay      time.Duration // cap on the computed delay
	BackoffFactor float64       // multiplier applied per failure
}

// DefaultPolicy returns the policy used for exchange API calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		InitialDelay:  time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2.0,
	}
}

// FixedPolicy returns a policy that retries at a constant interval.
// Used by order cancel and status lookups (3 attempts, 1s apart).
func FixedPolicy(attempts int, pause time.Duration) Policy {
	return Policy{
		MaxAttempts:   attempts,
		InitialDelay:  pause,
		MaxDelay:      pause,
		BackoffFactor: 1.0,
	}
}

// Delay computes the backoff delay after the given number of consecutive
// failures (1-based).
func (p Policy) Delay(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	delay := time.Duration(float64(p.InitialDelay) * math.Pow(p.BackoffFactor, float64(failures-1)))
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Func is a function that can be retried.
type Func func() error

// Do executes fn under the policy, sleeping between attempts. It returns nil
// on the first success, the last error once attempts are exhausted, or the
// context error if ctx is cancelled while waiting.
func Do(ctx context.Context, policy Policy, fn Func) error {
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Delay(attempt)):
		}
	}

	return lastErr
}
