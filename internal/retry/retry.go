// Package retry holds the backoff policy shared by outbound calls (AI
// provider, channel gateway).
package retry

import (
	"context"
	"time"
)

// Policy schedules retries with exponential backoff: the first failed attempt
// waits Backoff, and the wait doubles after each further failure.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration

	// OnRetry, when set, is called before each backoff wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// DefaultPolicy is the outbound-call schedule: 3 attempts, 2s/4s/8s waits.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Backoff: 2 * time.Second}
}

// Do runs fn until it succeeds or attempts are exhausted. A context cancelled
// during a backoff wait aborts immediately with ctx.Err().
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	wait := p.Backoff
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, lastErr)
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		wait *= 2
	}
	return lastErr
}
