package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsOnSecondAttempt(t *testing.T) {
	p := Policy{MaxAttempts: 3, Backoff: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return assert.AnError
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	var waits []time.Duration
	p := Policy{
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
		OnRetry: func(_ int, wait time.Duration, _ error) {
			waits = append(waits, wait)
		},
	}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 3, calls)
	// The wait doubles between attempts; no wait after the last one.
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestDoAbortsWaitOnContextCancel(t *testing.T) {
	p := Policy{MaxAttempts: 3, Backoff: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	start := time.Now()
	err := p.Do(ctx, func() error {
		calls++
		cancel()
		return assert.AnError
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation must abort the backoff wait, not retry")
	assert.Less(t, time.Since(start), time.Second)
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := Policy{}.Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
