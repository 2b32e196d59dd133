package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient failure")

// recordingSleep captures backoff delays instead of sleeping.
func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestPolicyDo_TransientThenSuccess(t *testing.T) {
	var delays []time.Duration
	calls := 0

	p := Policy{
		Attempts:  3,
		BaseDelay: 750 * time.Millisecond,
		MaxDelay:  8 * time.Second,
		Retryable: func(error) bool { return true },
		Sleep:     recordingSleep(&delays),
	}

	attempts, err := p.Do(context.Background(), func() error {
		calls++
		if calls <= 2 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
	require.Len(t, delays, 2)
	assert.Equal(t, 750*time.Millisecond, delays[0])
	assert.Equal(t, 1500*time.Millisecond, delays[1])
}

func TestPolicyDo_Exhaustion(t *testing.T) {
	var delays []time.Duration
	calls := 0

	p := Policy{
		Attempts:  3,
		BaseDelay: 750 * time.Millisecond,
		MaxDelay:  8 * time.Second,
		Retryable: func(error) bool { return true },
		Sleep:     recordingSleep(&delays),
	}

	attempts, err := p.Do(context.Background(), func() error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
	assert.Len(t, delays, 2, "no sleep after the final attempt")
}

func TestPolicyDo_NonRetryableAbortsImmediately(t *testing.T) {
	var delays []time.Duration
	calls := 0

	p := Policy{
		Attempts:  5,
		BaseDelay: 750 * time.Millisecond,
		Retryable: func(error) bool { return false },
		Sleep:     recordingSleep(&delays),
	}

	attempts, err := p.Do(context.Background(), func() error {
		calls++
		return errors.New("permanent rejection")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestPolicyDo_BackoffIsNonDecreasingAndCapped(t *testing.T) {
	var delays []time.Duration

	p := Policy{
		Attempts:  7,
		BaseDelay: 750 * time.Millisecond,
		MaxDelay:  8 * time.Second,
		Retryable: func(error) bool { return true },
		Sleep:     recordingSleep(&delays),
	}

	_, err := p.Do(context.Background(), func() error { return errTransient })
	assert.ErrorIs(t, err, errTransient)

	require.Len(t, delays, 6)
	want := []time.Duration{
		750 * time.Millisecond,
		1500 * time.Millisecond,
		3 * time.Second,
		6 * time.Second,
		8 * time.Second,
		8 * time.Second,
	}
	assert.Equal(t, want, delays)

	for i := 1; i < len(delays); i++ {
		assert.GreaterOrEqual(t, delays[i], delays[i-1])
		assert.LessOrEqual(t, delays[i], 8*time.Second)
	}
}

func TestPolicyDo_CancelledSleepReturnsLastError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{
		Attempts:  3,
		BaseDelay: time.Hour, // real sleep would hang; cancellation must cut it short
		Retryable: func(error) bool { return true },
	}

	attempts, err := p.Do(ctx, func() error { return errTransient })

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, attempts)
}

func TestPolicyDo_ZeroAttemptsStillRunsOnce(t *testing.T) {
	calls := 0
	p := Policy{}

	attempts, err := p.Do(context.Background(), func() error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}
