package mailer

import (
	"context"
	"time"
)

// Policy is a bounded retry policy with exponential backoff: up to Attempts
// tries, a delay of min(BaseDelay * 2^(attempt-1), MaxDelay) between them,
// and retries only for errors the Retryable predicate classifies as
// transient. Sleep is injectable for tests; when nil, a context-aware
// timer sleep is used.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Retryable func(error) bool
	Sleep     func(ctx context.Context, d time.Duration) error
}

// Do runs fn under the policy and returns the number of attempts made
// together with the terminal error, if any. Non-retryable errors abort
// immediately; exhausting all attempts returns the last error.
func (p Policy) Do(ctx context.Context, fn func() error) (int, error) {
	attempts := max(p.Attempts, 1)
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var attempt int
	for {
		err := fn()
		attempt++

		if err == nil {
			return attempt, nil
		}
		if attempt >= attempts || p.Retryable == nil || !p.Retryable(err) {
			return attempt, err
		}
		if serr := sleep(ctx, p.backoff(attempt)); serr != nil {
			return attempt, err
		}
	}
}

// backoff returns the delay before the attempt following the given one.
func (p Policy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
