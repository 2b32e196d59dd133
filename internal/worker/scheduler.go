package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/wb-go/wbf/zlog"
)

// Scheduler fires the birthday check once per day at a fixed local
// wall-clock time.
type Scheduler struct {
	checker *Checker
	hour    int
	minute  int
}

// NewScheduler parses at as "15:04" local time, e.g. "07:00".
func NewScheduler(c *Checker, at string) (*Scheduler, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule time %q: %w", at, err)
	}

	return &Scheduler{checker: c, hour: t.Hour(), minute: t.Minute()}, nil
}

// Run blocks until ctx is cancelled, invoking the check at every daily
// tick. The first tick is the next occurrence of the configured time.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next := s.nextRun(time.Now())
		zlog.Logger.Info().Time("next_run", next).Msg("daily birthday check scheduled")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			zlog.Logger.Info().Msg("scheduler stopped")
			return
		case <-timer.C:
			zlog.Logger.Info().Msg("running daily birthday check")
			s.checker.CheckBirthdays(ctx)
		}
	}
}

func (s *Scheduler) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}
