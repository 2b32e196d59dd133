package worker

import (
	"context"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/kmazurek/birthday-greeter/internal/model"
)

type birthdayService interface {
	GetBirthdaysByMonthDay(ctx context.Context, month time.Month, day int) ([]model.Birthday, error)
}

type greetingMailer interface {
	Enabled() bool
	Deliver(ctx context.Context, b model.Birthday) bool
}

// Checker runs one birthday check: it matches stored records against
// today's month and day and delivers a greeting to each match, one at a
// time. A failed delivery never stops the remaining matches; a store
// failure aborts the whole invocation.
//
// Repeated invocations on the same day re-send greetings: there is no
// de-duplication between the scheduled run and the manual trigger.
type Checker struct {
	service birthdayService
	mailer  greetingMailer
	now     func() time.Time
}

func NewChecker(s birthdayService, m greetingMailer) *Checker {
	return &Checker{service: s, mailer: m, now: time.Now}
}

// CheckBirthdays performs the scan for the current server-local date.
func (c *Checker) CheckBirthdays(ctx context.Context) {
	today := c.now()

	matches, err := c.service.GetBirthdaysByMonthDay(ctx, today.Month(), today.Day())
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("birthday check failed")
		return
	}

	zlog.Logger.Info().Int("count", len(matches)).Msg("found birthdays today")

	enabled := c.mailer.Enabled()

	var sent, failed, skipped int
	for _, b := range matches {
		// The month/day predicate is authoritative, not the store's
		// date-part projection.
		if !b.OccursOn(today) {
			continue
		}

		if !enabled {
			zlog.Logger.Info().Str("to", b.Email).Msg("would send birthday email (email not configured)")
			skipped++
			continue
		}

		if c.mailer.Deliver(ctx, b) {
			sent++
		} else {
			failed++
		}
	}

	zlog.Logger.Info().
		Int("sent", sent).
		Int("failed", failed).
		Int("skipped", skipped).
		Msg("birthday check finished")
}
